/*
 * @module service/driver
 * @description 方言驱动适配层：按 (drive, host) 惰性建立 GORM 连接池，提供占位符与分页子句生成
 * @architecture 工具层 - 数据访问基础设施
 * @documentReference SPEC_FULL.md #4.2
 * @stateFlow Connection -> 持锁查找或惰性建池 -> 返回 *gorm.DB
 * @rules MySQL/SQLite 占位符为 ?；MSSQL 占位符为从 0 开始的 @pN，绑定索引同样从 0 开始
 * @dependencies gorm.io/gorm, gorm.io/driver/mysql, gorm.io/driver/sqlserver, gorm.io/driver/sqlite
 * @refs original_source/driver/{DatabaseDriver,MySQLDriver,MSSQLDriver,SQLiteDriver}.java
 */

package driver

import (
	"fmt"
	"sync"
	"time"

	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DialectMySQL  = "mysql"
	DialectMSSQL  = "mssql"
	DialectSQLite = "sqlite"
)

// Adapter 按 (dialect, host) 惰性建立并缓存连接池，暴露占位符/分页子句的方言差异。
type Adapter struct {
	dbConfig *models.DbConfig

	mu    sync.Mutex
	pools map[string]*gorm.DB // key: dialect+host
}

// NewAdapter 创建一个驱动适配器；dbConfig 为 nil 时所有 Connection 调用都会失败。
func NewAdapter(dbConfig *models.DbConfig) *Adapter {
	return &Adapter{dbConfig: dbConfig, pools: map[string]*gorm.DB{}}
}

// Connection 返回 dialect/host 对应的连接池，惰性初始化；查找与建池全程持有同一把互斥锁，没有无锁的快速路径。
func (a *Adapter) Connection(dialect, host string) (*gorm.DB, error) {
	key := dialect + host
	a.mu.Lock()
	defer a.mu.Unlock()

	if db, ok := a.pools[key]; ok {
		return db, nil
	}

	db, err := a.open(dialect, host)
	if err != nil {
		return nil, err
	}
	a.pools[key] = db
	return db, nil
}

func (a *Adapter) open(dialect, host string) (*gorm.DB, error) {
	if a.dbConfig == nil {
		return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("no db config loaded for %s/%s", dialect, host))
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch dialect {
	case DialectMySQL:
		cfg, ok := a.dbConfig.MySQL[host]
		if !ok {
			return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("mysql datasource not found: %s", host))
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		db, err := gorm.Open(mysql.Open(dsn), gormCfg)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.KindDriver, "open mysql failed", err)
		}
		applyPool(db, cfg.Pool)
		return db, nil
	case DialectMSSQL:
		cfg, ok := a.dbConfig.MSSQL[host]
		if !ok {
			return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("mssql datasource not found: %s", host))
		}
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		db, err := gorm.Open(sqlserver.Open(dsn), gormCfg)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.KindDriver, "open mssql failed", err)
		}
		applyPool(db, cfg.Pool)
		return db, nil
	case DialectSQLite:
		cfg, ok := a.dbConfig.SQLite[host]
		if !ok {
			return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("sqlite datasource not found: %s", host))
		}
		db, err := gorm.Open(sqlite.Open(cfg.FilePath), gormCfg)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.KindDriver, "open sqlite failed", err)
		}
		applyPool(db, cfg.Pool)
		return db, nil
	default:
		return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("unsupported dialect: %s", dialect))
	}
}

func applyPool(db *gorm.DB, pool models.PoolConfig) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	max := pool.MaxPoolSize
	if max == 0 {
		max = models.DefaultPoolConfig().MaxPoolSize
	}
	sqlDB.SetMaxOpenConns(max)
	// database/sql 没有"最小空闲连接"设置：空闲连接最多保留 max 个，MinIdle 不参与。
	sqlDB.SetMaxIdleConns(max)
	if pool.IdleTimeout > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.IdleTimeout) * time.Millisecond)
	}
}

// Placeholder 返回 dialect 下第 paramIndex（从 0 开始）个占位符的文本形式。
func Placeholder(dialect string, paramIndex int) string {
	if dialect == DialectMSSQL {
		return fmt.Sprintf("@p%d", paramIndex)
	}
	return "?"
}

// PageClause 返回 dialect 下的分页子句。
func PageClause(dialect string, offset, size int) string {
	if dialect == DialectMSSQL {
		return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, size)
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", size, offset)
}

// Close 关闭所有已建立的连接池，用于进程优雅退出。
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, db := range a.pools {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	a.pools = map[string]*gorm.DB{}
}
