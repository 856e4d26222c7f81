/*
 * @module service/txcoord
 * @description 单任务内多数据源的事务信封：按插入顺序提交，失败时对已注册连接做最佳努力补偿回滚
 * @architecture 核心领域层 - 事务协调
 * @documentReference SPEC_FULL.md #4.6
 * @stateFlow Connection -> (多个步骤复用同一连接) -> CommitAll | RollbackAll -> CloseAll
 * @rules 不使用 goroutine 本地状态；Scope 由调用方显式创建并传递，随函数返回而丢弃
 * @refs original_source/transaction/impl/JdbcTransactionManager.java, original_source/core/JobProcessor.java
 */

package txcoord

import (
	"log/slog"
	"sync"

	"orm-engine/service/driver"
	"orm-engine/service/ormerr"

	"gorm.io/gorm"
)

// entry 记录一个数据源上打开的连接以及（如果处于事务模式）其事务句柄。
type entry struct {
	key   string
	db    *gorm.DB // 非事务模式下使用的普通连接
	tx    *gorm.DB // 事务模式下使用的事务连接；nil 表示未开启事务
	plain *gorm.DB // 开启 tx 所用的原始非事务连接
}

// Scope 是一个任务/请求生命周期内的连接与事务缓存，取代原始实现里的 ThreadLocal。
type Scope struct {
	adapter     *driver.Adapter
	transactional bool

	mu      sync.Mutex
	entries []*entry
	byKey   map[string]*entry
}

// NewScope 创建一个新的事务信封；transactional 对应 JobDef.transaction。
func NewScope(adapter *driver.Adapter, transactional bool) *Scope {
	return &Scope{adapter: adapter, transactional: transactional, byKey: map[string]*entry{}}
}

// Connection 返回 (dialect,host) 对应的连接：job 内首次访问时惰性获取/开启事务，此后复用。
func (s *Scope) Connection(dialect, host string) (*gorm.DB, error) {
	key := dialect + host

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byKey[key]; ok {
		if e.tx != nil {
			return e.tx, nil
		}
		return e.db, nil
	}

	plain, err := s.adapter.Connection(dialect, host)
	if err != nil {
		return nil, err
	}

	e := &entry{key: key, plain: plain}
	if s.transactional {
		tx := plain.Begin()
		if tx.Error != nil {
			return nil, ormerr.Wrap(ormerr.KindTransaction, "begin transaction failed", tx.Error)
		}
		e.tx = tx
	} else {
		e.db = plain
	}
	s.entries = append(s.entries, e)
	s.byKey[key] = e
	return s.activeConn(e), nil
}

func (s *Scope) activeConn(e *entry) *gorm.DB {
	if e.tx != nil {
		return e.tx
	}
	return e.db
}

// CommitAll 按注册顺序提交所有事务连接；任一提交失败，对全部连接做补偿回滚后返回错误。
func (s *Scope) CommitAll() error {
	if !s.transactional {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.tx == nil {
			continue
		}
		if err := e.tx.Commit().Error; err != nil {
			s.rollbackAllLocked()
			return ormerr.Wrap(ormerr.KindTransaction, "partial commit: rolled back all datasources", err)
		}
	}
	return nil
}

// RollbackAll 回滚所有注册的事务连接；单个连接回滚失败只记录日志，不中断其余连接的回滚。
func (s *Scope) RollbackAll() {
	if !s.transactional {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbackAllLocked()
}

func (s *Scope) rollbackAllLocked() {
	for _, e := range s.entries {
		if e.tx == nil {
			continue
		}
		if err := e.tx.Rollback().Error; err != nil {
			slog.Warn("rollback failed", "datasource", e.key, "error", err)
		}
	}
}

// CloseAll 归还所有已打开的底层连接；无论任务成功与否都应在 defer 中调用。
func (s *Scope) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		// *gorm.DB 背后的连接池由 driver.Adapter 统一持有生命周期（#4.2），这里不关闭底层池；
		// 尚未提交或回滚的事务在此回滚，把它占用的连接还给连接池（已终结的事务上这是空操作）。
		if e.tx != nil {
			_ = e.tx.Rollback().Error
		}
	}
	s.entries = nil
	s.byKey = map[string]*entry{}
}
