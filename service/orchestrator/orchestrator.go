/*
 * @module service/orchestrator
 * @description 单端点请求编排器：把 C1-C5 串成一次完整调用，收尾处做慢查询与审计日志
 * @architecture 核心领域层 - 请求编排
 * @documentReference SPEC_FULL.md #4.7
 * @stateFlow 查配置 -> 合并鉴权 -> 签名 -> 限流 -> 解析参数 -> 编译SQL -> 执行 -> 落盘日志 -> Result
 * @rules 不关闭调用方传入的 Connection；结果集用完即关
 * @dependencies orm-engine/service/{config,sqlbuilder,param,security,models,ormerr}
 * @refs original_source/core/OrmProcessor.java
 */

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"orm-engine/service/config"
	"orm-engine/service/metrics"
	"orm-engine/service/models"
	"orm-engine/service/ormerr"
	"orm-engine/service/param"
	"orm-engine/service/security"
	"orm-engine/service/sqlbuilder"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

const (
	OpModify   = "modify"
	OpList     = "list"
	OpPage     = "page"
	OpDeepPage = "deep_page"
)

// Orchestrator 编排单个端点的一次调用：C1-C5 的唯一汇合点。
type Orchestrator struct {
	registry *config.Registry
	builder  *sqlbuilder.Builder
	limiter  security.Limiter
}

// New 创建一个请求编排器。
func New(registry *config.Registry, builder *sqlbuilder.Builder, limiter security.Limiter) *Orchestrator {
	return &Orchestrator{registry: registry, builder: builder, limiter: limiter}
}

// Execute 执行 SPEC_FULL.md #4.7 描述的十步流程，conn 的生命周期由调用方管理。
func (o *Orchestrator) Execute(ctx context.Context, apiKey, operation string, params *models.StandardParams, conn *gorm.DB, clientFingerprint string) *models.Result {
	start := time.Now()
	result := o.execute(ctx, apiKey, operation, params, conn, clientFingerprint)

	metrics.RequestsTotal.WithLabelValues(apiKey, operation, metrics.Outcome(result.Success)).Inc()
	metrics.RequestDuration.WithLabelValues(apiKey, operation).Observe(time.Since(start).Seconds())
	return result
}

func (o *Orchestrator) execute(ctx context.Context, apiKey, operation string, params *models.StandardParams, conn *gorm.DB, clientFingerprint string) *models.Result {
	start := time.Now()

	endpoint, ok := o.registry.GetSQLConfig(apiKey)
	if !ok {
		return models.Fail("unknown apiKey: " + apiKey)
	}

	auth := o.registry.GetEffectiveAuth(endpoint.AuthConfig)
	merged := params.Merge()

	canonical := "unsigned"
	if endpoint.RequireAuth {
		sig := security.NewValidator(auth)
		c, err := sig.Validate(merged)
		if err != nil {
			return resultFromError(err)
		}
		canonical = c
	}

	if o.limiter != nil && auth.RateLimitMax > 0 {
		window := auth.RateLimitWindow
		if window == 0 {
			window = models.DefaultAuthConfig().RateLimitWindow
		}
		if err := o.limiter.Check(apiKey, clientFingerprint, auth.RateLimitMax, window, auth.IntervalMin); err != nil {
			metrics.RateLimitRejections.WithLabelValues(apiKey).Inc()
			return resultFromError(err)
		}
	}

	resolved, err := param.Resolve(endpoint, params)
	if err != nil {
		return resultFromError(err)
	}
	// current_page/page_size/max_total 是分页控制参数，不在 paramsMapping 里声明，
	// 但 SQL Builder 需要从 resolved 里读到它们，直接从合并参数里透传。
	for _, k := range []string{"current_page", "page_size", "max_total"} {
		if v, ok := params.Param(k); ok {
			resolved[k] = v
		}
	}

	compiled, result, err := o.build(endpoint, operation, resolved)
	if err != nil {
		return resultFromError(err)
	}
	if compiled == nil {
		return result
	}

	res, err := o.run(ctx, conn, operation, compiled)
	cost := time.Since(start)
	if err != nil {
		slog.Error("orchestrator: execution failed", "apiKey", apiKey, "cost_ms", cost.Milliseconds(), "error", err)
		return resultFromError(ormerr.Wrap(ormerr.KindDriver, "execute failed", err))
	}

	logSlow(auth, apiKey, compiled, cost)
	logAudit(apiKey, canonical, cost)

	return res
}

// build 按操作类型选择 PAGE/DEEP_PAGE 的隐式切换，编译出 SQL；MODIFY/LIST 无切换逻辑。
func (o *Orchestrator) build(endpoint *models.EndpointDef, operation string, resolved map[string]any) (*sqlbuilder.Compiled, *models.Result, error) {
	dialect := endpoint.DbDrive.Drive
	switch operation {
	case OpModify:
		c, err := o.builder.BuildModify(dialect, endpoint, resolved)
		return c, nil, err
	case OpList:
		c, err := o.builder.BuildList(dialect, endpoint, resolved)
		return c, nil, err
	case OpDeepPage:
		c, err := o.builder.BuildDeepPage(dialect, endpoint, resolved)
		return c, nil, err
	case OpPage:
		if sqlbuilder.ShouldUseDeepPage(endpoint, resolved, false) {
			c, err := o.builder.BuildDeepPage(dialect, endpoint, resolved)
			return c, nil, err
		}
		c, err := o.builder.BuildPage(dialect, endpoint, resolved)
		return c, nil, err
	default:
		return nil, nil, ormerr.New(ormerr.KindBuild, "unsupported operation: "+operation)
	}
}

// run 在 conn 上执行已编译的语句；MODIFY 捕获影响行数与生成主键，其余流式读入行 map 切片。
func (o *Orchestrator) run(ctx context.Context, conn *gorm.DB, operation string, compiled *sqlbuilder.Compiled) (*models.Result, error) {
	// conn 为事务句柄时 ConnPool 是该 *sql.Tx，否则是底层 *sql.DB。
	pool := conn.Statement.ConnPool

	if operation == OpModify {
		res, err := pool.ExecContext(ctx, compiled.SQL, compiled.Args...)
		if err != nil {
			return nil, err
		}
		affected, _ := res.RowsAffected()
		genKey, _ := res.LastInsertId() // MSSQL 驱动不支持时静默为 0（DriverError 不应因此产生）
		return &models.Result{Code: 200, Success: true, Msg: "ok", AffectedRows: int(affected), GeneratedKey: genKey}, nil
	}

	rows, err := pool.QueryContext(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	var total int64
	if len(data) > 0 {
		if tc, ok := data[0]["TotalCount"]; ok {
			total = cast.ToInt64(tc)
		}
	}
	return &models.Result{Code: 200, Success: true, Msg: "ok", Data: data, Total: total}, nil
}

func scanRows(rows interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
}) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func resultFromError(err error) *models.Result {
	return models.Fail(err.Error())
}
