/*
 * @module service/jobflow
 * @description 任务流执行器：按声明顺序跑 API/脚本步骤，多数据源事务信封，失败即整体回滚
 * @architecture 核心领域层 - 任务流编排
 * @documentReference SPEC_FULL.md #4.8
 * @stateFlow 查JobDef -> 鉴权 -> 逐步执行(API经Orchestrator | Script经Executor) -> 发布step结果到上下文 -> CommitAll|RollbackAll
 * @rules 任一步骤失败短路剩余步骤；连接无论成败都在 finally 语义下关闭
 * @dependencies orm-engine/service/{config,orchestrator,txcoord,script,security,models,ormerr,driver}
 * @refs original_source/core/JobProcessor.java
 */

package jobflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/metrics"
	"orm-engine/service/models"
	"orm-engine/service/orchestrator"
	"orm-engine/service/ormerr"
	"orm-engine/service/script"
	"orm-engine/service/security"
	"orm-engine/service/txcoord"
)

// Executor 跑一个 JobDef 声明的有序步骤流。
type Executor struct {
	registry     *config.Registry
	orchestrator *orchestrator.Orchestrator
	adapter      *driver.Adapter
	scripts      *script.Factory
	limiter      security.Limiter
}

// New 创建一个任务流执行器。
func New(registry *config.Registry, orch *orchestrator.Orchestrator, adapter *driver.Adapter, scripts *script.Factory, limiter security.Limiter) *Executor {
	return &Executor{registry: registry, orchestrator: orch, adapter: adapter, scripts: scripts, limiter: limiter}
}

// Run 执行 SPEC_FULL.md #4.8 描述的六步流程。
func (e *Executor) Run(ctx context.Context, jobKey string, params *models.StandardParams, clientFingerprint string) *models.JobResult {
	start := time.Now()
	result := e.run(ctx, jobKey, params, clientFingerprint)

	metrics.JobsTotal.WithLabelValues(jobKey, metrics.Outcome(result.Success)).Inc()
	metrics.JobDuration.WithLabelValues(jobKey).Observe(time.Since(start).Seconds())
	return result
}

func (e *Executor) run(ctx context.Context, jobKey string, params *models.StandardParams, clientFingerprint string) *models.JobResult {
	start := time.Now()

	job, ok := e.registry.GetJobConfig(jobKey)
	if !ok {
		return models.JobFail("unknown jobKey: "+jobKey, nil, elapsedMs(start))
	}
	if len(job.Jobs) == 0 {
		return models.JobFail("job has no steps", nil, elapsedMs(start))
	}

	merged := params.Merge()
	if job.RequireAuth {
		auth := e.registry.GetEffectiveAuth(job.AuthConfig)
		if _, err := security.NewValidator(auth).Validate(merged); err != nil {
			return models.JobFail(err.Error(), nil, elapsedMs(start))
		}
		if e.limiter != nil && auth.RateLimitMax > 0 {
			window := auth.RateLimitWindow
			if window == 0 {
				window = models.DefaultAuthConfig().RateLimitWindow
			}
			if err := e.limiter.Check(jobKey, clientFingerprint, auth.RateLimitMax, window, auth.IntervalMin); err != nil {
				metrics.RateLimitRejections.WithLabelValues(jobKey).Inc()
				return models.JobFail(err.Error(), nil, elapsedMs(start))
			}
		}
	}

	scope := txcoord.NewScope(e.adapter, job.IsTransactional())
	defer scope.CloseAll()

	stepCtx := make(map[string]any, len(merged))
	for k, v := range merged {
		stepCtx[k] = v
	}

	steps := make([]models.StepResult, 0, len(job.Jobs))
	for i, step := range job.Jobs {
		stepStart := time.Now()
		stepName := fmt.Sprintf("step_%d_%s", i+1, step.Type)

		data, err := e.runStep(ctx, scope, step, params, stepCtx, clientFingerprint)
		sr := models.StepResult{StepName: stepName, StepTimeMs: time.Since(stepStart).Milliseconds()}
		if err != nil {
			sr.Success = false
			steps = append(steps, sr)
			scope.RollbackAll()
			slog.Error("jobflow: step failed, rolling back", "jobKey", jobKey, "step", stepName, "error", err)
			return models.JobFail(err.Error(), steps, elapsedMs(start))
		}
		sr.Success = true
		sr.Data = data
		steps = append(steps, sr)
		stepCtx[stepName] = data
	}

	if err := scope.CommitAll(); err != nil {
		slog.Error("jobflow: commit failed", "jobKey", jobKey, "error", err)
		return models.JobFail(err.Error(), steps, elapsedMs(start))
	}

	return models.JobOk(steps, elapsedMs(start))
}

// runStep 分发单个步骤：api 经 Orchestrator 在共享连接上执行，script 经脚本执行器运行。
func (e *Executor) runStep(ctx context.Context, scope *txcoord.Scope, step models.JobStep, params *models.StandardParams, stepCtx map[string]any, clientFingerprint string) (any, error) {
	switch step.Type {
	case "api":
		return e.runAPIStep(ctx, scope, step, params, clientFingerprint)
	case "script":
		return e.runScriptStep(step, stepCtx)
	default:
		return nil, ormerr.New(ormerr.KindBuild, "unknown job step type: "+step.Type)
	}
}

func (e *Executor) runAPIStep(ctx context.Context, scope *txcoord.Scope, step models.JobStep, params *models.StandardParams, clientFingerprint string) (any, error) {
	endpoint, ok := e.registry.GetSQLConfig(step.APIKey)
	if !ok {
		return nil, ormerr.New(ormerr.KindConfig, "unknown apiKey in job step: "+step.APIKey)
	}

	conn, err := scope.Connection(endpoint.DbDrive.Drive, endpoint.DbDrive.Host)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.KindDriver, "acquire job step connection failed", err)
	}

	result := e.orchestrator.Execute(ctx, step.APIKey, step.Operation, params, conn, clientFingerprint)
	if !result.Success {
		return nil, ormerr.New(ormerr.KindDriver, fmt.Sprintf("step %s failed: %s", step.APIKey, result.Msg))
	}
	if result.Data != nil {
		return result.Data, nil
	}
	return result, nil
}

func (e *Executor) runScriptStep(step models.JobStep, stepCtx map[string]any) (any, error) {
	exec, err := e.scripts.GetExecutor(step.ScriptType)
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]any, len(stepCtx))
	for k, v := range stepCtx {
		bindings[k] = v
	}
	return exec.Execute(step.ScriptContent, bindings)
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
