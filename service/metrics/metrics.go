/*
 * @module service/metrics
 * @description 请求/任务结果与耗时的 Prometheus 指标：默认注册表上的计数器与直方图
 * @architecture 横切关注点 - 可观测性
 * @documentReference SPEC_FULL.md #2 C11
 * @refs main.go（teacher 挂载 promhttp.Handler() 到 /metrics，未定义自有指标——本模块是对该依赖的自然延伸）
 * @dependencies github.com/prometheus/client_golang/prometheus
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal 按 apiKey/operation/outcome 统计单端点请求量。
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orm_engine_requests_total",
		Help: "Total number of endpoint requests processed by the orchestrator.",
	}, []string{"api_key", "operation", "outcome"})

	// RequestDuration 记录单端点请求的端到端耗时分布。
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orm_engine_request_duration_seconds",
		Help:    "End-to-end duration of a single endpoint request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"api_key", "operation"})

	// JobsTotal 按 jobKey/outcome 统计任务流执行量。
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orm_engine_jobs_total",
		Help: "Total number of job-flow executions, by outcome.",
	}, []string{"job_key", "outcome"})

	// JobDuration 记录任务流执行的总耗时分布。
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orm_engine_job_duration_seconds",
		Help:    "End-to-end duration of a job-flow execution.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job_key"})

	// RateLimitRejections 统计被限流器拒绝的次数。
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orm_engine_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter.",
	}, []string{"scope"})
)

// Outcome 把 success bool 归一化为指标标签值。
func Outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
