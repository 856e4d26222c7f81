/*
 * @module service/orchestrator/audit
 * @description 慢查询与审计日志：脱敏后落盘，遵循 SPEC_FULL.md #6 的掩码规则
 * @documentReference SPEC_FULL.md #4.7 step 8-9, #6 "Audit log line"
 * @rules 日志发射失败只记录 warn，不影响调用方结果（telemetry 永不致命）
 */

package orchestrator

import (
	"log/slog"
	"regexp"
	"time"

	"orm-engine/service/models"
	"orm-engine/service/sqlbuilder"
)

var (
	phonePattern  = regexp.MustCompile(`1[3-9]\d{9}`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	secretPattern = regexp.MustCompile(`(password|token|secret)[:=]\s*[^,;}]+`)
)

// maskValue 对单个参数值应用 SPEC_FULL.md #6 的三条掩码规则，非字符串原样返回。
func maskValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = phonePattern.ReplaceAllString(s, "***phone***")
	s = emailPattern.ReplaceAllString(s, "***email***")
	s = secretPattern.ReplaceAllString(s, "$1=***redacted***")
	return s
}

func maskArgs(args []any) []any {
	masked := make([]any, len(args))
	for i, a := range args {
		masked[i] = maskValue(a)
	}
	return masked
}

// logSlow 在耗时达到阈值且未关闭慢日志时，输出脱敏后的 SQL 与参数。
func logSlow(auth *models.AuthConfig, apiKey string, compiled *sqlbuilder.Compiled, cost time.Duration) {
	threshold := auth.EffectiveSlowLogThreshold()
	if !auth.IsSlowLogEnabled() || cost.Milliseconds() < int64(threshold) {
		return
	}
	slog.Warn("slow query", "apiKey", apiKey, "cost_ms", cost.Milliseconds(), "sql", compiled.SQL, "args", maskArgs(compiled.Args))
}

// logAudit 记录每次调用的审计轨迹：apiKey、签名步骤产出的规范字符串、耗时。
func logAudit(apiKey, canonical string, cost time.Duration) {
	slog.Info("audit", "apiKey", apiKey, "signed", canonical, "cost_ms", cost.Milliseconds(), "ts", time.Now().Unix())
}
