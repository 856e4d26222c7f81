/*
 * @module service/models/result
 * @description 引擎对外的统一返回结构：单端点 Result 与任务流 JobResult
 * @architecture 数据模型层
 * @documentReference SPEC_FULL.md #6
 */

package models

// Result 是单端点调用的统一返回结构。
type Result struct {
	Code          int    `json:"code"`
	Success       bool   `json:"success"`
	Msg           string `json:"msg"`
	Data          any    `json:"data,omitempty"`
	Total         int64  `json:"total,omitempty"`
	AffectedRows  int    `json:"affectedRows,omitempty"`
	GeneratedKey  int64  `json:"generatedKey,omitempty"`
}

// Ok 构造一个成功的 Result。
func Ok(data any) *Result {
	return &Result{Code: 200, Success: true, Msg: "ok", Data: data}
}

// Fail 构造一个失败的 Result。
func Fail(msg string) *Result {
	return &Result{Code: 500, Success: false, Msg: msg}
}

// StepResult 记录任务流中单个步骤的执行结果。
type StepResult struct {
	StepName    string `json:"stepName"`
	Success     bool   `json:"success"`
	StepTimeMs  int64  `json:"stepTimeMs"`
	Data        any    `json:"data,omitempty"`
}

// JobResult 是任务流执行的统一返回结构。
type JobResult struct {
	Success     bool         `json:"success"`
	Msg         string       `json:"msg"`
	TotalTimeMs int64        `json:"totalTimeMs"`
	Steps       []StepResult `json:"steps"`
}

// JobOk 构造一个成功的 JobResult。
func JobOk(steps []StepResult, totalTimeMs int64) *JobResult {
	return &JobResult{Success: true, Msg: "ok", TotalTimeMs: totalTimeMs, Steps: steps}
}

// JobFail 构造一个失败的 JobResult。
func JobFail(msg string, steps []StepResult, totalTimeMs int64) *JobResult {
	return &JobResult{Success: false, Msg: msg, TotalTimeMs: totalTimeMs, Steps: steps}
}
