/*
 * @module api/controllers/job_controller
 * @description 任务流控制器：把 HTTP 请求翻译成一次 Executor.Run 调用
 * @architecture MVC架构 - 控制器层
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 * @dependencies orm-engine/service/jobflow, github.com/go-chi/chi/v5, github.com/go-chi/render
 */

package controllers

import (
	"net/http"

	"orm-engine/service/jobflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// JobController 处理 /api/v1/job/{jobKey} 请求。
type JobController struct {
	executor *jobflow.Executor
}

// NewJobController 创建任务流控制器实例。
func NewJobController(executor *jobflow.Executor) *JobController {
	return &JobController{executor: executor}
}

// Run 执行一个任务流。
// @Summary 执行任务流
// @Description 按声明式任务配置顺序执行 API/脚本步骤
// @Tags 任务流
// @Accept json
// @Produce json
// @Param jobKey path string true "任务标识"
// @Success 200 {object} APIResponse
// @Router /api/v1/job/{jobKey} [post]
func (c *JobController) Run(w http.ResponseWriter, r *http.Request) {
	jobKey := chi.URLParam(r, "jobKey")
	if jobKey == "" {
		render.JSON(w, r, BadRequestResponse("jobKey is required"))
		return
	}

	params, err := buildStandardParams(r)
	if err != nil {
		render.JSON(w, r, BadRequestResponse(err.Error()))
		return
	}

	result := c.executor.Run(r.Context(), jobKey, params, clientFingerprint(r))
	render.JSON(w, r, SuccessResponse(result.Msg, result))
}
