/*
 * @module api/controllers/query_controller
 * @description 单端点查询/变更控制器：把 HTTP 请求翻译成一次 Orchestrator.Execute 调用
 * @architecture MVC架构 - 控制器层
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 * @dependencies orm-engine/service/{config,driver,orchestrator}, github.com/go-chi/chi/v5, github.com/go-chi/render
 */

package controllers

import (
	"net/http"

	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/orchestrator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// QueryController 处理 /api/v1/query/{apiKey} 请求。
type QueryController struct {
	registry     *config.Registry
	adapter      *driver.Adapter
	orchestrator *orchestrator.Orchestrator
}

// NewQueryController 创建单端点查询控制器实例。
func NewQueryController(registry *config.Registry, adapter *driver.Adapter, orch *orchestrator.Orchestrator) *QueryController {
	return &QueryController{registry: registry, adapter: adapter, orchestrator: orch}
}

// Query 处理 LIST/PAGE/DEEP_PAGE（GET，?op= 指定操作）与 MODIFY（POST）。
// @Summary 执行单端点查询或变更
// @Description 按声明式端点配置编译并执行一次 SQL 调用
// @Tags 查询
// @Produce json
// @Param apiKey path string true "端点标识"
// @Param op query string false "list|page|deep_page，POST 默认为 modify"
// @Success 200 {object} APIResponse
// @Router /api/v1/query/{apiKey} [get]
func (c *QueryController) Query(w http.ResponseWriter, r *http.Request) {
	apiKey := chi.URLParam(r, "apiKey")
	if apiKey == "" {
		render.JSON(w, r, BadRequestResponse("apiKey is required"))
		return
	}

	endpoint, ok := c.registry.GetSQLConfig(apiKey)
	if !ok {
		render.JSON(w, r, NotFoundResponse("unknown apiKey: "+apiKey))
		return
	}

	params, err := buildStandardParams(r)
	if err != nil {
		render.JSON(w, r, BadRequestResponse(err.Error()))
		return
	}

	operation := orchestrator.OpModify
	if r.Method == http.MethodGet {
		operation = r.URL.Query().Get("op")
		if operation == "" {
			operation = orchestrator.OpList
		}
	}

	conn, err := c.adapter.Connection(endpoint.DbDrive.Drive, endpoint.DbDrive.Host)
	if err != nil {
		render.JSON(w, r, ErrorResponse(500, err.Error()))
		return
	}

	result := c.orchestrator.Execute(r.Context(), apiKey, operation, params, conn, clientFingerprint(r))
	render.JSON(w, r, SuccessResponse(result.Msg, result))
}
