/*
 * @module api/controllers/admin_controller
 * @description 管理控制器：配置热重载等运维操作
 * @architecture MVC架构 - 控制器层
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 * @dependencies orm-engine/service/config, github.com/go-chi/render
 */

package controllers

import (
	"net/http"

	"orm-engine/service/config"

	"github.com/go-chi/render"
)

// AdminController 处理运维类请求。
type AdminController struct {
	registry *config.Registry
}

// NewAdminController 创建管理控制器实例。
func NewAdminController(registry *config.Registry) *AdminController {
	return &AdminController{registry: registry}
}

// ReloadConfig 触发一次全量配置重载。
// @Summary 重载配置
// @Description 立即重新扫描配置目录并原子替换生效快照
// @Tags 管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/v1/admin/config/reload [post]
func (c *AdminController) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := c.registry.Load(); err != nil {
		render.JSON(w, r, ErrorResponse(500, err.Error()))
		return
	}
	render.JSON(w, r, SuccessResponse("config reloaded", nil))
}
