/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/routes.go（teacher）
 */

package api

import (
	"orm-engine/api/controllers"
	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/jobflow"
	"orm-engine/service/orchestrator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 聚合路由初始化所需的已构造服务，由 main.go 装配后传入。
type Deps struct {
	Registry     *config.Registry
	Adapter      *driver.Adapter
	Orchestrator *orchestrator.Orchestrator
	JobExecutor  *jobflow.Executor
}

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, deps Deps) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthController := controllers.NewHealthController()
	r.Get("/healthz", healthController.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		queryController := controllers.NewQueryController(deps.Registry, deps.Adapter, deps.Orchestrator)
		r.Get("/query/{apiKey}", queryController.Query)
		r.Post("/query/{apiKey}", queryController.Query)

		jobController := controllers.NewJobController(deps.JobExecutor)
		r.Post("/job/{jobKey}", jobController.Run)

		adminController := controllers.NewAdminController(deps.Registry)
		r.Post("/admin/config/reload", adminController.ReloadConfig)
	})
}
