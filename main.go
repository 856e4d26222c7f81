/*
 * @module main
 * @description 进程入口：装配配置注册表、驱动适配器、编排器与任务流执行器，挂载 HTTP 路由
 * @architecture 分层架构 - 启动装配
 * @documentReference SPEC_FULL.md #6, #7 "Ambient addition — logging & config bootstrap"
 * @dependencies orm-engine/api, orm-engine/logger, orm-engine/service/*, github.com/go-chi/chi/v5
 * @refs main.go（teacher）
 */

package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"orm-engine/api"
	"orm-engine/logger"
	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/jobflow"
	"orm-engine/service/orchestrator"
	"orm-engine/service/script"
	"orm-engine/service/security"
	"orm-engine/service/sqlbuilder"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// @title ORM Engine API
// @version 1.0
// @description 配置驱动的关系型数据访问与任务流引擎
// @BasePath /
func main() {
	logger.InitLogger(getenv("LOG_LEVEL", "info"))

	configPattern := getenv("CONFIG_PATTERN", "config/**/*")
	registry, err := config.NewRegistry(configPattern, true, false)
	if err != nil {
		log.Fatalf("config registry init failed: %v", err)
	}
	defer registry.Close()

	if dbPath := os.Getenv("DB_CONFIG_PATH"); dbPath != "" {
		if err := registry.LoadDbConfig(dbPath); err != nil {
			log.Fatalf("db config load failed: %v", err)
		}
	}
	if registry.GetDBConfig() == nil {
		log.Fatalf("no db config found: set DB_CONFIG_PATH or place a db-config.{yaml,yml,json} file under %s", configPattern)
	}
	if authPath := os.Getenv("AUTH_CONFIG_PATH"); authPath != "" {
		if err := registry.LoadAuthConfig(authPath); err != nil {
			slog.Warn("auth config load failed, using built-in defaults", "error", err)
		}
	}

	adapter := driver.NewAdapter(registry.GetDBConfig())
	defer adapter.Close()

	builder := sqlbuilder.NewBuilder()
	limiter := security.NewInMemoryLimiter()
	orch := orchestrator.New(registry, builder, limiter)
	scripts := script.NewFactory()
	jobExecutor := jobflow.New(registry, orch, adapter, scripts, limiter)

	mux := chi.NewRouter()
	api.InitRoute(mux, api.Deps{
		Registry:     registry,
		Adapter:      adapter,
		Orchestrator: orch,
		JobExecutor:  jobExecutor,
	})
	mux.Handle("/swagger*", httpSwagger.WrapHandler)

	port := getenv("LISTEN_PORT", "8080")
	slog.Info("orm-engine listening", "port", port)
	if err := http.ListenAndServe(":"+strconv.Itoa(atoiOr(port, 8080)), mux); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
