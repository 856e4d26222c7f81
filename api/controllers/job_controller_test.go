/*
 * @module api/controllers/job_controller_test
 * @description 任务流/管理/健康检查控制器的端到端测试
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 */

package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/jobflow"
	"orm-engine/service/models"
	"orm-engine/service/orchestrator"
	"orm-engine/service/script"
	"orm-engine/service/security"
	"orm-engine/service/sqlbuilder"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJobController(t *testing.T) *chi.Mux {
	t.Helper()
	dir := t.TempDir()

	sqlDoc := `{"insert_log":{"tableName":"logs","dbDrive":{"drive":"sqlite","host":"default"},"mutableFields":["id","msg"],"paramsMapping":[{"field":"msg","source":"body"}]}}`
	jobDoc := `{"log_job":{"jobs":[{"type":"api","apiKey":"insert_log","operation":"modify"}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql-config-log.json"), []byte(sqlDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-config-log.json"), []byte(jobDoc), 0644))

	registry, err := config.NewRegistry(dir, false, false)
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	adapter := driver.NewAdapter(&models.DbConfig{
		SQLite: map[string]models.SqliteConfig{
			"default": {FilePath: "file:job_controller_test?mode=memory&cache=shared", Pool: models.PoolConfig{MaxPoolSize: 1}},
		},
	})
	t.Cleanup(adapter.Close)
	conn, err := adapter.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("CREATE TABLE logs (id INTEGER PRIMARY KEY, msg TEXT)").Error)

	orch := orchestrator.New(registry, sqlbuilder.NewBuilder(), security.NewInMemoryLimiter())
	jobExecutor := jobflow.New(registry, orch, adapter, script.NewFactory(), security.NewInMemoryLimiter())
	jobController := NewJobController(jobExecutor)
	adminController := NewAdminController(registry)
	healthController := NewHealthController()

	r := chi.NewRouter()
	r.Post("/api/v1/job/{jobKey}", jobController.Run)
	r.Post("/api/v1/admin/config/reload", adminController.ReloadConfig)
	r.Get("/healthz", healthController.Health)
	return r
}

func TestJobControllerRunsConfiguredJob(t *testing.T) {
	router := setupJobController(t)

	body := strings.NewReader(`{"msg":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/job/log_job", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Status)
}

func TestJobControllerMissingJobKeyReturns404(t *testing.T) {
	router := setupJobController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/job/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminControllerReloadsConfig(t *testing.T) {
	router := setupJobController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/config/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Status)
}

func TestHealthControllerReportsOK(t *testing.T) {
	router := setupJobController(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
