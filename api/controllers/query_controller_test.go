/*
 * @module api/controllers/query_controller_test
 * @description 单端点查询控制器的端到端测试：真实路由 + SQLite 内存库
 * @documentReference SPEC_FULL.md #6 "Ambient addition — HTTP surface"
 */

package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"orm-engine/service/config"
	"orm-engine/service/driver"
	"orm-engine/service/models"
	"orm-engine/service/orchestrator"
	"orm-engine/service/security"
	"orm-engine/service/sqlbuilder"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueryController(t *testing.T) *chi.Mux {
	t.Helper()
	dir := t.TempDir()
	doc := `{"list_widgets":{"tableName":"widgets","dbDrive":{"drive":"sqlite","host":"default"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql-config-widgets.json"), []byte(doc), 0644))

	registry, err := config.NewRegistry(dir, false, false)
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	adapter := driver.NewAdapter(&models.DbConfig{
		SQLite: map[string]models.SqliteConfig{
			"default": {FilePath: "file:query_controller_test?mode=memory&cache=shared", Pool: models.PoolConfig{MaxPoolSize: 1}},
		},
	})
	t.Cleanup(adapter.Close)

	conn, err := adapter.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)").Error)
	require.NoError(t, conn.Exec("INSERT INTO widgets (id, name) VALUES (1, 'gizmo')").Error)

	orch := orchestrator.New(registry, sqlbuilder.NewBuilder(), security.NewInMemoryLimiter())
	queryController := NewQueryController(registry, adapter, orch)

	r := chi.NewRouter()
	r.Get("/api/v1/query/{apiKey}", queryController.Query)
	return r
}

func TestQueryControllerListReturnsWrappedResult(t *testing.T) {
	router := setupQueryController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/query/list_widgets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Status)
}

func TestQueryControllerUnknownAPIKeyReturns404Envelope(t *testing.T) {
	router := setupQueryController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/query/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 404, resp.Status)
}
