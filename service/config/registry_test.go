/*
 * @module service/config/registry_test
 * @description 配置目录扫描、分类、部分失败容错与热更新的单元测试
 * @documentReference SPEC_FULL.md #4.1
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"orm-engine/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadClassifiesByPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sql-config-users.json", `{"list_users":{"tableName":"users","dbDrive":{"drive":"mysql","host":"default"}}}`)
	writeFile(t, dir, "job-config-onboard.json", `{"onboard":{"jobs":[{"type":"api","apiKey":"list_users"}]}}`)
	writeFile(t, dir, "notes.txt", "ignore me")

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	endpoint, ok := r.GetSQLConfig("list_users")
	require.True(t, ok)
	assert.Equal(t, "users", endpoint.TableName)

	job, ok := r.GetJobConfig("onboard")
	require.True(t, ok)
	assert.Len(t, job.Jobs, 1)
}

func TestLoadSkipsInvalidDocumentsButKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sql-config-good.json", `{"good_key":{"tableName":"t","dbDrive":{"drive":"mysql","host":"default"}}}`)
	writeFile(t, dir, "sql-config-broken.json", `{not valid json`)
	writeFile(t, dir, "sql-config-missing-key.json", `{"":{"tableName":"t"}}`)

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.GetSQLConfig("good_key")
	assert.True(t, ok)
}

func TestLoadSupportsYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sql-config-users.yaml", "list_users:\n  tableName: users\n  dbDrive:\n    drive: mysql\n    host: default\n")

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	endpoint, ok := r.GetSQLConfig("list_users")
	require.True(t, ok)
	assert.Equal(t, "users", endpoint.TableName)
}

func TestLoadDbConfigAndAuthConfig(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeFile(t, dir, "db.json", `{"mysql":{"default":{"host":"127.0.0.1","port":3306,"database":"app","user":"root","password":"pw"}}}`)
	authPath := writeFile(t, dir, "auth.json", `{"rateLimitMax":50}`)

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.LoadDbConfig(dbPath))
	require.NoError(t, r.LoadAuthConfig(authPath))

	cfg := r.GetDBConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "app", cfg.MySQL["default"].Database)

	auth := r.GetEffectiveAuth(nil)
	assert.Equal(t, 50, auth.RateLimitMax)
	assert.Equal(t, "sha256", auth.SignatureAlgorithm)
}

func TestGetEffectiveAuthFieldWiseMerge(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), false, false)
	require.NoError(t, err)
	defer r.Close()

	override := &models.AuthConfig{RateLimitMax: 999}
	merged := r.GetEffectiveAuth(override)
	assert.Equal(t, 999, merged.RateLimitMax)
	assert.Equal(t, models.DefaultAuthConfig().RateLimitWindow, merged.RateLimitWindow)
}

func TestLoadPicksUpChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sql-config-a.json", `{"a":{"tableName":"t1","dbDrive":{"drive":"mysql","host":"default"}}}`)

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.GetSQLConfig("a")
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"a":{"tableName":"t2","dbDrive":{"drive":"mysql","host":"default"}}}`), 0644))
	require.NoError(t, r.Load())

	endpoint, ok := r.GetSQLConfig("a")
	require.True(t, ok)
	assert.Equal(t, "t2", endpoint.TableName)
}

func TestClassifyPrefixes(t *testing.T) {
	assert.Equal(t, sqlConfigPrefix, classify("sql-config-anything.json"))
	assert.Equal(t, jobConfigPrefix, classify("job-config-anything.yaml"))
	assert.Equal(t, "", classify("random.json"))
}

func TestDuplicateKeyAcrossFilesLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sql-config-a.json", `{"shared":{"tableName":"first","dbDrive":{"drive":"mysql","host":"default"}}}`)
	writeFile(t, dir, "sql-config-b.json", `{"shared":{"tableName":"second","dbDrive":{"drive":"mysql","host":"default"}}}`)

	r, err := NewRegistry(dir, false, false)
	require.NoError(t, err)
	defer r.Close()

	endpoint, ok := r.GetSQLConfig("shared")
	require.True(t, ok)
	assert.Equal(t, "second", endpoint.TableName)
}

func TestLoadPicksUpKnownDbConfigFileAutomatically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "db-config.json", `{"mysql":{"default":{"host":"127.0.0.1","port":3306,"database":"app","user":"root","password":"pw"}}}`)

	r, err := NewRegistry(dir, false, true)
	require.NoError(t, err)
	defer r.Close()

	cfg := r.GetDBConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "app", cfg.MySQL["default"].Database)
}

func TestRequireDBConfigAbortsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sql-config-a.json", `{"a":{"tableName":"t","dbDrive":{"drive":"mysql","host":"default"}}}`)

	_, err := NewRegistry(dir, false, true)
	assert.Error(t, err)
}

func TestGlobPatternRestrictsMatchedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tenantA"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tenantB"), 0755))
	writeFile(t, dir, filepath.Join("tenantA", "sql-config-a.json"), `{"in_a":{"tableName":"t","dbDrive":{"drive":"mysql","host":"default"}}}`)
	writeFile(t, dir, filepath.Join("tenantB", "sql-config-b.json"), `{"in_b":{"tableName":"t","dbDrive":{"drive":"mysql","host":"default"}}}`)

	r, err := NewRegistry(filepath.Join(dir, "tenantA/*"), false, false)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.GetSQLConfig("in_a")
	assert.True(t, ok)
	_, ok = r.GetSQLConfig("in_b")
	assert.False(t, ok)
}

func TestGlobMatchSupportsDoubleStarSingleStarAndQuestionMark(t *testing.T) {
	assert.True(t, globMatch("**", "a/b/c.json"))
	assert.True(t, globMatch("*.json", "a.json"))
	assert.False(t, globMatch("*.json", "a/b.json"))
	assert.True(t, globMatch("**/*.json", "a/b/c.json"))
	assert.True(t, globMatch("sql-config-?.json", "sql-config-a.json"))
	assert.False(t, globMatch("sql-config-?.json", "sql-config-ab.json"))
}
