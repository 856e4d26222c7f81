/*
 * @module service/txcoord/coordinator_test
 * @description 多数据源事务信封的提交/回滚语义测试，基于 SQLite 内存库做真实事务验证
 * @documentReference SPEC_FULL.md #4.6, #8 场景 F
 */

package txcoord

import (
	"testing"

	"orm-engine/service/driver"
	"orm-engine/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteAdapter(t *testing.T) *driver.Adapter {
	t.Helper()
	adapter := driver.NewAdapter(&models.DbConfig{
		SQLite: map[string]models.SqliteConfig{
			"default": {FilePath: "file::memory:?cache=shared", Pool: models.PoolConfig{MaxPoolSize: 1}},
		},
	})
	conn, err := adapter.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)").Error)
	t.Cleanup(adapter.Close)
	return adapter
}

func countWidgets(t *testing.T, adapter *driver.Adapter) int64 {
	t.Helper()
	conn, err := adapter.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	var count int64
	require.NoError(t, conn.Raw("SELECT COUNT(*) FROM widgets").Scan(&count).Error)
	return count
}

func TestCommitAllPersistsAcrossStepsUnderSameScope(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	scope := NewScope(adapter, true)
	defer scope.CloseAll()

	conn, err := scope.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("INSERT INTO widgets (id, name) VALUES (1, 'a')").Error)

	conn2, err := scope.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	assert.Same(t, conn, conn2)
	require.NoError(t, conn2.Exec("INSERT INTO widgets (id, name) VALUES (2, 'b')").Error)

	require.NoError(t, scope.CommitAll())
	assert.Equal(t, int64(2), countWidgets(t, adapter))
}

func TestRollbackAllDiscardsUncommittedWrites(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	scope := NewScope(adapter, true)
	defer scope.CloseAll()

	conn, err := scope.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("INSERT INTO widgets (id, name) VALUES (1, 'a')").Error)

	scope.RollbackAll()
	assert.Equal(t, int64(0), countWidgets(t, adapter))
}

func TestNonTransactionalScopeCommitsImmediately(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	scope := NewScope(adapter, false)
	defer scope.CloseAll()

	conn, err := scope.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)
	require.NoError(t, conn.Exec("INSERT INTO widgets (id, name) VALUES (1, 'a')").Error)

	require.NoError(t, scope.CommitAll())
	assert.Equal(t, int64(1), countWidgets(t, adapter))
}

func TestCloseAllIsIdempotent(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	scope := NewScope(adapter, true)
	_, err := scope.Connection(driver.DialectSQLite, "default")
	require.NoError(t, err)

	scope.CloseAll()
	scope.CloseAll()
}
