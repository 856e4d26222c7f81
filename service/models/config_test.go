/*
 * @module service/models/config_test
 * @description EndpointDef/JobDef/AuthConfig 各类默认值回退方法的单元测试
 * @documentReference SPEC_FULL.md #3
 */

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePKDefaultsToID(t *testing.T) {
	e := &EndpointDef{}
	assert.Equal(t, "id", e.EffectivePK())
	e.PK = "uid"
	assert.Equal(t, "uid", e.EffectivePK())
}

func TestEffectiveFieldDefaultsToStar(t *testing.T) {
	e := &EndpointDef{}
	assert.Equal(t, "*", e.EffectiveField())
	e.Field = "id,name"
	assert.Equal(t, "id,name", e.EffectiveField())
}

func TestIsTransactionalDefaultsTrue(t *testing.T) {
	j := &JobDef{}
	assert.True(t, j.IsTransactional())

	f := false
	j.Transaction = &f
	assert.False(t, j.IsTransactional())
}

func TestDbDriveKeyConcatenation(t *testing.T) {
	d := DbDrive{Drive: "mysql", Host: "default"}
	assert.Equal(t, "mysqldefault", d.Key())
}

func TestIsSlowLogEnabledDefaultsTrue(t *testing.T) {
	a := &AuthConfig{}
	assert.True(t, a.IsSlowLogEnabled())

	f := false
	a.SlowLog = &f
	assert.False(t, a.IsSlowLogEnabled())
}

func TestEffectiveSlowLogThresholdDefault(t *testing.T) {
	a := &AuthConfig{}
	assert.Equal(t, 1000, a.EffectiveSlowLogThreshold())
	a.SlowLogThreshold = 250
	assert.Equal(t, 250, a.EffectiveSlowLogThreshold())
}

func TestDefaultPoolConfigValues(t *testing.T) {
	p := DefaultPoolConfig()
	assert.Equal(t, 10, p.MaxPoolSize)
	assert.Equal(t, int64(30000), p.ConnectionTimeout)
}
