/*
 * @module service/param/resolver_test
 * @description 参数解析流水线（取值 -> 校验 -> 类型转换 -> pk/action 补全）的单元测试
 * @documentReference SPEC_FULL.md #4.3
 */

package param

import (
	"testing"

	"orm-engine/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAllSourceProbesInOrder(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "id", DataType: "int"},
		},
	}
	params := &models.StandardParams{
		Path:  map[string]any{"id": "42"},
		Query: map[string]any{"id": "99"},
		Body:  map[string]any{},
	}
	resolved, err := Resolve(endpoint, params)
	require.NoError(t, err)
	assert.Equal(t, 42, resolved["id"])
}

func TestResolveAliasUsedAsKey(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "kw", Alias: "keyword", Source: "query"},
		},
	}
	params := &models.StandardParams{Query: map[string]any{"kw": "hello"}}
	resolved, err := Resolve(endpoint, params)
	require.NoError(t, err)
	assert.Equal(t, "hello", resolved["keyword"])
	_, exists := resolved["kw"]
	assert.False(t, exists)
}

func TestResolveTypeConversionVariants(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "age", DataType: "int", Source: "query"},
			{Field: "score", DataType: "double", Source: "query"},
			{Field: "active", DataType: "boolean", Source: "query"},
			{Field: "views", DataType: "long", Source: "query"},
		},
	}
	params := &models.StandardParams{Query: map[string]any{
		"age": "30", "score": "4.5", "active": "true", "views": "123456789012",
	}}
	resolved, err := Resolve(endpoint, params)
	require.NoError(t, err)
	assert.Equal(t, 30, resolved["age"])
	assert.Equal(t, 4.5, resolved["score"])
	assert.Equal(t, true, resolved["active"])
	assert.Equal(t, int64(123456789012), resolved["views"])
}

func TestResolveMissingRequiredFieldFails(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "name", Source: "body", Validators: []models.Validator{{Type: "required"}}},
		},
	}
	params := &models.StandardParams{Body: map[string]any{}}
	_, err := Resolve(endpoint, params)
	assert.Error(t, err)
}

func TestResolveNilValuePassesThroughWhenNotRequired(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "nickname", Source: "body", DataType: "int"},
		},
	}
	params := &models.StandardParams{Body: map[string]any{}}
	resolved, err := Resolve(endpoint, params)
	require.NoError(t, err)
	assert.Nil(t, resolved["nickname"])
}

func TestResolveAppendsPKAndAction(t *testing.T) {
	endpoint := &models.EndpointDef{PK: "uid", Action: "op"}
	params := &models.StandardParams{
		Path: map[string]any{"uid": 7},
		Body: map[string]any{"op": "update"},
	}
	resolved, err := Resolve(endpoint, params)
	require.NoError(t, err)
	assert.Equal(t, 7, resolved["uid"])
	assert.Equal(t, "update", resolved["action"])
}

func TestResolveInvalidIntConversionErrors(t *testing.T) {
	endpoint := &models.EndpointDef{
		ParamsMapping: []models.ParamsMapping{
			{Field: "age", DataType: "int", Source: "query"},
		},
	}
	params := &models.StandardParams{Query: map[string]any{"age": "not-a-number"}}
	_, err := Resolve(endpoint, params)
	assert.Error(t, err)
}
