/*
 * @module service/param/resolver
 * @description 按 paramsMapping 逐条解析运行期参数：取值 -> 校验 -> 类型转换，再补上 pk 与 action
 * @architecture 核心领域层 - 参数解析
 * @documentReference SPEC_FULL.md #4.3
 * @refs original_source/core/ParamResolver.java
 * @dependencies github.com/spf13/cast
 */

package param

import (
	"fmt"
	"strings"

	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"github.com/spf13/cast"
)

// Resolve 把 StandardParams 按 endpoint.ParamsMapping 的规则解析为 SQL Builder 可用的扁平 map。
func Resolve(endpoint *models.EndpointDef, params *models.StandardParams) (map[string]any, error) {
	resolved := make(map[string]any, len(endpoint.ParamsMapping)+2)

	for _, mapping := range endpoint.ParamsMapping {
		key := mapping.Key()
		source := strings.ToLower(mapping.Source)
		if source == "" {
			source = "all"
		}
		raw, _ := params.FromSource(mapping.Field, source)

		if err := RunValidators(mapping.Validators, raw, key); err != nil {
			return nil, err
		}

		if raw == nil {
			resolved[key] = nil
			continue
		}

		converted, err := convertType(raw, mapping.DataType)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.KindValidation, fmt.Sprintf("failed to convert %s to %s", key, mapping.DataType), err)
		}
		resolved[key] = converted
	}

	pk := endpoint.EffectivePK()
	if cur, mapped := resolved[pk]; !mapped || cur == nil {
		if v, ok := params.Param(pk); ok && v != nil {
			resolved[pk] = v
		}
	}

	if endpoint.Action != "" {
		if v, ok := params.Param(endpoint.Action); ok {
			resolved["action"] = v
		}
	}

	return resolved, nil
}

// convertType 把原始值按声明的类型转换；未声明或声明为 string 时原样转字符串。
func convertType(value any, dataType string) (any, error) {
	switch strings.ToLower(dataType) {
	case "int":
		return cast.ToIntE(value)
	case "long":
		return cast.ToInt64E(value)
	case "double":
		return cast.ToFloat64E(value)
	case "boolean":
		return cast.ToBoolE(value)
	default:
		return fmt.Sprintf("%v", value), nil
	}
}
