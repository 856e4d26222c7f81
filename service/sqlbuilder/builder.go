/*
 * @module service/sqlbuilder
 * @description 把端点声明 + 已解析参数编译为方言特定、已参数化的 SQL 语句
 * @architecture 核心领域层 - 查询/变更语句编译
 * @documentReference SPEC_FULL.md #4.4
 * @stateFlow buildList/buildPage/buildDeepPage/buildModify -> WHERE 组合 -> 占位符分配 -> {sql, args}
 * @rules 每次编译使用独立的 Context 持有 paramIndex，保证占位符与 args 的位置严格对齐
 * @dependencies github.com/spf13/cast
 * @refs service/datasource/query_builder.go（结构/风格），original_source/core/QueryBuilder.java（算子表）
 */

package sqlbuilder

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"orm-engine/service/driver"
	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"github.com/spf13/cast"
)

// Compiled 是一次编译的结果：可直接交给 database/sql 执行的语句与位置参数。
type Compiled struct {
	SQL  string
	Args []any
}

// Context 持有一次编译过程中的可变状态：方言与当前占位符游标。
// 一个 Context 只服务于一次编译调用，不跨线程/跨请求共享。
type Context struct {
	Dialect    string
	paramIndex int
}

// Placeholder 返回下一个占位符文本，并递增游标。
func (c *Context) Placeholder() string {
	ph := driver.Placeholder(c.Dialect, c.paramIndex)
	c.paramIndex++
	return ph
}

// Builder 是无状态的编译器：不持有任何字段，可在多个 goroutine 间共享。
type Builder struct{}

// NewBuilder 创建一个 SQL 编译器。
func NewBuilder() *Builder {
	return &Builder{}
}

// ---- WHERE 组合（#4.4.2） ----

func (b *Builder) buildWhere(ctx *Context, endpoint *models.EndpointDef, params map[string]any) (string, []any, error) {
	if len(endpoint.ConditionSchema) == 0 {
		return "", nil, nil
	}

	// 保证确定性输出：按 paramKey 升序遍历。
	keys := make([]string, 0, len(endpoint.ConditionSchema))
	for k := range endpoint.ConditionSchema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var groups []string
	var args []any

	for _, k := range keys {
		value, ok := params[k]
		if !ok || value == nil {
			continue
		}
		cs := endpoint.ConditionSchema[k]
		logic := strings.ToUpper(cs.Logic)
		if logic == "" {
			logic = "AND"
		}

		var fragments []string
		for _, field := range cs.Fields {
			frag, fragArgs, err := b.buildOperatorFragment(ctx, field, cs.Operator, value)
			if err != nil {
				return "", nil, err
			}
			fragments = append(fragments, frag)
			args = append(args, fragArgs...)
		}
		if len(fragments) == 0 {
			continue
		}
		group := strings.Join(fragments, " "+logic+" ")
		if len(fragments) > 1 && logic == "OR" {
			group = "(" + group + ")"
		}
		groups = append(groups, group)
	}

	if len(groups) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(groups, " AND "), args, nil
}

func (b *Builder) buildOperatorFragment(ctx *Context, field, operator string, value any) (string, []any, error) {
	op := strings.ToLower(strings.TrimSpace(operator))
	if op == "" {
		op = "="
	}

	switch op {
	case "=", ">", "<", ">=", "<=", "!=", "<>":
		ph := ctx.Placeholder()
		return fmt.Sprintf("%s %s %s", field, op, ph), []any{value}, nil
	case "like":
		ph := ctx.Placeholder()
		return fmt.Sprintf("%s LIKE %s", field, ph), []any{"%" + cast.ToString(value) + "%"}, nil
	case "not like":
		ph := ctx.Placeholder()
		return fmt.Sprintf("%s NOT LIKE %s", field, ph), []any{"%" + cast.ToString(value) + "%"}, nil
	case "in", "not in":
		items := coerceArray(value)
		verb := "IN"
		if op == "not in" {
			verb = "NOT IN"
		}
		if len(items) == 0 {
			if op == "in" {
				return "1=0", nil, nil
			}
			return "1=1", nil, nil
		}
		if ctx.Dialect == driver.DialectMSSQL && len(items) > 1000 {
			// 仅告警，继续执行（#4.4.2）。
			slog.Warn("mssql in/not-in clause exceeds 1000 items", "field", field, "size", len(items))
		}
		phs := make([]string, len(items))
		args := make([]any, len(items))
		for i, item := range items {
			phs[i] = ctx.Placeholder()
			args[i] = item
		}
		return fmt.Sprintf("%s %s (%s)", field, verb, strings.Join(phs, ",")), args, nil
	case "between", "not between":
		items := coerceArray(value)
		if len(items) != 2 {
			return "", nil, ormerr.New(ormerr.KindBuild, "between requires exactly 2 values")
		}
		verb := "BETWEEN"
		if op == "not between" {
			verb = "NOT BETWEEN"
		}
		ph0, ph1 := ctx.Placeholder(), ctx.Placeholder()
		return fmt.Sprintf("%s %s %s AND %s", field, verb, ph0, ph1), []any{items[0], items[1]}, nil
	case "is null":
		return fmt.Sprintf("%s IS NULL", field), nil, nil
	case "is not null":
		return fmt.Sprintf("%s IS NOT NULL", field), nil, nil
	default:
		return "", nil, ormerr.New(ormerr.KindBuild, "unsupported operator: "+operator)
	}
}

// coerceArray 把 in/between 的输入值统一成一个切片：list 原样使用；字符串按逗号拆分，
// 每段 trim 后尝试按 int、再 float 解析，否则保留为字符串。
func coerceArray(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if i, err := strconv.ParseInt(p, 10, 64); err == nil {
				out = append(out, i)
				continue
			}
			if f, err := strconv.ParseFloat(p, 64); err == nil {
				out = append(out, f)
				continue
			}
			out = append(out, p)
		}
		return out
	default:
		return []any{value}
	}
}

// ---- ORDER BY（#4.4.7） ----

func buildOrderBy(sortCfg []models.SortConfig) string {
	if len(sortCfg) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sortCfg))
	for _, s := range sortCfg {
		order := strings.ToUpper(s.Order)
		if order == "" {
			order = "ASC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", s.Field, order))
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// mergedParams 把 presetParams 并入 resolved（#4.4.8）：resolved 中已有的 key 不被覆盖。
func mergedParams(endpoint *models.EndpointDef, resolved map[string]any) map[string]any {
	out := make(map[string]any, len(resolved)+len(endpoint.PresetParams))
	for k, v := range endpoint.PresetParams {
		out[k] = v
	}
	for k, v := range resolved {
		out[k] = v
	}
	return out
}
