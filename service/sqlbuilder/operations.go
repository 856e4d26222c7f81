/*
 * @module service/sqlbuilder/operations
 * @description LIST/PAGE/DEEP_PAGE/MODIFY 四种操作的 SQL 拼装
 * @documentReference SPEC_FULL.md #4.4.3-#4.4.6
 */

package sqlbuilder

import (
	"fmt"
	"strings"

	"orm-engine/service/driver"
	"orm-engine/service/models"
	"orm-engine/service/ormerr"

	"github.com/spf13/cast"
)

// BuildList 编译 LIST 操作（#4.4.3）。
func (b *Builder) BuildList(dialect string, endpoint *models.EndpointDef, resolved map[string]any) (*Compiled, error) {
	ctx := &Context{Dialect: dialect}
	params := mergedParams(endpoint, resolved)

	where, args, err := b.buildWhere(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	orderBy := buildOrderBy(endpoint.Sort)

	sqlParts := []string{"SELECT", endpoint.EffectiveField(), "FROM", endpoint.TableName}
	if where != "" {
		sqlParts = append(sqlParts, where)
	}
	if orderBy != "" {
		sqlParts = append(sqlParts, orderBy)
	}
	return &Compiled{SQL: strings.Join(sqlParts, " "), Args: args}, nil
}

// pageBounds 计算分页的 current_page/page_size/offset：current_page 小于 1 时取 1，page_size 不大于 0 时取 10，offset 不小于 0（#8 testable #10）。
func pageBounds(params map[string]any) (currentPage, pageSize, offset int) {
	currentPage = cast.ToInt(params["current_page"])
	if currentPage < 1 {
		currentPage = 1
	}
	pageSize = cast.ToInt(params["page_size"])
	if pageSize <= 0 {
		pageSize = 10
	}
	offset = (currentPage - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return
}

// BuildPage 编译浅分页 PAGE 操作（#4.4.4）。
func (b *Builder) BuildPage(dialect string, endpoint *models.EndpointDef, resolved map[string]any) (*Compiled, error) {
	ctx := &Context{Dialect: dialect}
	params := mergedParams(endpoint, resolved)
	currentPage, pageSize, offset := pageBounds(params)

	var totalExpr string
	var totalArgs []any
	if maxTotal, ok := params["max_total"]; ok && maxTotal != nil {
		ph0 := ctx.Placeholder()
		ph1 := ctx.Placeholder()
		totalExpr = fmt.Sprintf("CASE WHEN COUNT(*) OVER () > %s THEN %s ELSE COUNT(*) OVER () END AS TotalCount", ph0, ph1)
		totalArgs = []any{maxTotal, maxTotal}
	} else {
		totalExpr = "COUNT(*) OVER () AS TotalCount"
	}

	where, whereArgs, err := b.buildWhere(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	orderBy := buildOrderBy(endpoint.Sort)

	innerParts := []string{"SELECT", endpoint.EffectiveField() + ",", totalExpr, "FROM", endpoint.TableName}
	if where != "" {
		innerParts = append(innerParts, where)
	}
	if orderBy != "" {
		innerParts = append(innerParts, orderBy)
	}
	inner := strings.Join(innerParts, " ")

	pageClause := driver.PageClause(dialect, offset, pageSize)
	sql := fmt.Sprintf("WITH all_rows AS (%s) SELECT * FROM all_rows %s", inner, pageClause)

	args := append(append([]any{}, totalArgs...), whereArgs...)
	_ = currentPage
	return &Compiled{SQL: sql, Args: args}, nil
}

// ShouldUseDeepPage 判断是否需要从浅分页切换到深分页（#4.4.5 触发条件）。
func ShouldUseDeepPage(endpoint *models.EndpointDef, resolved map[string]any, explicit bool) bool {
	if explicit {
		return true
	}
	if endpoint.ShallowToDeepThreshold <= 0 {
		return false
	}
	currentPage := cast.ToInt(resolved["current_page"])
	return currentPage > endpoint.ShallowToDeepThreshold
}

// BuildDeepPage 编译深分页 DEEP_PAGE 操作（#4.4.5）。
func (b *Builder) BuildDeepPage(dialect string, endpoint *models.EndpointDef, resolved map[string]any) (*Compiled, error) {
	if len(endpoint.Sort) == 0 {
		return nil, ormerr.New(ormerr.KindBuild, "Deep pagination requires 'sort'")
	}

	ctx := &Context{Dialect: dialect}
	params := mergedParams(endpoint, resolved)
	_, pageSize, offset := pageBounds(params)

	where, args, err := b.buildWhere(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	orderBy := buildOrderBy(endpoint.Sort)

	innerParts := []string{"SELECT", endpoint.EffectiveField() + ",", fmt.Sprintf("ROW_NUMBER() OVER (%s) AS rn,", orderBy), "COUNT(*) OVER () AS TotalCount", "FROM", endpoint.TableName}
	if where != "" {
		innerParts = append(innerParts, where)
	}
	inner := strings.Join(innerParts, " ")

	sql := fmt.Sprintf("SELECT * FROM (%s) AS numbered_rows WHERE rn BETWEEN %d AND %d", inner, offset+1, offset+pageSize)
	return &Compiled{SQL: sql, Args: args}, nil
}

// decideModifyKind 判断 MODIFY 走 INSERT 还是 UPDATE（#4.4.6）；显式 update 既无 conditionSchema 条件也无 PK 时报错。
func decideModifyKind(endpoint *models.EndpointDef, resolved map[string]any, hasConditionWhere bool) (bool, error) {
	_, hasPk := resolved[endpoint.EffectivePK()]
	var action string
	actionConfigured := endpoint.Action != ""
	if actionConfigured {
		action, _ = cast.ToStringE(resolved["action"])
	}

	if !actionConfigured {
		return hasPk, nil
	}
	if action == "update" {
		if !hasConditionWhere && !hasPk {
			return false, ormerr.New(ormerr.KindBuild, "no filter; full-table update forbidden")
		}
		return true, nil
	}
	return false, nil
}

// BuildModify 编译 MODIFY 操作：INSERT 或 UPDATE（#4.4.6）。
func (b *Builder) BuildModify(dialect string, endpoint *models.EndpointDef, resolved map[string]any) (*Compiled, error) {
	params := mergedParams(endpoint, resolved)

	// 用一个废弃的探测 Context 判断 conditionSchema 是否产生非空 WHERE；
	// 它的占位符游标不会影响最终 SQL，因为 UPDATE 的 SET 必须先于 WHERE 分配占位符
	// （最终文本里 SET 片段出现在 WHERE 之前，必须保持占位符出现顺序与索引顺序一致）。
	probeCtx := &Context{Dialect: dialect}
	probeWhere, _, err := b.buildWhere(probeCtx, endpoint, params)
	if err != nil {
		return nil, err
	}

	isUpdate, err := decideModifyKind(endpoint, params, probeWhere != "")
	if err != nil {
		return nil, err
	}
	if isUpdate {
		return b.buildUpdate(dialect, endpoint, params)
	}
	return b.buildInsert(dialect, endpoint, params)
}

func (b *Builder) buildInsert(dialect string, endpoint *models.EndpointDef, params map[string]any) (*Compiled, error) {
	ctx := &Context{Dialect: dialect}
	pk := endpoint.EffectivePK()

	var cols []string
	var args []any
	seen := map[string]bool{}
	for _, f := range endpoint.MutableFields {
		if f == pk {
			continue
		}
		v, ok := params[f]
		if !ok {
			continue
		}
		cols = append(cols, f)
		args = append(args, v)
		seen[f] = true
	}
	if v, ok := params[pk]; ok && containsField(endpoint.MutableFields, pk) && !seen[pk] {
		cols = append(cols, pk)
		args = append(args, v)
	}

	if len(cols) == 0 {
		return nil, ormerr.New(ormerr.KindBuild, "empty insert")
	}

	phs := make([]string, len(cols))
	for i := range cols {
		phs[i] = ctx.Placeholder()
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", endpoint.TableName, strings.Join(cols, ","), strings.Join(phs, ","))
	return &Compiled{SQL: sql, Args: args}, nil
}

func (b *Builder) buildUpdate(dialect string, endpoint *models.EndpointDef, params map[string]any) (*Compiled, error) {
	ctx := &Context{Dialect: dialect}
	pk := endpoint.EffectivePK()

	var setFrags []string
	var setArgs []any
	for _, f := range endpoint.MutableFields {
		if f == pk {
			continue
		}
		v, ok := params[f]
		if !ok {
			continue
		}
		ph := ctx.Placeholder()
		setFrags = append(setFrags, fmt.Sprintf("%s=%s", f, ph))
		setArgs = append(setArgs, v)
	}
	if len(setFrags) == 0 {
		return nil, ormerr.New(ormerr.KindBuild, "empty update")
	}

	// WHERE 分配在 SET 之后，占位符游标延续 ctx，保证索引顺序与文本出现顺序一致。
	where, whereArgs, err := b.buildWhere(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	if where == "" {
		if v, ok := params[pk]; ok {
			ph := ctx.Placeholder()
			where = fmt.Sprintf("WHERE %s=%s", pk, ph)
			whereArgs = append(whereArgs, v)
		} else {
			return nil, ormerr.New(ormerr.KindBuild, "no filter; full-table update forbidden")
		}
	}

	sql := fmt.Sprintf("UPDATE %s SET %s %s", endpoint.TableName, strings.Join(setFrags, ","), where)
	args := append(append([]any{}, setArgs...), whereArgs...)
	return &Compiled{SQL: sql, Args: args}, nil
}

func containsField(fields []string, f string) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
