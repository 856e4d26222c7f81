/*
 * @module service/models/params
 * @description 请求的标准化三源参数载体（path/query/body），以及统一的单 key 探测规则
 * @architecture 数据模型层
 * @rules param(name) 按 path -> body -> query 顺序探测第一个非空来源
 * @dependencies 无
 */

package models

// StandardParams 是引擎唯一认识的输入形状：三个字符串键的映射。
// 每个值可以是标量，也可以是标量的切片（例如 in/between 操作符的数组参数）。
type StandardParams struct {
	Path  map[string]any
	Query map[string]any
	Body  map[string]any
}

// NewStandardParams 构造一个三个源均已初始化为空 map 的 StandardParams。
func NewStandardParams() *StandardParams {
	return &StandardParams{
		Path:  map[string]any{},
		Query: map[string]any{},
		Body:  map[string]any{},
	}
}

// Param 按 path -> body -> query 的顺序探测第一个存在的值。
func (p *StandardParams) Param(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	if v, ok := p.Path[name]; ok {
		return v, true
	}
	if v, ok := p.Body[name]; ok {
		return v, true
	}
	if v, ok := p.Query[name]; ok {
		return v, true
	}
	return nil, false
}

// FromSource 按声明的来源（path/query/body/all）取值；all 等价于 Param 的探测顺序。
func (p *StandardParams) FromSource(name, source string) (any, bool) {
	switch source {
	case "path":
		v, ok := p.Path[name]
		return v, ok
	case "query":
		v, ok := p.Query[name]
		return v, ok
	case "body":
		v, ok := p.Body[name]
		return v, ok
	default:
		return p.Param(name)
	}
}

// Merge 把三个来源按 path, query, body 的写入顺序合并为一个 map（body 覆盖同名 key）。
// 用于签名校验和任务执行上下文，语义对应 original_source 里 mergeParams 的 putAll 顺序。
func (p *StandardParams) Merge() map[string]any {
	merged := make(map[string]any, len(p.Path)+len(p.Query)+len(p.Body))
	for k, v := range p.Path {
		merged[k] = v
	}
	for k, v := range p.Query {
		merged[k] = v
	}
	for k, v := range p.Body {
		merged[k] = v
	}
	return merged
}
