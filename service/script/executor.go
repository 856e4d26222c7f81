/*
 * @module service/script
 * @description 任务流脚本步骤的可插拔执行器：go 类型经 yaegi 解释执行，其余类型显式拒绝
 * @architecture 核心领域层 - 任务流脚本扩展点
 * @documentReference SPEC_FULL.md #4.8
 * @stateFlow GetExecutor(scriptType) -> Execute(source, bindings) -> (value, error)
 * @rules 脚本内容作为 Run(ctx map[string]interface{}) (interface{}, error) 的函数体执行，须自行 return 结果
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib
 * @refs service/datasource/base.go（YaegiScriptExecutor 编译缓存结构）
 */

package script

import (
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"orm-engine/service/ormerr"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Executor 是单个脚本类型的执行契约。
type Executor interface {
	Execute(source string, bindings map[string]any) (any, error)
	ScriptType() string
}

// Factory 按 scriptType（大小写不敏感）分发到具体 Executor。
type Factory struct {
	executors map[string]Executor
}

// NewFactory 创建默认工厂：go 走 yaegi，js/groovy/python 明确拒绝而非静默失败。
func NewFactory() *Factory {
	f := &Factory{executors: map[string]Executor{}}
	f.Register(NewYaegiExecutor())
	for _, t := range []string{"js", "groovy", "python"} {
		f.Register(&unsupportedExecutor{scriptType: t})
	}
	return f
}

// Register 添加或替换一个脚本类型的执行器。
func (f *Factory) Register(e Executor) {
	f.executors[normalizeType(e.ScriptType())] = e
}

// GetExecutor 按脚本类型查找执行器。
func (f *Factory) GetExecutor(scriptType string) (Executor, error) {
	e, ok := f.executors[normalizeType(scriptType)]
	if !ok {
		return nil, ormerr.New(ormerr.KindScript, "unknown script type: "+scriptType)
	}
	return e, nil
}

func normalizeType(t string) string {
	if t == "" {
		return "go"
	}
	b := []byte(t)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// compiledScript 缓存一次编译得到的可执行函数，按脚本内容的 sha1 作为缓存 key。
type compiledScript struct {
	fn       func(map[string]any) (any, error)
	compiled time.Time
}

// YaegiExecutor 用 yaegi 解释执行 go 源码片段，编译结果按脚本哈希缓存复用。
type YaegiExecutor struct {
	mu    sync.RWMutex
	cache map[string]*compiledScript
}

// NewYaegiExecutor 创建一个 go 脚本执行器。
func NewYaegiExecutor() *YaegiExecutor {
	return &YaegiExecutor{cache: map[string]*compiledScript{}}
}

func (y *YaegiExecutor) ScriptType() string { return "go" }

// Execute 把 bindings 以 map[string]interface{} 形式注入脚本的 ctx 参数并调用 Run。
func (y *YaegiExecutor) Execute(source string, bindings map[string]any) (any, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(source)))

	y.mu.RLock()
	cs, ok := y.cache[hash]
	y.mu.RUnlock()

	if !ok {
		var err error
		cs, err = y.compile(source, hash)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.KindScript, "script compile failed", err)
		}
		y.mu.Lock()
		y.cache[hash] = cs
		y.mu.Unlock()
	}

	value, err := cs.fn(bindings)
	if err != nil {
		return nil, ormerr.Wrap(ormerr.KindScript, "script execution failed", err)
	}
	return value, nil
}

// compile 把脚本片段包裹进一个提供 ctx 变量和受限标准库的 Run 函数，解释并取出其函数值。
func (y *YaegiExecutor) compile(source, hash string) (*compiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}

	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strings"
	"strconv"
	"math"
)

func Run(ctx map[string]interface{}) (interface{}, error) {
%s
}
`, source)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("eval script: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("script missing Run function: %w", err)
	}

	runFn, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run must have signature func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledScript{fn: runFn, compiled: time.Now()}, nil
}

// unsupportedExecutor rejects script types the engine does not implement, rather than
// silently falling through to the go interpreter.
type unsupportedExecutor struct {
	scriptType string
}

func (u *unsupportedExecutor) ScriptType() string { return u.scriptType }

func (u *unsupportedExecutor) Execute(source string, bindings map[string]any) (any, error) {
	return nil, ormerr.New(ormerr.KindScript, "script type not supported: "+u.scriptType)
}
