package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// RuleFilter 用 CEL (Common Expression Language) 表达式描述候选的淘汰条件。
// 表达式返回 true 表示该候选应被移除。
//
// 表达式语法（CEL 标准语法）：
//   - label 访问：label.recall_source.value.contains("popular")
//   - 分数：item.score < 0.1
//   - kind：item.kind == "promotion"
//   - 逻辑组合：item.kind == "post" && item.score < 0.2
//
// 表达式在构造时编译一次，之后的求值是线程安全的。
type RuleFilter struct {
	expr string
	prg  cel.Program
}

// NewRuleFilter 编译一条淘汰规则。表达式非法时返回错误（配置问题，尽早暴露）。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &RuleFilter{expr: expr, prg: prg}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	out, _, err := f.prg.Eval(f.buildInput(rctx, item))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", f.expr, err)
	}
	hit, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q must return boolean, got %T", f.expr, out.Value())
	}
	return hit, nil
}

// buildInput 构建 CEL 表达式的输入数据。
func (f *RuleFilter) buildInput(rctx *core.RecommendContext, item *core.Item) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]any{"value": v.Value, "source": v.Source}
	}

	itemInput := map[string]any{
		"id":    string(item.ID),
		"kind":  string(item.Kind),
		"score": item.Score,
		"meta":  conv.MapToFloat64(item.Meta),
	}

	rctxInput := map[string]any{}
	if rctx != nil {
		rctxInput["actor"] = string(rctx.Actor)
		rctxInput["limit"] = rctx.Limit
	}

	return map[string]any{
		"item":  itemInput,
		"label": labels,
		"rctx":  rctxInput,
	}
}
