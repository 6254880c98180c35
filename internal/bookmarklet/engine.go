package bookmarklet

import (
	"context"
	"encoding/json"
	"strings"

	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// Engine 外部脚本执行引擎，内部自行尝试多种注入方式
type Engine interface {
	Execute(ctx context.Context, code, title string) model.ExecResult
	ExecuteViaBackground(ctx context.Context, code, title string) model.ExecResult
	IsEvalAvailable(ctx context.Context) bool
	IsScriptInjectionAvailable(ctx context.Context) bool
	IsContextValid() bool
	MethodStatus(ctx context.Context) map[string]bool
}

// ScriptInjector 通过 <script> 标签注入执行
type ScriptInjector interface {
	InjectScript(ctx context.Context, code string) error
	ScriptInjectionAvailable(ctx context.Context) bool
}

// Evaluator 在页面中求值表达式
type Evaluator interface {
	Eval(ctx context.Context, expr string) error
	EvalAvailable(ctx context.Context) bool
}

// BackgroundRunner 特权通道执行
type BackgroundRunner interface {
	RunInBackground(ctx context.Context, code, title string) error
}

// 执行方式名称
const (
	MethodScript     = "script"
	MethodEval       = "eval"
	MethodFunction   = "function"
	MethodBackground = "background"
	MethodActions    = "actions"
)

// LegacyEngine 旧式回退链：script 注入 → eval/new Function → 后台执行。
// 每个策略均可为 nil。
type LegacyEngine struct {
	Injector   ScriptInjector
	Evaluator  Evaluator
	Background BackgroundRunner
	Log        logger.Logger
}

var _ Engine = (*LegacyEngine)(nil)

func (e *LegacyEngine) log() logger.Logger {
	if e.Log == nil {
		return logger.NewNop()
	}
	return e.Log
}

func (e *LegacyEngine) Execute(ctx context.Context, code, title string) model.ExecResult {
	var lastErr string
	if e.IsScriptInjectionAvailable(ctx) {
		err := e.Injector.InjectScript(ctx, code)
		if err == nil {
			return model.ExecResult{Success: true, Method: MethodScript}
		}
		lastErr = err.Error()
		e.log().Warn("script注入失败", "title", title, "error", err)
	}
	if e.IsEvalAvailable(ctx) {
		expr, method := evalExpression(code)
		err := e.Evaluator.Eval(ctx, expr)
		if err == nil {
			return model.ExecResult{Success: true, Method: method}
		}
		lastErr = err.Error()
		e.log().Warn("eval执行失败", "title", title, "method", method, "error", err)
	}
	if e.Background != nil {
		res := e.ExecuteViaBackground(ctx, code, title)
		if res.Success {
			return res
		}
		lastErr = res.Error
	}
	if lastErr == "" {
		lastErr = "no execution method available"
	}
	return model.ExecResult{Error: lastErr}
}

func (e *LegacyEngine) ExecuteViaBackground(ctx context.Context, code, title string) model.ExecResult {
	if e.Background == nil {
		return model.ExecResult{Method: MethodBackground, Error: "background execution unavailable"}
	}
	if err := e.Background.RunInBackground(ctx, code, title); err != nil {
		e.log().Warn("后台执行失败", "title", title, "error", err)
		return model.ExecResult{Method: MethodBackground, Error: err.Error()}
	}
	return model.ExecResult{Success: true, Method: MethodBackground}
}

func (e *LegacyEngine) IsEvalAvailable(ctx context.Context) bool {
	return e.Evaluator != nil && e.Evaluator.EvalAvailable(ctx)
}

func (e *LegacyEngine) IsScriptInjectionAvailable(ctx context.Context) bool {
	return e.Injector != nil && e.Injector.ScriptInjectionAvailable(ctx)
}

func (e *LegacyEngine) IsContextValid() bool {
	return e.Injector != nil || e.Evaluator != nil || e.Background != nil
}

func (e *LegacyEngine) MethodStatus(ctx context.Context) map[string]bool {
	return map[string]bool{
		MethodScript:     e.IsScriptInjectionAvailable(ctx),
		MethodEval:       e.IsEvalAvailable(ctx),
		MethodBackground: e.Background != nil,
	}
}

// LooksLikeIIFE 代码是否形如立即执行表达式：以 (、! 或 void 开头
func LooksLikeIIFE(code string) bool {
	c := strings.TrimSpace(code)
	return strings.HasPrefix(c, "(") || strings.HasPrefix(c, "!") || strings.HasPrefix(c, "void")
}

// evalExpression 立即执行表达式直接 eval，其余包装为 new Function 调用
func evalExpression(code string) (string, string) {
	if LooksLikeIIFE(code) {
		return code, MethodEval
	}
	q, _ := json.Marshal(code)
	return "(new Function(" + string(q) + "))()", MethodFunction
}
