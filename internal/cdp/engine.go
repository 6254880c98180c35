package cdp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mafredri/cdp/protocol/runtime"

	"cdpmarklet/internal/bookmarklet"
	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// MethodRuntime 通过 Runtime.evaluate 直接在主世界执行
const MethodRuntime = "runtime"

var errScriptBlocked = errors.New("inline script blocked")

// InjectScript 以 <script> 元素在页面主世界执行代码
func (p *Page) InjectScript(ctx context.Context, code string) error {
	res, err := p.run(ctx, scriptInjectExpr(code, "__cdpmarklet_"+uuid.NewString()))
	if err != nil {
		return err
	}
	if !res.Bool() {
		return errScriptBlocked
	}
	return nil
}

// ScriptInjectionAvailable 探测内联 script 是否可执行
func (p *Page) ScriptInjectionAvailable(ctx context.Context) bool {
	if !p.Valid() {
		return false
	}
	res, err := p.run(ctx, probeScriptExpr("__cdpmarklet_probe_"+uuid.NewString()))
	return err == nil && res.Bool()
}

// Eval 在主世界求值，带用户手势以允许打开窗口等操作
func (p *Page) Eval(ctx context.Context, expr string) error {
	_, err := p.evaluate(ctx, runtime.NewEvaluateArgs(expr).SetUserGesture(true).SetAwaitPromise(true), true)
	return err
}

// EvalAvailable 探测页面 eval 是否可用
func (p *Page) EvalAvailable(ctx context.Context) bool {
	if !p.Valid() {
		return false
	}
	res, err := p.run(ctx, probeEvalExpr)
	return err == nil && res.Bool()
}

// RunInBackground 在隔离世界执行，不受页面 CSP 与全局变量影响
func (p *Page) RunInBackground(ctx context.Context, code, title string) error {
	world, err := p.isolatedWorld(ctx)
	if err != nil {
		return err
	}
	args := runtime.NewEvaluateArgs(code).SetContextID(world).SetUserGesture(true).SetAwaitPromise(true)
	if _, err := p.evaluate(ctx, args, true); err != nil {
		return fmt.Errorf("background %s: %w", title, err)
	}
	return nil
}

// Engine CDP 执行引擎：主世界直接求值，失败后转隔离世界
type Engine struct {
	p   *Page
	log logger.Logger
}

var _ bookmarklet.Engine = (*Engine)(nil)

// NewEngine 创建页面执行引擎；legacy 为 true 时返回 script → eval → 后台 的旧式回退链
func NewEngine(p *Page, legacy bool, l logger.Logger) bookmarklet.Engine {
	if l == nil {
		l = logger.NewNop()
	}
	if legacy {
		return &bookmarklet.LegacyEngine{Injector: p, Evaluator: p, Background: p, Log: l}
	}
	return &Engine{p: p, log: l}
}

func (e *Engine) Execute(ctx context.Context, code, title string) model.ExecResult {
	if !e.p.Valid() {
		return model.ExecResult{Method: MethodRuntime, Error: ErrDetached.Error()}
	}
	err := e.p.Eval(ctx, code)
	if err == nil {
		return model.ExecResult{Success: true, Method: MethodRuntime}
	}
	e.log.Warn("主世界执行失败，转后台执行", "title", title, "error", err)
	return e.ExecuteViaBackground(ctx, code, title)
}

func (e *Engine) ExecuteViaBackground(ctx context.Context, code, title string) model.ExecResult {
	if err := e.p.RunInBackground(ctx, code, title); err != nil {
		return model.ExecResult{Method: bookmarklet.MethodBackground, Error: err.Error()}
	}
	return model.ExecResult{Success: true, Method: bookmarklet.MethodBackground}
}

func (e *Engine) IsEvalAvailable(ctx context.Context) bool { return e.p.EvalAvailable(ctx) }

func (e *Engine) IsScriptInjectionAvailable(ctx context.Context) bool {
	return e.p.ScriptInjectionAvailable(ctx)
}

func (e *Engine) IsContextValid() bool { return e.p.Valid() }

func (e *Engine) MethodStatus(ctx context.Context) map[string]bool {
	valid := e.p.Valid()
	return map[string]bool{
		MethodRuntime:                valid,
		bookmarklet.MethodScript:     e.IsScriptInjectionAvailable(ctx),
		bookmarklet.MethodEval:       e.IsEvalAvailable(ctx),
		bookmarklet.MethodBackground: valid,
	}
}
