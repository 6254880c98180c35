package bookmarklet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cdpmarklet/internal/dom"
	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// EditorStore 编辑器书签库，执行时按 ID 查找
type EditorStore interface {
	Get(ctx context.Context, id string) (model.EditorBookmarklet, error)
}

// Opener 在新标签页打开普通书签
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Options 编排器依赖，均可为空
type Options struct {
	// Engine 外部执行引擎；为 nil 时直接走动作解析回退
	Engine   Engine
	Document dom.Document
	Editors  EditorStore
	Opener   Opener
	Logger   logger.Logger
	// Sleep 批量执行间隔的等待函数，测试时替换
	Sleep func(ctx context.Context, d time.Duration)
}

// Orchestrator 书签执行编排：引擎 → 动作解析 + DOM 执行回退。
// 同一实例上的执行串行进行。
type Orchestrator struct {
	engine  Engine
	exec    *dom.Executor
	editors EditorStore
	opener  Opener
	log     logger.Logger
	sleep   func(ctx context.Context, d time.Duration)
	mu      sync.Mutex
}

// New 创建编排器
func New(opts Options) *Orchestrator {
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}
	o := &Orchestrator{
		engine:  opts.Engine,
		editors: opts.Editors,
		opener:  opts.Opener,
		log:     l,
		sleep:   opts.Sleep,
	}
	if opts.Document != nil {
		o.exec = dom.NewExecutor(opts.Document, l)
	}
	if o.sleep == nil {
		o.sleep = sleepCtx
	}
	return o
}

// Execute 执行一段书签代码；引擎成功即返回 true，否则回退到动作解析，
// 只有全部动作都成功才返回 true
func (o *Orchestrator) Execute(ctx context.Context, code, title string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.execute(ctx, code, title)
}

func (o *Orchestrator) execute(ctx context.Context, code, title string) bool {
	if o.engine != nil {
		res := o.engine.Execute(ctx, code, title)
		if res.Success {
			o.log.Info("书签执行成功", "title", title, "method", res.Method)
			return true
		}
		o.log.Warn("执行引擎失败，尝试动作解析", "title", title, "method", res.Method, "error", res.Error)
	}
	return o.executeActions(ctx, code, title)
}

func (o *Orchestrator) executeActions(ctx context.Context, code, title string) bool {
	actions := Analyze(code)
	if len(actions) == 0 {
		o.log.Warn("书签无法解析为DOM动作", "title", title)
		return false
	}
	if o.exec == nil {
		o.log.Warn("无可用文档，跳过DOM动作", "title", title, "actions", len(actions))
		return false
	}
	ok := true
	for i, a := range actions {
		res := o.exec.Execute(ctx, a)
		if !res.Success {
			ok = false
			o.log.Warn("DOM动作失败", "title", title, "index", i, "type", string(a.Type), "selector", a.Selector, "error", res.Error)
		}
	}
	o.log.Info("书签动作执行完成", "title", title, "method", MethodActions, "actions", len(actions), "ok", ok)
	return ok
}

// ExecuteFromURL 执行单个书签条目
func (o *Orchestrator) ExecuteFromURL(ctx context.Context, entry model.BookmarkEntry) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.runEntry(ctx, entry); err != nil {
		o.log.Warn("书签执行失败", "title", entry.Title, "error", err)
		return false
	}
	return true
}

type prepared struct {
	entry model.BookmarkEntry
	code  string
	open  bool
}

// ExecuteMultiple 依次执行一批书签，先解码，解码失败的计入失败；
// 每条执行完成后按 DelayAfter 等待。批次一旦开始不会因调用方取消而中断。
func (o *Orchestrator) ExecuteMultiple(ctx context.Context, entries []model.BookmarkEntry) model.BatchResult {
	ctx = context.WithoutCancel(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()

	res := model.BatchResult{Total: len(entries), Errors: []string{}}
	var items []prepared
	for _, e := range entries {
		p, err := o.prepare(e)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", label(e), err))
			continue
		}
		items = append(items, p)
	}

	for i, p := range items {
		if err := o.runPrepared(ctx, p); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", label(p.entry), err))
		} else {
			res.Executed++
		}
		if p.entry.DelayAfter > 0 && i < len(items)-1 {
			o.sleep(ctx, time.Duration(p.entry.DelayAfter)*time.Millisecond)
		}
	}
	o.log.Info("批量书签执行完成", "total", res.Total, "executed", res.Executed, "failed", res.Failed)
	return res
}

var errExecution = errors.New("execution failed")

func (o *Orchestrator) prepare(e model.BookmarkEntry) (prepared, error) {
	if e.IsEditorBookmarklet {
		if e.EditorBookmarkletID == "" {
			return prepared{}, errors.New("missing editor bookmarklet id")
		}
		return prepared{entry: e}, nil
	}
	if !IsBookmarklet(e.URL) {
		if e.URL != "" && o.opener != nil {
			return prepared{entry: e, open: true}, nil
		}
		return prepared{}, ErrNotBookmarklet
	}
	code, err := Parse(e.URL)
	if err != nil {
		return prepared{}, err
	}
	return prepared{entry: e, code: code}, nil
}

func (o *Orchestrator) runEntry(ctx context.Context, e model.BookmarkEntry) error {
	p, err := o.prepare(e)
	if err != nil {
		return err
	}
	return o.runPrepared(ctx, p)
}

func (o *Orchestrator) runPrepared(ctx context.Context, p prepared) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
			o.log.Error("书签执行异常", "title", p.entry.Title, "panic", r)
		}
	}()
	if p.open {
		return o.opener.Open(ctx, p.entry.URL)
	}
	code, title := p.code, p.entry.Title
	if p.entry.IsEditorBookmarklet {
		code, title, err = o.lookupEditor(ctx, p.entry)
		if err != nil {
			return err
		}
	}
	if !o.execute(ctx, code, title) {
		return errExecution
	}
	return nil
}

// lookupEditor 执行时才解析编辑器书签，保证使用最新保存的代码
func (o *Orchestrator) lookupEditor(ctx context.Context, e model.BookmarkEntry) (string, string, error) {
	if o.editors == nil {
		return "", "", errors.New("editor bookmarklet store unavailable")
	}
	b, err := o.editors.Get(ctx, e.EditorBookmarkletID)
	if err != nil {
		return "", "", fmt.Errorf("editor bookmarklet %s: %w", e.EditorBookmarkletID, err)
	}
	if !b.Enabled {
		return "", "", fmt.Errorf("editor bookmarklet %s disabled", e.EditorBookmarkletID)
	}
	code := b.Code
	if IsBookmarklet(code) {
		if code, err = Parse(code); err != nil {
			return "", "", err
		}
	}
	title := e.Title
	if title == "" {
		title = b.Name
	}
	return code, title, nil
}

// Action 直接执行一个 DOM 动作
func (o *Orchestrator) Action(ctx context.Context, a model.DomAction) model.ActionResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.exec == nil {
		return model.ActionResult{Type: a.Type, Error: "no document"}
	}
	return o.exec.Execute(ctx, a)
}

// ParseToActions 暴露动作解析
func (o *Orchestrator) ParseToActions(code string) []model.DomAction { return Analyze(code) }

func label(e model.BookmarkEntry) string {
	if e.Title != "" {
		return e.Title
	}
	if e.ID != "" {
		return e.ID
	}
	return "bookmarklet"
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
