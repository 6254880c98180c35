package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/rpcc"

	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// ErrNoTarget 没有可附加的页面目标
var ErrNoTarget = errors.New("no page target")

// Options 附加页面时的选项
type Options struct {
	// BypassCSP 附加后关闭页面 CSP，使 script 注入可用
	BypassCSP bool
	// EvalTimeout 单次求值超时，零值不限制
	EvalTimeout time.Duration
}

// Manager DevTools 端点管理：列出目标并附加页面
type Manager struct {
	devtoolsURL string
	opts        Options
	log         logger.Logger
}

// New 创建管理器
func New(devtoolsURL string, opts Options, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{devtoolsURL: devtoolsURL, opts: opts, log: l}
}

// ListTargets 列出可附加的页面目标
func (m *Manager) ListTargets(ctx context.Context) ([]model.TargetInfo, error) {
	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]model.TargetInfo, 0, len(targets))
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		out = append(out, toTargetInfo(t))
	}
	return out, nil
}

func toTargetInfo(t *devtool.Target) model.TargetInfo {
	return model.TargetInfo{ID: model.TargetID(t.ID), Type: string(t.Type), URL: t.URL, Title: t.Title}
}

// selectTarget 按 ID 选择页面目标，ID 为空时取第一个页面
func selectTarget(targets []*devtool.Target, id model.TargetID) *devtool.Target {
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		if id == "" || string(t.ID) == string(id) {
			return t
		}
	}
	return nil
}

// Attach 连接到页面目标并启用所需的域
func (m *Manager) Attach(ctx context.Context, id model.TargetID) (*Page, error) {
	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	sel := selectTarget(targets, id)
	if sel == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, id)
	}
	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", sel.ID, err)
	}
	p := &Page{
		id:          model.TargetID(sel.ID),
		conn:        conn,
		client:      cdp.NewClient(conn),
		evalTimeout: m.opts.EvalTimeout,
		log:         m.log.With("target", sel.ID),
	}
	if err := p.enable(ctx, m.opts.BypassCSP); err != nil {
		_ = conn.Close()
		return nil, err
	}
	m.log.Info("已附加页面", "target", sel.ID, "url", sel.URL)
	return p, nil
}

func (p *Page) enable(ctx context.Context, bypassCSP bool) error {
	if err := p.client.Page.Enable(ctx); err != nil {
		return fmt.Errorf("page enable: %w", err)
	}
	if err := p.client.Runtime.Enable(ctx); err != nil {
		return fmt.Errorf("runtime enable: %w", err)
	}
	if bypassCSP {
		if err := p.client.Page.SetBypassCSP(ctx, page.NewSetBypassCSPArgs(true)); err != nil {
			p.log.Warn("关闭CSP失败，script注入可能不可用", "error", err)
		}
	}
	return nil
}
