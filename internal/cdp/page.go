package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/protocol/target"
	"github.com/mafredri/cdp/rpcc"
	"github.com/tidwall/gjson"

	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/settings"
	"cdpmarklet/pkg/model"
)

// ErrDetached 页面连接已关闭
var ErrDetached = errors.New("page detached")

// Page 已附加的页面目标
type Page struct {
	id          model.TargetID
	conn        *rpcc.Conn
	client      *cdp.Client
	evalTimeout time.Duration
	log         logger.Logger

	mu     sync.Mutex
	closed bool
	// world 后台执行用的隔离世界，页面导航后失效
	world *runtime.ExecutionContextID
}

// ID 目标ID
func (p *Page) ID() model.TargetID { return p.id }

// Close 断开页面连接；可重复调用
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

// Valid 连接是否仍可用
func (p *Page) Valid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// evaluate 在页面中求值并按值返回结果；脚本抛出的异常转换为 error
func (p *Page) evaluate(ctx context.Context, args *runtime.EvaluateArgs, timeout bool) (json.RawMessage, error) {
	if !p.Valid() {
		return nil, ErrDetached
	}
	if timeout && p.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.evalTimeout)
		defer cancel()
	}
	reply, err := p.client.Runtime.Evaluate(ctx, args.SetReturnByValue(true))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if reply.ExceptionDetails != nil {
		return nil, exceptionError(reply.ExceptionDetails)
	}
	return reply.Result.Value, nil
}

func exceptionError(d *runtime.ExceptionDetails) error {
	if d.Exception != nil && d.Exception.Description != nil {
		// 只保留首行，去掉堆栈
		msg, _, _ := strings.Cut(*d.Exception.Description, "\n")
		return errors.New(msg)
	}
	return errors.New(d.Text)
}

// run 在主世界求值表达式
func (p *Page) run(ctx context.Context, expr string) (gjson.Result, error) {
	raw, err := p.evaluate(ctx, runtime.NewEvaluateArgs(expr), true)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(raw), nil
}

// Location 读取当前页面的主机名与地址
func (p *Page) Location(ctx context.Context) (settings.Page, error) {
	res, err := p.run(ctx, `({href: location.href, hostname: location.hostname})`)
	if err != nil {
		return settings.Page{}, fmt.Errorf("read location: %w", err)
	}
	return settings.Page{Hostname: res.Get("hostname").String(), URL: res.Get("href").String()}, nil
}

// Loads 订阅主框架加载完成事件；ctx 结束时通道关闭
func (p *Page) Loads(ctx context.Context) (<-chan struct{}, error) {
	stream, err := p.client.Page.LoadEventFired(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe load events: %w", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			if _, err := stream.Recv(); err != nil {
				return
			}
			p.mu.Lock()
			p.world = nil
			p.mu.Unlock()
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Navigate 导航到指定地址
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	reply, err := p.client.Page.Navigate(ctx, page.NewNavigateArgs(rawURL))
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if reply.ErrorText != nil {
		return fmt.Errorf("navigate %s: %s", rawURL, *reply.ErrorText)
	}
	return nil
}

// Open 在新标签页打开普通书签
func (p *Page) Open(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid bookmark url %q", rawURL)
	}
	reply, err := p.client.Target.CreateTarget(ctx, target.NewCreateTargetArgs(rawURL))
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	p.log.Info("已在新标签页打开书签", "url", rawURL, "newTarget", reply.TargetID)
	return nil
}

// isolatedWorld 获取或创建后台执行用的隔离世界
func (p *Page) isolatedWorld(ctx context.Context) (runtime.ExecutionContextID, error) {
	p.mu.Lock()
	if p.world != nil {
		id := *p.world
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	tree, err := p.client.Page.GetFrameTree(ctx)
	if err != nil {
		return 0, fmt.Errorf("frame tree: %w", err)
	}
	args := page.NewCreateIsolatedWorldArgs(tree.FrameTree.Frame.ID).SetWorldName(worldName)
	world, err := p.client.Page.CreateIsolatedWorld(ctx, args)
	if err != nil {
		return 0, fmt.Errorf("create isolated world: %w", err)
	}
	p.mu.Lock()
	p.world = &world.ExecutionContextID
	p.mu.Unlock()
	return world.ExecutionContextID, nil
}

const worldName = "cdpmarklet"
