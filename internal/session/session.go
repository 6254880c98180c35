package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cdpmarklet/internal/bookmarklet"
	"cdpmarklet/internal/ctxkeys"
	"cdpmarklet/internal/dom"
	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/randtime"
	"cdpmarklet/internal/settings"
	"cdpmarklet/internal/stopwatch"
	"cdpmarklet/pkg/model"
)

// Host 会话所附加的页面
type Host interface {
	// Location 当前页面的主机名与地址
	Location(ctx context.Context) (settings.Page, error)
	// Loads 每次页面加载完成推送一次，连接断开时关闭
	Loads(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// SettingsSource 设置存储
type SettingsSource interface {
	Load(ctx context.Context) (settings.Snapshot, error)
	Subscribe(buffer int) (<-chan string, func())
}

// Deps 会话依赖；除 Host 与 Settings 外均可为空
type Deps struct {
	Host     Host
	Settings SettingsSource
	Document dom.Document
	Engine   bookmarklet.Engine
	Display  stopwatch.Display
	Notifier stopwatch.Notifier
	Opener   bookmarklet.Opener
	Editors  bookmarklet.EditorStore
	Clock    stopwatch.Clock
	IntN     randtime.IntN
	Logger   logger.Logger
}

// Session 页面会话：一个附加的页面、它的执行编排器，以及每次加载重建的秒表
type Session struct {
	id     model.SessionID
	target model.TargetID
	deps   Deps
	orch   *bookmarklet.Orchestrator
	log    logger.Logger

	mu      sync.Mutex
	snap    settings.Snapshot
	sw      *stopwatch.Stopwatch
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// New 创建会话
func New(id model.SessionID, target model.TargetID, d Deps) *Session {
	l := d.Logger
	if l == nil {
		l = logger.NewNop()
	}
	l = l.With("session", string(id))
	return &Session{
		id:     id,
		target: target,
		deps:   d,
		log:    l,
		snap:   settings.Default(),
		done:   make(chan struct{}),
		orch: bookmarklet.New(bookmarklet.Options{
			Engine:   d.Engine,
			Document: d.Document,
			Editors:  d.Editors,
			Opener:   d.Opener,
			Logger:   l,
		}),
	}
}

// ID 会话ID
func (s *Session) ID() model.SessionID { return s.id }

// Orchestrator 会话的书签执行编排器
func (s *Session) Orchestrator() *bookmarklet.Orchestrator { return s.orch }

// Stopwatch 当前页面加载的秒表，尚未加载时为 nil
func (s *Session) Stopwatch() *stopwatch.Stopwatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sw
}

// Done 会话结束时关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Start 读取设置、处理当前页面，并在后台跟随页面加载与设置变更
func (s *Session) Start(ctx context.Context) error {
	if s.deps.Host == nil || s.deps.Settings == nil {
		return errors.New("session requires host and settings")
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	snap, err := s.deps.Settings.Load(ctx)
	if err != nil {
		s.reset()
		return fmt.Errorf("load settings: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.WithValue(context.WithoutCancel(ctx), ctxkeys.SessionIDKey{}, string(s.id)))
	loads, err := s.deps.Host.Loads(runCtx)
	if err != nil {
		cancel()
		s.reset()
		return err
	}
	diffs, unsubscribe := s.deps.Settings.Subscribe(16)

	s.mu.Lock()
	s.snap = snap
	s.cancel = cancel
	s.mu.Unlock()

	s.pageLoaded(runCtx)
	go s.loop(runCtx, loads, diffs, unsubscribe)
	return nil
}

func (s *Session) reset() {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

func (s *Session) finish() { s.once.Do(func() { close(s.done) }) }

func (s *Session) loop(ctx context.Context, loads <-chan struct{}, diffs <-chan string, unsubscribe func()) {
	defer s.finish()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-loads:
			if !ok {
				s.log.Warn("页面连接已断开")
				s.stopwatchStop(ctx)
				return
			}
			s.pageLoaded(ctx)
		case diff, ok := <-diffs:
			if !ok {
				diffs = nil
				continue
			}
			s.apply(ctx, diff)
		}
	}
}

// pageLoaded 每次页面加载都是新的会话状态：停止旧秒表并按当前设置重建
func (s *Session) pageLoaded(ctx context.Context) {
	loc, err := s.deps.Host.Location(ctx)
	if err != nil {
		s.log.Warn("读取页面地址失败", "error", err)
		return
	}
	s.stopwatchStop(ctx)

	s.mu.Lock()
	sw := stopwatch.New(stopwatch.Config{
		Page:     loc,
		Settings: s.snap,
		Clock:    s.deps.Clock,
		Display:  s.deps.Display,
		Notifier: s.deps.Notifier,
		Runner:   s.orch,
		Logger:   s.log,
		IntN:     s.deps.IntN,
	})
	s.sw = sw
	s.mu.Unlock()

	s.log.Info("页面已加载", "host", loc.Hostname, "url", loc.URL)
	sw.Init(ctx)
}

func (s *Session) apply(ctx context.Context, diff string) {
	s.mu.Lock()
	next, changed, err := settings.Reduce(s.snap, diff)
	if err == nil {
		s.snap = next
	}
	sw := s.sw
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("忽略无效设置变更", "error", err)
		return
	}
	if len(changed) == 0 || sw == nil {
		return
	}
	if err := sw.Apply(ctx, diff); err != nil {
		s.log.Warn("应用设置变更失败", "error", err)
	}
}

func (s *Session) stopwatchStop(ctx context.Context) {
	s.mu.Lock()
	sw := s.sw
	s.mu.Unlock()
	if sw != nil {
		sw.Stop(ctx)
	}
}

// Stop 结束会话：停止跟随、移除浮层并断开页面
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-s.done
	} else {
		s.finish()
	}
	s.stopwatchStop(ctx)
	if s.deps.Host != nil {
		return s.deps.Host.Close()
	}
	return nil
}

// Info 会话概要
func (s *Session) Info() model.SessionInfo {
	info := model.SessionInfo{ID: s.id, Target: s.target}
	if sw := s.Stopwatch(); sw != nil {
		p := sw.Page()
		info.URL, info.Hostname = p.URL, p.Hostname
		info.Running = sw.Running()
		info.Elapsed = int64(sw.Elapsed() / time.Second)
	}
	return info
}
