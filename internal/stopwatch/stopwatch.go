// Package stopwatch 页面停留计时与一次性提醒状态机。
//
// 状态为 Stopped/Running，另有正交的最小化与提醒已发送标记。
// 每次页面加载只生成一次随机阈值，提醒在一次加载内最多触发一次，
// 只有域名阈值被调大到超过当前耗时时才会重新布防。
package stopwatch

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/randtime"
	"cdpmarklet/internal/settings"
	"cdpmarklet/pkg/model"
)

// TickInterval 刷新周期
const TickInterval = time.Second

// Display 页面上的计时浮层
type Display interface {
	Show(ctx context.Context, position string, minimized bool) error
	Update(ctx context.Context, text string) error
	Hide(ctx context.Context) error
}

// Notifier 阻塞式提醒
type Notifier interface {
	Alert(ctx context.Context, message string) error
}

// Runner 提醒之后的自动化交接
type Runner interface {
	ExecuteMultiple(ctx context.Context, entries []model.BookmarkEntry) model.BatchResult
}

// SessionState 单次页面加载的会话状态
type SessionState struct {
	StartTime              *time.Time
	NotificationSent       bool
	GeneratedRandomSeconds *int
}

// Config 秒表依赖
type Config struct {
	Page     settings.Page
	Settings settings.Snapshot
	Clock    Clock
	Display  Display
	Notifier Notifier
	Runner   Runner
	Logger   logger.Logger
	// IntN 随机源，为空时使用 math/rand/v2
	IntN randtime.IntN
	// Sleep 交接前延迟的等待函数
	Sleep func(ctx context.Context, d time.Duration)
}

// Stopwatch 页面秒表
type Stopwatch struct {
	mu        sync.Mutex
	page      settings.Page
	cfg       settings.Snapshot
	state     SessionState
	running   bool
	minimized bool
	ticker    Ticker
	stop      chan struct{}

	clock    Clock
	display  Display
	notifier Notifier
	runner   Runner
	log      logger.Logger
	sleep    func(ctx context.Context, d time.Duration)
	handoff  sync.WaitGroup
}

// New 创建秒表，代表一次页面加载；随机阈值在此生成且之后不再重算
func New(c Config) *Stopwatch {
	s := &Stopwatch{
		page:     c.Page,
		cfg:      c.Settings,
		clock:    c.Clock,
		display:  c.Display,
		notifier: c.Notifier,
		runner:   c.Runner,
		log:      c.Logger,
		sleep:    c.Sleep,
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.sleep == nil {
		s.sleep = sleepCtx
	}
	s.state.GeneratedRandomSeconds = randtime.Generate(randtime.FromSnapshot(c.Settings, c.Page), c.IntN)
	if s.state.GeneratedRandomSeconds != nil {
		s.log.Info("生成随机提醒时间", "host", c.Page.Hostname, "seconds", *s.state.GeneratedRandomSeconds)
	}
	return s
}

// Init 按启用状态与域名白名单决定是否开始计时
func (s *Stopwatch) Init(ctx context.Context) bool {
	s.mu.Lock()
	ok := s.admitted()
	s.mu.Unlock()
	if !ok {
		s.log.Debug("当前页面不计时", "host", s.page.Hostname)
		return false
	}
	s.Start(ctx)
	return true
}

func (s *Stopwatch) admitted() bool { return s.cfg.Enabled && s.cfg.Allowed(s.page) }

// Start 开始计时；已在运行时无操作
func (s *Stopwatch) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	s.state.StartTime = &now
	s.state.NotificationSent = false
	s.minimized = s.cfg.Minimized
	s.running = true
	s.ticker = s.clock.NewTicker(TickInterval)
	s.stop = make(chan struct{})
	ticker, stop := s.ticker, s.stop
	position, minimized := s.cfg.Position, s.minimized
	s.mu.Unlock()

	s.draw(ctx, position, minimized)
	s.log.Info("开始计时", "host", s.page.Hostname)
	go s.loop(ctx, ticker, stop)
}

func (s *Stopwatch) loop(ctx context.Context, t Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C():
			s.Tick(ctx)
		}
	}
}

// Stop 停止计时并移除浮层；可重复调用
func (s *Stopwatch) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.ticker, s.stop = nil, nil
	s.running = false
	s.state.StartTime = nil
	s.mu.Unlock()

	if s.display != nil {
		if err := s.display.Hide(ctx); err != nil {
			s.log.Warn("移除计时浮层失败", "error", err)
		}
	}
	s.log.Info("停止计时", "host", s.page.Hostname)
}

// Tick 执行一次刷新：更新显示并在到达阈值时触发一次提醒
func (s *Stopwatch) Tick(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	elapsed := s.elapsed()
	text := Format(elapsed)
	fire := false
	threshold := 0
	if s.cfg.NotificationEnabled && !s.state.NotificationSent {
		threshold = s.threshold()
		// 随机阈值为 0 时立即触发；固定阈值为 0 视为未配置
		armed := s.state.GeneratedRandomSeconds != nil || threshold > 0
		if armed && elapsed >= time.Duration(threshold)*time.Second {
			s.state.NotificationSent = true
			fire = true
		}
	}
	cfg, page := s.cfg, s.page
	s.mu.Unlock()

	if s.display != nil {
		if err := s.display.Update(ctx, text); err != nil {
			s.log.Debug("刷新计时浮层失败", "error", err)
		}
	}
	if fire {
		s.log.Info("到达提醒时间", "host", page.Hostname, "threshold", threshold, "elapsed", text)
		s.fire(ctx, cfg, page, text)
	}
}

// fire 提醒并交接自动化，交接在独立 goroutine 中执行且不随秒表停止而取消
func (s *Stopwatch) fire(ctx context.Context, cfg settings.Snapshot, page settings.Page, text string) {
	ctx = context.WithoutCancel(ctx)
	s.handoff.Add(1)
	go func() {
		defer s.handoff.Done()
		if !cfg.Silent(page) && s.notifier != nil {
			msg := fmt.Sprintf("You have been on %s for %s", page.Hostname, text)
			if err := s.notifier.Alert(ctx, msg); err != nil {
				s.log.Warn("提醒失败", "error", err)
			}
		}
		entries := cfg.BookmarksFor(page)
		if len(entries) == 0 || s.runner == nil {
			return
		}
		if d := cfg.BookmarkletDelayMS(page); d > 0 {
			s.sleep(ctx, time.Duration(d)*time.Millisecond)
		}
		res := s.runner.ExecuteMultiple(ctx, entries)
		s.log.Info("自动化执行完成", "host", page.Hostname, "executed", res.Executed, "failed", res.Failed)
	}()
}

// Wait 等待进行中的自动化交接完成
func (s *Stopwatch) Wait() { s.handoff.Wait() }

// Apply 应用存储变更差异
func (s *Stopwatch) Apply(ctx context.Context, diff string) error {
	s.mu.Lock()
	next, changed, err := settings.Reduce(s.cfg, diff)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = next
	running, minimized := s.running, s.minimized
	s.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	s.log.Debug("设置已更新", "keys", changed)

	if slices.Contains(changed, settings.KeyEnabled) || slices.Contains(changed, settings.KeyDomains) {
		s.Stop(ctx)
		s.Init(ctx)
		return nil
	}
	if slices.Contains(changed, settings.KeyNotificationTimeByDomain) {
		s.rearm()
	}
	if running && slices.Contains(changed, settings.KeyPosition) {
		s.draw(ctx, next.Position, minimized)
	}
	return nil
}

// rearm 域名阈值调大到超过当前耗时后，允许再次提醒
func (s *Stopwatch) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || !s.state.NotificationSent {
		return
	}
	if time.Duration(s.threshold())*time.Second > s.elapsed() {
		s.state.NotificationSent = false
		s.log.Info("提醒重新布防", "host", s.page.Hostname, "threshold", s.threshold())
	}
}

// ThresholdSeconds 当前生效的提醒阈值：随机值优先，其次域名覆盖值，最后全局分钟数
func (s *Stopwatch) ThresholdSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold()
}

func (s *Stopwatch) threshold() int {
	if s.state.GeneratedRandomSeconds != nil {
		return *s.state.GeneratedRandomSeconds
	}
	return s.cfg.NotificationSeconds(s.page)
}

// Elapsed 已计时长
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed()
}

func (s *Stopwatch) elapsed() time.Duration {
	if s.state.StartTime == nil {
		return 0
	}
	return s.clock.Now().Sub(*s.state.StartTime)
}

// State 返回会话状态副本
func (s *Stopwatch) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.StartTime != nil {
		t := *st.StartTime
		st.StartTime = &t
	}
	if st.GeneratedRandomSeconds != nil {
		v := *st.GeneratedRandomSeconds
		st.GeneratedRandomSeconds = &v
	}
	return st
}

// Running 是否正在计时
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Minimized 浮层是否最小化
func (s *Stopwatch) Minimized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimized
}

// SetMinimized 切换浮层最小化状态
func (s *Stopwatch) SetMinimized(ctx context.Context, minimized bool) {
	s.mu.Lock()
	s.minimized = minimized
	running, position := s.running, s.cfg.Position
	s.mu.Unlock()
	if running {
		s.draw(ctx, position, minimized)
	}
}

// ToggleMinimized 反转最小化状态
func (s *Stopwatch) ToggleMinimized(ctx context.Context) {
	s.SetMinimized(ctx, !s.Minimized())
}

// Settings 当前设置快照
func (s *Stopwatch) Settings() settings.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Page 秒表所属页面
func (s *Stopwatch) Page() settings.Page { return s.page }

func (s *Stopwatch) draw(ctx context.Context, position string, minimized bool) {
	if s.display == nil {
		return
	}
	if err := s.display.Show(ctx, position, minimized); err != nil {
		s.log.Warn("显示计时浮层失败", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
