package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cdpmarklet/internal/bookmarklet"
	"cdpmarklet/internal/cdp"
	"cdpmarklet/internal/config"
	"cdpmarklet/internal/ctxkeys"
	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/session"
	"cdpmarklet/internal/storage"
	"cdpmarklet/pkg/model"
)

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("session not found")

// Service 服务实现：设置存储、DevTools 连接与页面会话的组合
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	db       *gorm.DB
	settings *storage.SettingsStore
	editors  *storage.EditorStore
	cdp      *cdp.Manager
	sessions *session.Manager
}

// New 打开存储并创建服务
func New(cfg *config.Config, l logger.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if l == nil {
		l = logger.NewNop()
	}
	db, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		log:      l,
		db:       db,
		settings: storage.NewSettingsStore(db, l),
		editors:  storage.NewEditorStore(db),
		cdp: cdp.New(cfg.DevTools.URL, cdp.Options{
			BypassCSP:   cfg.Engine.BypassCSP,
			EvalTimeout: time.Duration(cfg.Engine.EvalTimeoutMS) * time.Millisecond,
		}, l),
		sessions: session.NewManager(l),
	}, nil
}

// Settings 设置存储
func (s *Service) Settings() *storage.SettingsStore { return s.settings }

// Editors 编辑器书签库
func (s *Service) Editors() *storage.EditorStore { return s.editors }

// ListTargets 列出可附加的页面
func (s *Service) ListTargets(ctx context.Context) ([]model.TargetInfo, error) {
	return s.cdp.ListTargets(ctx)
}

// AttachPage 附加页面并启动会话
func (s *Service) AttachPage(ctx context.Context, target model.TargetID) (model.SessionID, error) {
	p, err := s.cdp.Attach(ctx, target)
	if err != nil {
		return "", err
	}
	overlay := p.Overlay()
	sess, err := s.sessions.Create(ctx, p.ID(), session.Deps{
		Host:     p,
		Settings: s.settings,
		Document: p.Document(),
		Engine:   cdp.NewEngine(p, s.cfg.Engine.Legacy, s.log),
		Display:  overlay,
		Notifier: overlay,
		Opener:   p,
		Editors:  s.editors,
		Logger:   s.log,
	})
	if err != nil {
		_ = p.Close()
		return "", fmt.Errorf("start session: %w", err)
	}
	return sess.ID(), nil
}

// DetachPage 结束会话并断开页面
func (s *Service) DetachPage(ctx context.Context, id model.SessionID) error {
	if _, ok := s.sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.sessions.Delete(ctx, id)
}

// ListSessions 活动会话概要
func (s *Service) ListSessions() []model.SessionInfo {
	list := s.sessions.List()
	out := make([]model.SessionInfo, 0, len(list))
	for _, sess := range list {
		out = append(out, sess.Info())
	}
	return out
}

// Session 获取会话，供运行时等待其结束
func (s *Service) Session(id model.SessionID) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Done 会话结束时关闭的通道
func (s *Service) Done(id model.SessionID) (<-chan struct{}, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Done(), nil
}

func (s *Service) orchestrator(id model.SessionID) (*bookmarklet.Orchestrator, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Orchestrator(), nil
}

// traced 为单次调用附加追踪ID与会话ID
func traced(ctx context.Context, id model.SessionID) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.TraceIDKey{}, uuid.NewString())
	return context.WithValue(ctx, ctxkeys.SessionIDKey{}, string(id))
}

// Execute 在会话页面执行书签代码
func (s *Service) Execute(ctx context.Context, id model.SessionID, code, title string) (bool, error) {
	o, err := s.orchestrator(id)
	if err != nil {
		return false, err
	}
	return o.Execute(traced(ctx, id), code, title), nil
}

// ExecuteFromURL 执行单个书签条目
func (s *Service) ExecuteFromURL(ctx context.Context, id model.SessionID, entry model.BookmarkEntry) (bool, error) {
	o, err := s.orchestrator(id)
	if err != nil {
		return false, err
	}
	return o.ExecuteFromURL(traced(ctx, id), entry), nil
}

// ExecuteMultiple 依次执行一批书签
func (s *Service) ExecuteMultiple(ctx context.Context, id model.SessionID, entries []model.BookmarkEntry) (model.BatchResult, error) {
	o, err := s.orchestrator(id)
	if err != nil {
		return model.BatchResult{}, err
	}
	return o.ExecuteMultiple(traced(ctx, id), entries), nil
}

// Action 直接执行 DOM 动作
func (s *Service) Action(ctx context.Context, id model.SessionID, a model.DomAction) (model.ActionResult, error) {
	o, err := s.orchestrator(id)
	if err != nil {
		return model.ActionResult{}, err
	}
	return o.Action(traced(ctx, id), a), nil
}

func (s *Service) Parse(url string) (string, error) { return bookmarklet.Parse(url) }

func (s *Service) IsBookmarklet(url string) bool { return bookmarklet.IsBookmarklet(url) }

func (s *Service) ParseToActions(code string) []model.DomAction { return bookmarklet.Analyze(code) }

// Close 关闭全部会话与数据库
func (s *Service) Close(ctx context.Context) error {
	s.sessions.CloseAll(ctx)
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
