package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// Manager 全局页面会话管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*Session
	log      logger.Logger
}

// NewManager 创建会话管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.SessionID]*Session),
		log:      l,
	}
}

// Create 创建、启动并注册新会话；页面断开后会话自动注销
func (m *Manager) Create(ctx context.Context, target model.TargetID, d Deps) (*Session, error) {
	id := model.SessionID(uuid.NewString())
	if d.Logger == nil {
		d.Logger = m.log
	}
	s := New(id, target, d)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info("创建页面会话", "sessionID", string(id), "target", string(target))

	go func() {
		<-s.Done()
		m.remove(id)
	}()
	return s, nil
}

// Get 获取会话
func (m *Manager) Get(id model.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete 停止并销毁会话
func (m *Manager) Delete(ctx context.Context, id model.SessionID) error {
	s, ok := m.Get(id)
	if !ok {
		return nil
	}
	err := s.Stop(ctx)
	m.remove(id)
	return err
}

func (m *Manager) remove(id model.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.log.Info("销毁页面会话", "sessionID", string(id))
	}
}

// List 返回所有活动会话，按ID排序
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	return list
}

// CloseAll 停止全部会话
func (m *Manager) CloseAll(ctx context.Context) {
	for _, s := range m.List() {
		if err := m.Delete(ctx, s.id); err != nil {
			m.log.Warn("关闭会话失败", "sessionID", string(s.id), "error", err)
		}
	}
}
