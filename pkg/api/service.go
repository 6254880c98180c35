package api

import (
	"context"

	"cdpmarklet/internal/config"
	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/service"
	"cdpmarklet/internal/storage"
	"cdpmarklet/pkg/model"
)

// Service 服务接口
type Service interface {
	// AttachPage 附加页面目标并启动页面会话
	AttachPage(ctx context.Context, target model.TargetID) (model.SessionID, error)

	// DetachPage 结束页面会话
	DetachPage(ctx context.Context, id model.SessionID) error

	// Done 会话结束（页面断开或被分离）时关闭
	Done(id model.SessionID) (<-chan struct{}, error)

	// ListSessions 列出会话
	ListSessions() []model.SessionInfo

	// ListTargets 列出目标
	ListTargets(ctx context.Context) ([]model.TargetInfo, error)

	// Execute 执行书签代码，引擎失败时回退到 DOM 动作
	Execute(ctx context.Context, id model.SessionID, code, title string) (bool, error)

	// ExecuteFromURL 执行单个书签条目
	ExecuteFromURL(ctx context.Context, id model.SessionID, entry model.BookmarkEntry) (bool, error)

	// ExecuteMultiple 批量执行书签
	ExecuteMultiple(ctx context.Context, id model.SessionID, entries []model.BookmarkEntry) (model.BatchResult, error)

	// Action 执行单个 DOM 动作
	Action(ctx context.Context, id model.SessionID, action model.DomAction) (model.ActionResult, error)

	// Parse 解码 javascript: 书签
	Parse(url string) (string, error)

	// IsBookmarklet 是否为 javascript: 书签
	IsBookmarklet(url string) bool

	// ParseToActions 将书签代码解析为 DOM 动作
	ParseToActions(code string) []model.DomAction

	// Settings 设置存储
	Settings() *storage.SettingsStore

	// Editors 编辑器书签库
	Editors() *storage.EditorStore

	// Close 关闭服务
	Close(ctx context.Context) error
}

// NewService 创建并返回服务接口实现
func NewService(cfg *config.Config, l logger.Logger) (Service, error) {
	s, err := service.New(cfg, l)
	if err != nil {
		return nil, err
	}
	return s, nil
}
