package model

// SessionID 页面会话ID
type SessionID string

// TargetID CDP 目标ID
type TargetID string

// TargetInfo 目标信息
type TargetInfo struct {
	ID    TargetID `json:"id"`
	Type  string   `json:"type"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
}

// SessionInfo 页面会话信息
type SessionInfo struct {
	ID       SessionID `json:"id"`
	Target   TargetID  `json:"target"`
	URL      string    `json:"url"`
	Hostname string    `json:"hostname"`
	Running  bool      `json:"running"`
	Elapsed  int64     `json:"elapsedSeconds"`
}

// BookmarkEntry 域名下配置的书签或书签小程序
type BookmarkEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// URL 为 javascript: 前缀的书签小程序或普通链接
	URL string `json:"url,omitempty"`
	// DelayAfter 执行完本条后到下一条开始前的等待时间（毫秒）
	DelayAfter          int    `json:"delayAfter"`
	IsCustomCode        bool   `json:"isCustomCode,omitempty"`
	IsEditorBookmarklet bool   `json:"isEditorBookmarklet,omitempty"`
	EditorBookmarkletID string `json:"editorBookmarkletId,omitempty"`
}

// EditorBookmarklet 编辑器中按名称保存的书签小程序
type EditorBookmarklet struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Enabled bool   `json:"enabled"`
}

// ExecResult 脚本执行引擎的单次执行结果
type ExecResult struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Error   string `json:"error,omitempty"`
}

// BatchResult 批量执行书签小程序的统计
type BatchResult struct {
	Total    int      `json:"total"`
	Executed int      `json:"executed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}
