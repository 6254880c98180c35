package model

// ActionType DOM 动作类型
type ActionType string

const (
	ActionCheck    ActionType = "check"
	ActionUncheck  ActionType = "uncheck"
	ActionClick    ActionType = "click"
	ActionSetValue ActionType = "setValue"
	ActionFocus    ActionType = "focus"
	ActionGetText  ActionType = "getText"
	ActionHasText  ActionType = "hasText"
	ActionAlert    ActionType = "alert"
)

// DomAction 可枚举的安全 DOM 操作，用于替代执行任意代码
type DomAction struct {
	Type     ActionType `json:"type"`
	Selector string     `json:"selector,omitempty"`
	Value    *string    `json:"value,omitempty"`
	All      bool       `json:"all,omitempty"`
}

// Key 返回去重用的元组键 (type, selector, all, value)
func (a DomAction) Key() string {
	v := "\x00"
	if a.Value != nil {
		v = "=" + *a.Value
	}
	all := "0"
	if a.All {
		all = "1"
	}
	return string(a.Type) + "\x1f" + a.Selector + "\x1f" + all + "\x1f" + v
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string { return &s }

// ActionResult DOM 动作执行结果
type ActionResult struct {
	Success          bool       `json:"success"`
	Type             ActionType `json:"type,omitempty"`
	Error            string     `json:"error,omitempty"`
	ElementsModified int        `json:"elementsModified,omitempty"`
	Text             string     `json:"text,omitempty"`
	Found            bool       `json:"found,omitempty"`
}
