// Package dom 在宿主页面上执行结构化 DOM 动作。
// 选择器匹配交给宿主实现（浏览器或 goquery），这里不实现选择器引擎。
package dom

import "context"

// Document 宿主文档
type Document interface {
	// QuerySelector 返回第一个匹配元素，无匹配时返回 nil
	QuerySelector(ctx context.Context, selector string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
	// BodyText 返回 body 的文本内容
	BodyText(ctx context.Context) (string, error)
	// Alert 弹出阻塞式原生提示框
	Alert(ctx context.Context, message string) error
}

// Element 宿主元素
type Element interface {
	// Type 返回原生 type 属性（小写）
	Type(ctx context.Context) (string, error)
	SetChecked(ctx context.Context, checked bool) error
	Click(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	Focus(ctx context.Context) error
	TextContent(ctx context.Context) (string, error)
	Value(ctx context.Context) (string, error)
	// Dispatch 派发指定名称的事件
	Dispatch(ctx context.Context, event string, bubbles bool) error
}
