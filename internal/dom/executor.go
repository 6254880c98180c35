package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cdpmarklet/internal/logger"
	"cdpmarklet/pkg/model"
)

// DefaultAlertMessage alert 动作未提供消息时的默认文本
const DefaultAlertMessage = "Bookmarklet action"

var errNoElements = errors.New("no elements found")

// Executor 在文档上执行 DomAction
type Executor struct {
	doc Document
	log logger.Logger
}

// NewExecutor 创建动作执行器
func NewExecutor(doc Document, l logger.Logger) *Executor {
	if l == nil {
		l = logger.NewNop()
	}
	return &Executor{doc: doc, log: l}
}

// Execute 执行单个动作，所有失败都转换为 Success=false 的结果
func (e *Executor) Execute(ctx context.Context, a model.DomAction) (res model.ActionResult) {
	res.Type = a.Type
	defer func() {
		if r := recover(); r != nil {
			res = model.ActionResult{Type: a.Type, Error: fmt.Sprint(r)}
			e.log.Error("DOM动作执行异常", "type", string(a.Type), "selector", a.Selector, "panic", res.Error)
		}
	}()
	if e.doc == nil {
		return fail(a, errors.New("no document"))
	}

	switch a.Type {
	case model.ActionCheck, model.ActionUncheck:
		return e.setChecked(ctx, a)
	case model.ActionClick:
		return e.click(ctx, a)
	case model.ActionSetValue:
		return e.setValue(ctx, a)
	case model.ActionFocus:
		return e.focus(ctx, a)
	case model.ActionGetText:
		return e.getText(ctx, a)
	case model.ActionHasText:
		return e.hasText(ctx, a)
	case model.ActionAlert:
		msg := DefaultAlertMessage
		if a.Value != nil {
			msg = *a.Value
		}
		if err := e.doc.Alert(ctx, msg); err != nil {
			return fail(a, err)
		}
		return model.ActionResult{Success: true, Type: a.Type}
	default:
		return fail(a, fmt.Errorf("unknown action type: %q", a.Type))
	}
}

func (e *Executor) targets(ctx context.Context, a model.DomAction) ([]Element, error) {
	if a.Selector == "" {
		return nil, errors.New("selector required")
	}
	if a.All {
		els, err := e.doc.QuerySelectorAll(ctx, a.Selector)
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return nil, errNoElements
		}
		return els, nil
	}
	el, err := e.doc.QuerySelector(ctx, a.Selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, errNoElements
	}
	return []Element{el}, nil
}

func (e *Executor) setChecked(ctx context.Context, a model.DomAction) model.ActionResult {
	els, err := e.targets(ctx, a)
	if err != nil {
		return fail(a, err)
	}
	checked := a.Type == model.ActionCheck
	n := 0
	for _, el := range els {
		typ, err := el.Type(ctx)
		if err != nil {
			return fail(a, err)
		}
		if typ != "checkbox" && !(checked && typ == "radio") {
			continue
		}
		if err := el.SetChecked(ctx, checked); err != nil {
			return fail(a, err)
		}
		if err := el.Dispatch(ctx, "change", true); err != nil {
			return fail(a, err)
		}
		n++
	}
	return model.ActionResult{Success: true, Type: a.Type, ElementsModified: n}
}

func (e *Executor) click(ctx context.Context, a model.DomAction) model.ActionResult {
	els, err := e.targets(ctx, a)
	if err != nil {
		return fail(a, err)
	}
	for _, el := range els {
		if err := el.Click(ctx); err != nil {
			return fail(a, err)
		}
	}
	return model.ActionResult{Success: true, Type: a.Type, ElementsModified: len(els)}
}

func (e *Executor) setValue(ctx context.Context, a model.DomAction) model.ActionResult {
	els, err := e.targets(ctx, a)
	if err != nil {
		return fail(a, err)
	}
	v := ""
	if a.Value != nil {
		v = *a.Value
	}
	for _, el := range els {
		if err := el.SetValue(ctx, v); err != nil {
			return fail(a, err)
		}
		for _, ev := range []string{"input", "change"} {
			if err := el.Dispatch(ctx, ev, true); err != nil {
				return fail(a, err)
			}
		}
	}
	return model.ActionResult{Success: true, Type: a.Type, ElementsModified: len(els)}
}

func (e *Executor) focus(ctx context.Context, a model.DomAction) model.ActionResult {
	a.All = false
	els, err := e.targets(ctx, a)
	if err != nil {
		return fail(a, err)
	}
	if err := els[0].Focus(ctx); err != nil {
		return fail(a, err)
	}
	return model.ActionResult{Success: true, Type: a.Type}
}

func (e *Executor) getText(ctx context.Context, a model.DomAction) model.ActionResult {
	a.All = false
	els, err := e.targets(ctx, a)
	if err != nil {
		return fail(a, err)
	}
	text, err := els[0].TextContent(ctx)
	if err != nil {
		return fail(a, err)
	}
	if text == "" {
		if text, err = els[0].Value(ctx); err != nil {
			return fail(a, err)
		}
	}
	return model.ActionResult{Success: true, Type: a.Type, Text: text}
}

func (e *Executor) hasText(ctx context.Context, a model.DomAction) model.ActionResult {
	needle := ""
	if a.Value != nil {
		needle = *a.Value
	}
	body, err := e.doc.BodyText(ctx)
	if err != nil {
		e.log.Warn("读取页面文本失败", "error", err)
	}
	found := strings.Contains(strings.ToLower(body), strings.ToLower(needle))
	return model.ActionResult{Success: true, Type: a.Type, Found: found}
}

func fail(a model.DomAction, err error) model.ActionResult {
	return model.ActionResult{Type: a.Type, Error: err.Error()}
}
