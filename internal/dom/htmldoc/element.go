package htmldoc

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type element struct {
	doc *Document
	sel *goquery.Selection
}

func (e *element) Type(context.Context) (string, error) { return typeOf(e.sel), nil }

func (e *element) SetChecked(_ context.Context, checked bool) error {
	setChecked(e.doc, e.sel, checked)
	return nil
}

// Click 模拟原生点击：复选框切换、单选框选中，并派发 click 事件
func (e *element) Click(context.Context) error {
	switch typeOf(e.sel) {
	case "checkbox":
		_, on := e.sel.Attr("checked")
		setChecked(e.doc, e.sel, !on)
		e.doc.record(e.sel, "click", true)
		e.doc.record(e.sel, "input", true)
		e.doc.record(e.sel, "change", true)
		return nil
	case "radio":
		setChecked(e.doc, e.sel, true)
		e.doc.record(e.sel, "click", true)
		e.doc.record(e.sel, "input", true)
		e.doc.record(e.sel, "change", true)
		return nil
	}
	e.doc.record(e.sel, "click", true)
	return nil
}

func (e *element) SetValue(_ context.Context, value string) error {
	switch goquery.NodeName(e.sel) {
	case "textarea":
		e.sel.SetText(value)
	case "select":
		e.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
			if optionValue(o) == value {
				o.SetAttr("selected", "selected")
			} else {
				o.RemoveAttr("selected")
			}
		})
	default:
		e.sel.SetAttr("value", value)
	}
	return nil
}

func (e *element) Focus(context.Context) error {
	e.doc.mu.Lock()
	e.doc.focused = e.sel.Get(0)
	e.doc.mu.Unlock()
	e.doc.record(e.sel, "focus", false)
	return nil
}

func (e *element) TextContent(context.Context) (string, error) { return e.sel.Text(), nil }

func (e *element) Value(context.Context) (string, error) { return valueOf(e.sel), nil }

func (e *element) Dispatch(_ context.Context, event string, bubbles bool) error {
	e.doc.record(e.sel, event, bubbles)
	return nil
}

func typeOf(sel *goquery.Selection) string {
	switch goquery.NodeName(sel) {
	case "input":
		t, ok := sel.Attr("type")
		if !ok || t == "" {
			return "text"
		}
		return strings.ToLower(t)
	case "textarea":
		return "textarea"
	case "select":
		if _, multi := sel.Attr("multiple"); multi {
			return "select-multiple"
		}
		return "select-one"
	case "button":
		t, ok := sel.Attr("type")
		if !ok || t == "" {
			return "submit"
		}
		return strings.ToLower(t)
	}
	return ""
}

func setChecked(d *Document, sel *goquery.Selection, checked bool) {
	if !checked {
		sel.RemoveAttr("checked")
		return
	}
	if typeOf(sel) == "radio" {
		if name, ok := sel.Attr("name"); ok && name != "" {
			d.doc.Find("input[type=radio]").Each(func(_ int, o *goquery.Selection) {
				if n, _ := o.Attr("name"); n == name {
					o.RemoveAttr("checked")
				}
			})
		}
	}
	sel.SetAttr("checked", "checked")
}

func valueOf(sel *goquery.Selection) string {
	switch goquery.NodeName(sel) {
	case "textarea":
		return sel.Text()
	case "select":
		opt := sel.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = sel.Find("option").First()
		}
		return optionValue(opt)
	}
	v, _ := sel.Attr("value")
	return v
}

func optionValue(o *goquery.Selection) string {
	if v, ok := o.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(o.Text())
}
