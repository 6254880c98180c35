package cdp

import (
	"context"
	"fmt"

	"github.com/mafredri/cdp/protocol/runtime"

	"cdpmarklet/internal/dom"
)

// Document 基于 Runtime.evaluate 的页面文档，元素以 (选择器, 序号) 定位
type Document struct {
	p *Page
}

var _ dom.Document = (*Document)(nil)

// Document 返回页面文档
func (p *Page) Document() *Document { return &Document{p: p} }

func (d *Document) QuerySelector(ctx context.Context, selector string) (dom.Element, error) {
	n, err := d.count(ctx, selector)
	if err != nil || n == 0 {
		return nil, err
	}
	return &element{p: d.p, selector: selector}, nil
}

func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]dom.Element, error) {
	n, err := d.count(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &element{p: d.p, selector: selector, index: i})
	}
	return out, nil
}

func (d *Document) count(ctx context.Context, selector string) (int, error) {
	res, err := d.p.run(ctx, countExpr(selector))
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", selector, err)
	}
	return int(res.Int()), nil
}

func (d *Document) BodyText(ctx context.Context) (string, error) {
	res, err := d.p.run(ctx, `document.body?document.body.textContent:""`)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// Alert 弹出原生提示框，直到用户关闭才返回，不受求值超时限制
func (d *Document) Alert(ctx context.Context, message string) error {
	_, err := d.p.evaluate(ctx, runtime.NewEvaluateArgs("alert("+jsString(message)+")").SetUserGesture(true), false)
	return err
}

type element struct {
	p        *Page
	selector string
	index    int
}

func (e *element) do(ctx context.Context, body string) error {
	_, err := e.p.run(ctx, elementExpr(e.selector, e.index, body))
	return err
}

func (e *element) str(ctx context.Context, body string) (string, error) {
	res, err := e.p.run(ctx, elementExpr(e.selector, e.index, body))
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (e *element) Type(ctx context.Context) (string, error) {
	return e.str(ctx, `return String(el.type||"").toLowerCase();`)
}

func (e *element) SetChecked(ctx context.Context, checked bool) error {
	return e.do(ctx, fmt.Sprintf(`el.checked=%t;`, checked))
}

func (e *element) Click(ctx context.Context) error { return e.do(ctx, `el.click();`) }

func (e *element) SetValue(ctx context.Context, value string) error {
	return e.do(ctx, fmt.Sprintf(`el.value=%s;`, jsString(value)))
}

func (e *element) Focus(ctx context.Context) error { return e.do(ctx, `el.focus();`) }

func (e *element) TextContent(ctx context.Context) (string, error) {
	return e.str(ctx, `return el.textContent||"";`)
}

func (e *element) Value(ctx context.Context) (string, error) {
	return e.str(ctx, `return el.value==null?"":String(el.value);`)
}

func (e *element) Dispatch(ctx context.Context, event string, bubbles bool) error {
	return e.do(ctx, dispatchBody(event, bubbles))
}
