package cdp

import (
	"context"
	"fmt"
	"strings"

	"cdpmarklet/internal/stopwatch"
)

const overlayID = "__cdpmarklet_stopwatch"

// Overlay 页面右下角等位置的计时浮层
type Overlay struct {
	p *Page
}

var (
	_ stopwatch.Display  = (*Overlay)(nil)
	_ stopwatch.Notifier = (*Overlay)(nil)
)

// Overlay 返回页面计时浮层
func (p *Page) Overlay() *Overlay { return &Overlay{p: p} }

// positionCSS 浮层定位样式，未知位置按右下角处理
func positionCSS(position string) string {
	vert, horiz := "bottom", "right"
	switch strings.ToLower(position) {
	case "top-left":
		vert, horiz = "top", "left"
	case "top-right":
		vert, horiz = "top", "right"
	case "bottom-left":
		vert, horiz = "bottom", "left"
	}
	return fmt.Sprintf("%s:16px;%s:16px;", vert, horiz)
}

func overlayStyle(position string, minimized bool) string {
	style := "position:fixed;z-index:2147483647;font:13px/1.4 monospace;color:#fff;background:rgba(0,0,0,.75);border-radius:6px;pointer-events:none;" + positionCSS(position)
	if minimized {
		return style + "padding:2px 6px;opacity:.5;"
	}
	return style + "padding:6px 10px;"
}

func (o *Overlay) Show(ctx context.Context, position string, minimized bool) error {
	expr := fmt.Sprintf(`(function(){var el=document.getElementById(%s);if(!el){el=document.createElement("div");el.id=%s;el.textContent="00:00";(document.body||document.documentElement).appendChild(el);}el.style.cssText=%s;el.dataset.minimized=%q;})()`,
		jsString(overlayID), jsString(overlayID), jsString(overlayStyle(position, minimized)), fmt.Sprint(minimized))
	_, err := o.p.run(ctx, expr)
	return err
}

func (o *Overlay) Update(ctx context.Context, text string) error {
	expr := fmt.Sprintf(`(function(){var el=document.getElementById(%s);if(el)el.textContent=%s;})()`, jsString(overlayID), jsString(text))
	_, err := o.p.run(ctx, expr)
	return err
}

func (o *Overlay) Hide(ctx context.Context) error {
	expr := fmt.Sprintf(`(function(){var el=document.getElementById(%s);if(el)el.remove();})()`, jsString(overlayID))
	_, err := o.p.run(ctx, expr)
	return err
}

// Alert 弹出原生提示框并等待关闭
func (o *Overlay) Alert(ctx context.Context, message string) error {
	return o.p.Document().Alert(ctx, message)
}
