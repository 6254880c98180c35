// Package htmldoc 基于 goquery 的离线文档宿主，用于回放与测试 DOM 动作。
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"cdpmarklet/internal/dom"
)

// Event 已派发事件记录
type Event struct {
	Target  string
	Name    string
	Bubbles bool
}

// Document 离线 HTML 文档
type Document struct {
	mu      sync.Mutex
	doc     *goquery.Document
	events  []Event
	alerts  []string
	focused *html.Node
}

// Parse 解析 HTML
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString 解析 HTML 字符串
func ParseString(s string) (*Document, error) { return Parse(strings.NewReader(s)) }

func (d *Document) QuerySelector(_ context.Context, selector string) (dom.Element, error) {
	sel, err := d.find(selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, nil
	}
	return &element{doc: d, sel: sel.First()}, nil
}

func (d *Document) QuerySelectorAll(_ context.Context, selector string) ([]dom.Element, error) {
	sel, err := d.find(selector)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{doc: d, sel: s})
	})
	return out, nil
}

func (d *Document) BodyText(context.Context) (string, error) {
	return d.doc.Find("body").Text(), nil
}

func (d *Document) Alert(_ context.Context, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, message)
	return nil
}

func (d *Document) find(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return d.doc.FindMatcher(m), nil
}

// Events 返回已派发事件
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Alerts 返回已弹出的提示
func (d *Document) Alerts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.alerts...)
}

// Focused 返回当前获得焦点元素的 id
func (d *Document) Focused() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil {
		return ""
	}
	return describe(goquery.NewDocumentFromNode(d.focused).Selection)
}

// Checked 判断选择器第一个匹配元素是否被勾选
func (d *Document) Checked(selector string) bool {
	sel, err := d.find(selector)
	if err != nil || sel.Length() == 0 {
		return false
	}
	_, ok := sel.First().Attr("checked")
	return ok
}

// ValueOf 返回选择器第一个匹配元素的值
func (d *Document) ValueOf(selector string) string {
	sel, err := d.find(selector)
	if err != nil || sel.Length() == 0 {
		return ""
	}
	return valueOf(sel.First())
}

// HTML 输出当前文档
func (d *Document) HTML() (string, error) { return d.doc.Html() }

func (d *Document) record(sel *goquery.Selection, name string, bubbles bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, Event{Target: describe(sel), Name: name, Bubbles: bubbles})
}

func describe(sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if name, ok := sel.Attr("name"); ok && name != "" {
		return goquery.NodeName(sel) + "[name=" + name + "]"
	}
	return goquery.NodeName(sel)
}
