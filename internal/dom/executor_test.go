package dom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpmarklet/internal/dom"
	"cdpmarklet/internal/dom/htmldoc"
	"cdpmarklet/pkg/model"
)

const page = `<html><body>
<h1>Cast &amp; Crew</h1>
<input type="checkbox" id="foo">
<input type="checkbox" class="opt" id="o1">
<input type="checkbox" class="opt" id="o2" checked>
<input type="radio" name="r" id="r1" checked>
<input type="radio" name="r" id="r2">
<input type="text" id="name" value="old">
<textarea id="notes">hello</textarea>
<button id="go">Go</button>
<span id="empty"></span>
</body></html>`

func newDoc(t *testing.T) (*htmldoc.Document, *dom.Executor) {
	t.Helper()
	doc, err := htmldoc.ParseString(page)
	require.NoError(t, err)
	return doc, dom.NewExecutor(doc, nil)
}

func TestExecuteCheck(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionCheck, Selector: "#foo"})
	assert.Equal(t, model.ActionResult{Success: true, Type: model.ActionCheck, ElementsModified: 1}, res)
	assert.True(t, doc.Checked("#foo"))
	assert.Equal(t, []htmldoc.Event{{Target: "#foo", Name: "change", Bubbles: true}}, doc.Events())
}

func TestExecuteCheckAllSkipsNonCheckbox(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionCheck, Selector: "input", All: true})
	require.True(t, res.Success)
	// 3 checkboxes + 2 radios
	assert.Equal(t, 5, res.ElementsModified)
	assert.True(t, doc.Checked("#o1"))
	assert.Equal(t, "old", doc.ValueOf("#name"))
}

func TestExecuteUncheckIgnoresRadio(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionUncheck, Selector: "#o2, #r1", All: true})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.ElementsModified)
	assert.False(t, doc.Checked("#o2"))
	assert.True(t, doc.Checked("#r1"))
}

func TestExecuteCheckRadioGroup(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionCheck, Selector: "#r2"})
	require.True(t, res.Success)
	assert.True(t, doc.Checked("#r2"))
	assert.False(t, doc.Checked("#r1"))
}

func TestExecuteClick(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionClick, Selector: ".opt", All: true})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.ElementsModified)
	assert.True(t, doc.Checked("#o1"))
	assert.False(t, doc.Checked("#o2"))

	res = ex.Execute(context.Background(), model.DomAction{Type: model.ActionClick, Selector: "#go"})
	require.True(t, res.Success)
	evs := doc.Events()
	assert.Equal(t, htmldoc.Event{Target: "#go", Name: "click", Bubbles: true}, evs[len(evs)-1])
}

func TestExecuteSetValue(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionSetValue, Selector: "#name", Value: model.StringPtr("new")})
	require.True(t, res.Success)
	assert.Equal(t, "new", doc.ValueOf("#name"))
	assert.Equal(t, []htmldoc.Event{
		{Target: "#name", Name: "input", Bubbles: true},
		{Target: "#name", Name: "change", Bubbles: true},
	}, doc.Events())

	res = ex.Execute(context.Background(), model.DomAction{Type: model.ActionSetValue, Selector: "#notes"})
	require.True(t, res.Success)
	assert.Equal(t, "", doc.ValueOf("#notes"))
}

func TestExecuteFocusAndGetText(t *testing.T) {
	doc, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionFocus, Selector: "input", All: true})
	require.True(t, res.Success)
	assert.Equal(t, "#foo", doc.Focused())

	res = ex.Execute(context.Background(), model.DomAction{Type: model.ActionGetText, Selector: "h1"})
	assert.Equal(t, "Cast & Crew", res.Text)

	res = ex.Execute(context.Background(), model.DomAction{Type: model.ActionGetText, Selector: "#name"})
	assert.Equal(t, "old", res.Text)
	assert.Empty(t, doc.Events()[1:])
}

func TestExecuteHasText(t *testing.T) {
	_, ex := newDoc(t)
	res := ex.Execute(context.Background(), model.DomAction{Type: model.ActionHasText, Value: model.StringPtr("cast & CREW")})
	assert.True(t, res.Success)
	assert.True(t, res.Found)

	res = ex.Execute(context.Background(), model.DomAction{Type: model.ActionHasText, Value: model.StringPtr("director")})
	assert.True(t, res.Success)
	assert.False(t, res.Found)
}

func TestExecuteAlert(t *testing.T) {
	doc, ex := newDoc(t)
	require.True(t, ex.Execute(context.Background(), model.DomAction{Type: model.ActionAlert}).Success)
	require.True(t, ex.Execute(context.Background(), model.DomAction{Type: model.ActionAlert, Value: model.StringPtr("hi")}).Success)
	assert.Equal(t, []string{dom.DefaultAlertMessage, "hi"}, doc.Alerts())
}

func TestExecuteFailures(t *testing.T) {
	_, ex := newDoc(t)
	ctx := context.Background()

	res := ex.Execute(ctx, model.DomAction{Type: model.ActionClick, Selector: "#missing"})
	assert.False(t, res.Success)
	assert.Equal(t, "no elements found", res.Error)

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionClick, Selector: ".none", All: true})
	assert.Equal(t, "no elements found", res.Error)

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionFocus})
	assert.False(t, res.Success)

	res = ex.Execute(ctx, model.DomAction{Type: "explode", Selector: "#foo"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown action type")

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionClick, Selector: "[[["})
	assert.False(t, res.Success)
}

type panicDoc struct{}

func (panicDoc) QuerySelector(context.Context, string) (dom.Element, error) { panic("host blew up") }
func (panicDoc) QuerySelectorAll(context.Context, string) ([]dom.Element, error) {
	return nil, errors.New("detached")
}
func (panicDoc) BodyText(context.Context) (string, error) { return "", errors.New("detached") }
func (panicDoc) Alert(context.Context, string) error       { return errors.New("blocked") }

func TestExecuteRecoversHostErrors(t *testing.T) {
	ex := dom.NewExecutor(panicDoc{}, nil)
	ctx := context.Background()

	res := ex.Execute(ctx, model.DomAction{Type: model.ActionClick, Selector: "#a"})
	assert.False(t, res.Success)
	assert.Equal(t, "host blew up", res.Error)

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionClick, Selector: "#a", All: true})
	assert.Equal(t, "detached", res.Error)

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionHasText, Value: model.StringPtr("x")})
	assert.True(t, res.Success)
	assert.False(t, res.Found)

	res = ex.Execute(ctx, model.DomAction{Type: model.ActionAlert})
	assert.Equal(t, "blocked", res.Error)
}
