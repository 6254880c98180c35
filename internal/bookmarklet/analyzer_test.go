package bookmarklet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cdpmarklet/pkg/model"
)

func TestAnalyzeVariableCheck(t *testing.T) {
	got := Analyze(`var x = document.querySelector('#foo'); x.checked = true;`)
	assert.Equal(t, []model.DomAction{{Type: model.ActionCheck, Selector: "#foo"}}, got)
}

func TestAnalyzeDirectShapes(t *testing.T) {
	code := `
		document.querySelector("input[name='agree']").checked = true;
		document.querySelector('#spam').checked = false;
		document.querySelector('.submit').click();
		document.querySelector('#q').value = "it's \"quoted\"";
	`
	want := []model.DomAction{
		{Type: model.ActionCheck, Selector: "input[name='agree']"},
		{Type: model.ActionUncheck, Selector: "#spam"},
		{Type: model.ActionClick, Selector: ".submit"},
		{Type: model.ActionSetValue, Selector: "#q", Value: model.StringPtr(`it's "quoted"`)},
	}
	assert.Equal(t, want, Analyze(code))
}

func TestAnalyzeGetElementByID(t *testing.T) {
	code := `document.getElementById('go').click(); document.getElementById("user.name").value = 'bob';`
	want := []model.DomAction{
		{Type: model.ActionClick, Selector: "#go"},
		{Type: model.ActionSetValue, Selector: `[id="user.name"]`, Value: model.StringPtr("bob")},
	}
	assert.Equal(t, want, Analyze(code))
}

func TestAnalyzeQuerySelectorAll(t *testing.T) {
	code := `
		document.querySelectorAll('.opt').forEach(function (cb) { cb.checked = true; });
		document.querySelectorAll('button.more').forEach(b => b.click());
		Array.from(document.querySelectorAll('.x')).forEach((el) => { el.click(); });
		document.querySelectorAll('.y').forEach(el => console.log(el));
	`
	want := []model.DomAction{
		{Type: model.ActionCheck, Selector: ".opt", All: true},
		{Type: model.ActionClick, Selector: "button.more", All: true},
		{Type: model.ActionClick, Selector: ".x", All: true},
	}
	assert.Equal(t, want, Analyze(code))
}

func TestAnalyzeVariableShapes(t *testing.T) {
	code := `(function(){
		const btn = document.getElementById('go');
		let field = document.querySelector('#email');
		field.value = 'a@b.c';
		btn.click();
		btn.click();
		field.checked = false;
	})();`
	want := []model.DomAction{
		{Type: model.ActionSetValue, Selector: "#email", Value: model.StringPtr("a@b.c")},
		{Type: model.ActionClick, Selector: "#go"},
	}
	assert.Equal(t, want, Analyze(code))
}

func TestAnalyzeDeduplicates(t *testing.T) {
	code := `document.querySelector('#a').click(); document.querySelector('#a').click();
		document.querySelector('#v').value = '1'; document.querySelector('#v').value = '2';`
	want := []model.DomAction{
		{Type: model.ActionClick, Selector: "#a"},
		{Type: model.ActionSetValue, Selector: "#v", Value: model.StringPtr("1")},
		{Type: model.ActionSetValue, Selector: "#v", Value: model.StringPtr("2")},
	}
	assert.Equal(t, want, Analyze(code))
}

func TestAnalyzeUnsupported(t *testing.T) {
	assert.Empty(t, Analyze(`alert(document.title)`))
	assert.Empty(t, Analyze(`var s = '#a'; document.querySelector(s).click();`))
	assert.Empty(t, Analyze(`if (document.querySelector('#a').checked == true) {}`))
	assert.Empty(t, Analyze(`document.querySelector('#unterminated).click()`))
	assert.Empty(t, Analyze(""))
}

func TestScanQuoted(t *testing.T) {
	s, end, ok := scanQuoted(`'a\'b"c' rest`, 0)
	assert.True(t, ok)
	assert.Equal(t, `a'b"c`, s)
	assert.Equal(t, 8, end)

	s, _, ok = scanQuoted("`tpl`", 0)
	assert.True(t, ok)
	assert.Equal(t, "tpl", s)

	_, _, ok = scanQuoted(`abc`, 0)
	assert.False(t, ok)
	_, _, ok = scanQuoted(`"open`, 0)
	assert.False(t, ok)
}
