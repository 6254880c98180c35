package bookmarklet

import (
	"regexp"
	"sort"
	"strings"

	"cdpmarklet/pkg/model"
)

// Analyze 把书签源码启发式地转换为 DOM 动作列表。
// 只识别固定的几种写法，条件分支等逻辑不会被捕获，产出的动作可能少于预期。
// 结果按源码中出现的位置排序，并按 (type, selector, all, value) 去重。
func Analyze(code string) []model.DomAction {
	a := &analysis{code: code}
	a.scanBindings()
	a.scanDirect()
	a.scanByID()
	a.scanAll()
	a.scanVariables()
	return a.result()
}

const ident = `[A-Za-z_$][\w$]*`

var (
	reBinding = regexp.MustCompile(`\b(?:var|let|const)\s+(` + ident + `)\s*=\s*document\s*\.\s*(querySelector|getElementById)\s*\(\s*`)
	reDirect  = regexp.MustCompile(`document\s*\.\s*querySelector\s*\(\s*`)
	reByID    = regexp.MustCompile(`document\s*\.\s*getElementById\s*\(\s*`)
	reAll     = regexp.MustCompile(`document\s*\.\s*querySelectorAll\s*\(\s*`)

	reTailChecked = regexp.MustCompile(`^\s*\)\s*\.\s*checked\s*=\s*(true|false)\b`)
	reTailClick   = regexp.MustCompile(`^\s*\)\s*\.\s*click\s*\(\s*\)`)
	reTailValue   = regexp.MustCompile(`^\s*\)\s*\.\s*value\s*=\s*`)
	// 可选的第二个 ) 对应 Array.from(document.querySelectorAll(...)).forEach(...)
	reTailForEach = regexp.MustCompile(`^\s*\)\s*\)?\s*\.\s*forEach\s*\(\s*(?:function\s*\(\s*(` + ident + `)\s*\)|\(\s*(` + ident + `)\s*\)\s*=>|(` + ident + `)\s*=>)\s*\{?\s*`)

	reSimpleID = regexp.MustCompile(`^[A-Za-z_-][\w-]*$`)
)

type binding struct {
	selector string
	pos      int
}

type found struct {
	pos    int
	action model.DomAction
}

type analysis struct {
	code     string
	bindings map[string]binding
	actions  []found
}

func (a *analysis) add(pos int, act model.DomAction) {
	a.actions = append(a.actions, found{pos: pos, action: act})
}

// scanBindings 收集 var/let/const x = document.querySelector('...') 形式的变量绑定
func (a *analysis) scanBindings() {
	a.bindings = make(map[string]binding)
	for _, m := range reBinding.FindAllStringSubmatchIndex(a.code, -1) {
		arg, _, ok := scanQuoted(a.code, m[1])
		if !ok {
			continue
		}
		name := a.code[m[2]:m[3]]
		sel := arg
		if a.code[m[4]:m[5]] == "getElementById" {
			sel = idSelector(arg)
		}
		a.bindings[name] = binding{selector: sel, pos: m[0]}
	}
}

func (a *analysis) scanDirect() {
	for _, m := range reDirect.FindAllStringIndex(a.code, -1) {
		sel, end, ok := scanQuoted(a.code, m[1])
		if !ok {
			continue
		}
		tail := a.code[end:]
		if t := reTailChecked.FindStringSubmatch(tail); t != nil {
			typ := model.ActionCheck
			if t[1] == "false" {
				typ = model.ActionUncheck
			}
			a.add(m[0], model.DomAction{Type: typ, Selector: sel})
			continue
		}
		a.tailClickOrValue(m[0], sel, tail, end)
	}
}

func (a *analysis) scanByID() {
	for _, m := range reByID.FindAllStringIndex(a.code, -1) {
		id, end, ok := scanQuoted(a.code, m[1])
		if !ok {
			continue
		}
		a.tailClickOrValue(m[0], idSelector(id), a.code[end:], end)
	}
}

func (a *analysis) tailClickOrValue(pos int, sel, tail string, end int) {
	if reTailClick.MatchString(tail) {
		a.add(pos, model.DomAction{Type: model.ActionClick, Selector: sel})
		return
	}
	if loc := reTailValue.FindStringIndex(tail); loc != nil {
		if v, _, ok := scanQuoted(a.code, end+loc[1]); ok {
			a.add(pos, model.DomAction{Type: model.ActionSetValue, Selector: sel, Value: model.StringPtr(v)})
		}
	}
}

// scanAll 识别 querySelectorAll(...).forEach(el => el.checked = true / el.click())
func (a *analysis) scanAll() {
	for _, m := range reAll.FindAllStringIndex(a.code, -1) {
		sel, end, ok := scanQuoted(a.code, m[1])
		if !ok {
			continue
		}
		tail := a.code[end:]
		fm := reTailForEach.FindStringSubmatchIndex(tail)
		if fm == nil {
			continue
		}
		param := ""
		for g := 1; g <= 3; g++ {
			if fm[2*g] >= 0 {
				param = tail[fm[2*g]:fm[2*g+1]]
				break
			}
		}
		body := tail[fm[1]:]
		q := regexp.QuoteMeta(param)
		switch {
		case regexp.MustCompile(`^` + q + `\s*\.\s*checked\s*=\s*true\b`).MatchString(body):
			a.add(m[0], model.DomAction{Type: model.ActionCheck, Selector: sel, All: true})
		case regexp.MustCompile(`^` + q + `\s*\.\s*click\s*\(\s*\)`).MatchString(body):
			a.add(m[0], model.DomAction{Type: model.ActionClick, Selector: sel, All: true})
		}
	}
}

// scanVariables 识别绑定变量上的 .checked = true / .click() / .value = '...'
func (a *analysis) scanVariables() {
	for name, b := range a.bindings {
		q := regexp.QuoteMeta(name)
		lead := `(?:^|[^\w$.])` + q + `\s*\.\s*`
		reChecked := regexp.MustCompile(lead + `checked\s*=\s*true\b`)
		reClick := regexp.MustCompile(lead + `click\s*\(\s*\)`)
		reValue := regexp.MustCompile(lead + `value\s*=\s*`)

		rest := a.code[b.pos:]
		for _, m := range reChecked.FindAllStringIndex(rest, -1) {
			a.add(b.pos+m[0], model.DomAction{Type: model.ActionCheck, Selector: b.selector})
		}
		for _, m := range reClick.FindAllStringIndex(rest, -1) {
			a.add(b.pos+m[0], model.DomAction{Type: model.ActionClick, Selector: b.selector})
		}
		for _, m := range reValue.FindAllStringIndex(rest, -1) {
			if v, _, ok := scanQuoted(a.code, b.pos+m[1]); ok {
				a.add(b.pos+m[0], model.DomAction{Type: model.ActionSetValue, Selector: b.selector, Value: model.StringPtr(v)})
			}
		}
	}
}

func (a *analysis) result() []model.DomAction {
	sort.SliceStable(a.actions, func(i, j int) bool { return a.actions[i].pos < a.actions[j].pos })
	seen := make(map[string]bool, len(a.actions))
	out := make([]model.DomAction, 0, len(a.actions))
	for _, f := range a.actions {
		k := f.action.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f.action)
	}
	return out
}

// scanQuoted 从 s[i] 处的引号开始读取字符串字面量，返回反转义后的内容与闭合引号之后的位置。
// 另一种引号可以出现在字符串内部。
func scanQuoted(s string, i int) (string, int, bool) {
	if i >= len(s) {
		return "", i, false
	}
	q := s[i]
	if q != '\'' && q != '"' && q != '`' {
		return "", i, false
	}
	var b strings.Builder
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '\\' && j+1 < len(s):
			j++
			switch s[j] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[j])
			}
		case c == q:
			return b.String(), j + 1, true
		default:
			b.WriteByte(c)
		}
	}
	return "", len(s), false
}

func idSelector(id string) string {
	if reSimpleID.MatchString(id) {
		return "#" + id
	}
	return `[id="` + strings.ReplaceAll(strings.ReplaceAll(id, `\`, `\\`), `"`, `\"`) + `"]`
}
