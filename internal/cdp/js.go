package cdp

import (
	"encoding/json"
	"fmt"
)

// jsString 将 Go 字符串编码为 JS 字符串字面量
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// elementExpr 定位 querySelectorAll(selector)[index] 后执行 body；元素不存在时抛出异常
func elementExpr(selector string, index int, body string) string {
	return fmt.Sprintf(`(function(){var el=document.querySelectorAll(%s)[%d];if(!el)throw new Error("element not found: %d");%s})()`,
		jsString(selector), index, index, body)
}

func countExpr(selector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
}

func dispatchBody(event string, bubbles bool) string {
	return fmt.Sprintf(`el.dispatchEvent(new Event(%s,{bubbles:%t}));`, jsString(event), bubbles)
}

// scriptInjectExpr 通过 <script> 元素执行代码，并用标记检测是否被 CSP 拦截
func scriptInjectExpr(code, marker string) string {
	body := fmt.Sprintf("window[%s]=true;\n%s", jsString(marker), code)
	return fmt.Sprintf(`(function(){var m=%s;delete window[m];var s=document.createElement("script");s.textContent=%s;(document.head||document.documentElement).appendChild(s);s.remove();var ok=window[m]===true;delete window[m];return ok;})()`,
		jsString(marker), jsString(body))
}

// probeScriptExpr 检测内联 script 是否允许执行
func probeScriptExpr(marker string) string {
	return scriptInjectExpr("", marker)
}

const probeEvalExpr = `(function(){try{return (0,eval)("1+1")===2}catch(e){return false}})()`
