package bookmarklet

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Prefix 书签小程序 URL 前缀
const Prefix = "javascript:"

const maxDecodePasses = 3

var (
	ErrNotBookmarklet = errors.New("not a javascript: url")
	ErrEmptyCode      = errors.New("empty bookmarklet code")
)

// IsBookmarklet 判断 URL 是否为 javascript: 书签
func IsBookmarklet(u string) bool {
	u = strings.TrimSpace(u)
	return len(u) >= len(Prefix) && strings.EqualFold(u[:len(Prefix)], Prefix)
}

// Parse 解码书签 URL 为源码
func Parse(u string) (string, error) {
	code, _, err := Decode(u)
	return code, err
}

// Decode 去掉 javascript: 前缀后最多做 3 轮百分号解码，解码出错、结果非 UTF-8 或无变化时提前停止。
// passes 为实际生效的解码轮数。
func Decode(u string) (code string, passes int, err error) {
	if !IsBookmarklet(u) {
		return "", 0, ErrNotBookmarklet
	}
	code = strings.TrimSpace(u)[len(Prefix):]
	for passes < maxDecodePasses {
		next, err := url.PathUnescape(code)
		// 解码结果不是合法 UTF-8 时与解码失败同样处理
		if err != nil || next == code || !utf8.ValidString(next) {
			break
		}
		code = next
		passes++
	}
	if strings.TrimSpace(code) == "" {
		return "", passes, ErrEmptyCode
	}
	return code, passes, nil
}
