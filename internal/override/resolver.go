// Package override 按域名/URL 模式解析覆盖值。
//
// 优先级：精确主机名 > 模式匹配 > 全局通配 "*" > 调用方默认值。
// 多个模式同时命中时，按模式长度降序、再按字典序取第一个，保证结果确定。
package override

import (
	"sort"

	"cdpmarklet/internal/pattern"
)

// Map 模式到覆盖值的映射
type Map[V any] map[string]V

// Resolve 返回当前页面适用的覆盖值
func Resolve[V any](m Map[V], hostname, url string, fallback V) V {
	if v, _, ok := Lookup(m, hostname, url); ok {
		return v
	}
	return fallback
}

// Lookup 返回命中的值与命中的键
func Lookup[V any](m Map[V], hostname, url string) (V, string, bool) {
	var zero V
	if len(m) == 0 {
		return zero, "", false
	}
	if hostname != "" {
		if v, ok := m[hostname]; ok {
			return v, hostname, true
		}
	}
	if k, ok := MatchPattern(m, hostname, url); ok {
		return m[k], k, true
	}
	if v, ok := m[pattern.Wildcard]; ok {
		return v, pattern.Wildcard, true
	}
	return zero, "", false
}

// MatchPattern 在非精确、非通配键中查找第一个命中的模式
func MatchPattern[V any](m Map[V], hostname, url string) (string, bool) {
	for _, k := range orderedPatterns(m, hostname) {
		if pattern.MatchesPage(k, hostname, url) {
			return k, true
		}
	}
	return "", false
}

func orderedPatterns[V any](m Map[V], hostname string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == pattern.Wildcard || k == hostname {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
