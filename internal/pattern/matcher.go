package pattern

import (
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Wildcard 全局通配模式
const Wildcard = "*"

const globCacheSize = 512

var globCache = mustCache()

type compiled struct {
	g  glob.Glob
	ok bool
}

func mustCache() *lru.Cache[string, compiled] {
	c, err := lru.New[string, compiled](globCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// HasGlob 判断模式是否包含 glob 元字符
func HasGlob(p string) bool { return strings.ContainsAny(p, "*?[{") }

// IsURLPattern 判断模式是否为 URL 模式（包含路径分隔符或协议）
func IsURLPattern(p string) bool { return strings.Contains(p, "/") }

// Matches 判断 candidate（主机名或完整 URL）是否匹配 pattern。
// 无元字符时按主机名精确或隐式子域名匹配。
func Matches(candidate, pattern, hostname string) bool {
	if candidate == "" || pattern == "" {
		return false
	}
	if HasGlob(pattern) {
		p := pattern
		if IsURLPattern(p) {
			p = widenStars(p)
		}
		return globMatch(strings.ToLower(candidate), strings.ToLower(p))
	}
	if candidate == pattern || hostname == pattern {
		return true
	}
	return hostname != "" && strings.HasSuffix(hostname, "."+pattern)
}

// Target 选择模式的匹配对象：含路径且不以 *:// 开头的模式匹配小写 URL，其余匹配主机名
func Target(p, hostname, url string) string {
	if IsURLPattern(p) && !strings.HasPrefix(p, "*://") {
		return strings.ToLower(url)
	}
	return hostname
}

// MatchesPage 使用 Target 选择的对象执行 Matches
func MatchesPage(p, hostname, url string) bool {
	return Matches(Target(p, hostname, url), p, hostname)
}

// AllowedAny 域名白名单判定，空列表表示全部允许
func AllowedAny(patterns []string, hostname, url string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == Wildcard {
			return true
		}
		if MatchesPage(p, hostname, url) {
			return true
		}
	}
	return false
}

// widenStars 将独立的 * 替换为 **，使其跨越路径段
func widenStars(p string) string {
	var b strings.Builder
	b.Grow(len(p) + 4)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '*' {
			b.WriteByte(c)
			continue
		}
		prevStar := i > 0 && p[i-1] == '*'
		nextStar := i+1 < len(p) && p[i+1] == '*'
		if !prevStar && !nextStar {
			b.WriteString("**")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func globMatch(s, p string) bool {
	c, ok := globCache.Get(p)
	if !ok {
		g, err := glob.Compile(p, '/')
		c = compiled{g: g, ok: err == nil}
		globCache.Add(p, c)
	}
	if !c.ok {
		return false
	}
	return c.g.Match(s)
}
