package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesPlain(t *testing.T) {
	cases := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"example.com", "example.com", true},
		{"www.example.com", "example.com", true},
		{"a.b.example.com", "example.com", true},
		{"notexample.com", "example.com", false},
		{"example.com.evil.net", "example.com", false},
		{"example.org", "example.com", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Matches(c.host, c.pattern, c.host), "%s vs %s", c.host, c.pattern)
	}
}

func TestMatchesEmpty(t *testing.T) {
	assert.False(t, Matches("", "example.com", "example.com"))
	assert.False(t, Matches("example.com", "", "example.com"))
	assert.False(t, Matches("", "", ""))
}

func TestMatchesGlobHostname(t *testing.T) {
	assert.True(t, Matches("www.example.com", "*.example.com", "www.example.com"))
	assert.True(t, Matches("WWW.Example.COM", "*.example.com", "WWW.Example.COM"))
	assert.True(t, Matches("foo.com", "*.com", "foo.com"))
	assert.True(t, Matches("app1.test.io", "app?.test.io", "app1.test.io"))
	assert.True(t, Matches("b.test.io", "[ab].test.io", "b.test.io"))
	assert.False(t, Matches("c.test.io", "[ab].test.io", "c.test.io"))
	assert.True(t, Matches("imdb.com", "{imdb,tmdb}.com", "imdb.com"))
	assert.False(t, Matches("example.com", "*.example.com", "example.com"))
}

func TestMatchesURLPatternSpansSegments(t *testing.T) {
	url := "https://example.com/watch/season/1/episode/2"
	assert.True(t, Matches(url, "https://example.com/watch/*", "example.com"))
	assert.True(t, Matches(url, "https://EXAMPLE.com/*/episode/*", "example.com"))
	assert.False(t, Matches(url, "https://example.com/browse/*", "example.com"))
}

func TestMatchesInvalidGlob(t *testing.T) {
	assert.False(t, Matches("a.com", "[a.com", "a.com"))
	// cached failure stays a miss
	assert.False(t, Matches("a.com", "[a.com", "a.com"))
}

func TestWidenStars(t *testing.T) {
	assert.Equal(t, "https://a.com/**", widenStars("https://a.com/*"))
	assert.Equal(t, "**://a.com/**", widenStars("*://a.com/**"))
	assert.Equal(t, "a/**/b/**", widenStars("a/*/b/*"))
}

func TestTarget(t *testing.T) {
	assert.Equal(t, "https://a.com/x", Target("a.com/x", "a.com", "https://A.com/X"))
	assert.Equal(t, "a.com", Target("*://a.com/*", "a.com", "https://a.com/x"))
	assert.Equal(t, "a.com", Target("*.com", "a.com", "https://a.com/x"))
}

func TestAllowedAny(t *testing.T) {
	assert.True(t, AllowedAny(nil, "a.com", "https://a.com/"))
	assert.True(t, AllowedAny([]string{"b.com", "a.com"}, "www.a.com", "https://www.a.com/"))
	assert.True(t, AllowedAny([]string{" * "}, "x.org", "https://x.org/"))
	assert.True(t, AllowedAny([]string{"https://x.org/watch/*"}, "x.org", "https://x.org/watch/1"))
	assert.False(t, AllowedAny([]string{"b.com"}, "a.com", "https://a.com/"))
}
