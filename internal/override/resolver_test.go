package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrecedence(t *testing.T) {
	m := Map[int]{"example.com": 10, "*.com": 20, "*": 30}
	assert.Equal(t, 10, Resolve(m, "example.com", "https://example.com/", 0))

	m2 := Map[int]{"*.com": 20, "*": 30}
	assert.Equal(t, 20, Resolve(m2, "foo.com", "https://foo.com/", 0))
	assert.Equal(t, 30, Resolve(m2, "foo.org", "https://foo.org/", 0))
	assert.Equal(t, 7, Resolve(Map[int]{"a.com": 1}, "b.org", "https://b.org/", 7))
	assert.Equal(t, 7, Resolve[int](nil, "b.org", "", 7))
}

func TestResolveSubdomainImplicit(t *testing.T) {
	m := Map[bool]{"example.com": true}
	assert.True(t, Resolve(m, "www.example.com", "https://www.example.com/", false))
	assert.False(t, Resolve(m, "notexample.com", "https://notexample.com/", false))
}

func TestResolveURLPattern(t *testing.T) {
	m := Map[int]{
		"https://site.tv/watch/*": 90,
		"site.tv":                 10,
	}
	// exact hostname beats URL pattern
	assert.Equal(t, 10, Resolve(m, "site.tv", "https://site.tv/watch/1", 0))

	m2 := Map[int]{"https://site.tv/watch/*": 90, "*": 1}
	assert.Equal(t, 90, Resolve(m2, "site.tv", "https://SITE.tv/watch/1/2", 0))
	assert.Equal(t, 1, Resolve(m2, "site.tv", "https://site.tv/browse", 0))
}

func TestResolveDeterministicTieBreak(t *testing.T) {
	m := Map[string]{"*.com": "short", "*.example.com": "long", "*.exa*.com": "mid"}
	for i := 0; i < 20; i++ {
		v, k, ok := Lookup(m, "www.example.com", "https://www.example.com/")
		assert.True(t, ok)
		assert.Equal(t, "*.example.com", k)
		assert.Equal(t, "long", v)
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	m := Map[int]{"a.com": 1, "*": 2}
	_ = Resolve(m, "a.com", "", 0)
	_ = Resolve(m, "b.com", "", 0)
	assert.Equal(t, Map[int]{"a.com": 1, "*": 2}, m)
}
