package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpmarklet/internal/override"
	"cdpmarklet/pkg/model"
)

func page(host string) Page { return Page{Hostname: host, URL: "https://" + host + "/"} }

func TestBookmarksForAppendsWildcard(t *testing.T) {
	s := Default()
	s.BookmarksByDomain = override.Map[[]model.BookmarkEntry]{
		"example.com": {{ID: "d1", URL: "javascript:a()"}},
		"*.org":       {{ID: "p1", URL: "javascript:b()"}},
		"*":           {{ID: "g1", URL: "javascript:a()"}, {ID: "g2", URL: "https://x.io"}},
	}

	got := s.BookmarksFor(page("www.example.com"))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d1", "g1", "g2"}, ids(got))

	got = s.BookmarksFor(page("wiki.org"))
	assert.Equal(t, []string{"p1", "g1", "g2"}, ids(got))

	got = s.BookmarksFor(page("other.net"))
	assert.Equal(t, []string{"g1", "g2"}, ids(got))
}

func TestBookmarksForNoDedupe(t *testing.T) {
	e := model.BookmarkEntry{ID: "same", URL: "javascript:x()"}
	s := Default()
	s.BookmarksByDomain = override.Map[[]model.BookmarkEntry]{"a.com": {e}, "*": {e}}
	assert.Equal(t, []string{"same", "same"}, ids(s.BookmarksFor(page("a.com"))))
}

func TestBookmarksForEmpty(t *testing.T) {
	assert.Empty(t, Default().BookmarksFor(page("a.com")))
}

func TestAccessors(t *testing.T) {
	s := Default()
	s.NotificationMinutes = 2
	s.NotificationTimeByDomain = override.Map[int]{"a.com": 15}
	s.SilentModeByDomain = override.Map[bool]{"*.b.com": true}
	s.BookmarkletDelayByDomain = override.Map[int]{"*": 50}

	assert.Equal(t, 15, s.NotificationSeconds(page("a.com")))
	assert.Equal(t, 120, s.NotificationSeconds(page("c.com")))
	assert.True(t, s.Silent(page("x.b.com")))
	assert.False(t, s.Silent(page("c.com")))
	assert.Equal(t, 50, s.BookmarkletDelayMS(page("c.com")))
	assert.True(t, s.Allowed(page("c.com")))

	s.Domains = []string{"a.com"}
	assert.False(t, s.Allowed(page("c.com")))
	assert.True(t, s.Allowed(page("m.a.com")))
}

func TestReduce(t *testing.T) {
	s := Default()
	s.NotificationTimeByDomain = override.Map[int]{"a.com": 10}

	diff := `{
		"notificationTimeByDomain": {"newValue": {"a.com": 60, "b.com": 5}, "oldValue": {"a.com": 10}},
		"stopwatchEnabled": {"newValue": true},
		"unrelatedKey": {"newValue": 1}
	}`
	next, changed, err := Reduce(s, diff)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyNotificationTimeByDomain, KeyEnabled}, changed)
	assert.True(t, next.Enabled)
	assert.Equal(t, 60, next.NotificationTimeByDomain["a.com"])
	assert.Equal(t, 5, next.NotificationTimeByDomain["b.com"])

	// original untouched
	assert.False(t, s.Enabled)
	assert.Equal(t, override.Map[int]{"a.com": 10}, s.NotificationTimeByDomain)
}

func TestReduceRemovedKeyRestoresDefault(t *testing.T) {
	s := Default()
	s.NotificationMinutes = 99
	next, changed, err := Reduce(s, `{"notificationMinutes": {"oldValue": 99}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyNotificationMinutes}, changed)
	assert.Equal(t, 30, next.NotificationMinutes)
}

func TestReduceSkipsUnchangedKeys(t *testing.T) {
	s := Default()
	s.Enabled = true
	s.Domains = []string{"a.com"}
	diff := `{
		"stopwatchEnabled": {"newValue": true},
		"stopwatchDomains": {"newValue": [ "a.com" ]},
		"notificationMinutes": {"newValue": 45}
	}`
	next, changed, err := Reduce(s, diff)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyNotificationMinutes}, changed)
	assert.Equal(t, 45, next.NotificationMinutes)
}

func TestReduceInvalid(t *testing.T) {
	s := Default()
	_, _, err := Reduce(s, `{not json`)
	assert.Error(t, err)

	next, changed, err := Reduce(s, `{"other": {"newValue": 1}}`)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, s.NotificationMinutes, next.NotificationMinutes)
}

func TestDecode(t *testing.T) {
	s, err := Decode([]byte(`{"stopwatchEnabled": true, "randomTime": {"enabled": true, "minMinutes": 1, "maxMinutes": 3}}`))
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, GlobalRandom{Enabled: true, MinMinutes: 1, MaxMinutes: 3}, s.RandomTime)
	assert.Equal(t, 30, s.NotificationMinutes)

	_, err = Decode([]byte(`[`))
	assert.Error(t, err)
}

func ids(es []model.BookmarkEntry) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}
