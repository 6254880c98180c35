package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpmarklet/internal/config"
	"cdpmarklet/internal/settings"
	"cdpmarklet/pkg/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Sqlite.Dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestUnknownSession(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Execute(ctx, "nope", "alert(1)", "t")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.ExecuteFromURL(ctx, "nope", model.BookmarkEntry{URL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.ExecuteMultiple(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Action(ctx, "nope", model.DomAction{Type: model.ActionAlert})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.DetachPage(ctx, "nope"), ErrSessionNotFound)
	assert.Empty(t, s.ListSessions())
}

func TestStatelessOperations(t *testing.T) {
	s := newTestService(t)

	assert.True(t, s.IsBookmarklet(" JavaScript:void(0)"))
	assert.False(t, s.IsBookmarklet("https://example.com"))

	code, err := s.Parse("javascript:alert(%22a%20b%22)")
	require.NoError(t, err)
	assert.Equal(t, `alert("a b")`, code)

	actions := s.ParseToActions(`document.querySelector('#go').click();`)
	assert.Equal(t, []model.DomAction{{Type: model.ActionClick, Selector: "#go"}}, actions)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.Settings().Set(ctx, settings.KeyBookmarkletDelay, 250))
	snap, err := s.Settings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, snap.BookmarkletDelay)

	b, err := s.Editors().Save(ctx, model.EditorBookmarklet{Name: "n", Code: "x()", Enabled: true})
	require.NoError(t, err)
	got, err := s.Editors().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "x()", got.Code)
}
