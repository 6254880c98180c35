package randtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpmarklet/internal/override"
	"cdpmarklet/internal/settings"
)

func TestGenerateDisabled(t *testing.T) {
	assert.Nil(t, Generate(Config{}, nil))
	assert.Nil(t, Generate(Config{Domain: settings.DomainRandom{MinSeconds: 5, MaxSeconds: 9}, HasDomain: true}, nil))
}

func TestGenerateFixedRange(t *testing.T) {
	c := Config{Domain: settings.DomainRandom{Enabled: true, MinSeconds: 10, MaxSeconds: 10}, HasDomain: true}
	for i := 0; i < 50; i++ {
		v := Generate(c, nil)
		require.NotNil(t, v)
		assert.Equal(t, 10, *v)
	}
}

func TestGenerateBounds(t *testing.T) {
	c := Config{Global: settings.GlobalRandom{Enabled: true, MinMinutes: 2, MaxMinutes: 1}}
	lo, hi, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, 60, lo)
	assert.Equal(t, 120, hi)

	low := Generate(c, func(int) int { return 0 })
	high := Generate(c, func(n int) int { return n - 1 })
	assert.Equal(t, 60, *low)
	assert.Equal(t, 120, *high)

	for i := 0; i < 200; i++ {
		v := *Generate(c, nil)
		assert.GreaterOrEqual(t, v, 60)
		assert.LessOrEqual(t, v, 120)
	}
}

func TestGenerateIncompleteDomainFallsBackToGlobal(t *testing.T) {
	c := Config{
		Global:    settings.GlobalRandom{Enabled: false, MinMinutes: 1, MaxMinutes: 1},
		Domain:    settings.DomainRandom{Enabled: true, MinSeconds: 0, MaxSeconds: 30},
		HasDomain: true,
	}
	v := Generate(c, nil)
	require.NotNil(t, v)
	assert.Equal(t, 60, *v)
}

func TestGenerateZeroRange(t *testing.T) {
	c := Config{Global: settings.GlobalRandom{Enabled: true}}
	assert.Nil(t, Generate(c, nil))
}

func TestFromSnapshot(t *testing.T) {
	s := settings.Default()
	s.RandomTimeByDomain = override.Map[settings.DomainRandom]{
		"*.tv": {Enabled: true, MinSeconds: 3, MaxSeconds: 3},
	}
	c := FromSnapshot(s, settings.Page{Hostname: "show.tv", URL: "https://show.tv/"})
	assert.True(t, c.HasDomain)
	assert.Equal(t, 3, *Generate(c, nil))

	c = FromSnapshot(s, settings.Page{Hostname: "other.com"})
	assert.False(t, c.HasDomain)
	assert.Nil(t, Generate(c, nil))
}
