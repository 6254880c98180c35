// Package randtime 生成每次页面加载一次的随机提醒阈值（秒）。
package randtime

import (
	"math/rand/v2"

	"cdpmarklet/internal/settings"
)

// IntN 返回 [0, n) 内的均匀随机整数
type IntN func(n int) int

// Config 生成随机阈值所需的配置
type Config struct {
	Global settings.GlobalRandom
	// Domain 当前页面解析出的域名区间，HasDomain 为 false 表示未配置
	Domain    settings.DomainRandom
	HasDomain bool
}

// FromSnapshot 从设置快照解析当前页面的随机配置
func FromSnapshot(s settings.Snapshot, p settings.Page) Config {
	d, ok := s.DomainRandomRange(p)
	return Config{Global: s.RandomTime, Domain: d, HasDomain: ok}
}

// Range 计算有效区间（秒）；随机模式关闭时 ok 为 false
func (c Config) Range() (lo, hi int, ok bool) {
	switch {
	case c.HasDomain && c.Domain.Enabled && c.Domain.MinSeconds != 0 && c.Domain.MaxSeconds != 0:
		lo, hi = c.Domain.MinSeconds, c.Domain.MaxSeconds
	case c.HasDomain && c.Domain.Enabled:
		lo, hi = c.Global.MinMinutes*60, c.Global.MaxMinutes*60
	case c.Global.Enabled:
		lo, hi = c.Global.MinMinutes*60, c.Global.MaxMinutes*60
	default:
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == 0 && hi == 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// Generate 在有效区间 [lo, hi] 内生成随机秒数；随机模式关闭时返回 nil
func Generate(c Config, intn IntN) *int {
	lo, hi, ok := c.Range()
	if !ok {
		return nil
	}
	if intn == nil {
		intn = rand.IntN
	}
	v := intn(hi-lo+1) + lo
	return &v
}
