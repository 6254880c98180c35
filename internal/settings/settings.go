package settings

import (
	"cdpmarklet/internal/override"
	"cdpmarklet/internal/pattern"
	"cdpmarklet/pkg/model"
)

// 存储键
const (
	KeyEnabled                  = "stopwatchEnabled"
	KeyPosition                 = "stopwatchPosition"
	KeyMinimized                = "stopwatchMinimized"
	KeyDomains                  = "stopwatchDomains"
	KeyNotificationEnabled      = "notificationEnabled"
	KeyNotificationMinutes      = "notificationMinutes"
	KeyNotificationTimeByDomain = "notificationTimeByDomain"
	KeySilentMode               = "silentMode"
	KeySilentModeByDomain       = "silentModeByDomain"
	KeyBookmarkletDelay         = "bookmarkletDelay"
	KeyBookmarkletDelayByDomain = "bookmarkletDelayByDomain"
	KeyBookmarksByDomain        = "bookmarksByDomain"
	KeyRandomTime               = "randomTime"
	KeyRandomTimeByDomain       = "randomTimeByDomain"
)

// Keys 全部设置键
var Keys = []string{
	KeyEnabled, KeyPosition, KeyMinimized, KeyDomains,
	KeyNotificationEnabled, KeyNotificationMinutes, KeyNotificationTimeByDomain,
	KeySilentMode, KeySilentModeByDomain,
	KeyBookmarkletDelay, KeyBookmarkletDelayByDomain,
	KeyBookmarksByDomain, KeyRandomTime, KeyRandomTimeByDomain,
}

// GlobalRandom 全局随机提醒区间（分钟）
type GlobalRandom struct {
	Enabled    bool `json:"enabled"`
	MinMinutes int  `json:"minMinutes"`
	MaxMinutes int  `json:"maxMinutes"`
}

// DomainRandom 域名随机提醒区间（秒）
type DomainRandom struct {
	Enabled    bool `json:"enabled"`
	MinSeconds int  `json:"minSeconds"`
	MaxSeconds int  `json:"maxSeconds"`
}

// Snapshot 秒表设置快照，只通过 Reduce 整体替换
type Snapshot struct {
	Enabled   bool     `json:"stopwatchEnabled"`
	Position  string   `json:"stopwatchPosition"`
	Minimized bool     `json:"stopwatchMinimized"`
	Domains   []string `json:"stopwatchDomains"`

	NotificationEnabled      bool              `json:"notificationEnabled"`
	NotificationMinutes      int               `json:"notificationMinutes"`
	NotificationTimeByDomain override.Map[int] `json:"notificationTimeByDomain"`

	SilentMode         bool               `json:"silentMode"`
	SilentModeByDomain override.Map[bool] `json:"silentModeByDomain"`

	BookmarkletDelay         int               `json:"bookmarkletDelay"`
	BookmarkletDelayByDomain override.Map[int] `json:"bookmarkletDelayByDomain"`

	BookmarksByDomain override.Map[[]model.BookmarkEntry] `json:"bookmarksByDomain"`

	RandomTime         GlobalRandom               `json:"randomTime"`
	RandomTimeByDomain override.Map[DomainRandom] `json:"randomTimeByDomain"`
}

// Default 返回默认设置
func Default() Snapshot {
	return Snapshot{
		Enabled:             false,
		Position:            "bottom-right",
		NotificationEnabled: false,
		NotificationMinutes: 30,
		BookmarkletDelay:    1000,
	}
}

// Page 当前页面的定位信息
type Page struct {
	Hostname string
	URL      string
}

// Allowed 页面是否在白名单内
func (s Snapshot) Allowed(p Page) bool {
	return pattern.AllowedAny(s.Domains, p.Hostname, p.URL)
}

// NotificationSeconds 固定提醒阈值：域名覆盖值，否则全局分钟数
func (s Snapshot) NotificationSeconds(p Page) int {
	return override.Resolve(s.NotificationTimeByDomain, p.Hostname, p.URL, s.NotificationMinutes*60)
}

// Silent 当前页面是否静默模式
func (s Snapshot) Silent(p Page) bool {
	return override.Resolve(s.SilentModeByDomain, p.Hostname, p.URL, s.SilentMode)
}

// BookmarkletDelayMS 当前页面的书签执行前延迟
func (s Snapshot) BookmarkletDelayMS(p Page) int {
	return override.Resolve(s.BookmarkletDelayByDomain, p.Hostname, p.URL, s.BookmarkletDelay)
}

// DomainRandomRange 当前页面的随机区间配置
func (s Snapshot) DomainRandomRange(p Page) (DomainRandom, bool) {
	v, _, ok := override.Lookup(s.RandomTimeByDomain, p.Hostname, p.URL)
	return v, ok
}

// BookmarksFor 当前页面的书签列表：精确/模式命中的主列表之后，总是追加 "*" 下的全局列表
func (s Snapshot) BookmarksFor(p Page) []model.BookmarkEntry {
	var out []model.BookmarkEntry
	if len(s.BookmarksByDomain) == 0 {
		return out
	}
	if list, ok := s.BookmarksByDomain[p.Hostname]; ok && p.Hostname != pattern.Wildcard {
		out = append(out, list...)
	} else if k, ok := override.MatchPattern(s.BookmarksByDomain, p.Hostname, p.URL); ok {
		out = append(out, s.BookmarksByDomain[k]...)
	}
	out = append(out, s.BookmarksByDomain[pattern.Wildcard]...)
	return out
}
