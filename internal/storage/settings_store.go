package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cdpmarklet/internal/logger"
	"cdpmarklet/internal/settings"
)

// Setting 用户设置表，Value 为 JSON 文本
type Setting struct {
	Key       string    `gorm:"primaryKey;column:name" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SettingsStore 设置存储；每次写入都会向订阅者推送 {key: {newValue, oldValue}} 差异
type SettingsStore struct {
	db  *gorm.DB
	log logger.Logger

	mu   sync.Mutex
	subs map[int]chan string
	next int
}

// NewSettingsStore 创建设置存储
func NewSettingsStore(db *gorm.DB, l logger.Logger) *SettingsStore {
	if l == nil {
		l = logger.NewNop()
	}
	return &SettingsStore{db: db, log: l, subs: make(map[int]chan string)}
}

// Load 读取全部设置并组装为快照
func (s *SettingsStore) Load(ctx context.Context) (settings.Snapshot, error) {
	var rows []Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return settings.Default(), fmt.Errorf("load settings: %w", err)
	}
	doc := []byte("{}")
	for _, r := range rows {
		if !gjson.Valid(r.Value) {
			s.log.Warn("忽略无效设置值", "key", r.Key)
			continue
		}
		var err error
		if doc, err = sjson.SetRawBytes(doc, escapePath(r.Key), []byte(r.Value)); err != nil {
			return settings.Default(), err
		}
	}
	return settings.Decode(doc)
}

// Get 读取单个键的原始 JSON
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var row Setting
	err := s.db.WithContext(ctx).Where("name = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Set 写入一个设置值
func (s *SettingsStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, string(raw))
}

// SetRaw 写入原始 JSON 值
func (s *SettingsStore) SetRaw(ctx context.Context, key, raw string) error {
	if !gjson.Valid(raw) {
		return fmt.Errorf("invalid json for %s", key)
	}
	old, err := s.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	row := Setting{Key: key, Value: raw, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	diff, _ := sjson.SetRaw("{}", escapePath(key)+".newValue", raw)
	if old != "" {
		diff, _ = sjson.SetRaw(diff, escapePath(key)+".oldValue", old)
	}
	s.publish(ctx, diff)
	return nil
}

// Delete 删除设置，推送只含 oldValue 的差异
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	old, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("name = ?", key).Delete(&Setting{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	diff, _ := sjson.SetRaw("{}", escapePath(key)+".oldValue", old)
	s.publish(ctx, diff)
	return nil
}

// Subscribe 订阅变更差异，返回取消函数
func (s *SettingsStore) Subscribe(buffer int) (<-chan string, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan string, buffer)
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// publish 向全部订阅者推送差异；订阅缓冲已满时清空积压，改推一份覆盖全部键的全量差异
func (s *SettingsStore) publish(ctx context.Context, diff string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var full string
	for id, ch := range s.subs {
		select {
		case ch <- diff:
			continue
		default:
		}
		if full == "" {
			var err error
			if full, err = s.fullDiff(ctx); err != nil {
				s.log.Warn("构建全量设置差异失败，丢弃通知", "subscriber", id, "error", err)
				return
			}
		}
		drain(ch)
		select {
		case ch <- full:
			s.log.Debug("设置变更订阅已满，改推全量差异", "subscriber", id)
		default:
			s.log.Warn("设置变更订阅已满，丢弃通知", "subscriber", id)
		}
	}
}

// fullDiff 以当前存储内容生成全部键的差异；未存储的键不带 newValue，归约时恢复默认值
func (s *SettingsStore) fullDiff(ctx context.Context) (string, error) {
	var rows []Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return "", err
	}
	stored := make(map[string]string, len(rows))
	for _, r := range rows {
		if gjson.Valid(r.Value) {
			stored[r.Key] = r.Value
		}
	}
	diff := "{}"
	for _, k := range settings.Keys {
		var err error
		if raw, ok := stored[k]; ok {
			diff, err = sjson.SetRaw(diff, escapePath(k)+".newValue", raw)
		} else {
			diff, err = sjson.SetRaw(diff, escapePath(k), "{}")
		}
		if err != nil {
			return "", err
		}
	}
	return diff, nil
}

func drain(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapePath(key string) string { return pathEscaper.Replace(key) }
