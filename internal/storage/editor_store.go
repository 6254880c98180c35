package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cdpmarklet/pkg/model"
)

// EditorBookmarkletRecord 编辑器书签表
type EditorBookmarkletRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;not null" json:"name"`
	Code      string    `gorm:"type:text" json:"code"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r EditorBookmarkletRecord) toModel() model.EditorBookmarklet {
	return model.EditorBookmarklet{ID: r.ID, Name: r.Name, Code: r.Code, Enabled: r.Enabled}
}

// EditorStore 编辑器书签库
type EditorStore struct {
	db *gorm.DB
}

// NewEditorStore 创建编辑器书签库
func NewEditorStore(db *gorm.DB) *EditorStore { return &EditorStore{db: db} }

// Get 按 ID 查找
func (s *EditorStore) Get(ctx context.Context, id string) (model.EditorBookmarklet, error) {
	var r EditorBookmarkletRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.EditorBookmarklet{}, ErrNotFound
	}
	if err != nil {
		return model.EditorBookmarklet{}, err
	}
	return r.toModel(), nil
}

// Save 新建或更新，ID 为空时分配 UUID
func (s *EditorStore) Save(ctx context.Context, b model.EditorBookmarklet) (model.EditorBookmarklet, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	r := EditorBookmarkletRecord{ID: b.ID, Name: b.Name, Code: b.Code, Enabled: b.Enabled}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "code", "enabled", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return b, fmt.Errorf("save editor bookmarklet: %w", err)
	}
	return b, nil
}

// List 按名称排序列出
func (s *EditorStore) List(ctx context.Context) ([]model.EditorBookmarklet, error) {
	var rows []EditorBookmarkletRecord
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.EditorBookmarklet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Delete 删除
func (s *EditorStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&EditorBookmarkletRecord{}).Error
}
