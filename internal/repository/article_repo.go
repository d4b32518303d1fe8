package repository

import (
	"context"
	"strings"

	"github.com/huangchenwei1/Puzle-Read/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// GetByID 根据 ID 获取文章文档（不含已删除）
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// Upsert 整体写入文章文档，已存在则覆盖全部字段
func (r *ArticleRepository) Upsert(ctx context.Context, article *model.Article) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(article).Error
}

// List 按创建时间倒序列出全部已保存文章
func (r *ArticleRepository) List(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id").Find(&articles).Error
	return articles, err
}

// TombstonedIDs 返回已删除文章的 ID，用于在合并内置文章时排除
func (r *ArticleRepository) TombstonedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Article{}).
		Where("deleted_at IS NOT NULL").
		Pluck("id", &ids).Error
	return ids, err
}

// IsTombstoned 文章是否已被软删除
func (r *ArticleRepository) IsTombstoned(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Article{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Count(&n).Error
	return n > 0, err
}

// Delete 软删除文章
func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Article{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search 数据库降级搜索：标题、正文与评论内容模糊匹配
func (r *ArticleRepository) Search(ctx context.Context, keyword string, skip, limit int) ([]model.Article, int64, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
	query := r.db.WithContext(ctx).Model(&model.Article{}).
		Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(CAST(comments AS TEXT)) LIKE ?",
			pattern, pattern, pattern)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []model.Article
	if err := query.Order("timestamp DESC").Offset(skip).Limit(limit).Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}
