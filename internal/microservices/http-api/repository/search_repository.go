package repository

import (
	"context"
	"fmt"
	"strings"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// SearchRepository answers the substring queries behind the search box.
// All matching is case-insensitive and ordered by recency.
type SearchRepository interface {
	Applications(ctx context.Context, query string, limit int) ([]models.Application, int64, error)
	Users(ctx context.Context, query string, limit int) ([]models.User, int64, error)
	Categories(ctx context.Context, query string, limit int) ([]string, int64, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) Applications(ctx context.Context, query string, limit int) ([]models.Application, int64, error) {
	p := containsPattern(strings.TrimSpace(query))
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"("+likeAny("name", "description", "category")+` OR EXISTS (SELECT 1 FROM application_tags
				JOIN tags ON tags.id = application_tags.tag_id
				WHERE application_tags.application_id = applications.id AND tags.name LIKE ? ESCAPE '\'))`,
			p, p, p, p)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count application matches: %w", err)
	}

	var apps []models.Application
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Tags").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("search applications: %w", err)
	}
	return apps, total, nil
}

func (r *searchRepository) Users(ctx context.Context, query string, limit int) ([]models.User, int64, error) {
	p := containsPattern(strings.TrimSpace(query))
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where(likeAny("display_name", "username", "email"), p, p, p)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count user matches: %w", err)
	}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	return users, total, nil
}

func (r *searchRepository) Categories(ctx context.Context, query string, limit int) ([]string, int64, error) {
	p := containsPattern(strings.TrimSpace(query))
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("category <> ''").Where(likeAny("category"), p)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Scopes(scope).Distinct("category").Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count category matches: %w", err)
	}

	var out []string
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Scopes(scope).
		Group("category").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Pluck("category", &out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search categories: %w", err)
	}
	return out, total, nil
}
