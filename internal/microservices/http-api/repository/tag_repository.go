package repository

import (
	"context"
	"fmt"
	"strings"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// NameCount is a label with the number of applications carrying it.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type TagRepository interface {
	List(ctx context.Context) ([]NameCount, error)
	Ensure(ctx context.Context, names []string) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// List returns every tag in use with its application count.
func (r *tagRepository) List(ctx context.Context) ([]NameCount, error) {
	var out []NameCount
	err := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.name AS name, COUNT(application_tags.application_id) AS count").
		Joins("JOIN application_tags ON application_tags.tag_id = tags.id").
		Group("tags.name").
		Order("count DESC, name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

func (r *tagRepository) Ensure(ctx context.Context, names []string) ([]models.Tag, error) {
	return ensureTags(r.db.WithContext(ctx), names)
}

// NormalizeTags lower-cases, trims and de-duplicates tag names, keeping order.
func NormalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ensureTags finds or creates each tag on db, which may be a transaction.
func ensureTags(db *gorm.DB, names []string) ([]models.Tag, error) {
	names = NormalizeTags(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&tag).Error; err != nil {
			if !IsDuplicateKey(err) {
				return nil, fmt.Errorf("ensure tag %q: %w", name, err)
			}
			// lost a race with another insert
			if err := db.Where("name = ?", name).First(&tag).Error; err != nil {
				return nil, fmt.Errorf("ensure tag %q: %w", name, err)
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
