package repository

import (
	"context"
	"fmt"
	"strings"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortRecent    = "recent"
	SortDownloads = "downloads"
	SortName      = "name"
)

// ApplicationFilter selects a page of applications. Empty fields do not filter.
type ApplicationFilter struct {
	Search   string
	Category string
	Tag      string
	OwnerID  string
	SortBy   string
	Page     int
	PageSize int
}

type ApplicationRepository interface {
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetByName(ctx context.Context, name string) (*models.Application, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Create inserts the application and links its tags.
	Create(ctx context.Context, app *models.Application, tags []string) error
	// Update writes the editable columns. A nil tags slice leaves tags alone.
	Update(ctx context.Context, app *models.Application, tags []string) error
	Delete(ctx context.Context, id int64) error
	IncrementDownloads(ctx context.Context, id int64) error
	Popular(ctx context.Context, limit int) ([]models.Application, error)
	Categories(ctx context.Context) ([]NameCount, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// List performs case-insensitive substring matching of the whole search
// string over name, descriptions and category.
func (r *applicationRepository) List(ctx context.Context, f ApplicationFilter) ([]models.Application, int64, error) {
	scope := filterApplications(f)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	var list []models.Application
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Tags").
		Preload("User").
		Order(applicationOrder(f.SortBy)).
		Limit(f.PageSize).
		Offset(offset(f.Page, f.PageSize)).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return list, total, nil
}

func filterApplications(f ApplicationFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(f.Search); s != "" {
			db = db.Where(likeAny("name", "description", "detailed_description", "category"),
				repeat(containsPattern(s), 4)...)
		}
		if c := strings.TrimSpace(f.Category); c != "" {
			db = db.Where("LOWER(category) = ?", strings.ToLower(c))
		}
		if t := strings.TrimSpace(f.Tag); t != "" {
			db = db.Where(`EXISTS (SELECT 1 FROM application_tags
				JOIN tags ON tags.id = application_tags.tag_id
				WHERE application_tags.application_id = applications.id AND tags.name = ?)`, strings.ToLower(t))
		}
		if f.OwnerID != "" {
			db = db.Where("user_id = ?", f.OwnerID)
		}
		return db
	}
}

// applicationOrder always ends on id so pages never overlap on equal timestamps.
func applicationOrder(sortBy string) string {
	switch sortBy {
	case SortDownloads:
		return "download_count DESC, created_at DESC, id DESC"
	case SortName:
		return "LOWER(name) ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Preload("Tags").Preload("User").First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByName matches the exact name ignoring case; the newest wins on duplicates.
func (r *applicationRepository) GetByName(ctx context.Context, name string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("User").
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("created_at DESC, id DESC").
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application, tags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(app).Error; err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		return replaceTags(tx, app, tags)
	})
}

func (r *applicationRepository) Update(ctx context.Context, app *models.Application, tags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(app).
			Omit(clause.Associations).
			Select("name", "description", "detailed_description", "version", "category",
				"download_url", "file_size", "icon_id", "app_file_id", "updated_at").
			Updates(app)
		if res.Error != nil {
			return fmt.Errorf("update application: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if tags == nil {
			return nil
		}
		return replaceTags(tx, app, tags)
	})
}

func replaceTags(tx *gorm.DB, app *models.Application, names []string) error {
	tags, err := ensureTags(tx, names)
	if err != nil {
		return err
	}
	assoc := tx.Model(app).Association("Tags")
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return fmt.Errorf("replace tags: %w", err)
	}
	app.Tags = tags
	return nil
}

// Delete removes the application with its comments, ratings and tag links.
// Blob rows are left to the caller, which also owns their external storage.
func (r *applicationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Where("application_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}
		if err := tx.Exec("DELETE FROM application_tags WHERE application_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete tag links: %w", err)
		}
		res := tx.Delete(&models.Application{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete application: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IncrementDownloads bumps the counter in one statement so concurrent
// downloads are never lost.
func (r *applicationRepository) IncrementDownloads(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment downloads: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicationRepository) Popular(ctx context.Context, limit int) ([]models.Application, error) {
	var list []models.Application
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("User").
		Order("download_count DESC, created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("popular applications: %w", err)
	}
	return list, nil
}

func (r *applicationRepository) Categories(ctx context.Context) ([]NameCount, error) {
	var out []NameCount
	if err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("category AS name, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("count DESC, name ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
