package repository

import (
	"context"
	"fmt"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// metaColumns is everything but the payload.
var metaColumns = []string{
	"id", "file_name", "content_type", "storage_key", "size", "width", "height",
	"kind", "application_id", "user_id", "created_at",
}

// BlobRepository persists ImageData rows. References to a blob from
// applications and users are weak: Delete clears them in the same transaction.
type BlobRepository interface {
	Create(ctx context.Context, blob *models.ImageData) error
	GetByID(ctx context.Context, id string) (*models.ImageData, error)
	GetMeta(ctx context.Context, id string) (*models.ImageData, error)
	ListByApplication(ctx context.Context, applicationID int64, kind string) ([]models.ImageData, error)
	ListByUser(ctx context.Context, userID string) ([]models.ImageData, error)
	AttachToApplication(ctx context.Context, applicationID int64, ids ...string) error
	Delete(ctx context.Context, ids ...string) error
}

type blobRepository struct {
	db *gorm.DB
}

func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepository{db: db}
}

func (r *blobRepository) Create(ctx context.Context, blob *models.ImageData) error {
	if err := r.db.WithContext(ctx).Create(blob).Error; err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	return nil
}

func (r *blobRepository) GetByID(ctx context.Context, id string) (*models.ImageData, error) {
	var blob models.ImageData
	if err := r.db.WithContext(ctx).First(&blob, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &blob, nil
}

func (r *blobRepository) GetMeta(ctx context.Context, id string) (*models.ImageData, error) {
	var blob models.ImageData
	if err := r.db.WithContext(ctx).Select(metaColumns).First(&blob, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &blob, nil
}

// ListByApplication returns metadata only. An empty kind lists all kinds.
func (r *blobRepository) ListByApplication(ctx context.Context, applicationID int64, kind string) ([]models.ImageData, error) {
	q := r.db.WithContext(ctx).Select(metaColumns).Where("application_id = ?", applicationID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []models.ImageData
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list application blobs: %w", err)
	}
	return out, nil
}

func (r *blobRepository) ListByUser(ctx context.Context, userID string) ([]models.ImageData, error) {
	var out []models.ImageData
	if err := r.db.WithContext(ctx).
		Select(metaColumns).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list user blobs: %w", err)
	}
	return out, nil
}

func (r *blobRepository) AttachToApplication(ctx context.Context, applicationID int64, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ImageData{}).
		Where("id IN ?", ids).
		Update("application_id", applicationID).Error
}

func (r *blobRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Application{}).Where("icon_id IN ?", ids).UpdateColumn("icon_id", nil).Error; err != nil {
			return fmt.Errorf("clear icon references: %w", err)
		}
		if err := tx.Model(&models.Application{}).Where("app_file_id IN ?", ids).UpdateColumn("app_file_id", nil).Error; err != nil {
			return fmt.Errorf("clear app file references: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("profile_image_id IN ?", ids).UpdateColumn("profile_image_id", nil).Error; err != nil {
			return fmt.Errorf("clear profile image references: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.ImageData{}).Error; err != nil {
			return fmt.Errorf("delete blobs: %w", err)
		}
		return nil
	})
}
