package repository

import (
	"context"
	"errors"
	"fmt"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type RatingRepository interface {
	// Upsert stores the user's rating for the application, overwriting the
	// previous one. There is never more than one row per (user, application).
	Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	Delete(ctx context.Context, applicationID int64, userID string) error
	GetByUserAndApplication(ctx context.Context, applicationID int64, userID string) (*models.Rating, error)
	Summary(ctx context.Context, applicationID int64) (models.RatingSummary, error)
	// Summaries computes all requested summaries with one grouped query.
	Summaries(ctx context.Context, applicationIDs []int64) (map[int64]models.RatingSummary, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	existing, err := r.GetByUserAndApplication(ctx, rating.ApplicationID, rating.UserID)
	switch {
	case err == nil:
		return r.overwrite(ctx, existing, rating)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	row := &models.Rating{
		UserID:        rating.UserID,
		ApplicationID: rating.ApplicationID,
		Value:         rating.Value,
		IsLike:        rating.IsLike,
	}
	err = r.db.WithContext(ctx).Omit("User", "Application").Create(row).Error
	if err == nil {
		return row, nil
	}
	if !IsDuplicateKey(err) {
		return nil, fmt.Errorf("create rating: %w", err)
	}

	// a concurrent request inserted first; turn ours into an update
	existing, err = r.GetByUserAndApplication(ctx, rating.ApplicationID, rating.UserID)
	if err != nil {
		return nil, fmt.Errorf("reload rating after conflict: %w", err)
	}
	return r.overwrite(ctx, existing, rating)
}

func (r *ratingRepository) overwrite(ctx context.Context, existing, next *models.Rating) (*models.Rating, error) {
	existing.Value = next.Value
	existing.IsLike = next.IsLike
	if err := r.db.WithContext(ctx).
		Model(existing).
		Select("value", "is_like", "updated_at").
		Updates(existing).Error; err != nil {
		return nil, fmt.Errorf("update rating: %w", err)
	}
	return existing, nil
}

func (r *ratingRepository) Delete(ctx context.Context, applicationID int64, userID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		Delete(&models.Rating{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ratingRepository) GetByUserAndApplication(ctx context.Context, applicationID int64, userID string) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

const summaryColumns = "CAST(COALESCE(AVG(value), 0) AS FLOAT) AS average_rating, " +
	"COUNT(*) AS total_ratings, " +
	"COALESCE(SUM(CASE WHEN is_like THEN 1 ELSE 0 END), 0) AS likes"

type summaryRow struct {
	ApplicationID int64
	AverageRating float64
	TotalRatings  int64
	Likes         int64
}

func (s summaryRow) summary() models.RatingSummary {
	return models.RatingSummary{
		AverageRating: s.AverageRating,
		TotalRatings:  s.TotalRatings,
		Likes:         s.Likes,
		Dislikes:      s.TotalRatings - s.Likes,
	}
}

// Summary is computed on read; without ratings the average is 0.
func (r *ratingRepository) Summary(ctx context.Context, applicationID int64) (models.RatingSummary, error) {
	var row summaryRow
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select(summaryColumns).
		Where("application_id = ?", applicationID).
		Scan(&row).Error
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	return row.summary(), nil
}

func (r *ratingRepository) Summaries(ctx context.Context, applicationIDs []int64) (map[int64]models.RatingSummary, error) {
	out := make(map[int64]models.RatingSummary, len(applicationIDs))
	if len(applicationIDs) == 0 {
		return out, nil
	}

	var rows []summaryRow
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("application_id, " + summaryColumns).
		Where("application_id IN ?", applicationIDs).
		Group("application_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("rating summaries: %w", err)
	}
	for _, row := range rows {
		out[row.ApplicationID] = row.summary()
	}
	return out, nil
}
