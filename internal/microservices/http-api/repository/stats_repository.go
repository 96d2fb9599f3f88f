package repository

import (
	"context"
	"fmt"
	"time"

	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// ValueCount is one bucket of the rating distribution.
type ValueCount struct {
	Value int   `json:"value"`
	Count int64 `json:"count"`
}

// StatsRepository backs the admin dashboard. Every method is read-only.
type StatsRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountApplications(ctx context.Context) (int64, error)
	CountComments(ctx context.Context) (int64, error)
	CountRatings(ctx context.Context) (int64, error)
	TotalDownloads(ctx context.Context) (int64, error)
	CountUsersSince(ctx context.Context, since time.Time) (int64, error)
	RegistrationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
	RatingDistribution(ctx context.Context) ([]ValueCount, error)
	// UserActivity counts what a user has authored, for profile pages.
	UserActivity(ctx context.Context, userID string) (applications, comments, ratings int64, err error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) count(ctx context.Context, model any) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (r *statsRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.User{})
}

func (r *statsRepository) CountApplications(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Application{})
}

func (r *statsRepository) CountComments(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Comment{})
}

func (r *statsRepository) CountRatings(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Rating{})
}

func (r *statsRepository) TotalDownloads(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("COALESCE(SUM(download_count), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum downloads: %w", err)
	}
	return total, nil
}

func (r *statsRepository) CountUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("created_at >= ?", since).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count new users: %w", err)
	}
	return n, nil
}

// RegistrationTimes returns raw timestamps; bucketing by day happens in Go
// so the query stays portable across drivers.
func (r *statsRepository) RegistrationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	var out []time.Time
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &out).Error; err != nil {
		return nil, fmt.Errorf("registration times: %w", err)
	}
	return out, nil
}

func (r *statsRepository) RatingDistribution(ctx context.Context) ([]ValueCount, error) {
	var out []ValueCount
	if err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("value, COUNT(*) AS count").
		Group("value").
		Order("value ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	return out, nil
}

func (r *statsRepository) UserActivity(ctx context.Context, userID string) (int64, int64, int64, error) {
	var apps, comments, ratings int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Application{}).Where("user_id = ?", userID).Count(&apps).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count user applications: %w", err)
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ?", userID).Count(&comments).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count user comments: %w", err)
	}
	if err := db.Model(&models.Rating{}).Where("user_id = ?", userID).Count(&ratings).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("count user ratings: %w", err)
	}
	return apps, comments, ratings, nil
}
