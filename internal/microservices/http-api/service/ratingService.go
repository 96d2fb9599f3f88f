package service

import (
	"context"
	"log/slog"

	"appgambit/internal/apperr"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

type RatingService interface {
	// Rate stores the user's rating, replacing any earlier one.
	Rate(ctx context.Context, applicationID int64, userID string, value int, isLike bool) (*dto.RatingResponse, error)
	DeleteRating(ctx context.Context, applicationID int64, userID string) error
	UserRating(ctx context.Context, applicationID int64, userID string) (*models.Rating, error)
	Summary(ctx context.Context, applicationID int64) (models.RatingSummary, error)
}

type ratingService struct {
	ratingRepo repository.RatingRepository
	appRepo    repository.ApplicationRepository
	caching    Caching
	logger     *slog.Logger
}

func NewRatingService(ratingRepo repository.RatingRepository, appRepo repository.ApplicationRepository, caching Caching, logger *slog.Logger) RatingService {
	return &ratingService{
		ratingRepo: ratingRepo,
		appRepo:    appRepo,
		caching:    caching,
		logger:     orDefault(logger),
	}
}

func (s *ratingService) Rate(ctx context.Context, applicationID int64, userID string, value int, isLike bool) (*dto.RatingResponse, error) {
	if value < models.MinRatingValue || value > models.MaxRatingValue {
		return nil, apperr.Validation("value", "rating must be between %d and %d", models.MinRatingValue, models.MaxRatingValue)
	}

	exists, err := s.appRepo.Exists(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("application")
	}

	rating, err := s.ratingRepo.Upsert(ctx, &models.Rating{
		UserID:        userID,
		ApplicationID: applicationID,
		Value:         value,
		IsLike:        isLike,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, applicationID, userID)

	summary, err := s.ratingRepo.Summary(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "rating stored", "application_id", applicationID, "user_id", userID, "value", value)
	return dto.FromModelToRatingResponse(rating, summary), nil
}

func (s *ratingService) DeleteRating(ctx context.Context, applicationID int64, userID string) error {
	if err := s.ratingRepo.Delete(ctx, applicationID, userID); err != nil {
		return notFound(err, "rating")
	}
	s.invalidate(ctx, applicationID, userID)
	return nil
}

// invalidate drops the application's entries and the profiles of its owner,
// whose listing carries the summary, and of the rater.
func (s *ratingService) invalidate(ctx context.Context, applicationID int64, userID string) {
	var owner string
	if app, err := s.appRepo.GetByID(ctx, applicationID); err == nil {
		owner = ownerOf(app)
	}
	s.caching.Invalidator.Application(ctx, applicationID, owner, userID)
}

func (s *ratingService) UserRating(ctx context.Context, applicationID int64, userID string) (*models.Rating, error) {
	rating, err := s.ratingRepo.GetByUserAndApplication(ctx, applicationID, userID)
	if err != nil {
		return nil, notFound(err, "rating")
	}
	return rating, nil
}

func (s *ratingService) Summary(ctx context.Context, applicationID int64) (models.RatingSummary, error) {
	return s.ratingRepo.Summary(ctx, applicationID)
}
