package dto

import (
	"time"

	"appgambit/internal/microservices/http-api/models"
)

// RateRequest for creating or updating a rating
type RateRequest struct {
	Value  int  `json:"value" form:"value" binding:"required,min=1,max=5"`
	IsLike bool `json:"is_like" form:"is_like"`
}

// RatingResponse is the caller's own rating plus the new aggregate.
type RatingResponse struct {
	ApplicationID int64                `json:"application_id"`
	Value         int                  `json:"value"`
	IsLike        bool                 `json:"is_like"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Summary       models.RatingSummary `json:"summary"`
}

func FromModelToRatingResponse(rating *models.Rating, summary models.RatingSummary) *RatingResponse {
	return &RatingResponse{
		ApplicationID: rating.ApplicationID,
		Value:         rating.Value,
		IsLike:        rating.IsLike,
		UpdatedAt:     rating.UpdatedAt,
		Summary:       summary,
	}
}
