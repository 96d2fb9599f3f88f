package models

import "time"

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is one user's score for one application. The composite unique index
// keeps it to a single row per (user, application).
type Rating struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        string    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_application"`
	ApplicationID int64     `json:"application_id" gorm:"not null;uniqueIndex:idx_ratings_user_application;index"`
	Value         int       `json:"value" gorm:"not null;check:value >= 1 AND value <= 5"`
	IsLike        bool      `json:"is_like" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Associations
	User        *User        `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
	Application *Application `json:"-" gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE;"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingSummary is derived from the rating rows on read.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int64   `json:"total_ratings"`
	Likes         int64   `json:"likes"`
	Dislikes      int64   `json:"dislikes"`
}
