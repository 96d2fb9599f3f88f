package dto

import (
	"time"

	"appgambit/internal/microservices/http-api/models"
)

// UserResponse is the account view of a user.
type UserResponse struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	DisplayName     string     `json:"display_name"`
	Email           string     `json:"email,omitempty"`
	Role            string     `json:"role"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

// ProfileResponse is the public profile page.
type ProfileResponse struct {
	User             UserResponse         `json:"user"`
	Applications     []ApplicationSummary `json:"applications"`
	ApplicationCount int64                `json:"application_count"`
	CommentCount     int64                `json:"comment_count"`
	RatingCount      int64                `json:"rating_count"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" form:"display_name"`
}

type SetRoleRequest struct {
	Role string `json:"role" form:"role" binding:"required,oneof=user admin"`
}

// FromModelToUserResponse hides the email unless withEmail is set.
func FromModelToUserResponse(u *models.User, withEmail bool) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
	if withEmail {
		resp.Email = u.Email
	}
	if u.ProfileImageID != nil {
		resp.ProfileImageURL = "/Image/Profile/" + u.ID
	}
	return resp
}
