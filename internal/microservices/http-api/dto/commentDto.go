package dto

import (
	"time"

	"appgambit/internal/microservices/http-api/models"
)

// CommentRequest for adding or editing a comment.
// Length is checked by the service after trimming.
type CommentRequest struct {
	Content string `json:"content" form:"content"`
}

// CommentResponse for returning comment information
type CommentResponse struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromModelToCommentResponse converts a Comment model to CommentResponse DTO
func FromModelToCommentResponse(comment *models.Comment) CommentResponse {
	resp := CommentResponse{
		ID:            comment.ID,
		ApplicationID: comment.ApplicationID,
		UserID:        comment.UserID,
		Content:       comment.Content,
		CreatedAt:     comment.CreatedAt,
		UpdatedAt:     comment.UpdatedAt,
	}
	if comment.User != nil {
		resp.Username = comment.User.Username
		resp.DisplayName = comment.User.Name()
	}
	return resp
}

func FromModelsToCommentResponses(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, FromModelToCommentResponse(&comments[i]))
	}
	return out
}
