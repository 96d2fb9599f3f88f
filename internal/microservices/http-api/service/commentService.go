package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"appgambit/internal/apperr"
	"appgambit/internal/cache"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

type CommentService interface {
	AddComment(ctx context.Context, applicationID int64, userID, content string) (*dto.CommentResponse, error)
	UpdateComment(ctx context.Context, commentID int64, content string, req Requester) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID int64, req Requester) error
	ListComments(ctx context.Context, applicationID int64, page, pageSize int) (*dto.Paginated[dto.CommentResponse], error)
	UserComments(ctx context.Context, userID string, page, pageSize int) (*dto.Paginated[dto.CommentResponse], error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	appRepo     repository.ApplicationRepository
	caching     Caching
	logger      *slog.Logger
}

func NewCommentService(commentRepo repository.CommentRepository, appRepo repository.ApplicationRepository, caching Caching, logger *slog.Logger) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		appRepo:     appRepo,
		caching:     caching,
		logger:      orDefault(logger),
	}
}

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content", "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", apperr.Validation("content", "comment must be at most %d characters", models.MaxCommentLength)
	}
	return content, nil
}

// AddComment creates a new comment for an application
func (s *commentService) AddComment(ctx context.Context, applicationID int64, userID, content string) (*dto.CommentResponse, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}

	exists, err := s.appRepo.Exists(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("application")
	}

	comment := &models.Comment{
		UserID:        userID,
		ApplicationID: applicationID,
		Content:       content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.caching.Invalidator.Comments(ctx, applicationID, userID)

	// Reload with user data
	comment, err = s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload comment: %w", err)
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

// UpdateComment replaces the content of an existing comment
func (s *commentService) UpdateComment(ctx context.Context, commentID int64, content string, req Requester) (*dto.CommentResponse, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	if !req.CanModify(comment.UserID) {
		return nil, apperr.Forbidden("edit this comment")
	}

	if err := s.commentRepo.UpdateContent(ctx, commentID, content); err != nil {
		return nil, notFound(err, "comment")
	}
	s.caching.Invalidator.Comments(ctx, comment.ApplicationID, comment.UserID)

	comment, err = s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID int64, req Requester) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return notFound(err, "comment")
	}
	if !req.CanModify(comment.UserID) {
		return apperr.Forbidden("delete this comment")
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return notFound(err, "comment")
	}
	s.caching.Invalidator.Comments(ctx, comment.ApplicationID, comment.UserID)
	s.logger.InfoContext(ctx, "comment deleted", "comment_id", commentID, "by", req.UserID)
	return nil
}

// ListComments returns one cached page of an application's comments, newest first
func (s *commentService) ListComments(ctx context.Context, applicationID int64, page, pageSize int) (*dto.Paginated[dto.CommentResponse], error) {
	page, pageSize = dto.NormalizePage(page, pageSize)
	key := cache.ApplicationCommentsKey(applicationID, page, pageSize)

	return cache.GetOrCompute(ctx, s.caching.Cache, key, s.caching.Options, func(ctx context.Context) (*dto.Paginated[dto.CommentResponse], error) {
		exists, err := s.appRepo.Exists(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("application")
		}
		comments, total, err := s.commentRepo.GetByApplication(ctx, applicationID, page, pageSize)
		if err != nil {
			return nil, err
		}
		return dto.NewPaginated(dto.FromModelsToCommentResponses(comments), total, page, pageSize), nil
	})
}

func (s *commentService) UserComments(ctx context.Context, userID string, page, pageSize int) (*dto.Paginated[dto.CommentResponse], error) {
	page, pageSize = dto.NormalizePage(page, pageSize)
	comments, total, err := s.commentRepo.GetByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return dto.NewPaginated(dto.FromModelsToCommentResponses(comments), total, page, pageSize), nil
}
