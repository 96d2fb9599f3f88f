package service

import (
	"errors"
	"io"
	"log/slog"

	"appgambit/internal/apperr"
	"appgambit/internal/cache"
	"appgambit/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// Requester is the authenticated caller of a mutating operation.
type Requester struct {
	UserID string
	Role   string
}

func (r Requester) IsAdmin() bool {
	return r.Role == models.RoleAdmin
}

// CanModify reports whether the requester owns the entity or is an admin.
func (r Requester) CanModify(ownerID string) bool {
	return r.IsAdmin() || (r.UserID != "" && r.UserID == ownerID)
}

// Upload is one file from a multipart request.
type Upload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// Caching bundles what the read paths need to use the cache layer.
// A zero value disables caching.
type Caching struct {
	Cache       cache.Cache
	Invalidator *cache.Invalidator
	Options     cache.Options
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// notFound turns gorm's missing-row error into an apperr.NotFound for entity.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return err
}
