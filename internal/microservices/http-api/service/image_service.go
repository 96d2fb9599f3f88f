package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"appgambit/internal/apperr"
	"appgambit/internal/imaging"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
	"appgambit/internal/storage"

	"github.com/google/uuid"
)

// BlobOwner links a new blob to an application or a user. Both may be nil.
type BlobOwner struct {
	ApplicationID *int64
	UserID        *string
}

// Blob is an opened blob. The caller closes Content.
type Blob struct {
	Meta    *models.ImageData
	Content io.ReadCloser
}

type ImageService interface {
	// SaveImage validates, shrinks and stores an image. Icons are stored as
	// PNG, everything else as JPEG; .ico files are stored unchanged.
	SaveImage(ctx context.Context, up Upload, kind string, bound imaging.Bounds, owner BlobOwner) (*models.ImageData, error)
	// SaveFile stores an application package unchanged.
	SaveFile(ctx context.Context, up Upload, kind string, owner BlobOwner) (*models.ImageData, error)
	Open(ctx context.Context, id string) (*Blob, error)
	ApplicationIcon(ctx context.Context, applicationID int64) (*Blob, error)
	ProfileImage(ctx context.Context, userID string) (*Blob, error)
	// Delete removes blob rows, clearing references to them, then their
	// external objects. Object removal failures are logged only.
	Delete(ctx context.Context, ids ...string) error
}

type imageService struct {
	blobs     repository.BlobRepository
	apps      repository.ApplicationRepository
	users     repository.UserRepository
	objects   storage.ObjectStore
	maxUpload int64
	logger    *slog.Logger
}

// NewImageService stores payloads inline when objects is nil.
func NewImageService(
	blobs repository.BlobRepository,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	objects storage.ObjectStore,
	maxUpload int64,
	logger *slog.Logger,
) ImageService {
	return &imageService{
		blobs:     blobs,
		apps:      apps,
		users:     users,
		objects:   objects,
		maxUpload: maxUpload,
		logger:    orDefault(logger),
	}
}

func (s *imageService) SaveImage(ctx context.Context, up Upload, kind string, bound imaging.Bounds, owner BlobOwner) (*models.ImageData, error) {
	ext, err := imaging.CheckImage(up.FileName)
	if err != nil {
		return nil, err
	}
	data, err := imaging.ReadLimited(up.Content, s.maxUpload)
	if err != nil {
		return nil, err
	}

	format := imaging.FormatJPEG
	if kind == models.KindIcon {
		format = imaging.FormatPNG
	}
	res, err := imaging.Process(data, ext, bound, format)
	if err != nil {
		return nil, err
	}

	blob := &models.ImageData{
		FileName:    up.FileName,
		ContentType: res.ContentType,
		Size:        int64(len(res.Data)),
		Kind:        kind,
	}
	if res.Width > 0 {
		w, h := res.Width, res.Height
		blob.Width, blob.Height = &w, &h
	}
	return s.store(ctx, blob, res.Data, res.Ext, owner)
}

func (s *imageService) SaveFile(ctx context.Context, up Upload, kind string, owner BlobOwner) (*models.ImageData, error) {
	ext, err := imaging.CheckFile(up.FileName)
	if err != nil {
		return nil, err
	}
	data, err := imaging.ReadLimited(up.Content, s.maxUpload)
	if err != nil {
		return nil, err
	}
	blob := &models.ImageData{
		FileName:    up.FileName,
		ContentType: imaging.ContentTypeForFile(ext),
		Size:        int64(len(data)),
		Kind:        kind,
	}
	return s.store(ctx, blob, data, ext, owner)
}

func (s *imageService) store(ctx context.Context, blob *models.ImageData, data []byte, ext string, owner BlobOwner) (*models.ImageData, error) {
	blob.ID = uuid.New().String()
	blob.ApplicationID = owner.ApplicationID
	blob.UserID = owner.UserID

	if s.objects == nil {
		blob.Data = data
	} else {
		blob.StorageKey = storage.ObjectKey(blob.Kind, blob.ID, ext)
		if err := s.objects.Put(ctx, blob.StorageKey, bytes.NewReader(data), blob.Size, blob.ContentType); err != nil {
			return nil, apperr.IO("store blob", err)
		}
	}

	if err := s.blobs.Create(ctx, blob); err != nil {
		if blob.External() {
			if derr := s.objects.Delete(ctx, blob.StorageKey); derr != nil {
				s.logger.WarnContext(ctx, "orphaned object after failed insert", "key", blob.StorageKey, "err", derr)
			}
		}
		return nil, err
	}

	s.logger.DebugContext(ctx, "blob stored", "id", blob.ID, "kind", blob.Kind, "size", blob.Size, "external", blob.External())
	blob.Data = nil
	return blob, nil
}

func (s *imageService) Open(ctx context.Context, id string) (*Blob, error) {
	meta, err := s.blobs.GetMeta(ctx, id)
	if err != nil {
		return nil, notFound(err, "image")
	}
	if !meta.External() {
		full, err := s.blobs.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "image")
		}
		return &Blob{Meta: full, Content: io.NopCloser(bytes.NewReader(full.Data))}, nil
	}
	if s.objects == nil {
		return nil, apperr.IO("open blob", fmt.Errorf("blob %s is in object storage but none is configured", id))
	}
	rc, err := s.objects.Get(ctx, meta.StorageKey)
	if err != nil {
		return nil, apperr.IO("open blob", err)
	}
	return &Blob{Meta: meta, Content: rc}, nil
}

func (s *imageService) ApplicationIcon(ctx context.Context, applicationID int64) (*Blob, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, notFound(err, "application")
	}
	if app.IconID == nil {
		return nil, apperr.NotFound("icon")
	}
	return s.Open(ctx, *app.IconID)
}

func (s *imageService) ProfileImage(ctx context.Context, userID string) (*Blob, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if user.ProfileImageID == nil {
		return nil, apperr.NotFound("profile image")
	}
	return s.Open(ctx, *user.ProfileImageID)
}

func (s *imageService) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var keys []string
	for _, id := range ids {
		meta, err := s.blobs.GetMeta(ctx, id)
		if err != nil {
			continue
		}
		if meta.External() {
			keys = append(keys, meta.StorageKey)
		}
	}

	if err := s.blobs.Delete(ctx, ids...); err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		if s.objects == nil {
			break
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to remove object", "key", key, "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return apperr.IO("delete objects", errors.Join(errs...))
	}
	return nil
}
