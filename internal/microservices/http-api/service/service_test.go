package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"appgambit/database"
	"appgambit/internal/cache"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
	"appgambit/internal/storage"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testEnv wires real repositories over an in-memory sqlite database.
type testEnv struct {
	ctx     context.Context
	db      *gorm.DB
	cache   *cache.MemoryCache
	caching Caching
	objects *memoryObjects

	userRepo    repository.UserRepository
	appRepo     repository.ApplicationRepository
	commentRepo repository.CommentRepository
	ratingRepo  repository.RatingRepository
	blobRepo    repository.BlobRepository
	tokenRepo   repository.RefreshTokenRepository

	images    ImageService
	apps      ApplicationService
	comments  CommentService
	ratings   RatingService
	search    SearchService
	analytics AnalyticsService
	users     UserService
}

type envOption func(*envConfig)

type envConfig struct {
	objects   bool
	maxUpload int64
}

func withObjectStore() envOption { return func(c *envConfig) { c.objects = true } }

func withMaxUpload(n int64) envOption { return func(c *envConfig) { c.maxUpload = n } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{maxUpload: 10 << 20}
	for _, o := range opts {
		o(&cfg)
	}

	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db, discardLogger))

	mem, err := cache.NewMemoryCache(256)
	require.NoError(t, err)

	e := &testEnv{
		ctx:   context.Background(),
		db:    db,
		cache: mem,
		caching: Caching{
			Cache:       mem,
			Invalidator: cache.NewInvalidator(mem, discardLogger),
			Options:     cache.Options{TTL: time.Minute},
		},
		userRepo:    repository.NewUserRepository(db),
		appRepo:     repository.NewApplicationRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		ratingRepo:  repository.NewRatingRepository(db),
		blobRepo:    repository.NewBlobRepository(db),
		tokenRepo:   repository.NewRefreshTokenRepository(db),
	}

	var objects storage.ObjectStore
	if cfg.objects {
		e.objects = newMemoryObjects()
		objects = e.objects
	}

	e.images = NewImageService(e.blobRepo, e.appRepo, e.userRepo, objects, cfg.maxUpload, discardLogger)
	e.apps = NewApplicationService(e.appRepo, e.userRepo, e.ratingRepo, e.commentRepo, e.blobRepo, e.images, e.caching, discardLogger)
	e.comments = NewCommentService(e.commentRepo, e.appRepo, e.caching, discardLogger)
	e.ratings = NewRatingService(e.ratingRepo, e.appRepo, e.caching, discardLogger)
	e.search = NewSearchService(repository.NewSearchRepository(db), e.appRepo, repository.NewTagRepository(db), e.caching, discardLogger)
	e.analytics = NewAnalyticsService(repository.NewStatsRepository(db), e.appRepo, e.ratingRepo, e.caching, discardLogger)
	e.users = NewUserService(e.userRepo, e.appRepo, e.ratingRepo, repository.NewStatsRepository(db), e.blobRepo, e.tokenRepo, e.images, e.caching, discardLogger)
	return e
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, e.userRepo.Create(e.ctx, u))
	return u
}

func (e *testEnv) admin(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Role: models.RoleAdmin}
	require.NoError(t, e.userRepo.Create(e.ctx, u))
	return u
}

func (e *testEnv) app(t *testing.T, owner *models.User, name string) *dto.ApplicationResponse {
	t.Helper()
	resp, err := e.apps.Create(e.ctx, appInput(name), ApplicationUploads{}, owner.ID)
	require.NoError(t, err)
	return resp
}

func appInput(name string) dto.ApplicationInput {
	return dto.ApplicationInput{Name: name, Description: "about " + name, Category: "Tools"}
}

func as(u *models.User) Requester {
	return Requester{UserID: u.ID, Role: u.Role}
}

func pngUpload(t *testing.T, name string, w, h int) Upload {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Upload{FileName: name, Size: int64(buf.Len()), Content: bytes.NewReader(buf.Bytes())}
}

func fileUpload(name, content string) Upload {
	return Upload{FileName: name, Size: int64(len(content)), Content: bytes.NewReader([]byte(content))}
}

// memoryObjects is an in-process storage.ObjectStore.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
