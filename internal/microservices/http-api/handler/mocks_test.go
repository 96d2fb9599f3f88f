package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/handler"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/service"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
	badToken   = "bad-token"
	userID     = "user-1"
	adminID    = "admin-1"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- MOCK SERVICES ---
// Each mock embeds its interface so tests only implement what they call.

type MockAuthService struct {
	service.AuthService
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	args := m.Called(ctx, username, password, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, login, password string) (*service.TokenPair, *models.User, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*service.TokenPair), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

type MockOAuthService struct {
	service.OAuthService
	mock.Mock
}

func (m *MockOAuthService) Begin(ctx context.Context) (string, string, error) {
	args := m.Called(ctx)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockOAuthService) Complete(ctx context.Context, state, code string) (*service.TokenPair, *models.User, error) {
	args := m.Called(ctx, state, code)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*service.TokenPair), args.Get(1).(*models.User), args.Error(2)
}

type MockApplicationService struct {
	service.ApplicationService
	mock.Mock
}

func (m *MockApplicationService) List(ctx context.Context, q dto.ApplicationQuery) (*dto.Paginated[dto.ApplicationSummary], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Paginated[dto.ApplicationSummary]), args.Error(1)
}

func (m *MockApplicationService) Detail(ctx context.Context, id int64) (*dto.ApplicationDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ApplicationDetail), args.Error(1)
}

func (m *MockApplicationService) GetByName(ctx context.Context, name string) (*dto.ApplicationDetail, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ApplicationDetail), args.Error(1)
}

func (m *MockApplicationService) Create(ctx context.Context, in dto.ApplicationInput, up service.ApplicationUploads, ownerID string) (*dto.ApplicationResponse, error) {
	args := m.Called(ctx, in, up, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ApplicationResponse), args.Error(1)
}

func (m *MockApplicationService) Update(ctx context.Context, id int64, in dto.ApplicationInput, up service.ApplicationUploads, req service.Requester) (*dto.ApplicationResponse, error) {
	args := m.Called(ctx, id, in, up, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ApplicationResponse), args.Error(1)
}

func (m *MockApplicationService) Delete(ctx context.Context, id int64, req service.Requester) error {
	return m.Called(ctx, id, req).Error(0)
}

func (m *MockApplicationService) Download(ctx context.Context, id int64) (*service.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockApplicationService) Popular(ctx context.Context, limit int) ([]dto.ApplicationSummary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]dto.ApplicationSummary), args.Error(1)
}

type MockCommentService struct {
	service.CommentService
	mock.Mock
}

func (m *MockCommentService) AddComment(ctx context.Context, applicationID int64, userID, content string) (*dto.CommentResponse, error) {
	args := m.Called(ctx, applicationID, userID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) UpdateComment(ctx context.Context, commentID int64, content string, req service.Requester) (*dto.CommentResponse, error) {
	args := m.Called(ctx, commentID, content, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID int64, req service.Requester) error {
	return m.Called(ctx, commentID, req).Error(0)
}

func (m *MockCommentService) ListComments(ctx context.Context, applicationID int64, page, pageSize int) (*dto.Paginated[dto.CommentResponse], error) {
	args := m.Called(ctx, applicationID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Paginated[dto.CommentResponse]), args.Error(1)
}

type MockRatingService struct {
	service.RatingService
	mock.Mock
}

func (m *MockRatingService) Rate(ctx context.Context, applicationID int64, userID string, value int, isLike bool) (*dto.RatingResponse, error) {
	args := m.Called(ctx, applicationID, userID, value, isLike)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RatingResponse), args.Error(1)
}

func (m *MockRatingService) DeleteRating(ctx context.Context, applicationID int64, userID string) error {
	return m.Called(ctx, applicationID, userID).Error(0)
}

func (m *MockRatingService) Summary(ctx context.Context, applicationID int64) (models.RatingSummary, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).(models.RatingSummary), args.Error(1)
}

type MockUserService struct {
	service.UserService
	mock.Mock
}

func (m *MockUserService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID, displayName string) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, userID, role string, req service.Requester) error {
	return m.Called(ctx, userID, role, req).Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, userID string, req service.Requester) error {
	return m.Called(ctx, userID, req).Error(0)
}

type MockImageService struct {
	service.ImageService
	mock.Mock
}

func (m *MockImageService) Open(ctx context.Context, id string) (*service.Blob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Blob), args.Error(1)
}

type MockAnalyticsService struct {
	service.AnalyticsService
	mock.Mock
}

func (m *MockAnalyticsService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Dashboard), args.Error(1)
}

// --- SETUP ---

type mocks struct {
	auth      *MockAuthService
	oauth     *MockOAuthService
	apps      *MockApplicationService
	comments  *MockCommentService
	ratings   *MockRatingService
	users     *MockUserService
	images    *MockImageService
	analytics *MockAnalyticsService
}

var (
	userRequester  = service.Requester{UserID: userID, Role: models.RoleUser}
	adminRequester = service.Requester{UserID: adminID, Role: models.RoleAdmin}
)

// setupRouter builds the full router over mocks. userToken and adminToken
// authenticate; badToken is rejected.
func setupRouter(t *testing.T, cfg handler.RouterConfig) (*gin.Engine, *mocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &mocks{
		auth:      new(MockAuthService),
		oauth:     new(MockOAuthService),
		apps:      new(MockApplicationService),
		comments:  new(MockCommentService),
		ratings:   new(MockRatingService),
		users:     new(MockUserService),
		images:    new(MockImageService),
		analytics: new(MockAnalyticsService),
	}
	m.auth.On("ValidateToken", userToken).Return(&service.Claims{UserID: userID, Username: "user", Role: models.RoleUser}, nil).Maybe()
	m.auth.On("ValidateToken", adminToken).Return(&service.Claims{UserID: adminID, Username: "admin", Role: models.RoleAdmin}, nil).Maybe()
	m.auth.On("ValidateToken", badToken).Return(nil, service.ErrInvalidToken).Maybe()

	r := handler.NewRouter(handler.Services{
		Auth:         m.auth,
		OAuth:        m.oauth,
		Users:        m.users,
		Applications: m.apps,
		Comments:     m.comments,
		Ratings:      m.ratings,
		Images:       m.images,
		Analytics:    m.analytics,
	}, cfg, discardLogger)
	return r, m
}

// do sends a request; token may be empty for anonymous calls.
func do(r http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	return do(r, method, path, token, strings.NewReader(body), "application/json")
}
