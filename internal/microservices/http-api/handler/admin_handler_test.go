package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"appgambit/internal/apperr"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/handler"
)

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	r, m := setupRouter(t, handler.RouterConfig{})

	paths := []string{
		"/Admin/DeleteApplication/1",
		"/Admin/DeleteComment/1",
		"/Admin/DeleteUser/user-2",
		"/Admin/SetRole/user-2",
	}
	for _, path := range paths {
		w := do(r, http.MethodPost, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = do(r, http.MethodPost, path, userToken, nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := do(r, http.MethodGet, "/api/analytics/dashboard", userToken, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	m.apps.AssertNotCalled(t, "Delete")
	m.users.AssertNotCalled(t, "Delete")
}

func TestAdminHandler_Moderation(t *testing.T) {
	r, m := setupRouter(t, handler.RouterConfig{})

	t.Run("DeleteApplication", func(t *testing.T) {
		m.apps.On("Delete", mock.Anything, int64(1), adminRequester).Return(nil).Once()
		w := do(r, http.MethodPost, "/Admin/DeleteApplication/1", adminToken, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeleteComment", func(t *testing.T) {
		m.comments.On("DeleteComment", mock.Anything, int64(2), adminRequester).Return(nil).Once()
		w := do(r, http.MethodPost, "/Admin/DeleteComment/2", adminToken, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeleteUser", func(t *testing.T) {
		m.users.On("Delete", mock.Anything, "user-2", adminRequester).Return(nil).Once()
		w := do(r, http.MethodPost, "/Admin/DeleteUser/user-2", adminToken, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("SetRole", func(t *testing.T) {
		m.users.On("SetRole", mock.Anything, "user-2", "admin", adminRequester).Return(nil).Once()
		w := doJSON(r, http.MethodPost, "/Admin/SetRole/user-2", adminToken, `{"role":"admin"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})

	t.Run("SetRoleRejectsUnknownRole", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/Admin/SetRole/user-2", adminToken, `{"role":"root"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SetOwnRole", func(t *testing.T) {
		m.users.On("SetRole", mock.Anything, adminID, "user", adminRequester).
			Return(apperr.Validation("role", "you cannot change your own role")).Once()
		w := doJSON(r, http.MethodPost, "/Admin/SetRole/"+adminID, adminToken, `{"role":"user"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	m.apps.AssertExpectations(t)
	m.comments.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func TestAnalyticsHandler_Dashboard(t *testing.T) {
	r, m := setupRouter(t, handler.RouterConfig{})

	m.analytics.On("Dashboard", mock.Anything).Return(&dto.Dashboard{TotalUsers: 3, TotalApplications: 2, TotalDownloads: 7}, nil).Once()

	w := do(r, http.MethodGet, "/api/analytics/dashboard", adminToken, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_users":3`)
	assert.Contains(t, w.Body.String(), `"total_downloads":7`)
	m.analytics.AssertExpectations(t)
}
