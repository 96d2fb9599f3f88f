package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"appgambit/internal/apperr"
	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/handler"
	"appgambit/internal/microservices/http-api/models"
)

func TestRatingHandler_Rate(t *testing.T) {
	r, m := setupRouter(t, handler.RouterConfig{})

	t.Run("Success", func(t *testing.T) {
		summary := models.RatingSummary{AverageRating: 4, TotalRatings: 1, Likes: 1}
		m.ratings.On("Rate", mock.Anything, int64(3), userID, 4, true).
			Return(&dto.RatingResponse{ApplicationID: 3, Value: 4, IsLike: true, Summary: summary}, nil).Once()

		w := doJSON(r, http.MethodPost, "/Applications/Rate/3", userToken, `{"value":4,"is_like":true}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"value":4`)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		for _, body := range []string{`{"value":0}`, `{"value":6}`, `{}`} {
			w := doJSON(r, http.MethodPost, "/Applications/Rate/3", userToken, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("UnknownApplication", func(t *testing.T) {
		m.ratings.On("Rate", mock.Anything, int64(404), userID, 5, false).Return(nil, apperr.NotFound("application")).Once()

		w := doJSON(r, http.MethodPost, "/Applications/Rate/404", userToken, `{"value":5}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	m.ratings.AssertExpectations(t)
}

func TestRatingHandler_DeleteAndSummary(t *testing.T) {
	r, m := setupRouter(t, handler.RouterConfig{})

	m.ratings.On("DeleteRating", mock.Anything, int64(3), userID).Return(nil).Once()
	w := do(r, http.MethodPost, "/Applications/DeleteRating/3", userToken, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	m.ratings.On("Summary", mock.Anything, int64(3)).Return(models.RatingSummary{AverageRating: 3.5, TotalRatings: 2, Likes: 1, Dislikes: 1}, nil).Once()
	w = do(r, http.MethodGet, "/Applications/Rating/3", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3.5")

	m.ratings.AssertExpectations(t)
}
