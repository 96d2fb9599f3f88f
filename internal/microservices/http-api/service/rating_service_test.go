package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appgambit/internal/apperr"
	"appgambit/internal/microservices/http-api/models"
)

func TestRate_UpsertKeepsOneRow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	fan := env.user(t, "fan")
	app := env.app(t, owner, "Editor")

	first, err := env.ratings.Rate(env.ctx, app.ID, fan.ID, 2, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Summary.Dislikes)

	second, err := env.ratings.Rate(env.ctx, app.ID, fan.ID, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Value)
	assert.True(t, second.IsLike)
	assert.EqualValues(t, 1, second.Summary.TotalRatings)
	assert.EqualValues(t, 1, second.Summary.Likes)
	assert.EqualValues(t, 0, second.Summary.Dislikes)

	var n int64
	require.NoError(t, env.db.Model(&models.Rating{}).Where("application_id = ?", app.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	stored, err := env.ratings.UserRating(env.ctx, app.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Value)
	assert.True(t, stored.IsLike)
}

func TestRate_AverageIsMean(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	app := env.app(t, owner, "Editor")

	summary, err := env.ratings.Summary(env.ctx, app.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.AverageRating)
	assert.Zero(t, summary.TotalRatings)

	for i, v := range []int{1, 4, 4} {
		u := env.user(t, "rater"+string(rune('a'+i)))
		_, err := env.ratings.Rate(env.ctx, app.ID, u.ID, v, v > 3)
		require.NoError(t, err)
	}

	summary, err = env.ratings.Summary(env.ctx, app.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, summary.AverageRating, 1e-9)
	assert.EqualValues(t, 3, summary.TotalRatings)
	assert.EqualValues(t, 2, summary.Likes)
	assert.EqualValues(t, 1, summary.Dislikes)
}

func TestRate_Validation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	app := env.app(t, owner, "Editor")

	for _, v := range []int{0, 6, -1} {
		_, err := env.ratings.Rate(env.ctx, app.ID, owner.ID, v, true)
		assert.ErrorIs(t, err, apperr.ErrValidation, "value %d", v)
	}

	_, err := env.ratings.Rate(env.ctx, app.ID+100, owner.ID, 3, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRating(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	app := env.app(t, owner, "Editor")

	_, err := env.ratings.Rate(env.ctx, app.ID, owner.ID, 3, true)
	require.NoError(t, err)
	require.NoError(t, env.ratings.DeleteRating(env.ctx, app.ID, owner.ID))

	assert.ErrorIs(t, env.ratings.DeleteRating(env.ctx, app.ID, owner.ID), apperr.ErrNotFound)
	_, err = env.ratings.UserRating(env.ctx, app.ID, owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
