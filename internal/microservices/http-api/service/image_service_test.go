package service

import (
	"bytes"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"appgambit/internal/apperr"
	"appgambit/internal/imaging"
	"appgambit/internal/microservices/http-api/models"
)

func TestSaveImage_RejectsTextFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.images.SaveImage(env.ctx, fileUpload("notes.txt", "hello"), models.KindScreenshot, imaging.ScreenshotBounds, BlobOwner{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestSaveImage_StoresConvertedFormat(t *testing.T) {
	env := newTestEnv(t)

	shot, err := env.images.SaveImage(env.ctx, pngUpload(t, "shot.png", 40, 20), models.KindScreenshot, imaging.ScreenshotBounds, BlobOwner{})
	require.NoError(t, err)
	assert.Equal(t, imaging.ContentTypeJPEG, shot.ContentType)

	icon, err := env.images.SaveImage(env.ctx, pngUpload(t, "icon.png", 512, 512), models.KindIcon, imaging.IconBounds, BlobOwner{})
	require.NoError(t, err)
	assert.Equal(t, imaging.ContentTypePNG, icon.ContentType)
	require.NotNil(t, icon.Width)
	assert.Equal(t, 256, *icon.Width)

	blob, err := env.images.Open(env.ctx, icon.ID)
	require.NoError(t, err)
	defer blob.Content.Close()
	assert.Equal(t, imaging.ContentTypePNG, blob.Meta.ContentType)

	data, err := io.ReadAll(blob.Content)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 256, cfg.Height)
}

func TestSaveImage_TooLarge(t *testing.T) {
	env := newTestEnv(t, withMaxUpload(64))

	_, err := env.images.SaveImage(env.ctx, pngUpload(t, "big.png", 64, 64), models.KindScreenshot, imaging.ScreenshotBounds, BlobOwner{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSaveFile_AllowList(t *testing.T) {
	env := newTestEnv(t)

	blob, err := env.images.SaveFile(env.ctx, fileUpload("tool.zip", "PK-data"), models.KindAppFile, BlobOwner{})
	require.NoError(t, err)
	assert.Equal(t, "application/zip", blob.ContentType)
	assert.EqualValues(t, 7, blob.Size)

	_, err = env.images.SaveFile(env.ctx, fileUpload("readme.txt", "x"), models.KindAppFile, BlobOwner{})
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestImageService_ObjectStorage(t *testing.T) {
	env := newTestEnv(t, withObjectStore())

	blob, err := env.images.SaveFile(env.ctx, fileUpload("setup.exe", "MZ-binary"), models.KindAppFile, BlobOwner{})
	require.NoError(t, err)
	require.NotEmpty(t, blob.StorageKey)
	assert.True(t, env.objects.has(blob.StorageKey))

	full, err := env.blobRepo.GetByID(env.ctx, blob.ID)
	require.NoError(t, err)
	assert.Empty(t, full.Data, "payload is not duplicated into the database")

	opened, err := env.images.Open(env.ctx, blob.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(opened.Content)
	opened.Content.Close()
	require.NoError(t, err)
	assert.Equal(t, "MZ-binary", string(data))

	require.NoError(t, env.images.Delete(env.ctx, blob.ID))
	assert.False(t, env.objects.has(blob.StorageKey))
	_, err = env.blobRepo.GetMeta(env.ctx, blob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestImageService_IconAndProfileLookups(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "ada")
	icon := pngUpload(t, "icon.png", 32, 32)

	created, err := env.apps.Create(env.ctx, appInput("Painter"), ApplicationUploads{Icon: &icon}, owner.ID)
	require.NoError(t, err)

	blob, err := env.images.ApplicationIcon(env.ctx, created.ID)
	require.NoError(t, err)
	blob.Content.Close()
	assert.Equal(t, *created.IconID, blob.Meta.ID)

	_, err = env.images.ProfileImage(env.ctx, owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.images.Open(env.ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
