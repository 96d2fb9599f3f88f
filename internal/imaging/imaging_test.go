package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appgambit/internal/apperr"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCheckImage(t *testing.T) {
	ext, err := CheckImage("Screen Shot.PNG")
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, err = CheckImage("notes.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.True(t, errors.Is(err, apperr.ErrUnsupportedType))

	var unsupported *apperr.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".txt", unsupported.Extension)

	_, err = CheckImage("noext")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckFile(t *testing.T) {
	for _, name := range []string{"setup.exe", "tool.tar.gz", "My.AppImage", "game.apk"} {
		_, err := CheckFile(name)
		assert.NoError(t, err, name)
	}
	_, err := CheckFile("icon.png")
	assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
}

func TestFit(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		bound Bounds
		wantW int
		wantH int
	}{
		{"smaller stays", 100, 50, IconBounds, 100, 50},
		{"wide shrinks by width", 2560, 720, ScreenshotBounds, 1280, 360},
		{"tall shrinks by height", 1000, 2000, ScreenshotBounds, 360, 720},
		{"square icon", 1024, 1024, IconBounds, 256, 256},
		{"unbounded axis", 4000, 10, Bounds{Height: 5}, 2000, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.bound)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestProcess_IconEncodesPNGWithinBounds(t *testing.T) {
	res, err := Process(pngBytes(t, 512, 256), ".png", IconBounds, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, ContentTypePNG, res.ContentType)
	assert.Equal(t, 256, res.Width)
	assert.Equal(t, 128, res.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 256, cfg.Width)
}

func TestProcess_ScreenshotEncodesJPEG(t *testing.T) {
	res, err := Process(pngBytes(t, 64, 32), ".png", ScreenshotBounds, FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJPEG, res.ContentType)
	assert.Equal(t, ".jpg", res.Ext)

	_, err = jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, res.Width, "never upscaled")
}

func TestProcess_IcoPassesThrough(t *testing.T) {
	raw := []byte{0, 0, 1, 0, 1, 0}
	res, err := Process(raw, ".ico", IconBounds, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, raw, res.Data)
	assert.Equal(t, ContentTypeICO, res.ContentType)
}

func TestProcess_GarbageIsValidationError(t *testing.T) {
	_, err := Process([]byte("not an image"), ".png", IconBounds, FormatPNG)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// pngHeader returns a PNG signature and IHDR chunk claiming w x h grayscale
// pixels, with no image data behind it.
func pngHeader(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	binary.Write(&ihdr, binary.BigEndian, w)
	binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 0, 0, 0, 0}) // 8-bit gray, no interlace

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(ihdr.Len()-4))
	buf.Write(ihdr.Bytes())
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return buf.Bytes()
}

func TestProcess_RejectsOversizedDimensions(t *testing.T) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngHeader(12000, 12000)))
	require.NoError(t, err, "header must be well formed")
	require.Equal(t, 12000, cfg.Width)

	_, err = Process(pngHeader(12000, 12000), ".png", ScreenshotBounds, FormatJPEG)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "file", verr.Field)
	assert.Contains(t, verr.Message, "12000x12000")
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadLimited(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ReadLimited(failingReader{}, 5)
	assert.ErrorIs(t, err, apperr.ErrIO)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }
