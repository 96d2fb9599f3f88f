// Package imaging validates uploads and shrinks images to fit display bounds.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"appgambit/internal/apperr"
)

const (
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeICO  = "image/x-icon"

	jpegQuality = 85

	// MaxPixels caps decoded width*height; the byte limit says nothing about
	// the pixel buffer a compressed image expands to.
	MaxPixels = 40_000_000
)

var (
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".ico"}
	FileExtensions  = []string{".zip", ".rar", ".7z", ".exe", ".msi", ".apk", ".dmg", ".deb", ".rpm", ".jar", ".gz", ".tgz", ".appimage"}
)

// Bounds is the box an image is scaled to fit.
type Bounds struct {
	Width  int
	Height int
}

var (
	IconBounds       = Bounds{Width: 256, Height: 256}
	ScreenshotBounds = Bounds{Width: 1280, Height: 720}
	ProfileBounds    = Bounds{Width: 256, Height: 256}
)

type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

// Result is an encoded image ready to store.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	// zero for pass-through icons
	Width  int
	Height int
}

// Extension returns the lower-cased final extension of name.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// CheckImage validates name against the image allow-list.
func CheckImage(name string) (string, error) {
	return check(name, ImageExtensions)
}

// CheckFile validates name against the package allow-list.
func CheckFile(name string) (string, error) {
	return check(name, FileExtensions)
}

func check(name string, allowed []string) (string, error) {
	ext := Extension(name)
	for _, a := range allowed {
		if ext == a {
			return ext, nil
		}
	}
	return "", &apperr.UnsupportedTypeError{Extension: ext, Allowed: allowed}
}

// Fit scales (w, h) down to fit within bound, preserving aspect ratio.
// It never scales up. A non-positive bound leaves that axis unconstrained.
func Fit(w, h int, bound Bounds) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	scale := 1.0
	if bound.Width > 0 && w > bound.Width {
		scale = float64(bound.Width) / float64(w)
	}
	if bound.Height > 0 && h > bound.Height {
		if s := float64(bound.Height) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return w, h
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Process decodes data, fits it within bound and re-encodes it in format.
// .ico files are returned unchanged.
func Process(data []byte, ext string, bound Bounds, format Format) (*Result, error) {
	if ext == ".ico" {
		return &Result{Data: data, ContentType: ContentTypeICO, Ext: ".ico"}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("file", "cannot decode image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, apperr.Validation("file", "image dimensions %dx%d exceed the %d pixel limit", cfg.Width, cfg.Height, MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("file", "cannot decode image: %v", err)
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), bound)

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return &Result{Data: buf.Bytes(), ContentType: ContentTypePNG, Ext: ".png", Width: w, Height: h}, nil
	default:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		// JPEG has no alpha; composite onto white
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return &Result{Data: buf.Bytes(), ContentType: ContentTypeJPEG, Ext: ".jpg", Width: w, Height: h}, nil
	}
}

// ReadLimited reads r fully, failing with a ValidationError past limit bytes.
// limit <= 0 disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, apperr.IO("read upload", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperr.IO("read upload", err)
	}
	if int64(len(data)) > limit {
		return nil, apperr.Validation("file", "file exceeds the %d byte limit", limit)
	}
	return data, nil
}

// ContentTypeForFile picks a content type for a package download.
func ContentTypeForFile(ext string) string {
	switch ext {
	case ".zip":
		return "application/zip"
	case ".apk":
		return "application/vnd.android.package-archive"
	case ".jar":
		return "application/java-archive"
	case ".gz", ".tgz":
		return "application/gzip"
	case ".7z":
		return "application/x-7z-compressed"
	case ".rar":
		return "application/vnd.rar"
	case ".msi":
		return "application/x-msi"
	case ".deb":
		return "application/vnd.debian.binary-package"
	case ".rpm":
		return "application/x-rpm"
	default:
		return "application/octet-stream"
	}
}
