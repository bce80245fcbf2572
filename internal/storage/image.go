// Package storage keeps uploaded study room pictures on the local disk.
// Every upload is decoded, downscaled to fit MaxWidth x MaxHeight and
// re-encoded as JPEG, so what gets served is never the raw client bytes.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	MaxWidth    = 1280
	MaxHeight   = 1280
	JPEGQuality = 85
	// MaxUploadBytes bounds how much of an upload is read.
	MaxUploadBytes = 10 << 20

	roomDir = "study-rooms"
)

// ErrInvalidImage is returned when the upload is not a decodable image or
// is too large.
var ErrInvalidImage = errors.New("invalid image")

// ImageStore writes pictures under Dir and serves them from BaseURL.
type ImageStore struct {
	Dir     string
	BaseURL string
}

func NewImageStore(dir, baseURL string) *ImageStore {
	return &ImageStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// SaveRoomImage stores r as Dir/study-rooms/<uuid>.jpg and returns its URL.
func (s *ImageStore) SaveRoomImage(ctx context.Context, r io.Reader) (string, error) {
	lr := &io.LimitedReader{R: r, N: MaxUploadBytes + 1}
	img, err := imaging.Decode(lr, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if lr.N <= 0 {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxUploadBytes)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b := img.Bounds()
	if b.Dx() > MaxWidth || b.Dy() > MaxHeight {
		img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
	}

	dir := filepath.Join(s.Dir, roomDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ".jpg"
	full := filepath.Join(dir, name)
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close image: %w", err)
	}
	return s.BaseURL + "/" + path.Join(roomDir, name), nil
}

// Remove deletes the file behind url.  URLs that do not point into the
// store are ignored, as are files that are already gone.
func (s *ImageStore) Remove(url string) error {
	rel, ok := strings.CutPrefix(url, s.BaseURL+"/")
	if !ok {
		return nil
	}
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || path.Dir(rel) != roomDir {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
