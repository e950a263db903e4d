// Package media stores uploaded profile photos on local disk and serves
// them back under a public URL prefix.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MaxPhotoBytes caps a single upload
const MaxPhotoBytes = 5 << 20

// URLPrefix is where the router mounts Handler
const URLPrefix = "/media/"

var (
	ErrTooLarge       = errors.New("file is too large")
	ErrUnsupported    = errors.New("unsupported image type")
	ErrInvalidPath    = errors.New("invalid media path")
	allowedExtensions = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
)

// Storage writes files below dir and builds links below baseURL
type Storage struct {
	dir     string
	baseURL string
}

// NewLocal creates dir if needed
func NewLocal(dir, publicURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Storage{dir: dir, baseURL: strings.TrimRight(publicURL, "/") + strings.TrimRight(URLPrefix, "/")}, nil
}

// Upload sniffs the content type, writes the file under name with the
// matching extension and returns its public URL. An existing file with the
// same name is replaced atomically.
func (s *Storage) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext, ok := allowedExtensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupported
	}
	clean += ext

	target := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}

	log.Printf("📷 Media: stored %s (%d bytes)", clean, len(data))
	return s.URL(clean), nil
}

// URL is the public link for a stored name
func (s *Storage) URL(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(path.Clean("/"+name), "/")
}

// Handler serves stored files; mount it at URLPrefix
func (s *Storage) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(http.Dir(s.dir)))
}

// PhotoName is the storage name of a user's profile photo, without extension
func PhotoName(userID string) string {
	return "photos/" + userID
}

func cleanName(name string) (string, error) {
	if name == "" || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(clean, "/.") {
		return "", ErrInvalidPath
	}
	return strings.TrimPrefix(clean, "/"), nil
}
