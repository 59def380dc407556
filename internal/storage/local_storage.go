package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidLocation is returned for malformed file URLs and paths outside the root
var ErrInvalidLocation = errors.New("invalid file location")

// LocalFileFetcher implements ImageFetcher for file:// URLs and bare paths
type LocalFileFetcher struct {
	// root confines lookups when non-empty
	root string

	// MaxPixels caps width*height of decoded images; zero means unlimited
	MaxPixels int64
}

// NewLocalFileFetcher creates a fetcher. A non-empty root rejects paths
// outside of it, including symlinks that resolve outside of it.
func NewLocalFileFetcher(root string) *LocalFileFetcher {
	if root != "" {
		root = filepath.Clean(root)
	}
	return &LocalFileFetcher{root: root, MaxPixels: DefaultMaxImagePixels}
}

// ResolvePath maps a file:// URL or plain path to a cleaned filesystem path
func (l *LocalFileFetcher) ResolvePath(location string) (string, error) {
	path := location
	if strings.HasPrefix(location, "file:") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
		path = u.Path
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidLocation)
	}
	path = filepath.Clean(path)

	if l.root != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.root, path)
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q is outside of %q", ErrInvalidLocation, location, l.root)
		}
	}
	return path, nil
}

// FetchImage opens and decodes a local image
func (l *LocalFileFetcher) FetchImage(ctx context.Context, location string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.ResolvePath(location)
	if err != nil {
		return nil, err
	}

	f, err := l.open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrImageNotFound)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err := DecodeImageLimited(f, l.MaxPixels)
	return img, err
}

// open goes through os.Root when a root is set so that symlinks cannot
// leave it
func (l *LocalFileFetcher) open(path string) (*os.File, error) {
	if l.root == "" {
		return os.Open(path)
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	root, err := os.OpenRoot(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to open image root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return f, nil
}
