package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.png")
	if err := os.WriteFile(path, testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}

	fetcher := NewLocalFileFetcher("")
	ctx := context.Background()

	for _, location := range []string{path, "file://" + filepath.ToSlash(path)} {
		img, err := fetcher.FetchImage(ctx, location)
		if err != nil {
			t.Fatalf("FetchImage(%q): %v", location, err)
		}
		if img.Bounds().Dx() != 4 {
			t.Errorf("unexpected bounds %v", img.Bounds())
		}
	}

	_, err := fetcher.FetchImage(ctx, filepath.Join(dir, "missing.png"))
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("Expected ErrImageNotFound, got %v", err)
	}
}

func TestLocalFileFetcher_Root(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in.png"), testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}
	fetcher := NewLocalFileFetcher(dir)

	if _, err := fetcher.FetchImage(context.Background(), "in.png"); err != nil {
		t.Errorf("relative path inside root should resolve: %v", err)
	}
	if _, err := fetcher.ResolvePath("../escape.png"); err == nil {
		t.Error("Expected path outside root to be rejected")
	}
	if _, err := fetcher.ResolvePath("/etc/passwd"); err == nil {
		t.Error("Expected absolute path outside root to be rejected")
	}
}

func TestLocalFileFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalFileFetcher("").FetchImage(ctx, "whatever.png")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLocalFileFetcher_SymlinkOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.png")
	if err := os.WriteFile(target, testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if err := os.Symlink(target, filepath.Join(dir, "link.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	fetcher := NewLocalFileFetcher(dir)

	// Lexically inside the root, so only the open itself can catch it
	if _, err := fetcher.ResolvePath("link.png"); err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	_, err := fetcher.FetchImage(context.Background(), "link.png")
	if !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("Expected ErrInvalidLocation for symlink leaving the root, got %v", err)
	}

	// Links that stay inside the root still work
	if err := os.WriteFile(filepath.Join(dir, "in.png"), testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("in.png", filepath.Join(dir, "alias.png")); err != nil {
		t.Fatal(err)
	}
	if _, err := fetcher.FetchImage(context.Background(), "alias.png"); err != nil {
		t.Errorf("symlink inside root should resolve: %v", err)
	}
}

func TestLocalFileFetcher_MaxPixels(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in.png"), testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}
	fetcher := NewLocalFileFetcher(dir)
	fetcher.MaxPixels = 2

	_, err := fetcher.FetchImage(context.Background(), "in.png")
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
}
