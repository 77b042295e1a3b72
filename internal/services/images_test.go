package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/achieve/internal/shared"
	tu "github.com/desertthunder/achieve/internal/testing"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "jpeg", data: tu.JPEGHeader, want: "image/jpeg"},
		{name: "png", data: tu.PNGHeader, want: "image/png"},
		{name: "gif", data: []byte("GIF89a...."), want: "image/gif"},
		{name: "text falls back to jpeg", data: []byte("hello world"), want: DefaultContentType},
		{name: "empty", data: nil, want: DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, r, err := DetectContentType(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ct != tt.want {
				t.Errorf("expected %s, got %s", tt.want, ct)
			}

			all, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if !bytes.Equal(all, tt.data) {
				t.Error("returned reader must yield the full content")
			}
		})
	}

	t.Run("read error", func(t *testing.T) {
		if _, _, err := DetectContentType(&tu.FReader{}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestS3ImageHost(t *testing.T) {
	ctx := context.Background()

	t.Run("requires bucket", func(t *testing.T) {
		if _, err := NewS3ImageHost(tu.NewFakeS3(), "", "", ""); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("uploads under images prefix", func(t *testing.T) {
		fake := tu.NewFakeS3()
		host, err := NewS3ImageHost(fake, "achieve-images", "eu-west-1", "")
		if err != nil {
			t.Fatalf("NewS3ImageHost failed: %v", err)
		}

		u, err := host.Upload(ctx, "Games_Beat It", "image/png", bytes.NewReader(tu.PNGHeader))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}

		key := "achieve-images/images/Games_Beat_It"
		if !bytes.Equal(fake.Objects[key], tu.PNGHeader) {
			t.Errorf("object not stored at %s", key)
		}
		if fake.Types[key] != "image/png" {
			t.Errorf("unexpected content type %q", fake.Types[key])
		}
		if u != "https://achieve-images.s3.eu-west-1.amazonaws.com/images/Games_Beat_It" {
			t.Errorf("unexpected url %s", u)
		}
	})

	t.Run("custom endpoint", func(t *testing.T) {
		host, _ := NewS3ImageHost(tu.NewFakeS3(), "b", "", "http://localhost:4566/")
		if got := host.URL("images/x"); got != "http://localhost:4566/b/images/x" {
			t.Errorf("unexpected url %s", got)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		fake := tu.NewFakeS3()
		fake.Err = fmt.Errorf("access denied")
		host, _ := NewS3ImageHost(fake, "b", "", "")
		if _, err := host.Upload(ctx, "x", "image/jpeg", bytes.NewReader(nil)); !errors.Is(err, shared.ErrImageUpload) {
			t.Errorf("expected ErrImageUpload, got %v", err)
		}
	})
}

func TestLocalImageHost(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file and returns file url", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "images")
		host := NewLocalImageHost(dir)

		raw, err := host.Upload(ctx, "Games_Beat It", "image/jpeg", bytes.NewReader(tu.JPEGHeader))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid url %q: %v", raw, err)
		}
		if u.Scheme != "file" {
			t.Errorf("expected file scheme, got %s", u.Scheme)
		}

		path := filepath.FromSlash(u.Path)
		tu.AssertFileExists(t, path)
		if !strings.HasPrefix(filepath.Base(path), "Games_Beat_It_") || filepath.Ext(path) != ".jpg" {
			t.Errorf("unexpected file name %s", filepath.Base(path))
		}
		if tu.MustReadFile(t, path) != string(tu.JPEGHeader) {
			t.Error("file content mismatch")
		}
	})

	t.Run("same name twice gives distinct files", func(t *testing.T) {
		dir := t.TempDir()
		host := NewLocalImageHost(dir)

		a, _ := host.Upload(ctx, "x", "image/png", bytes.NewReader(tu.PNGHeader))
		b, _ := host.Upload(ctx, "x", "image/png", bytes.NewReader(tu.PNGHeader))
		if a == b {
			t.Error("expected distinct urls")
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 2 {
			t.Errorf("expected 2 files, got %d", len(entries))
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := NewLocalImageHost(t.TempDir()).Upload(cctx, "x", "image/png", bytes.NewReader(nil)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestS3Region(t *testing.T) {
	dynamo := shared.DynamoDBConfig{Region: "eu-west-1"}

	if got := S3Region(dynamo, shared.ImagesConfig{}); got != "eu-west-1" {
		t.Errorf("expected dynamodb region, got %s", got)
	}
	if got := S3Region(dynamo, shared.ImagesConfig{S3Region: "us-west-2"}); got != "us-west-2" {
		t.Errorf("expected images.s3_region, got %s", got)
	}
}
