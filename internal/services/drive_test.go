package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"

	"github.com/desertthunder/achieve/internal/shared"
	tu "github.com/desertthunder/achieve/internal/testing"
)

type fakeDrive struct {
	files     map[string][]byte
	perms     map[string]*drive.Permission
	createErr error
	permErr   error
	noLink    bool
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string][]byte), perms: make(map[string]*drive.Permission)}
}

func (f *fakeDrive) CreateFile(_ context.Context, file *drive.File, media io.Reader, _ string) (*drive.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	data, err := io.ReadAll(media)
	if err != nil {
		return nil, err
	}
	id := fmt.Sprintf("file-%d", len(f.files)+1)
	f.files[id] = data

	out := &drive.File{Id: id, Name: file.Name}
	if !f.noLink {
		out.WebContentLink = "https://drive.google.com/uc?id=" + id + "&export=download"
	}
	return out, nil
}

func (f *fakeDrive) CreatePermission(_ context.Context, fileID string, perm *drive.Permission) error {
	if f.permErr != nil {
		return f.permErr
	}
	f.perms[fileID] = perm
	return nil
}

func TestDriveImageHost(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads and shares", func(t *testing.T) {
		api := newFakeDrive()
		host := NewDriveImageHost(api)
		if host.Name() != "Google Drive" {
			t.Errorf("unexpected name %s", host.Name())
		}

		link, err := host.Upload(ctx, "Games_Beat It", "image/jpeg", bytes.NewReader(tu.JPEGHeader))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if link != "https://drive.google.com/uc?id=file-1&export=download" {
			t.Errorf("unexpected link %s", link)
		}

		perm := api.perms["file-1"]
		if perm == nil || perm.Type != "anyone" || perm.Role != "reader" {
			t.Errorf("expected anyone/reader permission, got %+v", perm)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		api := newFakeDrive()
		api.createErr = fmt.Errorf("quota")
		if _, err := NewDriveImageHost(api).Upload(ctx, "x", "image/jpeg", bytes.NewReader(nil)); !errors.Is(err, shared.ErrImageUpload) {
			t.Errorf("expected ErrImageUpload, got %v", err)
		}
	})

	t.Run("permission failure", func(t *testing.T) {
		api := newFakeDrive()
		api.permErr = fmt.Errorf("forbidden")
		if _, err := NewDriveImageHost(api).Upload(ctx, "x", "image/jpeg", bytes.NewReader(nil)); !errors.Is(err, shared.ErrImageUpload) {
			t.Errorf("expected ErrImageUpload, got %v", err)
		}
	})

	t.Run("missing link", func(t *testing.T) {
		api := newFakeDrive()
		api.noLink = true
		if _, err := NewDriveImageHost(api).Upload(ctx, "x", "image/jpeg", bytes.NewReader(nil)); !errors.Is(err, shared.ErrImageUpload) {
			t.Errorf("expected ErrImageUpload, got %v", err)
		}
	})
}

func TestNewDriveOAuthConfig(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		t.Setenv("ACHIEVE_DRIVE_CLIENT_SECRET", "")
		if _, err := NewDriveOAuthConfig(shared.DriveConfig{ClientID: "id"}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("builds loopback config", func(t *testing.T) {
		t.Setenv("ACHIEVE_DRIVE_CLIENT_SECRET", "")
		cfg, err := NewDriveOAuthConfig(shared.DriveConfig{ClientID: "id", ClientSecret: "secret", RedirectPort: 9999})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RedirectURL != "http://localhost:9999/callback" {
			t.Errorf("unexpected redirect %s", cfg.RedirectURL)
		}
		if len(cfg.Scopes) != 1 || cfg.Scopes[0] != drive.DriveFileScope {
			t.Errorf("unexpected scopes %v", cfg.Scopes)
		}
	})

	t.Run("env secret wins", func(t *testing.T) {
		t.Setenv("ACHIEVE_DRIVE_CLIENT_SECRET", "from-env")
		cfg, err := NewDriveOAuthConfig(shared.DriveConfig{ClientID: "id"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ClientSecret != "from-env" {
			t.Errorf("expected env secret, got %s", cfg.ClientSecret)
		}
		if cfg.RedirectURL != "http://localhost:8888/callback" {
			t.Errorf("expected default port, got %s", cfg.RedirectURL)
		}
	})
}

func TestTokenStore(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "drive.json"))
		if _, err := store.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		store := NewTokenStore(filepath.Join(t.TempDir(), "tokens", "drive.json"))
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		if err := store.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		token, err := store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if token.AccessToken != "a" || token.RefreshToken != "r" || !token.Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("corrupt token", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "drive.json")
		tu.MustWriteFile(t, path, []byte("{not json"))
		if _, err := NewTokenStore(path).Load(); err == nil {
			t.Error("expected error")
		}
	})
}

type staticSource struct{ token *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.token, nil }

func TestSavingTokenSource(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "drive.json"))
	old := &oauth2.Token{AccessToken: "old"}
	ts := &savingTokenSource{base: staticSource{&oauth2.Token{AccessToken: "new"}}, store: store, last: old}

	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved.AccessToken != "new" {
		t.Errorf("expected refreshed token to be saved, got %s", saved.AccessToken)
	}
}
