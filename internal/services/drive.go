package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/achieve/internal/shared"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveAPI is the part of the Drive v3 API used to publish an image.
type DriveAPI interface {
	CreateFile(ctx context.Context, file *drive.File, media io.Reader, contentType string) (*drive.File, error)
	CreatePermission(ctx context.Context, fileID string, perm *drive.Permission) error
}

type driveService struct {
	svc *drive.Service
}

func (d *driveService) CreateFile(ctx context.Context, file *drive.File, media io.Reader, contentType string) (*drive.File, error) {
	return d.svc.Files.Create(file).
		Media(media, googleapi.ContentType(contentType)).
		Fields("id, webContentLink").
		Context(ctx).
		Do()
}

func (d *driveService) CreatePermission(ctx context.Context, fileID string, perm *drive.Permission) error {
	_, err := d.svc.Permissions.Create(fileID, perm).Context(ctx).Do()
	return err
}

// DriveImageHost uploads images to Google Drive and shares them with anyone holding the link.
type DriveImageHost struct {
	api DriveAPI
}

// NewDriveImageHost creates a host over an existing [DriveAPI].
func NewDriveImageHost(api DriveAPI) *DriveImageHost {
	return &DriveImageHost{api: api}
}

// NewDriveImageHostFromToken authenticates with the cached token in store, refreshing (and re-saving) it as needed.
func NewDriveImageHostFromToken(ctx context.Context, config *oauth2.Config, store *TokenStore) (*DriveImageHost, error) {
	token, err := store.Load()
	if err != nil {
		return nil, err
	}

	ts := &savingTokenSource{base: config.TokenSource(ctx, token), store: store, last: token}
	svc, err := drive.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(token, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewDriveImageHost(&driveService{svc: svc}), nil
}

func (h *DriveImageHost) Name() string { return "Google Drive" }

// Upload creates the file and grants anyone/reader on it, returning its webContentLink.
func (h *DriveImageHost) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	file, err := h.api.CreateFile(ctx, &drive.File{Name: name, MimeType: contentType}, r, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrImageUpload, err)
	}

	if err := h.api.CreatePermission(ctx, file.Id, &drive.Permission{Type: "anyone", Role: "reader"}); err != nil {
		return "", fmt.Errorf("%w: failed to share %s: %v", shared.ErrImageUpload, file.Id, err)
	}

	if file.WebContentLink == "" {
		return "", fmt.Errorf("%w: drive returned no link for %s", shared.ErrImageUpload, file.Id)
	}
	return file.WebContentLink, nil
}

// NewDriveOAuthConfig builds the OAuth client for the Drive file scope with a loopback redirect.
func NewDriveOAuthConfig(c shared.DriveConfig) (*oauth2.Config, error) {
	secret := c.Secret()
	if c.ClientID == "" || secret == "" {
		return nil, fmt.Errorf("%w: drive.client_id and drive.client_secret are required", shared.ErrMissingCredentials)
	}

	port := c.RedirectPort
	if port == 0 {
		port = 8888
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: secret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", port),
		Scopes:       []string{drive.DriveFileScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// TokenStore persists an OAuth token as JSON.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

func (s *TokenStore) Path() string { return s.path }

// Load returns the cached token or [shared.ErrNotAuthenticated] when none has been saved.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no drive token at %s, run 'achieve images auth'", shared.ErrNotAuthenticated, s.path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

func (s *TokenStore) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// savingTokenSource writes refreshed tokens back to the store.
type savingTokenSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if err := s.store.Save(token); err != nil {
			return nil, err
		}
		s.last = token
	}
	return token, nil
}
