package tasks

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/repositories"
	"github.com/desertthunder/achieve/internal/services"
	"github.com/desertthunder/achieve/internal/shared"
	"golang.org/x/time/rate"
)

// TrackerOpts holds the dependencies of a [Tracker]. Accounts and Cipher are nil in local mode.
type TrackerOpts struct {
	Achievements repositories.AchievementStore
	Accounts     repositories.AccountStore
	Cipher       services.PasswordCipher
	Images       services.ImageHost
	Settings     *shared.Settings
	Logger       *log.Logger
	Local        bool
	WriteRate    float64 // deletes per second during a category cascade
}

// Tracker is the storage façade used by the CLI and TUI.
type Tracker struct {
	achievements repositories.AchievementStore
	accounts     repositories.AccountStore
	cipher       services.PasswordCipher
	images       services.ImageHost
	settings     *shared.Settings
	logger       *log.Logger
	local        bool
	writeRate    float64
	session      models.Session
}

// NewTracker creates a Tracker. Missing settings and logger fall back to in-memory defaults and stderr.
func NewTracker(opts TrackerOpts) *Tracker {
	if opts.Settings == nil {
		opts.Settings = shared.DefaultSettings()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.WriteRate <= 0 {
		opts.WriteRate = opts.Settings.Database.DynamoDB.WriteRate
	}
	if opts.WriteRate <= 0 {
		opts.WriteRate = float64(rate.Inf)
	}

	return &Tracker{
		achievements: opts.Achievements,
		accounts:     opts.Accounts,
		cipher:       opts.Cipher,
		images:       opts.Images,
		settings:     opts.Settings,
		logger:       opts.Logger,
		local:        opts.Local,
		writeRate:    opts.WriteRate,
	}
}

func (t *Tracker) Session() models.Session { return t.session }

func (t *Tracker) Local() bool { return t.local }

// ImageHost returns the name of the configured image host, or "" when there is none.
func (t *Tracker) ImageHost() string {
	if t.images == nil {
		return ""
	}
	return t.images.Name()
}

// Authorize checks f against the current session.
func (t *Tracker) Authorize(f Feature) error {
	return Authorize(t.local, t.session, f)
}

func (t *Tracker) requireAccounts() error {
	if err := t.Authorize(FeatureAccount); err != nil {
		return err
	}
	if t.accounts == nil || t.cipher == nil {
		return fmt.Errorf("%w: account store and key service are not configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// SignUp creates an artist account after checking the username is free. The password is stored encrypted.
func (t *Tracker) SignUp(ctx context.Context, username, email, password, confirm string) (*models.Account, error) {
	if err := t.requireAccounts(); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}
	if password != confirm {
		return nil, shared.ErrPasswordsDontMatch
	}

	if _, err := t.accounts.GetAccount(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrUsernameTaken, username)
	} else if !errors.Is(err, shared.ErrAccountNotFound) {
		return nil, err
	}

	encrypted, err := t.cipher.Encrypt(ctx, password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: encrypted,
		Type:     models.AccountArtist,
	}
	if err := t.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	t.logger.Info("created account", "username", username)
	return account, nil
}

// Login verifies the password against the decrypted stored one and starts a session.
//
// With remember set, the username and the stored ciphertext are saved in the account config; otherwise any
// remembered login is cleared.
func (t *Tracker) Login(ctx context.Context, username, password string, remember bool) error {
	if err := t.requireAccounts(); err != nil {
		return err
	}

	account, err := t.verify(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return err
	}

	t.session = models.Session{LoggedIn: true, Username: account.Username, AccountType: account.Type}
	t.logger.Info("logged in", "username", account.Username, "type", account.Type)

	cfg := t.settings.Account
	if remember {
		cfg.Username, cfg.Password, cfg.RememberLogin = account.Username, account.Password, true
	} else {
		cfg.Username, cfg.Password, cfg.RememberLogin = "", "", false
	}
	return t.saveAccount()
}

func (t *Tracker) verify(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := t.accounts.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}

	stored, err := t.cipher.Decrypt(ctx, account.Password)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return nil, fmt.Errorf("%w: %s", shared.ErrIncorrectPassword, username)
	}
	return account, nil
}

// LoginRemembered logs in with the saved credentials, if remember_login is set. It reports whether a session started.
func (t *Tracker) LoginRemembered(ctx context.Context) (bool, error) {
	cfg := t.settings.Account
	if t.local || !cfg.RememberLogin || cfg.Username == "" || cfg.Password == "" {
		return false, nil
	}
	if err := t.requireAccounts(); err != nil {
		return false, err
	}

	password, err := t.cipher.Decrypt(ctx, cfg.Password)
	if err != nil {
		return false, err
	}

	account, err := t.verify(ctx, cfg.Username, password)
	if err != nil {
		return false, err
	}

	t.session = models.Session{LoggedIn: true, Username: account.Username, AccountType: account.Type}
	t.logger.Debug("restored login", "username", account.Username)
	return true, nil
}

// Logout ends the session and forgets any remembered login.
func (t *Tracker) Logout() error {
	t.session = models.Session{}
	cfg := t.settings.Account
	cfg.Username, cfg.Password, cfg.RememberLogin = "", "", false
	return t.saveAccount()
}

func (t *Tracker) saveAccount() error {
	if t.settings.AccountPath == "" {
		return nil
	}
	return t.settings.SaveAccount()
}

// Categories returns the completion of every category, sorted by name.
func (t *Tracker) Categories(ctx context.Context) ([]models.CategoryProgress, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}

	achievements, err := t.achievements.ScanProgress(ctx)
	if err != nil {
		return nil, err
	}
	return models.Completion(achievements), nil
}

// Achievements lists the achievements of one category.
func (t *Tracker) Achievements(ctx context.Context, category string) ([]models.Achievement, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}
	return t.achievements.ListByCategory(ctx, category)
}

func (t *Tracker) Achievement(ctx context.Context, key models.AchievementKey) (*models.Achievement, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}
	return t.achievements.GetAchievement(ctx, key)
}

// IsUnique reports whether no achievement has key. This is a point lookup, not a reservation.
func (t *Tracker) IsUnique(ctx context.Context, key models.AchievementKey) (bool, error) {
	_, err := t.achievements.GetAchievement(ctx, key)
	switch {
	case errors.Is(err, shared.ErrAchievementNotFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// NewAchievementInput describes an achievement to create. Image is optional.
type NewAchievementInput struct {
	Title       string
	Category    string
	Description string
	MaxProg     int
	Image       io.Reader
}

// CreateAchievement writes a new achievement with no progress after checking its key is unique.
//
// When an image is given it is uploaded first; an upload failure is logged and the achievement is created with
// [models.NoImage] so an artist can supply the image later.
func (t *Tracker) CreateAchievement(ctx context.Context, in NewAchievementInput) (*models.Achievement, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}

	a := models.NewAchievement(in.Title, in.Category, in.Description, in.MaxProg)
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	unique, err := t.IsUnique(ctx, a.Key())
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, fmt.Errorf("%w: %s", shared.ErrDuplicateAchievement, a.Key())
	}

	if in.Image != nil {
		if url, err := t.upload(ctx, a.Key(), in.Image); err != nil {
			t.logger.Warn("image upload failed, creating without image", "achievement", a.Key(), "error", err)
		} else {
			a.ImageURL = url
		}
	}

	if err := t.achievements.CreateAchievement(ctx, a); err != nil {
		return nil, err
	}

	t.logger.Info("created achievement", "title", a.Title, "category", a.Category, "image", a.HasImage())
	return a, nil
}

func (t *Tracker) DeleteAchievement(ctx context.Context, key models.AchievementKey) error {
	if err := t.Authorize(FeatureCategories); err != nil {
		return err
	}
	if err := t.achievements.DeleteAchievement(ctx, key); err != nil {
		return err
	}

	t.logger.Info("deleted achievement", "title", key.Title, "category", key.Category)
	return nil
}

// SetProgress sets currentProg, which must lie in 0..maxProg.
func (t *Tracker) SetProgress(ctx context.Context, key models.AchievementKey, current int) (*models.Achievement, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}

	a, err := t.achievements.GetAchievement(ctx, key)
	if err != nil {
		return nil, err
	}
	if current < 0 || current > a.MaxProg {
		return nil, fmt.Errorf("%w: %d not in 0..%d", shared.ErrInvalidProgress, current, a.MaxProg)
	}

	if err := t.achievements.UpdateProgress(ctx, key, current); err != nil {
		return nil, err
	}
	a.CurrentProg = current
	return a, nil
}

// PendingImages lists achievements still waiting for an image, sorted by category then title.
func (t *Tracker) PendingImages(ctx context.Context) ([]models.AchievementKey, error) {
	if err := t.Authorize(FeatureImages); err != nil {
		return nil, err
	}

	keys, err := t.achievements.ListWithoutImage(ctx)
	if err != nil {
		return nil, err
	}
	models.SortKeys(keys)
	return keys, nil
}

// AttachImage uploads r as the image of an existing achievement and stores its URL.
func (t *Tracker) AttachImage(ctx context.Context, key models.AchievementKey, r io.Reader) (string, error) {
	if err := t.Authorize(FeatureImages); err != nil {
		return "", err
	}

	if _, err := t.achievements.GetAchievement(ctx, key); err != nil {
		return "", err
	}

	url, err := t.upload(ctx, key, r)
	if err != nil {
		return "", err
	}

	if err := t.achievements.UpdateImage(ctx, key, url); err != nil {
		return "", err
	}

	t.logger.Info("attached image", "achievement", key, "url", url)
	return url, nil
}

func (t *Tracker) upload(ctx context.Context, key models.AchievementKey, r io.Reader) (string, error) {
	if t.images == nil {
		return "", fmt.Errorf("%w: no image host configured", shared.ErrMissingConfig)
	}

	contentType, body, err := services.DetectContentType(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read image: %v", shared.ErrImageUpload, err)
	}
	return t.images.Upload(ctx, key.ImageName(), contentType, body)
}
