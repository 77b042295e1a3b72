package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository is the local store used when use_local is set.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new [SQLiteRepository] with the given (migrated) database connection
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// constraintErr maps SQLite constraint violations to a shared sentinel: duplicate for key
// collisions and [shared.ErrInvalidProgress] for the progress CHECK. Other errors map to nil.
func constraintErr(err error, duplicate error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return nil
	}

	switch se.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return duplicate
	case sqlite3.ErrConstraintCheck:
		return shared.ErrInvalidProgress
	}
	return nil
}

func (r *SQLiteRepository) GetAchievement(ctx context.Context, key models.AchievementKey) (*models.Achievement, error) {
	query := `
		SELECT title, category, description, max_prog, current_prog, image_url
		FROM achievements
		WHERE title = ? AND category = ?
	`

	var a models.Achievement
	err := r.db.QueryRowContext(ctx, query, key.Title, key.Category).
		Scan(&a.Title, &a.Category, &a.Description, &a.MaxProg, &a.CurrentProg, &a.ImageURL)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrAchievementNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement: %w", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO achievements (title, category, description, max_prog, current_prog, image_url) VALUES (?, ?, ?, ?, ?, ?)
	`

	image := a.ImageURL
	if image == "" {
		image = models.NoImage
	}

	_, err := r.db.ExecContext(ctx, query, a.Title, a.Category, a.Description, a.MaxProg, a.CurrentProg, image)
	if err != nil {
		if sentinel := constraintErr(err, shared.ErrDuplicateAchievement); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, a.Key())
		}
		return fmt.Errorf("failed to insert achievement: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAchievement(ctx context.Context, key models.AchievementKey) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM achievements WHERE title = ? AND category = ?", key.Title, key.Category)
	if err != nil {
		return fmt.Errorf("failed to delete achievement: %w", err)
	}
	return requireRow(result, key)
}

func (r *SQLiteRepository) ScanProgress(ctx context.Context) ([]models.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category, current_prog, max_prog FROM achievements")
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.Category, &a.CurrentProg, &a.MaxProg); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (r *SQLiteRepository) ListByCategory(ctx context.Context, category string) ([]models.Achievement, error) {
	query := `
		SELECT title, category, description, max_prog, current_prog, image_url
		FROM achievements
		WHERE category = ?
		ORDER BY title
	`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.Title, &a.Category, &a.Description, &a.MaxProg, &a.CurrentProg, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (r *SQLiteRepository) CategoryKeys(ctx context.Context, category string) ([]models.AchievementKey, error) {
	return r.keys(ctx, "SELECT title, category FROM achievements WHERE category = ? ORDER BY title", category)
}

func (r *SQLiteRepository) ListWithoutImage(ctx context.Context) ([]models.AchievementKey, error) {
	return r.keys(ctx, "SELECT title, category FROM achievements WHERE image_url = ? ORDER BY category, title", models.NoImage)
}

func (r *SQLiteRepository) keys(ctx context.Context, query string, args ...any) ([]models.AchievementKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []models.AchievementKey
	for rows.Next() {
		var k models.AchievementKey
		if err := rows.Scan(&k.Title, &k.Category); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) UpdateImage(ctx context.Context, key models.AchievementKey, url string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE achievements SET image_url = ?, updated_at = CURRENT_TIMESTAMP WHERE title = ? AND category = ?",
		url, key.Title, key.Category)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}
	return requireRow(result, key)
}

func (r *SQLiteRepository) UpdateProgress(ctx context.Context, key models.AchievementKey, current int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE achievements SET current_prog = ?, updated_at = CURRENT_TIMESTAMP WHERE title = ? AND category = ?",
		current, key.Title, key.Category)
	if err != nil {
		if sentinel := constraintErr(err, shared.ErrDuplicateAchievement); sentinel != nil {
			return fmt.Errorf("%w: %d", sentinel, current)
		}
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return requireRow(result, key)
}

func requireRow(result sql.Result, key models.AchievementKey) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAchievementNotFound, key)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRowContext(ctx, "SELECT username, email, password, type FROM accounts WHERE username = ?", username).
		Scan(&a.Username, &a.Email, &a.Password, &a.Type)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (username, email, password, type) VALUES (?, ?, ?, ?)",
		a.Username, a.Email, a.Password, string(a.Type))
	if err != nil {
		if sentinel := constraintErr(err, shared.ErrUsernameTaken); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, a.Username)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}
