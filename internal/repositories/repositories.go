package repositories

import (
	"context"

	"github.com/desertthunder/achieve/internal/models"
)

// AchievementStore is the persistence interface for achievements.
type AchievementStore interface {
	// GetAchievement performs a point lookup by composite key.
	GetAchievement(ctx context.Context, key models.AchievementKey) (*models.Achievement, error)

	// CreateAchievement writes a new achievement.
	CreateAchievement(ctx context.Context, a *models.Achievement) error

	// DeleteAchievement removes one achievement by key.
	DeleteAchievement(ctx context.Context, key models.AchievementKey) error

	// ScanProgress returns every achievement projected to category, currentProg and maxProg.
	ScanProgress(ctx context.Context) ([]models.Achievement, error)

	// ListByCategory returns the full achievements of one category.
	ListByCategory(ctx context.Context, category string) ([]models.Achievement, error)

	// CategoryKeys returns the keys of every achievement in category.
	CategoryKeys(ctx context.Context, category string) ([]models.AchievementKey, error)

	// ListWithoutImage returns the keys of achievements whose imageURL is [models.NoImage].
	ListWithoutImage(ctx context.Context) ([]models.AchievementKey, error)

	// UpdateImage sets imageURL on an existing achievement.
	UpdateImage(ctx context.Context, key models.AchievementKey, url string) error

	// UpdateProgress sets currentProg on an existing achievement.
	UpdateProgress(ctx context.Context, key models.AchievementKey, current int) error
}

// AccountStore is the persistence interface for accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, username string) (*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
}

var (
	_ AchievementStore = (*DynamoRepository)(nil)
	_ AccountStore     = (*DynamoRepository)(nil)
	_ AchievementStore = (*SQLiteRepository)(nil)
	_ AccountStore     = (*SQLiteRepository)(nil)
)
