package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/achieve/internal/models"
	"golang.org/x/time/rate"
)

// DeleteCategoryResult summarizes a category cascade.
type DeleteCategoryResult struct {
	Category string                  `json:"category"`
	Deleted  []models.AchievementKey `json:"deleted"`
	Failed   []models.AchievementKey `json:"failed,omitempty"`
}

// DeleteCategory deletes every achievement in category and nothing else.
//
// Deletes are paced at the tracker's write rate. A failed delete is logged and the cascade continues; the
// returned error joins every per-item failure. Cancelling ctx stops the cascade between deletes.
func (t *Tracker) DeleteCategory(ctx context.Context, category string, progress chan<- ProgressUpdate) (*DeleteCategoryResult, error) {
	if err := t.Authorize(FeatureCategories); err != nil {
		return nil, err
	}

	sendProgress(progress, scanningCategoryUpdate(category))
	keys, err := t.achievements.CategoryKeys(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list category %s: %w", category, err)
	}

	result := &DeleteCategoryResult{Category: category, Deleted: make([]models.AchievementKey, 0, len(keys))}
	limiter := rate.NewLimiter(rate.Limit(t.writeRate), 1)

	var errs []error
	for i, key := range keys {
		if err := limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cascade stopped after %d of %d: %w", i, len(keys), err))
			break
		}

		if err := t.achievements.DeleteAchievement(ctx, key); err != nil {
			t.logger.Error("failed to delete achievement", "title", key.Title, "category", key.Category, "error", err)
			result.Failed = append(result.Failed, key)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			sendProgress(progress, deletedUpdate(i+1, len(keys), key, err))
			continue
		}

		result.Deleted = append(result.Deleted, key)
		sendProgress(progress, deletedUpdate(i+1, len(keys), key, nil))
	}

	t.logger.Info("deleted category", "category", category, "deleted", len(result.Deleted), "failed", len(result.Failed))
	return result, errors.Join(errs...)
}
