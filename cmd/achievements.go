package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// CategoriesList prints each category with its completion percentage.
func (r *Runner) CategoriesList(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	categories, err := tracker.Categories(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(categories, cmd.Bool("pretty"))
	}

	if len(categories) == 0 {
		r.writePlain("No categories yet. Create one with 'achieve achievements create'.\n")
		return nil
	}

	r.writePlainHeader("Categories")
	for _, c := range categories {
		r.writePlain("%-30s %3d%%  (%d/%d)\n", c.Category, c.Percent(), c.Current, c.Max)
	}
	return nil
}

// CategoriesDelete deletes every achievement in a category, printing each delete as it happens.
func (r *Runner) CategoriesDelete(ctx context.Context, cmd *cli.Command) error {
	category := cmd.StringArg("category")
	if category == "" {
		return fmt.Errorf("%w: category", shared.ErrMissingArgument)
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Authorize(tasks.FeatureCategories); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		answer, err := r.prompt(fmt.Sprintf("Delete category %q and all of its achievements? [y/N]", category))
		if err != nil {
			return err
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			r.writePlain("Cancelled\n")
			return nil
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.ScanCategory {
				r.writePlain("%s\n", update.Message)
				continue
			}
			mark := "✓"
			if update.Err != nil {
				mark = "✗"
			}
			r.writePlain("[%d/%d] %s %s\n", update.Step, update.Total, mark, update.Message)
		}
	}()

	result, err := tracker.DeleteCategory(ctx, category, progress)
	close(progress)
	wg.Wait()

	if result != nil {
		r.writePlainln("Deleted %d achievement(s) from %s", len(result.Deleted), category)
		if len(result.Failed) > 0 {
			r.writePlain("%d achievement(s) could not be deleted\n", len(result.Failed))
		}
	}
	return err
}

// AchievementsList prints the achievements of a category.
func (r *Runner) AchievementsList(ctx context.Context, cmd *cli.Command) error {
	category := cmd.StringArg("category")
	if category == "" {
		return fmt.Errorf("%w: category", shared.ErrMissingArgument)
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	achievements, err := tracker.Achievements(ctx, category)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(achievements, cmd.Bool("pretty"))
	}

	if len(achievements) == 0 {
		r.writePlain("No achievements in %s\n", category)
		return nil
	}

	r.writePlainHeader(category)
	for _, a := range achievements {
		mark := " "
		if a.Complete() {
			mark = "✓"
		}
		r.writePlain("%s %-30s %d/%d\n", mark, a.Title, a.CurrentProg, a.MaxProg)
	}
	return nil
}

// AchievementsShow prints one achievement.
func (r *Runner) AchievementsShow(ctx context.Context, cmd *cli.Command) error {
	key, err := keyArgs(cmd)
	if err != nil {
		return err
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	a, err := tracker.Achievement(ctx, key)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(a, cmd.Bool("pretty"))
	}
	r.writeAchievement(a)
	return nil
}

// AchievementsCreate creates an achievement, prompting for a missing title or category.
func (r *Runner) AchievementsCreate(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Authorize(tasks.FeatureCategories); err != nil {
		return err
	}

	title, err := r.valueOrPrompt(cmd, "title", "Title")
	if err != nil {
		return err
	}
	category, err := r.valueOrPrompt(cmd, "category", "Category")
	if err != nil {
		return err
	}

	in := tasks.NewAchievementInput{
		Title:       title,
		Category:    category,
		Description: cmd.String("description"),
		MaxProg:     int(cmd.Int("max")),
	}

	if path := cmd.String("image"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		defer f.Close()
		in.Image = f
	}

	a, err := tracker.CreateAchievement(ctx, in)
	if err != nil {
		return err
	}

	r.writePlain("✓ Created %s\n", a.Key())
	if in.Image != nil && !a.HasImage() {
		r.writePlain("Image upload failed; the achievement is listed in 'achieve images pending'\n")
	}
	return nil
}

// AchievementsDelete deletes one achievement.
func (r *Runner) AchievementsDelete(ctx context.Context, cmd *cli.Command) error {
	key, err := keyArgs(cmd)
	if err != nil {
		return err
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.DeleteAchievement(ctx, key); err != nil {
		return err
	}

	r.writePlain("✓ Deleted %s\n", key)
	return nil
}

// AchievementsProgress sets the current progress of an achievement.
//
// A value prefixed with + or - is applied relative to the current progress.
func (r *Runner) AchievementsProgress(ctx context.Context, cmd *cli.Command) error {
	key, err := keyArgs(cmd)
	if err != nil {
		return err
	}

	raw := cmd.StringArg("value")
	if raw == "" {
		return fmt.Errorf("%w: value", shared.ErrMissingArgument)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: progress must be an integer, got %q", shared.ErrInvalidArgument, raw)
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	if strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-") {
		current, err := tracker.Achievement(ctx, key)
		if err != nil {
			return err
		}
		value += current.CurrentProg
	}

	a, err := tracker.SetProgress(ctx, key, value)
	if err != nil {
		return err
	}

	r.writePlain("✓ %s: %d/%d\n", a.Key(), a.CurrentProg, a.MaxProg)
	if a.Complete() {
		r.writePlain("Achievement complete!\n")
	}
	return nil
}

func (r *Runner) writeAchievement(a *models.Achievement) {
	r.writePlainHeader(a.Title)
	r.writePlain("Category:    %s\n", a.Category)
	if a.Description != "" {
		r.writePlain("Description: %s\n", a.Description)
	}
	r.writePlain("Progress:    %d/%d (%d%%)\n", a.CurrentProg, a.MaxProg, models.Percent(a.Fraction()))
	if a.HasImage() {
		r.writePlain("Image:       %s\n", a.ImageURL)
	} else {
		r.writePlain("Image:       none\n")
	}
}

func keyArgs(cmd *cli.Command) (models.AchievementKey, error) {
	key := models.AchievementKey{
		Category: strings.TrimSpace(cmd.StringArg("category")),
		Title:    strings.TrimSpace(cmd.StringArg("title")),
	}
	if key.Category == "" || key.Title == "" {
		return key, fmt.Errorf("%w: category and title", shared.ErrMissingArgument)
	}
	return key, nil
}
