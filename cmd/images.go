package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/server"
	"github.com/desertthunder/achieve/internal/services"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// ImagesPending lists achievements created without an image.
func (r *Runner) ImagesPending(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	keys, err := tracker.PendingImages(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(keys, cmd.Bool("pretty"))
	}

	if len(keys) == 0 {
		r.writePlain("Every achievement has an image\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%d achievement(s) need an image", len(keys)))
	for _, k := range keys {
		r.writePlain("%-24s %s\n", k.Category, k.Title)
	}
	return nil
}

// ImagesAttach uploads an image file to the configured host and stores its URL on the achievement.
func (r *Runner) ImagesAttach(ctx context.Context, cmd *cli.Command) error {
	key, err := keyArgs(cmd)
	if err != nil {
		return err
	}
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Authorize(tasks.FeatureImages); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	url, err := tracker.AttachImage(ctx, key, f)
	if err != nil {
		return err
	}

	r.writePlain("✓ Image for %s uploaded to %s\n", key, tracker.ImageHost())
	r.writePlain("%s\n", url)
	return nil
}

// ImagesAuth runs the Google Drive consent flow on the loopback port and saves the token.
func (r *Runner) ImagesAuth(ctx context.Context, cmd *cli.Command) error {
	driveConfig := r.settings.Database.Drive
	config, err := services.NewDriveOAuthConfig(driveConfig)
	if err != nil {
		return err
	}

	r.writePlain("Opening the browser to authorize Google Drive...\n")
	loopback := &server.Loopback{
		Config:  config,
		Port:    driveConfig.RedirectPort,
		Timeout: cmd.Duration("timeout"),
		Open:    r.openBrowser,
		Logger:  r.logger,
	}

	token, err := loopback.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	store := services.NewTokenStore(driveConfig.TokenPath)
	if err := store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.logger.Info("drive token saved", "path", store.Path())
	r.writePlain("✓ Google Drive authorized. Token saved to %s\n", store.Path())
	return nil
}
