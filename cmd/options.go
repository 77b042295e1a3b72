package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/shared"
)

// OptionsShow prints every database option. Credentials are masked.
func (r *Runner) OptionsShow(ctx context.Context, cmd *cli.Command) error {
	options := r.settings.Database.Options(false)
	if cmd.Bool("json") {
		return r.writeJSON(options, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Database options (%s)", r.settings.DatabasePath))
	for _, o := range options {
		r.writePlain("%-22s %s\n", o.Key, o.Value)
	}
	return nil
}

// OptionsSet updates one dotted option and saves the file.
func (r *Runner) OptionsSet(ctx context.Context, cmd *cli.Command) error {
	key, value := cmd.StringArg("key"), cmd.StringArg("value")
	if key == "" {
		return fmt.Errorf("%w: key", shared.ErrMissingArgument)
	}

	if err := r.settings.Database.Set(key, value); err != nil {
		return err
	}
	if err := r.settings.SaveDatabase(); err != nil {
		return err
	}

	r.logger.Info("option updated", "key", key)
	r.writePlain("✓ %s updated\n", key)
	return nil
}

func (r *Runner) OptionsUseLocal(ctx context.Context, cmd *cli.Command) error {
	return r.setUseLocal(true)
}

func (r *Runner) OptionsUseRemote(ctx context.Context, cmd *cli.Command) error {
	return r.setUseLocal(false)
}

func (r *Runner) setUseLocal(local bool) error {
	r.settings.Database.UseLocal = local
	if err := r.settings.SaveDatabase(); err != nil {
		return err
	}

	if local {
		r.writePlain("✓ Using local storage at %s\n", r.settings.Database.Local.Path)
	} else {
		r.writePlain("✓ Using DynamoDB storage\n")
	}
	return nil
}
