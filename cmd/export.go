package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/formatter"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// Export writes one category's achievements as CSV, Markdown, text or JSON.
//
// With --output - the export is written to stdout instead of a file. With --all every category is exported.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		return r.exportAll(ctx, cmd, format)
	}

	category := cmd.StringArg("category")
	if category == "" {
		return fmt.Errorf("%w: category (or --all)", shared.ErrMissingArgument)
	}

	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	achievements, err := tracker.Achievements(ctx, category)
	if err != nil {
		return err
	}
	if len(achievements) == 0 {
		return fmt.Errorf("%w: category %q has no achievements", shared.ErrInvalidArgument, category)
	}

	export := formatter.NewCategoryExport(category, achievements)

	if cmd.String("output") == "-" {
		data, err := formatter.Export(export, format)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteExport(export, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported category", "category", category, "format", format, "path", path)
	r.writePlain("✓ Exported %d achievement(s) to %s\n", len(export.Achievements), path)
	return nil
}

func (r *Runner) exportAll(ctx context.Context, cmd *cli.Command, format formatter.Format) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			mark := "✓"
			if update.Err != nil {
				mark = "✗"
			}
			r.writePlain("[%d/%d] %s %s\n", update.Step, update.Total, mark, update.Message)
		}
	}()

	result, err := tracker.BulkExport(ctx, progress, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	r.writePlainln("Exported %d of %d categories to %s", result.SuccessfulExports, result.TotalCategories, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d categories failed to export", result.FailedExports)
	}
	return nil
}
