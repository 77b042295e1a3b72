package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/achieve/internal/formatter"
)

// BulkExportOpts contains configuration for exporting every category.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: csv)
	OutputDir  string           // Base output directory (default: achieve_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 5, max: 10)
}

// CategoryExportResult is the outcome of exporting one category.
type CategoryExportResult struct {
	Category string `json:"category"`
	File     string `json:"file,omitempty"`
	Count    int    `json:"count"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	err      error
}

func (r CategoryExportResult) Err() error { return r.err }

// BulkExportResult summarizes a bulk export. Results are sorted by category.
type BulkExportResult struct {
	TotalCategories   int                    `json:"totalCategories"`
	SuccessfulExports int                    `json:"successfulExports"`
	FailedExports     int                    `json:"failedExports"`
	OutputDirectory   string                 `json:"outputDirectory"`
	Format            formatter.Format       `json:"format"`
	ExportedAt        time.Time              `json:"exportedAt"`
	Results           []CategoryExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

// BulkExport writes one file per category into opts.OutputDir using a worker pool, then writes export_manifest.json.
//
// A category that fails to load or write is recorded in the result and does not stop the others.
func (t *Tracker) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error) {
	categories, err := t.Categories(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("achieve_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalCategories: len(categories),
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		ExportedAt:      time.Now().UTC(),
		Results:         make([]CategoryExportResult, 0, len(categories)),
	}

	jobs := make(chan string, len(categories))
	results := make(chan CategoryExportResult, len(categories))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go t.exportWorker(ctx, &wg, jobs, results, opts)
	}

	for _, c := range categories {
		jobs <- c.Category
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
			t.logger.Error("category export failed", "category", res.Category, "error", res.err)
		}
		sendProgress(prog, exportedUpdate(completed, len(categories), res))
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Category < result.Results[j].Category
	})

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled after %d of %d categories: %w", completed, len(categories), err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	t.logger.Info("bulk export finished", "dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker exports categories from the jobs channel until it is drained or ctx is done.
func (t *Tracker) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan string,
	results chan<- CategoryExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for category := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- t.exportCategory(ctx, category, opts)
	}
}

func (t *Tracker) exportCategory(ctx context.Context, category string, opts BulkExportOpts) CategoryExportResult {
	result := CategoryExportResult{Category: category}
	fail := func(err error) CategoryExportResult {
		result.err = err
		result.Error = err.Error()
		return result
	}

	achievements, err := t.achievements.ListByCategory(ctx, category)
	if err != nil {
		return fail(fmt.Errorf("failed to load category: %w", err))
	}

	export := formatter.NewCategoryExport(category, achievements)
	path := filepath.Join(opts.OutputDir, formatter.FileName(category, opts.Format))
	file, err := formatter.WriteExport(export, opts.Format, path)
	if err != nil {
		return fail(err)
	}

	result.File = file
	result.Count = len(achievements)
	result.Success = true
	return result
}
