// package formatter exports a category's achievements to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name case-insensitively ("md" is an alias for markdown).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatMarkdown, FormatText, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used when no output path is given.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// CategoryExport is one category with its overall progress.
type CategoryExport struct {
	Category     string                  `json:"category"`
	Progress     models.CategoryProgress `json:"progress"`
	Achievements []models.Achievement    `json:"achievements"`
}

// NewCategoryExport sorts achievements by title and computes the category's completion.
func NewCategoryExport(category string, achievements []models.Achievement) *CategoryExport {
	sorted := make([]models.Achievement, len(achievements))
	copy(sorted, achievements)
	models.SortAchievements(sorted)

	progress := models.CategoryProgress{Category: category}
	if c := models.Completion(sorted); len(c) > 0 {
		progress = c[0]
	}
	return &CategoryExport{Category: category, Progress: progress, Achievements: sorted}
}

// ExportToCSV converts a CategoryExport to CSV format with columns: Title, Description, Current, Max, Percent, Image
func ExportToCSV(export *CategoryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Description", "Current", "Max", "Percent", "Image"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range export.Achievements {
		record := []string{
			a.Title,
			a.Description,
			strconv.Itoa(a.CurrentProg),
			strconv.Itoa(a.MaxProg),
			strconv.Itoa(models.Percent(a.Fraction())),
			imageColumn(a),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a CategoryExport to Markdown with a checklist and inline images.
func ExportToMarkdown(export *CategoryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Category)
	fmt.Fprintf(&buf, "**Completion**: %d%% (%d/%d)\n", export.Progress.Percent(), export.Progress.Current, export.Progress.Max)
	fmt.Fprintf(&buf, "**Achievements**: %d\n\n", len(export.Achievements))

	buf.WriteString("## Achievements\n\n")
	for _, a := range export.Achievements {
		check := " "
		if a.Complete() {
			check = "x"
		}
		fmt.Fprintf(&buf, "- [%s] **%s** (%d/%d)", check, a.Title, a.CurrentProg, a.MaxProg)
		if a.Description != "" {
			fmt.Fprintf(&buf, ": %s", a.Description)
		}
		buf.WriteString("\n")
		if a.HasImage() {
			fmt.Fprintf(&buf, "  ![%s](%s)\n", a.Title, a.ImageURL)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CategoryExport to plain text format
func ExportToText(export *CategoryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Category: %s\n", export.Category)
	fmt.Fprintf(&buf, "Completion: %d%%\n", export.Progress.Percent())
	fmt.Fprintf(&buf, "Achievements: %d\n\n", len(export.Achievements))

	for i, a := range export.Achievements {
		fmt.Fprintf(&buf, "%d. %s [%d/%d]\n", i+1, a.Title, a.CurrentProg, a.MaxProg)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a CategoryExport to indented JSON.
func ExportToJSON(export *CategoryExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders export in the given format.
func Export(export *CategoryExport, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteExport renders export and writes it to path, creating parent directories.
//
// Defaults to {category}_achievements{ext} as the filename.
func WriteExport(export *CategoryExport, format Format, path string) (string, error) {
	if path == "" {
		path = FileName(export.Category, format)
	}

	data, err := Export(export, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// FileName is the default export file name for a category: {category}_achievements{ext}.
func FileName(category string, format Format) string {
	return fileSafe(category) + "_achievements" + format.Extension()
}

func imageColumn(a models.Achievement) string {
	if !a.HasImage() {
		return ""
	}
	return a.ImageURL
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
