package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
	th "github.com/desertthunder/achieve/internal/testing"
)

func sampleExport() *CategoryExport {
	return NewCategoryExport("Games", []models.Achievement{
		{Title: "Speedrun", Category: "Games", Description: "Finish in under an hour", MaxProg: 4, CurrentProg: 1, ImageURL: models.NoImage},
		{Title: "Beat It", Category: "Games", Description: "Finish the game, twice", MaxProg: 1, CurrentProg: 1, ImageURL: "https://img.example/beat.jpg"},
	})
}

func TestNewCategoryExport(t *testing.T) {
	export := sampleExport()

	if export.Achievements[0].Title != "Beat It" {
		t.Errorf("expected achievements sorted by title, got %s first", export.Achievements[0].Title)
	}
	if export.Progress.Current != 2 || export.Progress.Max != 5 {
		t.Errorf("unexpected progress %+v", export.Progress)
	}
	if export.Progress.Percent() != 40 {
		t.Errorf("expected 40%%, got %d", export.Progress.Percent())
	}

	t.Run("empty category", func(t *testing.T) {
		empty := NewCategoryExport("Empty", nil)
		if empty.Progress.Category != "Empty" || empty.Progress.Fraction != 0 {
			t.Errorf("unexpected progress %+v", empty.Progress)
		}
	})
}

func TestExporters(t *testing.T) {
	export := sampleExport()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "Title,Description,Current,Max,Percent,Image" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != `Beat It,"Finish the game, twice",1,1,100,https://img.example/beat.jpg` {
			t.Errorf("unexpected row: %s", lines[1])
		}
		if lines[2] != "Speedrun,Finish in under an hour,1,4,25," {
			t.Errorf("NO_IMAGE should be an empty column, got: %s", lines[2])
		}
	})

	t.Run("percent column rounds", func(t *testing.T) {
		data, err := ExportToCSV(NewCategoryExport("Steps", []models.Achievement{
			{Title: "Walker", Category: "Steps", MaxProg: 100, CurrentProg: 29, ImageURL: models.NoImage},
		}))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), "Walker,,29,100,29,") {
			t.Errorf("expected 29%% for 29/100, got: %s", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Games",
			"**Completion**: 40% (2/5)",
			"- [x] **Beat It** (1/1): Finish the game, twice",
			"- [ ] **Speedrun** (1/4)",
			"![Beat It](https://img.example/beat.jpg)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, models.NoImage) {
			t.Error("Markdown should not link the NO_IMAGE sentinel")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Category: Games", "Completion: 40%", "1. Beat It [1/1]", "2. Speedrun [1/4]"} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q", want)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(export)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded CategoryExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Category != "Games" || len(decoded.Achievements) != 2 {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"CSV", FormatCSV},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"txt", FormatText},
		{"text", FormatText},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	export := sampleExport()

	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "games.md")
		got, err := WriteExport(export, FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
		if !strings.HasPrefix(th.MustReadFile(t, path), "# Games") {
			t.Error("unexpected file content")
		}
	})

	t.Run("default path", func(t *testing.T) {
		t.Chdir(t.TempDir())

		got, err := WriteExport(NewCategoryExport("Board Games", nil), FormatCSV, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "Board_Games_achievements.csv" {
			t.Errorf("unexpected default path %s", got)
		}
		if _, err := os.Stat(got); err != nil {
			t.Errorf("file not written: %v", err)
		}
	})
}
