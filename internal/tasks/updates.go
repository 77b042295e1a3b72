package tasks

import (
	"fmt"

	"github.com/desertthunder/achieve/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Err     error  // Set when this step failed
}

// Operation phase enumeration
type Phase int

const (
	ScanCategory Phase = iota
	DeleteAchievements
	ExportCategories
)

func (p Phase) String() string {
	switch p {
	case ScanCategory:
		return "scan_category"
	case DeleteAchievements:
		return "delete_achievements"
	case ExportCategories:
		return "export_categories"
	default:
		return ""
	}
}

func scanningCategoryUpdate(category string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanCategory,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Finding achievements in %s...", category),
	}
}

func deletedUpdate(step, total int, key models.AchievementKey, err error) ProgressUpdate {
	msg := fmt.Sprintf("Deleted %s", key.Title)
	if err != nil {
		msg = fmt.Sprintf("Failed to delete %s", key.Title)
	}
	return ProgressUpdate{
		Phase:   DeleteAchievements,
		Step:    step,
		Total:   total,
		Message: msg,
		Err:     err,
	}
}

func exportedUpdate(step, total int, res CategoryExportResult) ProgressUpdate {
	msg := fmt.Sprintf("Exported %s (%d achievements)", res.Category, res.Count)
	if !res.Success {
		msg = fmt.Sprintf("Failed to export %s", res.Category)
	}
	return ProgressUpdate{
		Phase:   ExportCategories,
		Step:    step,
		Total:   total,
		Message: msg,
		Err:     res.err,
	}
}

// sendProgress never blocks; updates are dropped when nobody is reading.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
