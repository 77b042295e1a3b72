package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCategoriesLoaded MsgKind = iota
	MsgAchievementsLoaded
	MsgPendingLoaded
	MsgProgressUpdate
	MsgCascadeComplete
	MsgActionDone
)

type categoriesData struct {
	categories []models.CategoryProgress
	err        error
}

type achievementsData struct {
	category     string
	achievements []models.Achievement
	err          error
}

type pendingData struct {
	keys []models.AchievementKey
	err  error
}

type cascadeData struct {
	result *tasks.DeleteCategoryResult
	err    error
}

// actionData reports the outcome of a write. back is the view shown after the result is dismissed; a non-empty
// category becomes the selected category.
type actionData struct {
	message  string
	back     ViewState
	category string
	err      error
}

// categoriesLoadedMsg is the constructor for [MsgCategoriesLoaded]
func categoriesLoadedMsg(categories []models.CategoryProgress, err error) Msg {
	return Msg{kind: MsgCategoriesLoaded, data: categoriesData{categories, err}}
}

// achievementsLoadedMsg is the constructor for [MsgAchievementsLoaded]
func achievementsLoadedMsg(category string, achievements []models.Achievement, err error) Msg {
	return Msg{kind: MsgAchievementsLoaded, data: achievementsData{category, achievements, err}}
}

// pendingLoadedMsg is the constructor for [MsgPendingLoaded]
func pendingLoadedMsg(keys []models.AchievementKey, err error) Msg {
	return Msg{kind: MsgPendingLoaded, data: pendingData{keys, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// cascadeCompleteMsg is the constructor for [MsgCascadeComplete]
func cascadeCompleteMsg(result *tasks.DeleteCategoryResult, err error) Msg {
	return Msg{kind: MsgCascadeComplete, data: cascadeData{result, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(data actionData) Msg {
	return Msg{kind: MsgActionDone, data: data}
}
