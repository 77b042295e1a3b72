package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/achieve/internal/models"
)

var (
	_ list.Item = menuItem{}
	_ list.Item = categoryItem{}
	_ list.Item = achievementItem{}
	_ list.Item = pendingItem{}
)

type menuAction int

const (
	actionCategories menuAction = iota
	actionPending
	actionLogin
	actionLogout
	actionQuit
)

// menuItem is a main menu entry. Disabled entries stay visible with the reason they are unavailable.
type menuItem struct {
	action  menuAction
	label   string
	detail  string
	enabled bool
}

func (i menuItem) FilterValue() string { return i.label }
func (i menuItem) Title() string {
	if !i.enabled {
		return styles.help.Render(i.label)
	}
	return i.label
}
func (i menuItem) Description() string { return i.detail }

// categoryItem wraps [models.CategoryProgress] to implement [list.Item].
type categoryItem struct {
	progress models.CategoryProgress
}

func (i categoryItem) FilterValue() string { return i.progress.Category }
func (i categoryItem) Title() string       { return i.progress.Category }
func (i categoryItem) Description() string {
	return fmt.Sprintf("%s %d%% (%d/%d)", progressBar(i.progress.Fraction, 20), i.progress.Percent(), i.progress.Current, i.progress.Max)
}

// achievementItem wraps [models.Achievement] to implement [list.Item].
type achievementItem struct {
	achievement models.Achievement
}

func (i achievementItem) FilterValue() string { return i.achievement.Title }
func (i achievementItem) Title() string {
	if i.achievement.Complete() {
		return "✓ " + i.achievement.Title
	}
	return i.achievement.Title
}
func (i achievementItem) Description() string {
	desc := fmt.Sprintf("%d/%d", i.achievement.CurrentProg, i.achievement.MaxProg)
	if i.achievement.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.achievement.Description)
	}
	return desc
}

// pendingItem wraps an [models.AchievementKey] awaiting an image.
type pendingItem struct {
	key models.AchievementKey
}

func (i pendingItem) FilterValue() string { return i.key.String() }
func (i pendingItem) Title() string       { return i.key.Title }
func (i pendingItem) Description() string { return i.key.Category }

func newList(title string, items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}
