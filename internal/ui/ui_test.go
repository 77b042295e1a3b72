package ui

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/repositories"
	"github.com/desertthunder/achieve/internal/services"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
	tu "github.com/desertthunder/achieve/internal/testing"
)

func newLocalModel(t *testing.T) (*Model, *tasks.Tracker) {
	t.Helper()

	db, err := shared.OpenLocalStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tracker := tasks.NewTracker(tasks.TrackerOpts{
		Achievements: repositories.NewSQLiteRepository(db),
		Images:       tu.NewFakeImageHost(),
		Logger:       shared.NewLogger(&bytes.Buffer{}),
		Local:        true,
	})
	return NewModel(context.Background(), tracker, nil), tracker
}

func newRemoteModel(t *testing.T) (*Model, *tasks.Tracker) {
	t.Helper()

	logger := shared.NewLogger(&bytes.Buffer{})
	dynamo := tu.NewFakeDynamoDB().
		WithTable(repositories.AchievementTable, "title", "category").
		WithTable(repositories.AccountTable, "username")
	repo := repositories.NewDynamoRepository(dynamo, logger)

	tracker := tasks.NewTracker(tasks.TrackerOpts{
		Achievements: repo,
		Accounts:     repo,
		Cipher:       services.NewKMSCipher(tu.NewFakeKMS(shared.DefaultKeyAlias), ""),
		Images:       tu.NewFakeImageHost(),
		Logger:       logger,
		WriteRate:    1000,
	})
	return NewModel(context.Background(), tracker, nil), tracker
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press sends a key and returns the resulting command without running it.
func press(m *Model, s string) tea.Cmd {
	_, cmd := m.Update(keyPress(s))
	return cmd
}

// typeText types s into the focused form field.
func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// run executes cmd and feeds application messages back into the model until no command remains.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for cmd != nil {
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

// submitForm fills every field of the open form in order and submits it.
func submitForm(t *testing.T, m *Model, values ...string) {
	t.Helper()
	if m.view != FormView {
		t.Fatalf("expected form view, got %d", m.view)
	}
	var cmd tea.Cmd
	for _, v := range values {
		typeText(m, v)
		cmd = press(m, "enter")
	}
	run(t, m, cmd)
}

func menuItems(m *Model) []menuItem {
	var out []menuItem
	for _, it := range m.menu.Items() {
		out = append(out, it.(menuItem))
	}
	return out
}

func createThroughUI(t *testing.T, m *Model, title, category, maxProg string) {
	t.Helper()
	m.menu.Select(0)
	run(t, m, press(m, "enter"))
	if m.view != CategoriesView {
		t.Fatalf("expected categories view, got %d", m.view)
	}
	press(m, "n")
	submitForm(t, m, title, category, "", maxProg, "")
	if m.view != ResultView || m.err != nil {
		t.Fatalf("expected successful result, got view %d err %v", m.view, m.err)
	}
	run(t, m, press(m, "enter"))
}

func TestMenu(t *testing.T) {
	t.Run("local mode disables only accounts", func(t *testing.T) {
		m, _ := newLocalModel(t)
		items := menuItems(m)

		enabled := map[menuAction]bool{}
		for _, it := range items {
			enabled[it.action] = it.enabled
		}
		if !enabled[actionCategories] || !enabled[actionPending] {
			t.Error("categories and image requests should be enabled in local mode")
		}
		if enabled[actionLogin] {
			t.Error("login should be disabled in local mode")
		}
	})

	t.Run("remote without login disables categories and images", func(t *testing.T) {
		m, _ := newRemoteModel(t)
		items := menuItems(m)

		if items[0].enabled || items[1].enabled {
			t.Error("categories and image requests should be disabled before login")
		}
		if !strings.Contains(items[0].detail, "log in") {
			t.Errorf("disabled entry should say why, got %q", items[0].detail)
		}

		m.menu.Select(0)
		if cmd := press(m, "enter"); cmd != nil {
			t.Error("disabled entry should not start a command")
		}
		if m.view != MenuView {
			t.Errorf("expected to stay on menu, got %d", m.view)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m, _ := newLocalModel(t)
		cmd := press(m, "q")
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		m, _ := newRemoteModel(t)
		m.menu.Select(2)
		press(m, "enter")
		submitForm(t, m, "nobody", "pw", "n")

		if m.view != ResultView || !errors.Is(m.err, shared.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound result, got view %d err %v", m.view, m.err)
		}
	})

	t.Run("artist login enables image requests", func(t *testing.T) {
		m, tracker := newRemoteModel(t)
		if _, err := tracker.SignUp(ctx, "ana", "ana@example.com", "hunter2", "hunter2"); err != nil {
			t.Fatalf("failed to sign up: %v", err)
		}

		m.menu.Select(2)
		press(m, "enter")
		submitForm(t, m, "ana", "hunter2", "n")
		if m.err != nil {
			t.Fatalf("unexpected error: %v", m.err)
		}

		items := menuItems(m)
		if items[0].enabled {
			t.Error("artists cannot use categories")
		}
		if !items[1].enabled {
			t.Error("artists can use image requests")
		}
		if items[2].action != actionLogout {
			t.Error("expected log out entry after login")
		}

		run(t, m, press(m, "enter"))
		m.menu.Select(2)
		run(t, m, press(m, "enter"))
		if tracker.Session().LoggedIn {
			t.Error("expected logout")
		}
	})
}

func TestAchievementFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("create then open category", func(t *testing.T) {
		m, _ := newLocalModel(t)
		createThroughUI(t, m, "Beat It", "Games", "3")

		if m.view != CategoryView || m.category != "Games" {
			t.Fatalf("expected Games category view, got view %d category %q", m.view, m.category)
		}
		if n := len(m.achievements.Items()); n != 1 {
			t.Errorf("expected 1 achievement, got %d", n)
		}
	})

	t.Run("duplicate is reported", func(t *testing.T) {
		m, _ := newLocalModel(t)
		createThroughUI(t, m, "Beat It", "Games", "3")

		press(m, "n")
		submitForm(t, m, "Beat It", "", "", "1", "")
		if !errors.Is(m.err, shared.ErrDuplicateAchievement) {
			t.Errorf("expected ErrDuplicateAchievement, got %v", m.err)
		}
	})

	t.Run("invalid max progress", func(t *testing.T) {
		m, _ := newLocalModel(t)
		m.menu.Select(0)
		run(t, m, press(m, "enter"))
		press(m, "n")
		submitForm(t, m, "X", "Games", "", "lots", "")
		if !errors.Is(m.err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", m.err)
		}
		run(t, m, press(m, "enter"))
		if m.view != CategoriesView {
			t.Errorf("expected to return to categories, got %d", m.view)
		}
	})

	t.Run("progress is clamped and saved", func(t *testing.T) {
		m, tracker := newLocalModel(t)
		createThroughUI(t, m, "Beat It", "Games", "2")

		press(m, "enter")
		if m.view != AchievementView {
			t.Fatalf("expected achievement view, got %d", m.view)
		}
		press(m, "+")
		press(m, "+")
		press(m, "+")
		if m.draft != 2 {
			t.Errorf("draft should clamp at max, got %d", m.draft)
		}
		press(m, "-")
		run(t, m, press(m, "enter"))

		achievements, err := tracker.Achievements(ctx, "Games")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if achievements[0].CurrentProg != 1 {
			t.Errorf("expected saved progress 1, got %d", achievements[0].CurrentProg)
		}
	})

	t.Run("delete achievement", func(t *testing.T) {
		m, tracker := newLocalModel(t)
		createThroughUI(t, m, "Beat It", "Games", "1")

		press(m, "d")
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %d", m.view)
		}
		press(m, "n")
		if m.view != CategoryView {
			t.Errorf("declining should return to the category, got %d", m.view)
		}

		press(m, "d")
		run(t, m, press(m, "y"))
		if m.err != nil {
			t.Fatalf("unexpected error: %v", m.err)
		}
		if _, err := tracker.Achievement(ctx, models.AchievementKey{Title: "Beat It", Category: "Games"}); !errors.Is(err, shared.ErrAchievementNotFound) {
			t.Errorf("expected achievement to be gone, got %v", err)
		}
	})
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	m, tracker := newLocalModel(t)
	for _, title := range []string{"A", "B", "C"} {
		if _, err := tracker.CreateAchievement(ctx, tasks.NewAchievementInput{Title: title, Category: "Games", MaxProg: 1}); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
	}
	if _, err := tracker.CreateAchievement(ctx, tasks.NewAchievementInput{Title: "A", Category: "Books", MaxProg: 1}); err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	m.menu.Select(0)
	run(t, m, press(m, "enter"))
	m.categories.Select(1)
	press(m, "d")
	if m.view != ConfirmView || !strings.Contains(m.confirm.prompt, "Games") {
		t.Fatalf("expected confirmation for Games, got view %d", m.view)
	}

	run(t, m, press(m, "y"))
	if m.view != ResultView {
		t.Fatalf("expected result view, got %d", m.view)
	}
	if !strings.Contains(m.message, "Deleted 3 achievements") {
		t.Errorf("unexpected message %q", m.message)
	}

	categories, err := tracker.Categories(ctx)
	if err != nil {
		t.Fatalf("failed to list categories: %v", err)
	}
	if len(categories) != 1 || categories[0].Category != "Books" {
		t.Errorf("expected only Books to remain, got %+v", categories)
	}
}

func TestAttachImage(t *testing.T) {
	ctx := context.Background()
	m, tracker := newLocalModel(t)
	if _, err := tracker.CreateAchievement(ctx, tasks.NewAchievementInput{Title: "Beat It", Category: "Games", MaxProg: 1}); err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	m.menu.Select(1)
	run(t, m, press(m, "enter"))
	if m.view != PendingView || len(m.pending.Items()) != 1 {
		t.Fatalf("expected one pending image, got view %d", m.view)
	}

	t.Run("missing file", func(t *testing.T) {
		press(m, "enter")
		submitForm(t, m, filepath.Join(t.TempDir(), "missing.jpg"))
		if m.err == nil {
			t.Fatal("expected error")
		}
		run(t, m, press(m, "enter"))
		if m.view != PendingView {
			t.Errorf("expected pending view, got %d", m.view)
		}
	})

	t.Run("attach", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "beat.jpg")
		tu.MustWriteFile(t, path, tu.JPEGHeader)

		press(m, "enter")
		submitForm(t, m, path)
		if m.err != nil {
			t.Fatalf("unexpected error: %v", m.err)
		}
		if !strings.Contains(m.message, "fake://") {
			t.Errorf("unexpected message %q", m.message)
		}

		run(t, m, press(m, "enter"))
		if len(m.pending.Items()) != 0 {
			t.Error("expected no pending images after attach")
		}
		if !strings.Contains(m.View(), "Every achievement has an image") {
			t.Error("expected empty pending view")
		}
	})
}

func TestFormCancel(t *testing.T) {
	m, _ := newLocalModel(t)
	m.menu.Select(0)
	run(t, m, press(m, "enter"))
	press(m, "n")
	typeText(m, "q")
	if m.view != FormView {
		t.Fatal("typing q in a form should not leave it")
	}
	press(m, "esc")
	if m.view != CategoriesView || m.form != nil {
		t.Errorf("esc should cancel the form, got view %d", m.view)
	}
}
