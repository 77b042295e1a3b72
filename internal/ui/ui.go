package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MenuView ViewState = iota
	CategoriesView
	CategoryView
	AchievementView
	FormView
	ConfirmView
	CascadeView
	PendingView
	ResultView
)

// Tracker is the application surface the TUI drives. [*tasks.Tracker] satisfies it.
type Tracker interface {
	Session() models.Session
	Local() bool
	ImageHost() string
	Login(ctx context.Context, username, password string, remember bool) error
	Logout() error
	Categories(ctx context.Context) ([]models.CategoryProgress, error)
	Achievements(ctx context.Context, category string) ([]models.Achievement, error)
	CreateAchievement(ctx context.Context, in tasks.NewAchievementInput) (*models.Achievement, error)
	DeleteAchievement(ctx context.Context, key models.AchievementKey) error
	SetProgress(ctx context.Context, key models.AchievementKey, current int) (*models.Achievement, error)
	DeleteCategory(ctx context.Context, category string, progress chan<- tasks.ProgressUpdate) (*tasks.DeleteCategoryResult, error)
	PendingImages(ctx context.Context) ([]models.AchievementKey, error)
	AttachImage(ctx context.Context, key models.AchievementKey, r io.Reader) (string, error)
}

var _ Tracker = (*tasks.Tracker)(nil)

// confirmation is a pending yes/no question.
type confirmation struct {
	prompt string
	back   ViewState
	run    func() tea.Cmd
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	tracker Tracker
	logger  *log.Logger
	view    ViewState
	width   int
	height  int

	menu         list.Model
	categories   list.Model
	achievements list.Model
	pending      list.Model

	category    string
	achievement *models.Achievement
	draft       int
	form        *form
	confirm     *confirmation

	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate

	message string
	err     error
	back    ViewState

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. Logs go to logger, which should not write to the terminal.
func NewModel(ctx context.Context, tracker Tracker, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Model{
		ctx:     ctx,
		tracker: tracker,
		logger:  logger,
		view:    MenuView,
		width:   80,
		height:  24,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.buildMenu()
	return m
}

// View returns the active view.
func (m *Model) View() string {
	switch m.view {
	case MenuView:
		return m.renderMenu()
	case CategoriesView:
		return m.renderCategories()
	case CategoryView:
		return m.renderCategory()
	case AchievementView:
		return m.renderAchievement()
	case FormView:
		return m.renderForm()
	case ConfirmView:
		return m.renderConfirm()
	case CascadeView:
		return m.renderCascade()
	case PendingView:
		return m.renderPending()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle("Achieve")
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.menu, &m.categories, &m.achievements, &m.pending} {
			l.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MenuView:
			return m.handleMenuKeys(msg)
		case CategoriesView:
			return m.handleCategoriesKeys(msg)
		case CategoryView:
			return m.handleCategoryKeys(msg)
		case AchievementView:
			return m.handleAchievementKeys(msg)
		case FormView:
			return m.handleFormKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case CascadeView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case PendingView:
			return m.handlePendingKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == FormView && m.form != nil {
		return m, m.form.update(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCategoriesLoaded:
		data := msg.data.(categoriesData)
		if data.err != nil {
			return m.fail(data.err, MenuView)
		}
		items := make([]list.Item, len(data.categories))
		for i, c := range data.categories {
			items[i] = categoryItem{progress: c}
		}
		w, h := m.listSize()
		m.categories = newList("Categories", items, w, h)
		m.view = CategoriesView

	case MsgAchievementsLoaded:
		data := msg.data.(achievementsData)
		if data.err != nil {
			return m.fail(data.err, CategoriesView)
		}
		if len(data.achievements) == 0 {
			m.category = ""
			return m, m.loadCategories()
		}
		m.category = data.category
		items := make([]list.Item, len(data.achievements))
		for i, a := range data.achievements {
			items[i] = achievementItem{achievement: a}
		}
		w, h := m.listSize()
		m.achievements = newList(fmt.Sprintf("Achievements in '%s'", data.category), items, w, h)
		m.view = CategoryView

	case MsgPendingLoaded:
		data := msg.data.(pendingData)
		if data.err != nil {
			return m.fail(data.err, MenuView)
		}
		items := make([]list.Item, len(data.keys))
		for i, k := range data.keys {
			items[i] = pendingItem{key: k}
		}
		w, h := m.listSize()
		m.pending = newList("Achievements without images", items, w, h)
		m.view = PendingView

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgCascadeComplete:
		data := msg.data.(cascadeData)
		m.progressChan = nil
		m.done = nil
		m.category = ""
		if data.result == nil {
			return m.fail(data.err, CategoriesView)
		}
		m.message = fmt.Sprintf("Deleted %d achievements from '%s'", len(data.result.Deleted), data.result.Category)
		if len(data.result.Failed) > 0 {
			m.message += fmt.Sprintf(", %d failed", len(data.result.Failed))
		}
		m.err = data.err
		m.back = CategoriesView
		m.view = ResultView

	case MsgActionDone:
		data := msg.data.(actionData)
		m.buildMenu()
		if data.category != "" {
			m.category = data.category
		}
		if data.err != nil {
			return m.fail(data.err, data.back)
		}
		m.message = data.message
		m.err = nil
		m.back = data.back
		m.view = ResultView
	}
	return m, nil
}

// fail shows err on the result view and returns to back when dismissed.
func (m *Model) fail(err error, back ViewState) (tea.Model, tea.Cmd) {
	m.logger.Error("operation failed", "error", err)
	m.message = ""
	m.err = err
	m.back = back
	m.view = ResultView
	return m, nil
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 10), max(m.height-8, 5)
}

// buildMenu rebuilds the main menu from the current session.
func (m *Model) buildMenu() {
	features := tasks.Features(m.tracker.Local(), m.tracker.Session())
	reason := func(f tasks.Feature) string {
		if err := tasks.Authorize(m.tracker.Local(), m.tracker.Session(), f); err != nil {
			return err.Error()
		}
		return ""
	}

	items := []list.Item{
		menuItem{action: actionCategories, label: "Categories", detail: orElse(reason(tasks.FeatureCategories), "Browse, create and delete achievements"), enabled: features[tasks.FeatureCategories]},
		menuItem{action: actionPending, label: "Image requests", detail: orElse(reason(tasks.FeatureImages), "Attach images via "+m.tracker.ImageHost()), enabled: features[tasks.FeatureImages]},
	}
	if m.tracker.Session().LoggedIn {
		items = append(items, menuItem{action: actionLogout, label: "Log out", detail: "Logged in as " + m.tracker.Session().Username, enabled: true})
	} else {
		items = append(items, menuItem{action: actionLogin, label: "Log in", detail: orElse(reason(tasks.FeatureAccount), "Sign in to the remote store"), enabled: features[tasks.FeatureAccount]})
	}
	items = append(items, menuItem{action: actionQuit, label: "Quit", detail: "Exit achieve", enabled: true})

	w, h := m.listSize()
	m.menu = newList("Achieve", items, w, h)
}

func orElse(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func (m *Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		item, ok := m.menu.SelectedItem().(menuItem)
		if !ok || !item.enabled {
			return m, nil
		}
		switch item.action {
		case actionCategories:
			return m, m.loadCategories()
		case actionPending:
			return m, m.loadPending()
		case actionLogin:
			return m.openForm(m.loginForm())
		case actionLogout:
			return m, m.logout()
		case actionQuit:
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return m, cmd
}

func (m *Model) handleCategoriesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = MenuView
		return m, nil
	case "n":
		return m.openForm(m.createForm("", CategoriesView))
	case "enter":
		if item, ok := m.categories.SelectedItem().(categoryItem); ok {
			return m, m.loadAchievements(item.progress.Category)
		}
		return m, nil
	case "d":
		item, ok := m.categories.SelectedItem().(categoryItem)
		if !ok {
			return m, nil
		}
		category := item.progress.Category
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete category '%s' and all of its achievements?", category),
			back:   CategoriesView,
			run:    func() tea.Cmd { return m.startCascade(category) },
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.categories, cmd = m.categories.Update(msg)
	return m, cmd
}

func (m *Model) handleCategoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		return m, m.loadCategories()
	case "n":
		return m.openForm(m.createForm(m.category, CategoryView))
	case "enter":
		if item, ok := m.achievements.SelectedItem().(achievementItem); ok {
			a := item.achievement
			m.achievement = &a
			m.draft = a.CurrentProg
			m.view = AchievementView
		}
		return m, nil
	case "d":
		item, ok := m.achievements.SelectedItem().(achievementItem)
		if !ok {
			return m, nil
		}
		key := item.achievement.Key()
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete achievement '%s'?", key.Title),
			back:   CategoryView,
			run:    func() tea.Cmd { return m.deleteAchievement(key) },
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.achievements, cmd = m.achievements.Update(msg)
	return m, cmd
}

func (m *Model) handleAchievementKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = CategoryView
		return m, nil
	case key.Matches(msg, m.keys.inc):
		m.draft = min(m.draft+1, m.achievement.MaxProg)
	case key.Matches(msg, m.keys.dec):
		m.draft = max(m.draft-1, 0)
	case key.Matches(msg, m.keys.enter):
		return m, m.saveProgress(m.achievement.Key(), m.draft)
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = m.form.back
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, m.form.move(1)
	case "shift+tab", "up":
		return m, m.form.move(-1)
	case "enter":
		return m, m.form.enter()
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "n", "esc", "q":
		m.view = m.confirm.back
		m.confirm = nil
		return m, nil
	case "y":
		run := m.confirm.run
		m.confirm = nil
		return m, run()
	}
	return m, nil
}

func (m *Model) handlePendingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = MenuView
		return m, nil
	case "enter":
		if item, ok := m.pending.SelectedItem().(pendingItem); ok {
			return m.openForm(m.attachForm(item.key))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.pending, cmd = m.pending.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.err = nil
		m.message = ""
		return m, m.reload(m.back)
	}
	return m, nil
}

// reload shows view, fetching its data first when it is a list.
func (m *Model) reload(view ViewState) tea.Cmd {
	switch view {
	case CategoriesView:
		return m.loadCategories()
	case CategoryView:
		if m.category == "" {
			return m.loadCategories()
		}
		return m.loadAchievements(m.category)
	case PendingView:
		return m.loadPending()
	default:
		m.buildMenu()
		m.view = MenuView
		return nil
	}
}

func (m *Model) openForm(f *form) (tea.Model, tea.Cmd) {
	m.form = f
	m.view = FormView
	return m, textinput.Blink
}

func (m *Model) loginForm() *form {
	return newForm("Log in", MenuView, func(v []string) tea.Cmd {
		username, password := v[0], v[1]
		remember := strings.HasPrefix(strings.ToLower(v[2]), "y")
		return func() tea.Msg {
			if err := m.tracker.Login(m.ctx, username, password, remember); err != nil {
				return actionDoneMsg(actionData{back: MenuView, err: err})
			}
			return actionDoneMsg(actionData{message: "Logged in as " + username, back: MenuView})
		}
	}, "Username", "Password", "Remember login? (y/n)").password(1).placeholder(2, "n")
}

func (m *Model) createForm(category string, back ViewState) *form {
	f := newForm("New achievement", back, func(v []string) tea.Cmd {
		return m.createAchievement(v, back)
	}, "Title", "Category", "Description", "Max progress", "Image file (optional)")
	f.placeholder(3, "1")
	if category != "" {
		f.set(1, category)
	}
	return f
}

func (m *Model) attachForm(key models.AchievementKey) *form {
	return newForm(fmt.Sprintf("Attach image to '%s'", key), PendingView, func(v []string) tea.Cmd {
		return m.attachImage(key, v[0])
	}, "Image file")
}

func (m *Model) loadCategories() tea.Cmd {
	return func() tea.Msg {
		categories, err := m.tracker.Categories(m.ctx)
		return categoriesLoadedMsg(categories, err)
	}
}

func (m *Model) loadAchievements(category string) tea.Cmd {
	return func() tea.Msg {
		achievements, err := m.tracker.Achievements(m.ctx, category)
		return achievementsLoadedMsg(category, achievements, err)
	}
}

func (m *Model) loadPending() tea.Cmd {
	return func() tea.Msg {
		keys, err := m.tracker.PendingImages(m.ctx)
		return pendingLoadedMsg(keys, err)
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		if err := m.tracker.Logout(); err != nil {
			return actionDoneMsg(actionData{back: MenuView, err: err})
		}
		return actionDoneMsg(actionData{message: "Logged out", back: MenuView})
	}
}

func (m *Model) createAchievement(v []string, back ViewState) tea.Cmd {
	title, category, description, maxText, imagePath := v[0], v[1], v[2], v[3], v[4]
	return func() tea.Msg {
		if maxText == "" {
			maxText = "1"
		}
		maxProg, err := strconv.Atoi(maxText)
		if err != nil {
			return actionDoneMsg(actionData{back: back, err: fmt.Errorf("%w: max progress must be a number", shared.ErrInvalidInput)})
		}

		in := tasks.NewAchievementInput{Title: title, Category: category, Description: description, MaxProg: maxProg}
		if imagePath != "" {
			f, err := os.Open(imagePath)
			if err != nil {
				return actionDoneMsg(actionData{back: back, err: fmt.Errorf("failed to open image: %w", err)})
			}
			defer f.Close()
			in.Image = f
		}

		a, err := m.tracker.CreateAchievement(m.ctx, in)
		if err != nil {
			return actionDoneMsg(actionData{back: back, err: err})
		}

		message := fmt.Sprintf("Created '%s' in '%s'", a.Title, a.Category)
		if imagePath != "" && !a.HasImage() {
			message += " (image upload failed, it can be attached later)"
		}
		return actionDoneMsg(actionData{message: message, back: CategoryView, category: a.Category})
	}
}

func (m *Model) deleteAchievement(key models.AchievementKey) tea.Cmd {
	return func() tea.Msg {
		if err := m.tracker.DeleteAchievement(m.ctx, key); err != nil {
			return actionDoneMsg(actionData{back: CategoryView, err: err})
		}
		return actionDoneMsg(actionData{message: fmt.Sprintf("Deleted '%s'", key.Title), back: CategoryView})
	}
}

func (m *Model) saveProgress(key models.AchievementKey, current int) tea.Cmd {
	return func() tea.Msg {
		a, err := m.tracker.SetProgress(m.ctx, key, current)
		if err != nil {
			return actionDoneMsg(actionData{back: CategoryView, err: err})
		}
		return actionDoneMsg(actionData{message: fmt.Sprintf("'%s' progress: %d/%d", a.Title, a.CurrentProg, a.MaxProg), back: CategoryView})
	}
}

func (m *Model) attachImage(key models.AchievementKey, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return actionDoneMsg(actionData{back: PendingView, err: fmt.Errorf("%w: image file", shared.ErrMissingArgument)})
		}
		f, err := os.Open(path)
		if err != nil {
			return actionDoneMsg(actionData{back: PendingView, err: fmt.Errorf("failed to open image: %w", err)})
		}
		defer f.Close()

		url, err := m.tracker.AttachImage(m.ctx, key, f)
		if err != nil {
			return actionDoneMsg(actionData{back: PendingView, err: err})
		}
		return actionDoneMsg(actionData{message: "Attached image: " + url, back: PendingView})
	}
}

// startCascade runs the category delete in the background and streams its progress.
func (m *Model) startCascade(category string) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.done = done
	m.progress = tasks.ProgressUpdate{Message: "Starting..."}
	m.category = category
	m.view = CascadeView

	go func() {
		result, err := m.tracker.DeleteCategory(m.ctx, category, progress)
		done <- cascadeCompleteMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}
