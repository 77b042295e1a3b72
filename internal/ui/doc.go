// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI mirrors the achievement manager's menus:
//  1. [MenuView] : Main menu; entries disabled by the current mode or login show why
//  2. [CategoriesView] : Categories with their completion
//  3. [CategoryView] : Achievements in one category
//  4. [AchievementView] : Adjust and save progress
//  5. [FormView] : Log in, create an achievement, attach an image
//  6. [ConfirmView] : Confirm a delete
//  7. [CascadeView] : Monitor a category delete
//  8. [PendingView] : Achievements waiting for an image
//  9. [ResultView] : Outcome of the last action
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Storage calls run inside commands; category delete progress flows through a channel from the [Tracker].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
