package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/models"
	"github.com/desertthunder/achieve/internal/tasks"
)

// AccountSignUp creates an artist account. Missing values are prompted for; a prompted password is confirmed.
func (r *Runner) AccountSignUp(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Authorize(tasks.FeatureAccount); err != nil {
		return err
	}

	username, err := r.valueOrPrompt(cmd, "username", "Username")
	if err != nil {
		return err
	}
	email, err := r.valueOrPrompt(cmd, "email", "Email")
	if err != nil {
		return err
	}

	password, confirm := cmd.String("password"), cmd.String("password")
	if password == "" {
		if password, err = r.prompt("Password"); err != nil {
			return err
		}
		if confirm, err = r.prompt("Confirm password"); err != nil {
			return err
		}
	}

	account, err := tracker.SignUp(ctx, username, email, password, confirm)
	if err != nil {
		return err
	}

	r.writePlain("✓ Created %s account %s\n", account.Type, account.Username)
	r.writePlain("Log in with 'achieve account login -u %s'\n", account.Username)
	return nil
}

// AccountLogin starts a session. By default the login is remembered so later commands are authenticated.
func (r *Runner) AccountLogin(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Authorize(tasks.FeatureAccount); err != nil {
		return err
	}

	username, err := r.valueOrPrompt(cmd, "username", "Username")
	if err != nil {
		return err
	}
	password, err := r.valueOrPrompt(cmd, "password", "Password")
	if err != nil {
		return err
	}

	if err := tracker.Login(ctx, username, password, cmd.Bool("remember")); err != nil {
		return err
	}

	session := tracker.Session()
	r.writePlain("✓ Logged in as %s (%s)\n", session.Username, session.AccountType)
	return nil
}

// AccountLogout ends the session and forgets the remembered login.
func (r *Runner) AccountLogout(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}
	if err := tracker.Logout(); err != nil {
		return err
	}

	r.writePlain("✓ Logged out\n")
	return nil
}

type whoAmI struct {
	models.Session
	Storage  string          `json:"storage"`
	Images   string          `json:"images,omitempty"`
	Features map[string]bool `json:"features"`
}

// AccountWhoAmI shows the storage mode, the session and which features it allows.
func (r *Runner) AccountWhoAmI(ctx context.Context, cmd *cli.Command) error {
	tracker, err := r.tracker(ctx)
	if err != nil {
		return err
	}

	info := whoAmI{
		Session:  tracker.Session(),
		Storage:  "dynamodb",
		Images:   tracker.ImageHost(),
		Features: map[string]bool{},
	}
	if tracker.Local() {
		info.Storage = "local"
	}
	for f, ok := range tasks.Features(tracker.Local(), info.Session) {
		info.Features[f.String()] = ok
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, cmd.Bool("pretty"))
	}

	r.writePlain("Storage:  %s\n", info.Storage)
	if info.Images != "" {
		r.writePlain("Images:   %s\n", info.Images)
	}
	if info.LoggedIn {
		r.writePlain("Session:  %s (%s)\n", info.Username, info.AccountType)
	} else {
		r.writePlain("Session:  not logged in\n")
	}
	for _, f := range []tasks.Feature{tasks.FeatureAccount, tasks.FeatureCategories, tasks.FeatureImages} {
		if err := tracker.Authorize(f); err != nil {
			r.writePlain("  ✗ %s: %v\n", f, err)
		} else {
			r.writePlain("  ✓ %s\n", f)
		}
	}
	return nil
}
