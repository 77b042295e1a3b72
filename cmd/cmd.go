// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand prepares the configured storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and storage",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Write missing config keys and migrate the local database",
				Action: r.SetupDatabase,
			},
		},
	}
}

// optionsCommand views and edits the database configuration.
func optionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "options",
		Aliases: []string{"config"},
		Usage:   "View and edit database options",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the database options with secrets masked",
				Flags:  jsonFlags(),
				Action: r.OptionsShow,
			},
			{
				Name:  "set",
				Usage: "Set one option by its dotted key (e.g. dynamodb.region)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.OptionsSet,
			},
			{
				Name:   "use-local",
				Usage:  "Store achievements in the local database",
				Action: r.OptionsUseLocal,
			},
			{
				Name:   "use-remote",
				Usage:  "Store achievements and accounts in DynamoDB",
				Action: r.OptionsUseRemote,
			},
		},
	}
}

// adminCommand provisions the remote resources.
func adminCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Provision DynamoDB tables and the KMS key",
		Commands: []*cli.Command{
			{
				Name:  "create-tables",
				Usage: "Create the account and achievement tables",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "Maximum time to wait for each table to become active",
						Value: 5 * time.Minute,
					},
				},
				Action: r.AdminCreateTables,
			},
			{
				Name:   "create-key",
				Usage:  "Create the password encryption key and its alias",
				Action: r.AdminCreateKey,
			},
		},
	}
}

// accountCommand manages the login session.
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Sign up, log in and out",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an artist account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Account email",
					},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Account password",
						Sources: cli.EnvVars("ACHIEVE_PASSWORD"),
					},
				},
				Action: r.AccountSignUp,
			},
			{
				Name:  "login",
				Usage: "Log in to an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
					},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Account password",
						Sources: cli.EnvVars("ACHIEVE_PASSWORD"),
					},
					&cli.BoolFlag{
						Name:  "remember",
						Usage: "Remember the login for later commands",
						Value: true,
					},
				},
				Action: r.AccountLogin,
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the remembered login",
				Action: r.AccountLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the current session",
				Flags:  jsonFlags(),
				Action: r.AccountWhoAmI,
			},
		},
	}
}

// categoriesCommand lists and deletes categories.
func categoriesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "categories",
		Aliases: []string{"cat"},
		Usage:   "Category completion and cascade delete",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List categories with completion percentage",
				Flags:  jsonFlags(),
				Action: r.CategoriesList,
			},
			{
				Name:  "delete",
				Usage: "Delete a category and every achievement in it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "category"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.CategoriesDelete,
			},
		},
	}
}

// achievementsCommand manages achievements in a category.
func achievementsCommand(r *Runner) *cli.Command {
	keyArgs := func() []cli.Argument {
		return []cli.Argument{
			&cli.StringArg{Name: "category"},
			&cli.StringArg{Name: "title"},
		}
	}

	return &cli.Command{
		Name:    "achievements",
		Aliases: []string{"ach"},
		Usage:   "Create, view and track achievements",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the achievements in a category",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "category"},
				},
				Flags:  jsonFlags(),
				Action: r.AchievementsList,
			},
			{
				Name:      "show",
				Usage:     "Show one achievement",
				Arguments: keyArgs(),
				Flags:     jsonFlags(),
				Action:    r.AchievementsShow,
			},
			{
				Name:  "create",
				Usage: "Create an achievement",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Achievement title",
					},
					&cli.StringFlag{
						Name:    "category",
						Aliases: []string{"c"},
						Usage:   "Achievement category",
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Achievement description",
					},
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"m"},
						Usage:   "Progress needed to complete the achievement",
						Value:   1,
					},
					&cli.StringFlag{
						Name:    "image",
						Aliases: []string{"i"},
						Usage:   "Path to an image to upload",
					},
				},
				Action: r.AchievementsCreate,
			},
			{
				Name:      "delete",
				Usage:     "Delete one achievement",
				Arguments: keyArgs(),
				Action:    r.AchievementsDelete,
			},
			{
				Name:  "progress",
				Usage: "Set the current progress of an achievement",
				Arguments: append(keyArgs(),
					&cli.StringArg{Name: "value"},
				),
				Action: r.AchievementsProgress,
			},
		},
	}
}

// imagesCommand attaches images to achievements.
func imagesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "images",
		Usage: "Achievement images",
		Commands: []*cli.Command{
			{
				Name:   "pending",
				Usage:  "List achievements that still need an image",
				Flags:  jsonFlags(),
				Action: r.ImagesPending,
			},
			{
				Name:  "attach",
				Usage: "Upload an image and attach it to an achievement",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "category"},
					&cli.StringArg{Name: "title"},
					&cli.StringArg{Name: "path"},
				},
				Action: r.ImagesAttach,
			},
			{
				Name:  "auth",
				Usage: "Authorize Google Drive uploads in the browser",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 5 * time.Minute,
					},
				},
				Action: r.ImagesAuth,
			},
		},
	}
}

// exportCommand writes a category, or every category, to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a category's achievements",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "category"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, markdown, txt or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path, or - for stdout",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Export every category into --dir",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Output directory for --all (default: achieve_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent exports for --all",
				Value: 5,
			},
		},
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive achievement tracker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File the TUI writes its logs to",
				Value: "./tmp/achieve-tui.log",
			},
		},
		Action: r.TUI,
	}
}
