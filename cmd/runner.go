package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/achieve/internal/shared"
	"github.com/desertthunder/achieve/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	settings    *shared.Settings
	logger      *log.Logger
	output      io.Writer
	input       *bufio.Reader
	connect     ConnectFunc
	conn        *Connection
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Settings    *shared.Settings
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	Connect     ConnectFunc
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration.
//
// Settings given here are used as-is; otherwise they are loaded from the --db-config and --account-config paths
// before any command runs.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Connect == nil {
		opts.Connect = Connect
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		settings:    opts.Settings,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       bufio.NewReader(opts.Input),
		connect:     opts.Connect,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, optionsCommand, adminCommand, accountCommand, categoriesCommand,
		achievementsCommand, imagesCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "achieve",
		Usage:   "Track achievements locally or in DynamoDB",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-config",
				Usage: "Path to the database configuration file",
				Value: shared.DefaultDatabaseConfigPath,
			},
			&cli.StringFlag{
				Name:  "account-config",
				Usage: "Path to the account configuration file",
				Value: shared.DefaultAccountConfigPath,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before loads the settings once, reporting any keys that were filled with defaults.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.settings != nil {
		return ctx, nil
	}

	settings, added, err := shared.LoadSettings(cmd.String("db-config"), cmd.String("account-config"))
	if err != nil {
		return ctx, err
	}
	if len(added) > 0 {
		r.logger.Debug("filled missing config keys with defaults", "keys", strings.Join(added, ","))
	}
	r.settings = settings
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// tracker connects to the configured backend on first use.
func (r *Runner) tracker(ctx context.Context) (*tasks.Tracker, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Tracker, nil
}

func (r *Runner) connection(ctx context.Context) (*Connection, error) {
	if r.conn != nil {
		return r.conn, nil
	}
	if r.settings == nil {
		r.settings = shared.DefaultSettings()
	}

	conn, err := r.connect(ctx, r.settings, r.logger)
	if err != nil {
		return nil, err
	}
	r.conn = conn
	return conn, nil
}

// Close releases the backend connection, if one was made.
func (r *Runner) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// prompt reads one line from the input after printing label.
func (r *Runner) prompt(label string) (string, error) {
	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// valueOrPrompt returns the flag value, prompting for it when empty.
func (r *Runner) valueOrPrompt(cmd *cli.Command, flag, label string) (string, error) {
	if v := cmd.String(flag); v != "" {
		return v, nil
	}
	return r.prompt(label)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
