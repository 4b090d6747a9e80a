package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/application/services/lifecycle"
	"github.com/vsinha/requisition/pkg/application/services/orchestration"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/backend"
	"github.com/vsinha/requisition/pkg/infrastructure/config"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"github.com/vsinha/requisition/pkg/infrastructure/metrics"
	"github.com/vsinha/requisition/pkg/interfaces/cli/output"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// usageError marks a malformed invocation
type usageError struct {
	message string
}

func (e *usageError) Error() string {
	return e.message
}

func usagef(format string, args ...interface{}) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// Runner executes one CLI invocation. Environ nil means the process
// environment; DotEnv names an optional .env file.
type Runner struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Environ    map[string]string
	DotEnv     string
	HTTPClient *http.Client
}

// Run executes args against the process environment and returns the exit code
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	runner := &Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr, DotEnv: ".env"}
	return runner.Run(ctx, args)
}

// environment is what a command runs against
type environment struct {
	workspace *orchestration.Workspace
	printer   *output.Printer
	metrics   *metrics.Recorder
	runner    *Runner
	log       *logrus.Entry
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

func commandTable() []command {
	return []command{
		{"login", "login --email EMAIL [--password PASSWORD]", "Sign in and store the session token", runLogin},
		{"logout", "logout", "Sign out and forget the stored token", runLogout},
		{"whoami", "whoami", "Show the signed-in user", runWhoami},
		{"stock", "stock [--search TEXT]", "List stock levels", runStock},
		{"cart", "cart show|add ID QTY|remove ID|set ID QTY|clear|import FILE", "Inspect or change the working cart", runCart},
		{"submit", "submit", "Create a draft request from the cart", runSubmit},
		{"requests", "requests", "List your requests", runRequests},
		{"request", "request show|submit|receive ID", "Show a request or act on it", runRequest},
		{"diag", "diag", "Show session, journal and backend call diagnostics", runDiag},
		{"help", "help", "Show this help", nil},
	}
}

// Run parses global flags, builds the workspace and dispatches the command
func (r *Runner) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("requisition", flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	var (
		configFile  = fs.String("config", "", "Path to a YAML config file")
		format      = fs.String("format", output.FormatText, "Output format: text, json")
		backendURL  = fs.String("backend", "", "Backend API base URL (overrides config)")
		storeDriver = fs.String("store", "", "Store driver: sqlite, postgres, redis, memory (overrides config)")
		verbose     = fs.Bool("verbose", false, "Enable debug logging")
	)
	fs.Usage = func() { r.usage(r.Stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		r.usage(r.Stderr, fs)
		return ExitUsage
	}
	if rest[0] == "help" {
		r.usage(r.Stdout, fs)
		return ExitOK
	}

	var cmd *command
	for _, c := range commandTable() {
		if c.name == rest[0] && c.run != nil {
			cmd = &c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(r.Stderr, "Error: unknown command %q\n", rest[0])
		r.usage(r.Stderr, fs)
		return ExitUsage
	}

	if err := output.ValidateFormat(*format); err != nil {
		fmt.Fprintf(r.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	cfg, err := config.Load(config.Sources{File: *configFile, DotEnv: r.DotEnv, Environ: r.Environ})
	if err != nil {
		fmt.Fprintf(r.Stderr, "Error: configuration: %v\n", err)
		return ExitUsage
	}
	if *backendURL != "" {
		cfg.Backend.BaseURL = *backendURL
	}
	if *storeDriver != "" {
		cfg.Store.Driver = *storeDriver
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(r.Stderr, "Error: configuration: %v\n", err)
		return ExitUsage
	}

	env, closer, err := r.open(ctx, cfg, *format)
	if err != nil {
		fmt.Fprintf(r.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	defer func() {
		if err := closer.Close(); err != nil {
			env.log.WithError(err).Warn("failed to close store")
		}
	}()

	env.workspace.Start(ctx)
	return r.exitCode(cmd, cmd.run(ctx, env, rest[1:]))
}

// open builds the logger, REST client, store and workspace for cfg
func (r *Runner) open(ctx context.Context, cfg config.Config, format string) (*environment, io.Closer, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: r.Stderr})
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.NewRecorder()
	client, err := backend.NewClient(backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		AuthScheme: cfg.Backend.AuthScheme,
		RateLimit:  cfg.Backend.RateLimit,
		Burst:      cfg.Backend.Burst,
		MaxRetries: cfg.Backend.MaxRetries,
		RetryWait:  cfg.Backend.RetryWait,
		HTTPClient: r.HTTPClient,
		Logger:     logging.Component(logger, "backend"),
		Metrics:    recorder,
	})
	if err != nil {
		return nil, nil, err
	}

	store, closer, err := cfg.Store.OpenStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	workspace, err := orchestration.NewWorkspace(orchestration.Dependencies{
		Backend: client,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return &environment{
		workspace: workspace,
		printer:   output.NewPrinter(r.Stdout, format),
		metrics:   recorder,
		runner:    r,
		log:       logging.Component(logger, "cli"),
	}, closer, nil
}

func (r *Runner) exitCode(cmd *command, err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(r.Stderr, "Error: %s\nUsage: requisition %s\n", usage.message, cmd.usage)
		return ExitUsage
	}
	fmt.Fprintf(r.Stderr, "Error: %s\n", describe(err))
	return ExitFailure
}

// describe turns an operation error into a user-facing sentence
func describe(err error) string {
	var be *repositories.BackendError
	switch {
	case errors.Is(err, orchestration.ErrNotAuthenticated):
		return "not logged in, run 'requisition login' first"
	case errors.Is(err, lifecycle.ErrEmptyCart):
		return "the cart is empty, add items with 'requisition cart add' first"
	case errors.As(err, &be) && be.Message != "":
		return be.Message
	default:
		return err.Error()
	}
}

func (r *Runner) usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: requisition [flags] <command> [args]\n\nCommands:\n")
	for _, c := range commandTable() {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
		fmt.Fprintf(w, "  %-10s   requisition %s\n", "", c.usage)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	previous := fs.Output()
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(previous)
}

func parseVariantID(s string) (entities.VariantID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid variant id %q", s)
	}
	return entities.VariantID(id), nil
}

func parseRequestID(s string) (entities.RequestID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid request id %q", s)
	}
	return entities.RequestID(id), nil
}

func parseQuantity(s string) (entities.Quantity, error) {
	quantity, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, usagef("invalid quantity %q", s)
	}
	if entities.Quantity(quantity) > entities.MaxQuantity {
		return 0, usagef("quantity %d exceeds the limit of %d", quantity, entities.MaxQuantity)
	}
	return entities.Quantity(quantity), nil
}

// warn reports a best-effort failure that did not fail the command
func (env *environment) warn(format string, args ...interface{}) {
	fmt.Fprintf(env.runner.Stderr, "Warning: "+format+"\n", args...)
}
