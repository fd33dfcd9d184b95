package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/adapter"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/config"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/logging"
	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
	"github.com/spf13/cobra"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	root := newRootCommand(a)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", config.FormatError(err, a.verbose()))
		os.Exit(1)
	}
}

// app holds global flags and the collaborators shared by subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	levelVar slog.LevelVar
	logger   *slog.Logger
	detector platform.Detector
	options  []adapter.Option
}

func newRootCommand(a *app) *cobra.Command {
	a.logger = logging.New(logging.ModeCLI, a.stderr, &a.levelVar)

	root := &cobra.Command{
		Use:           "xmlls",
		Short:         "Install, update and launch the LemMinX XML language server",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Settings file (default $XMLLS_CONFIG or the user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log verbosity (debug, info, warning, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored log output")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		mode, err := logging.ParseMode(a.logFormat)
		if err != nil {
			return err
		}
		a.levelVar.Set(level)
		a.logger = logging.New(mode, a.stderr, &a.levelVar, logging.Options{NoColor: a.noColor})
		slog.SetDefault(a.logger)
		return nil
	}

	root.AddCommand(
		newStatusCommand(a),
		newInstallCommand(a),
		newCommandCommand(a),
		newInitOptionsCommand(a),
		newRunCommand(a),
		newUninstallCommand(a),
		newConfigCommand(a),
	)
	return root
}

func (a *app) verbose() bool {
	return a.levelVar.Level() <= slog.LevelDebug
}

func (a *app) platformDetector() platform.Detector {
	if a.detector == nil {
		a.detector = platform.NewDetector()
	}
	return a.detector
}

// loadSettings reads the settings file selected by --config.
func (a *app) loadSettings(ctx context.Context) (*config.Settings, error) {
	loader := config.NewLoader(a.platformDetector(), config.WithLogger(a.logger.With("component", "config")))
	return loader.Load(ctx, a.configPath)
}

// openAdapter loads settings and opens the process adapter. Callers must
// Close it.
func (a *app) openAdapter(ctx context.Context) (*adapter.Adapter, error) {
	settings, err := a.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]adapter.Option{
		adapter.WithLogger(a.logger),
		adapter.WithDetector(a.platformDetector()),
	}, a.options...)
	return adapter.New(ctx, settings, opts...)
}
