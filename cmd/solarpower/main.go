// Solar Power Monitor
//
// This is the main entry point of the solar power monitor service. It
// exposes the properties of one charge controller over HTTP, describes
// them with a W3C Thing Description and keeps that description registered
// with any configured Thing Directories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/solarpower/internal/infrastructure/config"
	"github.com/nerrad567/solarpower/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnv names the config file when --config is not given.
const configEnv = "SOLARPOWER_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(run).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// flags holds the raw command line values. They only override the
// configuration when explicitly given.
type flags struct {
	configPath  string
	device      int
	directories []string
	verbose     int
	port        int
}

// newRootCommand builds the CLI. runFn receives the fully loaded and
// validated configuration.
func newRootCommand(runFn func(context.Context, *config.Config) error) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "solarpower",
		Short:         "Solar power monitor with a Web of Things HTTP API",
		Long:          "Serves the properties of a solar charge controller over HTTP, publishes a Thing Description and registers it with Thing Directories.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runFn(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "configuration file (default $"+configEnv+")")
	fs.IntVarP(&f.device, "device", "d", 0, "device index")
	fs.StringArrayVarP(&f.directories, "tdir", "t", nil, "thing directory URL (repeatable)")
	fs.IntVarP(&f.verbose, "verbose", "v", 0, "verbosity 0-5; a bare -v means 5")
	fs.Lookup("verbose").NoOptDefVal = "5"
	fs.IntVarP(&f.port, "port", "p", 0, "HTTP port")

	return cmd
}

// loadConfig applies defaults, the config file, the environment and
// finally the flags that were set, then validates the result.
func loadConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	fs := cmd.Flags()
	if fs.Changed("device") {
		cfg.Device.Index = f.device
	}
	if fs.Changed("tdir") {
		cfg.Directory.URLs = f.directories
	}
	if fs.Changed("verbose") {
		cfg.Logging.Level = logging.VerbosityLevel(f.verbose)
	}
	if fs.Changed("port") {
		cfg.API.Port = f.port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
