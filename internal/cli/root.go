// Package cli wires the stridecoach commands.
package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/n0madic/stridecoach/internal/config"
)

// defaultConfigPath is read when --config is not given; it may be absent.
const defaultConfigPath = "stridecoach.toml"

type rootOptions struct {
	configPath string
	host       string
	port       int
	verbose    bool
	debug      bool
	dbPath     string
}

// NewRoot builds the root command.
func NewRoot(version string) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stridecoach",
		Short:         "Running-coach chat relay for OpenRouter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Version = version

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to TOML config (default: ./"+defaultConfigPath+" when present)")
	pf.StringVar(&opts.host, "host", "", "Bind host")
	pf.IntVar(&opts.port, "port", 0, "Listen port")
	pf.BoolVar(&opts.verbose, "verbose", false, "Log requests and upstream calls")
	pf.BoolVar(&opts.debug, "debug", false, "Debug logging and raw request/stream dumps")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newProfileCmd(opts))
	return cmd
}

// load resolves the configuration: defaults, then the TOML file, then the
// environment, then flags set on the command line.
func (o *rootOptions) load(cmd *cobra.Command) (*config.ServerConfig, error) {
	path, explicit := o.configPath, o.configPath != ""
	if !explicit {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("db") {
		cfg.DatabasePath = o.dbPath
	}
	if cfg.DatabasePath == "" {
		return nil, errors.New("no database path configured")
	}

	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.ServerConfig) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
