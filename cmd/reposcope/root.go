package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"reposcope/internal/config"
	"reposcope/internal/logging"
	"reposcope/internal/storage"
	"reposcope/internal/version"
)

var (
	homeFlag    string
	verboseFlag int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "reposcope",
	Short: "RepoScope - scoped repository access for coding agents",
	Long: `RepoScope gives an LLM agent a sandboxed window into a repository.
Every tool resolves paths against a per-project root, honors an explicit
file scope, and returns results in a stable response envelope. The MCP
server speaks JSON-RPC 2.0 over stdio.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.SetVersionTemplate("RepoScope version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "",
		"Instance directory (default $REPOSCOPE_HOME or ~/.reposcope)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
}

// env bundles what every subcommand needs.
type env struct {
	home   string
	cfg    *config.Config
	db     *storage.DB
	logger *slog.Logger
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
}

// openEnv resolves the home directory, loads the config, and opens the
// instance database. Logs go to stderr so stdout stays clean for
// command output and the MCP protocol.
func openEnv() (*env, error) {
	home := homeFlag
	if home == "" {
		var err error
		home, err = config.HomeDir()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(home)
	if err != nil {
		return nil, err
	}

	level := logging.LevelFromVerbosity(verboseFlag, quietFlag)
	if verboseFlag == 0 && !quietFlag {
		level = logging.LevelFromString(cfg.Logging.Level)
	}
	logger := logging.New(os.Stderr, level, cfg.Logging.Format)

	db, err := storage.Open(home, logger)
	if err != nil {
		return nil, err
	}

	return &env{home: home, cfg: cfg, db: db, logger: logger}, nil
}
