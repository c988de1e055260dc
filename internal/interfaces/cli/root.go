// Package cli implements the mcbuilder command line: a cobra root command
// carrying the global flags, and the build, clusters, cache and version
// subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/mcbuilder/internal/config"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	Verbose    bool
	NoColor    bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config  *config.Config
	Logger  logging.Logger
	Verbose bool
	NoColor bool
}

// NewRootCommand creates the root cobra command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mcbuilder",
		Short: "Build protein macrocomplexes from pairwise interaction structures",
		Long: "mcbuilder assembles a protein macrocomplex from PDB files that each hold\n" +
			"an interacting pair of chains, guided by the sequences in one or more\n" +
			"FASTA files and an optional stoichiometry such as A2B2.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				_ = cliCtx.Logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file path (default: ./mcbuilder.yaml or ~/.mcbuilder/config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFile, "log-file", "", "also write a JSON run log to this file")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "print progress to stderr")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.InvalidParam(err.Error())
	})

	cmd.AddCommand(
		NewBuildCmd(),
		NewClustersCmd(),
		NewCacheCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads the configuration, applies the global flags and
// builds the logger, then stores a CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := initConfig(opts)
	if err != nil {
		return err
	}
	applyRootFlags(cmd.Flags(), opts, cfg)
	if err := cfg.Validate(); err != nil {
		return config.ErrConfigValidation.WithCause(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "logger initialization failed")
	}
	logging.SetDefault(logger)
	if opts.NoColor {
		color.NoColor = true
	}

	cliCtx := &CLIContext{
		Config:  cfg,
		Logger:  logger,
		Verbose: opts.Verbose,
		NoColor: opts.NoColor,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: flags > env > file > defaults.
// Without --config the first existing default location is used, if any.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(config.WithConfigPath(opts.ConfigPath))
	}
	for _, p := range defaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return config.Load(config.WithConfigPath(p))
		}
	}
	return config.Load()
}

func defaultConfigPaths() []string {
	paths := []string{"mcbuilder.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mcbuilder", "config.yaml"))
	}
	return paths
}

// applyRootFlags copies explicitly set global flags into cfg.  --verbose
// lowers the console threshold to info unless a more detailed level is
// already configured.
func applyRootFlags(fs *pflag.FlagSet, opts *RootOptions, cfg *config.Config) {
	if fs.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}
	if fs.Changed("log-file") {
		cfg.Log.File = opts.LogFile
	}
	if opts.Verbose && cfg.Log.Level != logging.LevelDebug {
		cfg.Log.Level = logging.LevelInfo
	}
}

// initLogger creates a logger writing to stderr, teed to the run log file
// when one is configured.
func initLogger(cfg *config.Config) (logging.Logger, error) {
	logCfg := cfg.Log
	if logCfg.OutputPaths == nil {
		logCfg.OutputPaths = []string{"stderr"}
	}
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.NewValidationError("context", "command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.NewValidationError("context", "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the command line and returns the error of the command that
// ran, already reported on stderr.  Map it with errors.ExitCode.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	PrintError(rootCmd, err)
	return err
}

// PrintError writes err to stderr, as a warning for the non-fatal assembly
// outcomes.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	if errors.IsWarning(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("Warning:"), err.Error())
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}
