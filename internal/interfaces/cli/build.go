package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/mcbuilder/internal/application/assembly"
	"github.com/turtacn/mcbuilder/internal/config"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
)

// buildOptions holds the flags of the build command.  Only flags set on the
// command line override the loaded configuration.
type buildOptions struct {
	inputs        []string
	output        string
	stoichiometry string
	limit         int
	complete      bool
	rmsd          float64
	clashDistance float64
	identity      float64
	maxDepth      int
	maxStates     int
	workers       int
	timeout       time.Duration
	upload        bool
	metricsFile   string
	metricsPush   string
	format        string
}

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	return newBuildCmd(&buildOptions{})
}

func newBuildCmd(opts *buildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a macrocomplex model",
		Long: "Cluster the input chains by sequence identity, index the pairwise\n" +
			"interaction templates and grow a complex from them.  The model is\n" +
			"written as 0_<output>.",
		Example: "  mcbuilder build -i examples/ -o complex.pdb -s A2B2 -v",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.inputs, "input", "i", nil, "input FASTA/PDB files or directories (default: working directory)")
	f.StringVarP(&opts.output, "output", "o", config.DefaultOutputPath, "output model file name")
	f.StringVarP(&opts.stoichiometry, "stoichiometry", "s", "", "target stoichiometry, e.g. A2B1")
	f.IntVarP(&opts.limit, "limit", "l", 0, "maximum number of chains in the model (0: unlimited)")
	f.BoolVarP(&opts.complete, "complete", "c", false, "search exhaustively instead of greedily")
	f.Float64VarP(&opts.rmsd, "rmsd", "r", 0, "maximum superposition RMSD in Å (default 0.5)")
	f.Float64Var(&opts.clashDistance, "clash-distance", 0, "minimum distance in Å between atoms of different chains (default 2.0)")
	f.Float64Var(&opts.identity, "identity", 0, "sequence identity threshold for clustering (default 0.95)")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "maximum number of placements in exhaustive mode")
	f.IntVar(&opts.maxStates, "max-states", 0, "maximum number of states visited in exhaustive mode")
	f.IntVar(&opts.workers, "workers", 0, "worker goroutines (default: number of CPUs)")
	f.DurationVar(&opts.timeout, "timeout", 0, "stop the search after this long and keep the best model")
	f.BoolVar(&opts.upload, "upload", false, "upload the model to the configured object store")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	f.StringVar(&opts.metricsPush, "metrics-push-url", "", "push Prometheus metrics to this Pushgateway after the run")
	f.StringVar(&opts.format, "format", "", "report format: text|json")
	return cmd
}

// applyBuildFlags copies explicitly set flags into cfg.
func applyBuildFlags(fs *pflag.FlagSet, opts *buildOptions, cfg *config.Config) {
	if fs.Changed("input") {
		cfg.Input.Paths = opts.inputs
	}
	if fs.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if fs.Changed("stoichiometry") {
		cfg.Assembly.Stoichiometry = opts.stoichiometry
	}
	if fs.Changed("limit") {
		cfg.Assembly.ChainLimit = opts.limit
	}
	if fs.Changed("complete") {
		cfg.Assembly.Exhaustive = opts.complete
	}
	if fs.Changed("rmsd") {
		cfg.Assembly.RMSDThreshold = opts.rmsd
	}
	if fs.Changed("clash-distance") {
		cfg.Assembly.ClashDistance = opts.clashDistance
	}
	if fs.Changed("identity") {
		cfg.Clustering.IdentityThreshold = opts.identity
	}
	if fs.Changed("max-depth") {
		cfg.Assembly.MaxDepth = opts.maxDepth
	}
	if fs.Changed("max-states") {
		cfg.Assembly.MaxStates = opts.maxStates
	}
	if fs.Changed("workers") {
		cfg.Assembly.Workers = opts.workers
		cfg.Clustering.Workers = opts.workers
	}
	if fs.Changed("timeout") {
		cfg.Assembly.Timeout = opts.timeout
	}
	if fs.Changed("upload") {
		cfg.Storage.MinIO.Enabled = opts.upload
	}
	if fs.Changed("metrics-file") {
		cfg.Metrics.TextfilePath = opts.metricsFile
	}
	if fs.Changed("metrics-push-url") {
		cfg.Metrics.PushURL = opts.metricsPush
	}
	if fs.Changed("format") {
		cfg.Output.Format = opts.format
	}
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	applyBuildFlags(cmd.Flags(), opts, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cliCtx.Logger
	ctx := cmd.Context()

	d, err := initDeps(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	res, buildErr := d.service(&cfg).Build(ctx, &assembly.BuildInput{
		Paths:         cfg.Input.Paths,
		Output:        cfg.Output.Path,
		Stoichiometry: cfg.Assembly.Stoichiometry,
		Clustering:    cfg.Clustering.Domain(),
		Assembly:      cfg.Assembly.Domain(),
		Timeout:       cfg.Assembly.Timeout,
		Upload:        cfg.Storage.MinIO.Enabled,
	})
	runID := ""
	if res != nil {
		runID = res.RunID
		if err := printBuildResult(cmd.OutOrStdout(), cfg.Output.Format, res); err != nil {
			return err
		}
	}

	if err := d.exportMetrics(ctx, cfg.Metrics, runID); err != nil {
		if buildErr != nil {
			logger.Warn("Failed to export metrics", logging.Err(err))
			return buildErr
		}
		return err
	}
	return buildErr
}
