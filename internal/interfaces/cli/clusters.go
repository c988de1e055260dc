package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/mcbuilder/internal/application/assembly"
)

type clustersOptions struct {
	inputs   []string
	identity float64
	workers  int
	format   string
}

// NewClustersCmd creates the clusters command, which lists the sequence
// clusters and the labels a stoichiometry refers to.
func NewClustersCmd() *cobra.Command {
	opts := &clustersOptions{}
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "List the sequence clusters of the inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusters(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.inputs, "input", "i", nil, "input FASTA/PDB files or directories (default: working directory)")
	f.Float64Var(&opts.identity, "identity", 0, "sequence identity threshold (default 0.95)")
	f.IntVar(&opts.workers, "workers", 0, "worker goroutines (default: number of CPUs)")
	f.StringVar(&opts.format, "format", "", "report format: text|json")
	return cmd
}

func runClusters(cmd *cobra.Command, opts *clustersOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.Input.Paths = opts.inputs
	}
	if fs.Changed("identity") {
		cfg.Clustering.IdentityThreshold = opts.identity
	}
	if fs.Changed("workers") {
		cfg.Clustering.Workers = opts.workers
	}
	if fs.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	d, err := initDeps(ctx, &cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer d.Close()

	table, err := d.service(&cfg).Clusters(ctx, &assembly.ClustersInput{
		Paths:      cfg.Input.Paths,
		Clustering: cfg.Clustering.Domain(),
	})
	if err != nil {
		return err
	}
	return printClusterTable(cmd.OutOrStdout(), cfg.Output.Format, table)
}
