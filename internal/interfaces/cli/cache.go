package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/mcbuilder/internal/config"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared alignment cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached alignment under the configured key prefix",
		Args:  cobra.NoArgs,
		RunE:  runCachePurge,
	})
	return cmd
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	if cfg.Cache.Backend != config.CacheRedis {
		return errors.NewValidationError("cache.backend", "cache purge needs the redis backend").
			WithDetail("backend=" + cfg.Cache.Backend)
	}
	cfg.Storage.MinIO.Enabled = false

	ctx := cmd.Context()
	d, err := initDeps(ctx, &cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.cache.Purge(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached alignments\n", n)
	return nil
}
