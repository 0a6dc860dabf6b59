package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/output"
)

func newReindexCmd() *cobra.Command {
	var (
		vault string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Build or refresh the vault's search index",
		Long: `Build or refresh the on-disk index for a vault.

By default this runs an incremental build: only new or modified notes
are re-embedded and deleted notes are pruned. Use --force for a full
rebuild from scratch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd.Context(), cmd, vault, force)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Force a full rebuild, ignoring the existing index")

	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command, vaultFlag string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := resolveVaultRoot(vaultFlag)
	if err != nil {
		return err
	}

	srv, err := newServerFor(root)
	if err != nil {
		return err
	}

	out.Statusf("📊", "Indexing %s...", root)
	stats, err := srv.ReindexVault(ctx, "", force)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	out.Successf("Indexed in %s", stats.Duration)
	out.Statusf("", "  new: %d, modified: %d, deleted: %d, total: %d",
		stats.New, stats.Modified, stats.Deleted, stats.Total)
	return nil
}
