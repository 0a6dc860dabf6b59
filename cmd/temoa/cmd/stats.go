package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/output"
)

func newStatsCmd() *cobra.Command {
	var (
		vault      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics for a vault",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, vault, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory (default: current directory)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, vaultFlag string, jsonOutput bool) error {
	root, err := resolveVaultRoot(vaultFlag)
	if err != nil {
		return err
	}

	srv, err := newServerFor(root)
	if err != nil {
		return err
	}

	stats, err := srv.VaultStats("")
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("📋", "Stats for %s", root)
	out.Statusf("", "  files:       %v", stats["file_count"])
	out.Statusf("", "  embeddings:  %v", stats["embedding_count"])
	out.Statusf("", "  tags:        %v", stats["tag_count"])
	out.Statusf("", "  directories: %v", stats["directory_count"])
	out.Statusf("", "  model:       %v (dim %v)", stats["model_id"], stats["dimension"])
	out.Statusf("", "  created:     %v", stats["created_at"])
	return nil
}
