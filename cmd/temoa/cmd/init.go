package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/configs"
	"github.com/pborenstein/temoa/internal/output"
)

func newInitCmd() *cobra.Command {
	var (
		vault      string
		force      bool
		configOnly bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a vault for Temoa",
		Long: `Initialize a vault directory for Temoa.

This writes a .temoa.yaml configuration template (unless one already
exists) and then runs a full index build, unless --config-only is set.`,
		Example: `  # Initialize the current directory
  temoa init

  # Just write the config template, skip indexing
  temoa init --config-only

  # Overwrite an existing .temoa.yaml
  temoa init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInit(ctx, cmd, vault, force, configOnly)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .temoa.yaml")
	cmd.Flags().BoolVar(&configOnly, "config-only", false, "Write the config template only, skip indexing")

	return cmd
}

// writeVaultConfig creates a .temoa.yaml template in root if one doesn't
// already exist (or force is set), from the same embedded template
// `temoa config init` uses for the user-level file.
func writeVaultConfig(out *output.Writer, root string, force bool) error {
	yamlPath := filepath.Join(root, ".temoa.yaml")
	ymlPath := filepath.Join(root, ".temoa.yml")

	if !force {
		if _, err := os.Stat(yamlPath); err == nil {
			out.Status("ℹ️ ", "Existing .temoa.yaml preserved")
			return nil
		}
		if _, err := os.Stat(ymlPath); err == nil {
			out.Status("ℹ️ ", "Existing .temoa.yml preserved")
			return nil
		}
	}

	if err := os.WriteFile(yamlPath, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write .temoa.yaml: %w", err)
	}
	out.Statusf("📝", "Created %s", yamlPath)
	return nil
}

func runInit(ctx context.Context, cmd *cobra.Command, vaultFlag string, force, configOnly bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := resolveVaultRoot(vaultFlag)
	if err != nil {
		return err
	}

	out.Statusf("📁", "Vault: %s", root)
	out.Newline()

	if err := writeVaultConfig(out, root, force); err != nil {
		return err
	}

	if configOnly {
		out.Newline()
		out.Status("⏭️ ", "Skipping indexing (--config-only)")
		out.Success("Configuration complete!")
		return nil
	}

	srv, err := newServerFor(root)
	if err != nil {
		return err
	}

	out.Newline()
	out.Status("📊", "Indexing vault...")
	start := time.Now()
	stats, err := srv.ReindexVault(ctx, "", false)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	out.Statusf("⏱️ ", "Completed in %.1fs (%d chunks)", time.Since(start).Seconds(), stats.Total)

	out.Newline()
	out.Success("Initialization complete!")
	out.Status("📋", "Next step: run 'temoa serve' to start the search API")
	return nil
}
