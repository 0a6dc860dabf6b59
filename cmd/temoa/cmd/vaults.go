package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/output"
)

func newVaultsCmd() *cobra.Command {
	var vault string

	cmd := &cobra.Command{
		Use:   "vaults",
		Short: "List the vaults this configuration can serve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVaults(cmd, vault)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory (default: current directory)")

	return cmd
}

func runVaults(cmd *cobra.Command, vaultFlag string) error {
	root, err := resolveVaultRoot(vaultFlag)
	if err != nil {
		return err
	}

	srv, err := newServerFor(root)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	for _, v := range srv.Vaults() {
		out.Statusf("", "%s  %s", v.Name, v.Root)
	}
	return nil
}
