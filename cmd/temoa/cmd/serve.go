package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/config"
	"github.com/pborenstein/temoa/internal/httpapi"
	"github.com/pborenstein/temoa/internal/output"
)

func newServeCmd() *cobra.Command {
	var (
		vaultFlag string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP search server for a vault",
		Long: `Start the HTTP search server over a vault directory.

The server answers /search, /reindex, /stats, /health, /vaults,
/profiles, /models, and /config until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, vaultFlag, watch)
		},
	}

	cmd.Flags().StringVar(&vaultFlag, "vault", "", "Vault directory (default: current directory)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Watch the vault for changes and reindex automatically")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, vaultFlag string, watch bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := resolveVaultRoot(vaultFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Vault.Root = root

	srv, err := httpapi.New(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to construct server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		if err := srv.WatchVault(ctx, root); err != nil {
			out.Warningf("vault watcher disabled: %v", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		out.Statusf("🔍", "Temoa serving %s on http://%s", root, addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		out.Status("", "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
