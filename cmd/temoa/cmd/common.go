package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pborenstein/temoa/internal/config"
	"github.com/pborenstein/temoa/internal/httpapi"
)

// resolveVaultRoot turns a (possibly empty) --vault flag into an absolute
// vault directory, defaulting to the current working directory the way a
// note-taking CLI's implicit "run me from inside the vault" convention
// expects.
func resolveVaultRoot(vaultFlag string) (string, error) {
	root := vaultFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault path: %w", err)
	}
	return abs, nil
}

// newServerFor loads configuration for root and constructs a Server over
// it, for the commands that reuse the HTTP server's search/reindex code
// path in-process instead of spinning up a daemon.
func newServerFor(root string) (*httpapi.Server, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Vault.Root = root

	return httpapi.New(cfg, slog.Default())
}
