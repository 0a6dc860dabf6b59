package httpapi

import (
	"context"

	"github.com/pborenstein/temoa/internal/watcher"
)

// WatchVault starts an optional fsnotify-backed hint source for vaultRoot:
// on a debounced batch of file events it kicks off a non-forced reindex,
// which itself decides what actually changed via mtime comparison. The
// watcher is never authoritative — a missed or coalesced event only
// delays the next reindex, it never causes one to be skipped, since
// Incremental always walks the vault on its own.
func (s *Server) WatchVault(ctx context.Context, vaultRoot string) error {
	w, err := watcher.NewHybridWatcher(watcher.Options{
		IgnorePatterns: excludedDirNames(s.cfg.Vault.Exclude),
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()

	go func() {
		key := s.registryKey(vaultRoot)
		for range w.Events() {
			if _, err := s.doReindex(ctx, key, false); err != nil {
				s.logger.Warn("watch-triggered reindex failed",
					"vault", vaultRoot, "error", err)
			}
		}
	}()

	go func() {
		for err := range w.Errors() {
			s.logger.Warn("vault watcher error", "vault", vaultRoot, "error", err)
		}
	}()

	return w.Start(ctx, vaultRoot)
}
