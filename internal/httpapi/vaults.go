package httpapi

import (
	"fmt"
	"path/filepath"
)

// vaultInfo pairs a vault's request-facing name with its canonical root.
type vaultInfo struct {
	Name string
	Root string
}

// errUnknownVault signals a vault= parameter naming a vault this server
// was not configured to serve. Handlers translate this to a 404.
type errUnknownVault struct {
	name string
}

func (e *errUnknownVault) Error() string {
	return fmt.Sprintf("unknown vault %q", e.name)
}

// resolveVault maps a request's vault= value to a configured vault root.
// The empty string selects the server's default (primary) vault.
func (s *Server) resolveVault(name string) (vaultInfo, error) {
	if name == "" || name == s.defaultVaultName {
		return vaultInfo{Name: s.defaultVaultName, Root: s.cfg.Vault.Root}, nil
	}
	if root, ok := s.cfg.Vault.Named[name]; ok {
		return vaultInfo{Name: name, Root: root}, nil
	}
	return vaultInfo{}, &errUnknownVault{name: name}
}

// vaultList enumerates every vault this server can serve, for GET /vaults.
func (s *Server) vaultList() []vaultInfo {
	out := []vaultInfo{{Name: s.defaultVaultName, Root: s.cfg.Vault.Root}}
	for name, root := range s.cfg.Vault.Named {
		out = append(out, vaultInfo{Name: name, Root: root})
	}
	return out
}

// VaultInfo pairs a vault's request-facing name with its canonical root,
// for callers outside the package (the CLI's `temoa vaults` command).
type VaultInfo struct {
	Name string
	Root string
}

// Vaults enumerates every vault this server can serve.
func (s *Server) Vaults() []VaultInfo {
	list := s.vaultList()
	out := make([]VaultInfo, len(list))
	for i, v := range list {
		out[i] = VaultInfo{Name: v.Name, Root: v.Root}
	}
	return out
}

func defaultVaultName(root string) string {
	base := filepath.Base(root)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "default"
	}
	return base
}
