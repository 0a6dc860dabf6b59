// Package configs provides embedded configuration templates for temoa.
//
// Templates are embedded at build time with Go's //go:embed directive so
// they ship inside the binary itself, with no separate install step.
//
// Template files:
//   - user-config.example.yaml: machine-level settings (embedding
//     provider, reranker endpoint, server host/port/CORS).
//   - project-config.example.yaml: vault-level settings (exclude
//     patterns, chunking, search weights, time boost, registry size).
//
// Configuration hierarchy (see internal/config/config.go's Load()):
//  1. Hardcoded defaults (internal/config/config.go's NewConfig())
//  2. User config (~/.config/temoa/config.yaml)
//  3. Vault config (.temoa.yaml in the vault root)
//  4. Environment variables (TEMOA_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration,
// written by `temoa config init` to ~/.config/temoa/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for vault-level configuration,
// written by `temoa init` to .temoa.yaml in the vault root.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
