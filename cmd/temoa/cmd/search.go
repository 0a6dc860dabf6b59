package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pborenstein/temoa/internal/output"
	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/profile"
)

type searchOptions struct {
	vault        string
	limit        int
	profileName  string
	mode         string
	rerank       bool
	timeBoost    bool
	includeTags  []string
	excludeTags  []string
	includeTypes []string
	excludeTypes []string
	format       string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault",
		Long: `Search the vault using hybrid retrieval (BM25 + embeddings),
fused with Reciprocal Rank Fusion and optionally cross-encoder
re-ranked and time-decayed.

Examples:
  temoa search "meeting notes about the launch"
  temoa search "retry logic" --mode bm25 --limit 5
  temoa search "project ideas" --profile recent --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVar(&opts.vault, "vault", "", "Vault directory (default: current directory)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = profile default)")
	cmd.Flags().StringVarP(&opts.profileName, "profile", "p", "default", "Named parameter profile (default, repos, recent, deep, keywords)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Retrieval mode override: hybrid, dense, bm25")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", true, "Apply cross-encoder re-ranking if configured")
	cmd.Flags().BoolVar(&opts.timeBoost, "time-boost", true, "Apply the recency boost")
	cmd.Flags().StringSliceVar(&opts.includeTags, "include-tags", nil, "Only include chunks with one of these tags")
	cmd.Flags().StringSliceVar(&opts.excludeTags, "exclude-tags", nil, "Exclude chunks with one of these tags")
	cmd.Flags().StringSliceVar(&opts.includeTypes, "include-types", nil, "Only include chunks of these note types")
	cmd.Flags().StringSliceVar(&opts.excludeTypes, "exclude-types", nil, "Exclude chunks of these note types")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	root, err := resolveVaultRoot(opts.vault)
	if err != nil {
		return err
	}

	srv, err := newServerFor(root)
	if err != nil {
		return err
	}

	params := profile.Resolve(opts.profileName)
	if opts.limit > 0 {
		params.Limit = opts.limit
	}
	params.Rerank = opts.rerank
	params.TimeBoostEnabled = opts.timeBoost
	params.Filters = pipeline.ResultFilters{
		IncludeTags:  opts.includeTags,
		ExcludeTags:  opts.excludeTags,
		IncludeTypes: opts.includeTypes,
		ExcludeTypes: opts.excludeTypes,
	}
	switch strings.ToLower(opts.mode) {
	case "dense":
		params.Mode = pipeline.ModeDenseOnly
	case "bm25":
		params.Mode = pipeline.ModeBM25Only
	case "hybrid":
		params.Mode = pipeline.ModeHybrid
	case "":
		// leave the profile's mode in place
	default:
		return fmt.Errorf("invalid --mode %q (want hybrid, dense, or bm25)", opts.mode)
	}

	results, err := srv.SearchVault(ctx, "", query, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return formatSearchResults(out, query, results)
}

func formatSearchResults(out *output.Writer, query string, results []*pipeline.SearchResult) error {
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()

	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.3f)", i+1, r.DocPath, r.Score)
		if r.Title != "" {
			out.Status("", "   "+r.Title)
		}
		if r.Snippet != "" {
			out.Status("", "   "+r.Snippet)
		}
		out.Newline()
	}
	return nil
}
