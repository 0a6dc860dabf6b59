package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pborenstein/temoa/internal/pipeline"
	"github.com/pborenstein/temoa/internal/profile"
)

// searchRequest is the fully-parsed form of a GET /search query string,
// before it is laid over a resolved profile's Params.
type searchRequest struct {
	Query      string
	Vault      string
	Profile    string
	Limit      *int
	Hybrid     *bool
	Rerank     *bool
	Expand     *string
	TimeBoost  *bool
	Filters    pipeline.ResultFilters
}

// parseSearchRequest reads every query= parameter named in the external
// interface. Unset parameters are left nil/zero so resolveParams can tell
// "not specified" from "explicitly false".
func parseSearchRequest(r *http.Request) searchRequest {
	q := r.URL.Query()

	req := searchRequest{
		Query:   q.Get("q"),
		Vault:   q.Get("vault"),
		Profile: q.Get("profile"),
		Filters: pipeline.ResultFilters{
			IncludeTypes: splitCSV(q.Get("include_types")),
			ExcludeTypes: splitCSV(q.Get("exclude_types")),
			IncludeTags:  splitCSV(q.Get("include_tags")),
			ExcludeTags:  splitCSV(q.Get("exclude_tags")),
			IncludePaths: splitCSV(q.Get("include_paths")),
			ExcludePaths: splitCSV(q.Get("exclude_paths")),
			IncludeProps: splitProps(q.Get("include_props")),
			ExcludeProps: splitProps(q.Get("exclude_props")),
		},
	}

	if v, ok := parseInt(q.Get("limit")); ok {
		req.Limit = &v
	}
	if v, ok := parseBool(q.Get("hybrid")); ok {
		req.Hybrid = &v
	}
	if v, ok := parseBool(q.Get("rerank")); ok {
		req.Rerank = &v
	}
	if v, ok := parseBool(q.Get("time_boost")); ok {
		req.TimeBoost = &v
	}
	if v := q.Get("expand"); v != "" {
		req.Expand = &v
	}

	return req
}

// resolveParams layers a request's explicit overrides over a resolved
// profile's defaults. profile.Resolve already applied the named profile
// (or "default" if unrecognized/unset); this only overrides fields the
// caller actually set.
func resolveParams(req searchRequest) pipeline.Params {
	params := profile.Resolve(req.Profile)
	params.Filters = req.Filters

	if req.Limit != nil {
		params.Limit = *req.Limit
	}
	if req.Hybrid != nil {
		if *req.Hybrid {
			params.Mode = pipeline.ModeHybrid
		} else {
			params.Mode = pipeline.ModeDenseOnly
		}
	}
	if req.Rerank != nil {
		params.Rerank = *req.Rerank
	}
	if req.TimeBoost != nil {
		params.TimeBoostEnabled = *req.TimeBoost
	}
	if req.Expand != nil {
		switch strings.ToLower(*req.Expand) {
		case "on", "true", "1":
			params.Expand = pipeline.ExpandOn
		case "off", "false", "0":
			params.Expand = pipeline.ExpandOff
		default:
			params.Expand = pipeline.ExpandAuto
		}
	}

	return params
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitProps parses the frontmatter-predicate wire format: comma-separated
// key:value pairs.
func splitProps(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBool(s string) (bool, bool) {
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return v, true
}
