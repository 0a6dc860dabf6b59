// Package profile implements ProfileResolver: named parameter bundles that
// set a query's retrieval mode, re-ranking, time-decay half-life, query
// expansion, and default limit in one shot.
package profile

import (
	"log/slog"

	"github.com/pborenstein/temoa/internal/pipeline"
)

// Name identifies a built-in profile.
type Name string

const (
	Default  Name = "default"
	Repos    Name = "repos"
	Recent   Name = "recent"
	Deep     Name = "deep"
	Keywords Name = "keywords"
)

// bundle is a profile's parameter table entry, independent of any
// caller-supplied overrides. timeBoostDisabled marks profiles ("repos",
// "keywords") whose half-life is disabled rather than a numeric default.
// chunkingDisabled marks the same two profiles' "chunking: off" column:
// they match whole documents rather than document sub-windows.
type bundle struct {
	mode              pipeline.Mode
	rerank            bool
	halfLifeDays      float64
	timeBoostDisabled bool
	chunkingDisabled  bool
	expand            pipeline.ExpandMode
	limit             int
}

var builtins = map[Name]bundle{
	Default:  {mode: pipeline.ModeHybrid, rerank: true, halfLifeDays: 90, expand: pipeline.ExpandAuto, limit: 10},
	Repos:    {mode: pipeline.ModeDenseOnly, rerank: true, timeBoostDisabled: true, chunkingDisabled: true, expand: pipeline.ExpandOff, limit: 10},
	Recent:   {mode: pipeline.ModeHybrid, rerank: false, halfLifeDays: 14, expand: pipeline.ExpandAuto, limit: 20},
	Deep:     {mode: pipeline.ModeHybrid, rerank: true, halfLifeDays: 180, expand: pipeline.ExpandOn, limit: 25},
	Keywords: {mode: pipeline.ModeBM25Only, rerank: false, timeBoostDisabled: true, chunkingDisabled: true, expand: pipeline.ExpandOff, limit: 10},
}

// DefaultMaxBoost is shared by every built-in profile; only half-life
// varies per profile, not the boost ceiling.
const DefaultMaxBoost = 0.2

// Resolve returns the Params for a named profile, falling back to Default
// (and logging) for an unrecognized name. The returned Params still needs
// its Filters and Limit override applied by the caller if the request
// specified them explicitly.
func Resolve(name string) pipeline.Params {
	b, ok := builtins[Name(name)]
	if !ok {
		if name != "" {
			slog.Warn("unrecognized profile, falling back to default", slog.String("profile", name))
		}
		b = builtins[Default]
	}

	return pipeline.Params{
		Limit:            b.limit,
		Mode:             b.mode,
		Expand:           b.expand,
		Rerank:           b.rerank,
		ChunkingEnabled:  !b.chunkingDisabled,
		TimeBoostEnabled: !b.timeBoostDisabled,
		HalfLifeDays:     b.halfLifeDays,
		MaxBoost:         DefaultMaxBoost,
	}
}

// Names returns every built-in profile identifier, for the /profiles
// enumeration endpoint.
func Names() []Name {
	return []Name{Default, Repos, Recent, Deep, Keywords}
}
