// Package scorer ranks aggregated providers for a referral request
// using a weighted composite of distance, referral history, and
// preferred status.
package scorer

import (
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/geo"
	"github.com/sells-group/referral-cli/internal/model"
)

// Weights holds the composite score weights. They are re-normalized to
// sum to one before scoring, so callers may pass any non-negative
// magnitudes.
type Weights struct {
	Distance  float64 `json:"distance"`
	Outbound  float64 `json:"outbound"`
	Inbound   float64 `json:"inbound"`
	Preferred float64 `json:"preferred"`
}

// Options parameterizes one ranking request.
type Options struct {
	// Origin is the client location; nil disables the distance term
	// and the radius filter.
	Origin *geom.Coord
	// MaxRadiusMiles excludes providers farther than this from the
	// origin; zero disables the filter. Without an origin there is no
	// distance, so the filter does not apply.
	MaxRadiusMiles float64
	// MinReferrals is the minimum outbound referral count a candidate
	// needs. When no candidate meets it the gate relaxes rather than
	// returning nothing.
	MinReferrals int
	// Specialties restricts candidates to providers sharing at least
	// one listed specialty (case-folded match). Empty means all.
	Specialties []string
	// Limit truncates the ranked list; zero means no limit.
	Limit int

	Weights Weights
}

// Reason explains a degraded or empty ranking result.
type Reason string

const (
	// ReasonOK marks a normal result.
	ReasonOK Reason = "ok"
	// ReasonThresholdRelaxed marks a result produced after dropping
	// the min-referrals gate because no candidate met it.
	ReasonThresholdRelaxed Reason = "threshold-relaxed"
	// ReasonNoCandidates marks an empty result: no provider survived
	// the filters even after relaxation.
	ReasonNoCandidates Reason = "no-candidates"
)

// ScoredCandidate is one ranked provider. Lower Score is better.
type ScoredCandidate struct {
	Provider      model.Provider `json:"provider"`
	Score         float64        `json:"score"`
	DistanceMiles *float64       `json:"distance_miles,omitempty"`
}

// Result is the outcome of one ranking request.
type Result struct {
	Candidates []ScoredCandidate `json:"candidates"`
	Reason     Reason            `json:"reason"`
	Warnings   []model.Warning   `json:"warnings,omitempty"`
}

// DistanceFunc computes the distance in miles between two coordinates.
type DistanceFunc func(a, b geom.Coord) float64

// Engine ranks providers. The zero value is not usable; construct with
// NewEngine.
type Engine struct {
	dist DistanceFunc
}

// NewEngine returns an Engine using great-circle distance. Pass a
// non-nil DistanceFunc to override (tests use fixed grids).
func NewEngine(dist DistanceFunc) *Engine {
	if dist == nil {
		dist = geo.HaversineMiles
	}
	return &Engine{dist: dist}
}

// Rank filters and scores the provider set. Filtering applies
// specialty, radius, and the min-referrals gate; if the gate would
// empty a non-empty candidate pool it relaxes and the result says so.
// Scoring is a weighted composite over min-max normalized factors where
// lower is better; ties keep the input order.
func (e *Engine) Rank(providers []model.Provider, opts Options) *Result {
	var warns model.Warnings

	pool := e.filter(providers, opts)

	gated := pool
	reason := ReasonOK
	if opts.MinReferrals > 0 {
		gated = nil
		for _, c := range pool {
			if c.Provider.OutboundCount >= opts.MinReferrals {
				gated = append(gated, c)
			}
		}
		if len(gated) == 0 && len(pool) > 0 {
			warns.Add(model.WarnFiltersRelaxed,
				"no candidate has %d+ outbound referrals; min-referrals gate relaxed", opts.MinReferrals)
			zap.L().Warn("scorer: min-referrals gate relaxed",
				zap.Int("min_referrals", opts.MinReferrals),
				zap.Int("candidates", len(pool)),
			)
			gated = pool
			reason = ReasonThresholdRelaxed
		}
	}

	if len(gated) == 0 {
		return &Result{Reason: ReasonNoCandidates, Warnings: warns.List()}
	}

	e.score(gated, opts, &warns)

	sort.SliceStable(gated, func(i, j int) bool { return gated[i].Score < gated[j].Score })
	if opts.Limit > 0 && len(gated) > opts.Limit {
		gated = gated[:opts.Limit]
	}

	return &Result{Candidates: gated, Reason: reason, Warnings: warns.List()}
}

// filter applies the specialty and radius filters and computes each
// survivor's distance. With an origin set, providers without
// coordinates are excluded since they have no defined distance.
func (e *Engine) filter(providers []model.Provider, opts Options) []ScoredCandidate {
	wanted := make(map[string]bool, len(opts.Specialties))
	for _, s := range opts.Specialties {
		wanted[model.FoldKey(s)] = true
	}

	var out []ScoredCandidate
	for i := range providers {
		p := providers[i]

		if len(wanted) > 0 {
			match := false
			for _, s := range p.Specialties() {
				if wanted[model.FoldKey(s)] {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}

		c := ScoredCandidate{Provider: p}
		if opts.Origin != nil {
			if !p.HasCoordinates() {
				continue
			}
			d := e.dist(*opts.Origin, geo.Point(*p.Latitude, *p.Longitude))
			if opts.MaxRadiusMiles > 0 && d > opts.MaxRadiusMiles {
				continue
			}
			c.DistanceMiles = &d
		}
		out = append(out, c)
	}
	return out
}

// score computes the composite for each candidate in place.
func (e *Engine) score(cands []ScoredCandidate, opts Options, warns *model.Warnings) {
	w := opts.Weights
	if opts.Origin == nil {
		w.Distance = 0
	}
	total := w.Distance + w.Outbound + w.Inbound + w.Preferred
	if total <= 0 {
		// Degenerate weights: fall back to pure distance ordering so
		// the result is still deterministic and explainable.
		zap.L().Warn("scorer: weights sum to zero, using distance only")
		w = Weights{Distance: 1}
		if opts.Origin == nil {
			// No distance either: every candidate scores zero and the
			// stable sort preserves input order.
			w.Distance = 0
		}
		total = 1
	}
	w.Distance /= total
	w.Outbound /= total
	w.Inbound /= total
	w.Preferred /= total

	distN := normalizer(cands, func(c *ScoredCandidate) float64 {
		if c.DistanceMiles == nil {
			return 0
		}
		return *c.DistanceMiles
	})
	outN := normalizer(cands, func(c *ScoredCandidate) float64 { return float64(c.Provider.OutboundCount) })
	inN := normalizer(cands, func(c *ScoredCandidate) float64 { return float64(c.Provider.InboundCount) })

	for i := range cands {
		c := &cands[i]
		pref := 0.0
		if c.Provider.IsPreferred {
			pref = 1.0
		}
		c.Score = w.Distance*distN(c) - w.Outbound*outN(c) - w.Inbound*inN(c) - w.Preferred*pref
	}
}

// normalizer returns a min-max normalizer for one factor over the
// candidate pool. A constant factor normalizes to zero so it cannot
// influence the ordering.
func normalizer(cands []ScoredCandidate, get func(*ScoredCandidate) float64) func(*ScoredCandidate) float64 {
	if len(cands) == 0 {
		return func(*ScoredCandidate) float64 { return 0 }
	}
	min, max := get(&cands[0]), get(&cands[0])
	for i := 1; i < len(cands); i++ {
		v := get(&cands[i])
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		return func(*ScoredCandidate) float64 { return 0 }
	}
	span := max - min
	return func(c *ScoredCandidate) float64 { return (get(c) - min) / span }
}
