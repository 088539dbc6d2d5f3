package processor

import (
	"fmt"

	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

// Unit is one (beatmap, ruleset) pairing to process. Created per pairing,
// consumed within one pipeline run, never persisted.
type Unit struct {
	Beatmap *beatmap.Beatmap
	Ruleset rulesets.Ruleset
	Ranked  bool
}

func (u Unit) BeatmapID() int { return u.Beatmap.ID }
func (u Unit) RulesetID() int { return u.Ruleset.ID() }

// Resolver decides which ruleset instances apply to a beatmap. An
// allowlisted id missing from the registry fails here, at construction,
// not per item.
type Resolver struct {
	allowed         []rulesets.Ruleset // id order
	allowedIDs      map[int]rulesets.Ruleset
	processConverts bool
}

// NewResolver restricts the registry to the allowlist (nil or empty means
// every registered ruleset).
func NewResolver(reg *rulesets.Registry, allowlist []int, processConverts bool) (*Resolver, error) {
	r := &Resolver{
		allowedIDs:      make(map[int]rulesets.Ruleset),
		processConverts: processConverts,
	}

	ids := allowlist
	if len(ids) == 0 {
		ids = reg.IDs()
	}
	for _, id := range ids {
		rs, ok := reg.Get(id)
		if !ok {
			return nil, fmt.Errorf("ruleset id %d not registered", id)
		}
		if _, dup := r.allowedIDs[id]; dup {
			continue
		}
		r.allowedIDs[id] = rs
		r.allowed = append(r.allowed, rs)
	}
	return r, nil
}

// Units selects the pairings for one beatmap. Convert-eligible content
// fans out over every allowed ruleset; anything else matches its native
// ruleset or nothing. An empty result is a legitimate skip, not an error.
func (r *Resolver) Units(b *beatmap.Beatmap, ranked bool) []Unit {
	if r.processConverts && b.RulesetID == rulesets.StandardRulesetID {
		units := make([]Unit, 0, len(r.allowed))
		for _, rs := range r.allowed {
			units = append(units, Unit{Beatmap: b, Ruleset: rs, Ranked: ranked})
		}
		return units
	}

	if rs, ok := r.allowedIDs[b.RulesetID]; ok {
		return []Unit{{Beatmap: b, Ruleset: rs, Ranked: ranked}}
	}
	return nil
}
