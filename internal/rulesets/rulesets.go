// Package rulesets defines the capability surface every scoring ruleset
// exposes to the processor, plus the registry the process builds once at
// startup. Registration is explicit: each ruleset package exports a
// constructor and the entrypoint lists them (no scanning, no reflection).
package rulesets

import (
	"fmt"
	"sort"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
)

// StandardRulesetID marks convert-eligible content: a beatmap whose native
// ruleset is the standard one can be played, and must be rated, under
// every other registered ruleset.
const StandardRulesetID = 0

// Legacy mod bits as stored alongside difficulty rows.
const (
	BitNoFail     int64 = 1
	BitEasy       int64 = 2
	BitTouch      int64 = 4
	BitHidden     int64 = 8
	BitHardRock   int64 = 16
	BitDoubleTime int64 = 64
	BitHalfTime   int64 = 256
	BitNightcore  int64 = 512
	BitFlashlight int64 = 1024
)

// Mod is one gameplay modifier as a ruleset defines it. Acronym-only mods
// (bit 0) exist for behavioral toggles the legacy encoding has no flag
// for, such as classic scoring.
type Mod struct {
	Acronym string
	Bit     int64

	// RateMultiplier scales playback speed; 1 for mods that keep it.
	RateMultiplier float64
}

// Ruleset is the capability set every scoring mode provides.
type Ruleset interface {
	ID() int
	Name() string

	// CreateDifficultyCalculator binds the difficulty capability to one
	// beatmap. The calculator enumerates the legal mod combinations itself.
	CreateDifficultyCalculator(b *beatmap.Beatmap) DifficultyCalculator

	// ConvertToLegacyMods folds a mod list into the store's bitmask
	// encoding.
	ConvertToLegacyMods(mods []Mod) int64

	// CreateMod resolves a mod by acronym; absent acronyms report false.
	CreateMod(acronym string) (Mod, bool)

	// CreatePlayable renders the beatmap under this ruleset with the given
	// mods applied.
	CreatePlayable(b *beatmap.Beatmap, mods []Mod) *beatmap.Playable
}

// DifficultyCalculator computes difficulty for its bound beatmap across
// every legal legacy mod combination.
type DifficultyCalculator interface {
	CalculateAllLegacyCombinations() ([]DifficultyResult, error)
}

// DifficultyResult is the outcome for one mod combination.
type DifficultyResult struct {
	Mods       []Mod
	StarRating float64
	MaxCombo   int
	Attributes []attributes.Value
}

// NoMod reports whether the combination is the unmodified one.
func (r DifficultyResult) NoMod() bool { return len(r.Mods) == 0 }

// LegacyScoreAttributes is the score-simulation outcome for one
// (beatmap, ruleset) pairing; it does not vary by mod combination.
type LegacyScoreAttributes struct {
	AccuracyScore   int64
	ComboScore      int64
	BonusScoreRatio float64
	BonusScore      int64
	MaxCombo        int
}

// LegacyScoreProvider is the optional extension for rulesets that carry a
// legacy score simulation.
type LegacyScoreProvider interface {
	CreateLegacyScoreSimulator() LegacyScoreSimulator
}

type LegacyScoreSimulator interface {
	Simulate(b *beatmap.Beatmap, p *beatmap.Playable) LegacyScoreAttributes
}

// Registry holds the instantiated rulesets keyed by numeric id. It is
// immutable once built and safe for concurrent readers.
type Registry struct {
	byID map[int]Ruleset
	ids  []int
}

// NewRegistry instantiates the registry from an explicit ruleset list.
// A duplicate id is a startup failure.
func NewRegistry(list ...Ruleset) (*Registry, error) {
	r := &Registry{byID: make(map[int]Ruleset, len(list))}
	for _, rs := range list {
		if rs == nil {
			return nil, fmt.Errorf("nil ruleset in registry list")
		}
		if prev, ok := r.byID[rs.ID()]; ok {
			return nil, fmt.Errorf("duplicate ruleset id %d (%s and %s)", rs.ID(), prev.Name(), rs.Name())
		}
		r.byID[rs.ID()] = rs
		r.ids = append(r.ids, rs.ID())
	}
	sort.Ints(r.ids)
	return r, nil
}

// Get resolves one ruleset by id.
func (r *Registry) Get(id int) (Ruleset, bool) {
	rs, ok := r.byID[id]
	return rs, ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int {
	out := make([]int, len(r.ids))
	copy(out, r.ids)
	return out
}

// All returns every registered ruleset in id order.
func (r *Registry) All() []Ruleset {
	out := make([]Ruleset, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}
