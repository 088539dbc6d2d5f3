// Package mania implements the key-based ruleset (id 3). Converted
// beatmaps derive their column from the source X coordinate.
package mania

import (
	"math"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

const (
	strainDecayBase = 0.3
	strainMult      = 1000

	playfieldWidth = 512.0
)

type Ruleset struct {
	mods map[string]rulesets.Mod
}

func New() *Ruleset {
	return &Ruleset{mods: map[string]rulesets.Mod{
		"NF": {Acronym: "NF", Bit: rulesets.BitNoFail, RateMultiplier: 1},
		"EZ": {Acronym: "EZ", Bit: rulesets.BitEasy, RateMultiplier: 1},
		"DT": {Acronym: "DT", Bit: rulesets.BitDoubleTime, RateMultiplier: 1.5},
		"HT": {Acronym: "HT", Bit: rulesets.BitHalfTime, RateMultiplier: 0.75},
		"CL": {Acronym: "CL", Bit: 0, RateMultiplier: 1},
	}}
}

func (r *Ruleset) ID() int      { return 3 }
func (r *Ruleset) Name() string { return "mania" }

func (r *Ruleset) CreateMod(acronym string) (rulesets.Mod, bool) {
	m, ok := r.mods[acronym]
	return m, ok
}

func (r *Ruleset) ConvertToLegacyMods(mods []rulesets.Mod) int64 {
	return rulesets.SumLegacyBits(mods)
}

func (r *Ruleset) CreateDifficultyCalculator(b *beatmap.Beatmap) rulesets.DifficultyCalculator {
	return &calculator{ruleset: r, beatmap: b}
}

// keyCount mirrors the conversion rule: circle size picks the column count.
func keyCount(b *beatmap.Beatmap) int {
	k := int(math.Round(b.CircleSize))
	if k < 1 {
		k = 4
	}
	if k > 10 {
		k = 10
	}
	return k
}

func (r *Ruleset) CreatePlayable(b *beatmap.Beatmap, mods []rulesets.Mod) *beatmap.Playable {
	rate := rulesets.RateOf(mods)
	keys := float64(keyCount(b))
	objs := make([]beatmap.HitObject, len(b.HitObjects))
	for i, h := range b.HitObjects {
		h.Time /= rate
		if h.EndTime > 0 {
			h.EndTime /= rate
		}
		h.X = math.Min(keys-1, math.Floor(h.X/playfieldWidth*keys))
		h.Y = 0
		objs[i] = h
	}
	return &beatmap.Playable{
		BeatmapID:         b.ID,
		RulesetID:         r.ID(),
		Mods:              r.ConvertToLegacyMods(mods),
		HitObjects:        objs,
		OverallDifficulty: rulesets.EffectiveOD(b.OverallDifficulty, mods),
		DrainRate:         b.DrainRate,
		CircleSize:        float64(keyCount(b)),
	}
}

type calculator struct {
	ruleset *Ruleset
	beatmap *beatmap.Beatmap
}

func (c *calculator) CalculateAllLegacyCombinations() ([]rulesets.DifficultyResult, error) {
	m := c.ruleset.mods
	// Only rate-changing mods alter mania difficulty.
	combos := rulesets.CrossCombinations(
		[]rulesets.Mod{m["HT"], m["DT"]},
	)

	results := make([]rulesets.DifficultyResult, 0, len(combos))
	for _, mods := range combos {
		results = append(results, c.calculate(mods))
	}
	return results, nil
}

func (c *calculator) calculate(mods []rulesets.Mod) rulesets.DifficultyResult {
	rate := rulesets.RateOf(mods)
	keys := float64(keyCount(c.beatmap))
	skill := rulesets.StrainSkill{DecayBase: strainDecayBase, Multiplier: strainMult}

	objs := c.beatmap.HitObjects
	for i := 1; i < len(objs); i++ {
		cur, prev := objs[i], objs[i-1]
		delta := math.Max((cur.Time-prev.Time)/rate, 25)
		// Column changes are cheaper than jacks on the same column.
		sameColumn := int(cur.X/playfieldWidth*keys) == int(prev.X/playfieldWidth*keys)
		value := 1 / delta
		if sameColumn {
			value *= 1.25
		}
		skill.Process(cur.Time/rate, delta, value)
	}

	strain := rulesets.StarScale(skill.DifficultyValue())

	maxCombo := c.beatmap.MaxCombo
	if maxCombo == 0 {
		maxCombo = len(objs)
	}

	return rulesets.DifficultyResult{
		Mods:       mods,
		StarRating: strain,
		MaxCombo:   maxCombo,
		Attributes: []attributes.Value{
			{ID: attributes.Strain, Value: strain},
			{ID: attributes.HitWindow300, Value: rulesets.HitWindow300(c.beatmap.OverallDifficulty, mods) * 0.8},
			{ID: attributes.ScoreMultiplier, Value: scoreMultiplier(mods)},
			{ID: attributes.MaxCombo, Value: float64(maxCombo)},
		},
	}
}

func scoreMultiplier(mods []rulesets.Mod) float64 {
	mult := 1.0
	if rulesets.HasMod(mods, "EZ") {
		mult *= 0.5
	}
	if rulesets.HasMod(mods, "NF") {
		mult *= 0.5
	}
	if rulesets.HasMod(mods, "HT") {
		mult *= 0.5
	}
	return mult
}

func (r *Ruleset) CreateLegacyScoreSimulator() rulesets.LegacyScoreSimulator {
	return &scoreSimulator{}
}

type scoreSimulator struct{}

// Mania's legacy score is accuracy-weighted with a fixed one-million pool;
// there is no combo-scaled component.
func (s *scoreSimulator) Simulate(b *beatmap.Beatmap, p *beatmap.Playable) rulesets.LegacyScoreAttributes {
	n := len(p.HitObjects)
	var accuracy int64
	if n > 0 {
		accuracy = 1000000
	}
	return rulesets.LegacyScoreAttributes{
		AccuracyScore:   accuracy,
		ComboScore:      0,
		BonusScoreRatio: 0,
		BonusScore:      0,
		MaxCombo:        n,
	}
}
