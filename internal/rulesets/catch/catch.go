// Package catch implements the fruit-catching ruleset (id 2). Only
// horizontal movement matters; vertical position is fall time.
package catch

import (
	"math"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

const (
	movementDecayBase = 0.2
	movementMult      = 900
)

type Ruleset struct {
	mods map[string]rulesets.Mod
}

func New() *Ruleset {
	return &Ruleset{mods: map[string]rulesets.Mod{
		"NF": {Acronym: "NF", Bit: rulesets.BitNoFail, RateMultiplier: 1},
		"EZ": {Acronym: "EZ", Bit: rulesets.BitEasy, RateMultiplier: 1},
		"HR": {Acronym: "HR", Bit: rulesets.BitHardRock, RateMultiplier: 1},
		"DT": {Acronym: "DT", Bit: rulesets.BitDoubleTime, RateMultiplier: 1.5},
		"HT": {Acronym: "HT", Bit: rulesets.BitHalfTime, RateMultiplier: 0.75},
		"CL": {Acronym: "CL", Bit: 0, RateMultiplier: 1},
	}}
}

func (r *Ruleset) ID() int      { return 2 }
func (r *Ruleset) Name() string { return "catch" }

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

func (r *Ruleset) CreatePlayable(b *beatmap.Beatmap, mods []rulesets.Mod) *beatmap.Playable {
	rate := rulesets.RateOf(mods)
	objs := make([]beatmap.HitObject, len(b.HitObjects))
	for i, h := range b.HitObjects {
		h.Time /= rate
		if h.EndTime > 0 {
			h.EndTime /= rate
		}
		h.Y = 0
		objs[i] = h
	}
	return &beatmap.Playable{
		BeatmapID:         b.ID,
		RulesetID:         r.ID(),
		Mods:              r.ConvertToLegacyMods(mods),
		HitObjects:        objs,
		ApproachRate:      rulesets.EffectiveAR(b.ApproachRate, mods),
		DrainRate:         rulesets.ScaleDifficulty(b.DrainRate, mods, 1.4),
		CircleSize:        b.CircleSize,
	}
}

type calculator struct {
	ruleset *Ruleset
	beatmap *beatmap.Beatmap
}

func (c *calculator) CalculateAllLegacyCombinations() ([]rulesets.DifficultyResult, error) {
	m := c.ruleset.mods
	combos := rulesets.CrossCombinations(
		[]rulesets.Mod{m["EZ"], m["HR"]},
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
	skill := rulesets.StrainSkill{DecayBase: movementDecayBase, Multiplier: movementMult}

	objs := c.beatmap.HitObjects
	for i := 1; i < len(objs); i++ {
		cur, prev := objs[i], objs[i-1]
		if cur.Kind == beatmap.KindSpinner || prev.Kind == beatmap.KindSpinner {
			continue // bananas don't demand movement
		}
		delta := math.Max((cur.Time-prev.Time)/rate, 25)
		distance := math.Abs(cur.X - prev.X)
		skill.Process(cur.Time/rate, delta, distance/delta)
	}

	star := rulesets.StarScale(skill.DifficultyValue()) * 1.06

	maxCombo := c.beatmap.MaxCombo
	if maxCombo == 0 {
		maxCombo = len(objs)
	}

	return rulesets.DifficultyResult{
		Mods:       mods,
		StarRating: star,
		MaxCombo:   maxCombo,
		Attributes: []attributes.Value{
			{ID: attributes.ApproachRate, Value: rulesets.EffectiveAR(c.beatmap.ApproachRate, mods)},
			{ID: attributes.MaxCombo, Value: float64(maxCombo)},
		},
	}
}

func (r *Ruleset) CreateLegacyScoreSimulator() rulesets.LegacyScoreSimulator {
	return &scoreSimulator{}
}

type scoreSimulator struct{}

func (s *scoreSimulator) Simulate(b *beatmap.Beatmap, p *beatmap.Playable) rulesets.LegacyScoreAttributes {
	var accuracy, combo, bonus int64
	comboCount := 0
	for _, h := range p.HitObjects {
		if h.Kind == beatmap.KindSpinner {
			bananas := int64(h.Duration() / 1000 * 8)
			bonus += bananas * 1100
			continue
		}
		accuracy += 300
		combo += int64(300 * comboCount / 25)
		comboCount++
	}

	ratio := 0.0
	if accuracy > 0 {
		ratio = float64(bonus) / float64(accuracy)
	}

	return rulesets.LegacyScoreAttributes{
		AccuracyScore:   accuracy,
		ComboScore:      combo,
		BonusScoreRatio: ratio,
		BonusScore:      bonus,
		MaxCombo:        comboCount,
	}
}
