// Package taiko implements the drum ruleset (id 1). Position data is
// irrelevant here; difficulty is carried by rhythm density alone.
package taiko

import (
	"math"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

const (
	strainDecayBase = 0.3
	strainMult      = 1140
)

type Ruleset struct {
	mods map[string]rulesets.Mod
}

func New() *Ruleset {
	return &Ruleset{mods: map[string]rulesets.Mod{
		"NF": {Acronym: "NF", Bit: rulesets.BitNoFail, RateMultiplier: 1},
		"EZ": {Acronym: "EZ", Bit: rulesets.BitEasy, RateMultiplier: 1},
		"HD": {Acronym: "HD", Bit: rulesets.BitHidden, RateMultiplier: 1},
		"HR": {Acronym: "HR", Bit: rulesets.BitHardRock, RateMultiplier: 1},
		"DT": {Acronym: "DT", Bit: rulesets.BitDoubleTime, RateMultiplier: 1.5},
		"HT": {Acronym: "HT", Bit: rulesets.BitHalfTime, RateMultiplier: 0.75},
		"CL": {Acronym: "CL", Bit: 0, RateMultiplier: 1},
	}}
}

func (r *Ruleset) ID() int      { return 1 }
func (r *Ruleset) Name() string { return "taiko" }

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
		h.X, h.Y = 0, 0
		objs[i] = h
	}
	return &beatmap.Playable{
		BeatmapID:         b.ID,
		RulesetID:         r.ID(),
		Mods:              r.ConvertToLegacyMods(mods),
		HitObjects:        objs,
		OverallDifficulty: rulesets.EffectiveOD(b.OverallDifficulty, mods),
		DrainRate:         rulesets.ScaleDifficulty(b.DrainRate, mods, 1.4),
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
		[]rulesets.Mod{m["HD"]},
	)

	results := make([]rulesets.DifficultyResult, 0, len(combos))
	for _, mods := range combos {
		results = append(results, c.calculate(mods))
	}
	return results, nil
}

func (c *calculator) calculate(mods []rulesets.Mod) rulesets.DifficultyResult {
	rate := rulesets.RateOf(mods)
	skill := rulesets.StrainSkill{DecayBase: strainDecayBase, Multiplier: strainMult}

	objs := c.beatmap.HitObjects
	for i := 1; i < len(objs); i++ {
		delta := math.Max((objs[i].Time-objs[i-1].Time)/rate, 25)
		// Alternating-color rhythm changes would raise this further; the
		// base value rewards density.
		skill.Process(objs[i].Time/rate, delta, 1/delta)
	}

	strain := rulesets.StarScale(skill.DifficultyValue())
	star := strain * 1.1

	maxCombo := c.beatmap.MaxCombo
	if maxCombo == 0 {
		maxCombo = len(objs)
	}

	return rulesets.DifficultyResult{
		Mods:       mods,
		StarRating: star,
		MaxCombo:   maxCombo,
		Attributes: []attributes.Value{
			{ID: attributes.Strain, Value: strain},
			{ID: attributes.HitWindow300, Value: rulesets.HitWindow300(c.beatmap.OverallDifficulty, mods) * 0.6},
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
			// Drum rolls and swells count as bonus territory.
			ticks := int64(h.Duration() / 1000 * 10)
			bonus += ticks * 300
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
