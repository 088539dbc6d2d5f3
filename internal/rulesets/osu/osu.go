// Package osu implements the standard ruleset (id 0). Beatmaps whose
// native ruleset is this one are convert-eligible into every other
// registered ruleset.
package osu

import (
	"math"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

const (
	aimDecayBase   = 0.15
	speedDecayBase = 0.3

	aimMultiplier   = 26.25
	speedMultiplier = 1375
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
		"FL": {Acronym: "FL", Bit: rulesets.BitFlashlight, RateMultiplier: 1},
		// Classic scoring has no legacy flag of its own.
		"CL": {Acronym: "CL", Bit: 0, RateMultiplier: 1},
	}}
}

func (r *Ruleset) ID() int      { return 0 }
func (r *Ruleset) Name() string { return "osu" }

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
		objs[i] = h
	}
	cs := b.CircleSize
	if rulesets.HasMod(mods, "HR") {
		cs = math.Min(10, cs*1.3)
	}
	if rulesets.HasMod(mods, "EZ") {
		cs /= 2
	}
	return &beatmap.Playable{
		BeatmapID:         b.ID,
		RulesetID:         r.ID(),
		Mods:              r.ConvertToLegacyMods(mods),
		HitObjects:        objs,
		ApproachRate:      rulesets.EffectiveAR(b.ApproachRate, mods),
		OverallDifficulty: rulesets.EffectiveOD(b.OverallDifficulty, mods),
		DrainRate:         rulesets.ScaleDifficulty(b.DrainRate, mods, 1.4),
		CircleSize:        cs,
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
		[]rulesets.Mod{m["FL"]},
	)

	results := make([]rulesets.DifficultyResult, 0, len(combos))
	for _, mods := range combos {
		results = append(results, c.calculate(mods))
	}
	return results, nil
}

func (c *calculator) calculate(mods []rulesets.Mod) rulesets.DifficultyResult {
	rate := rulesets.RateOf(mods)

	aimSkill := rulesets.StrainSkill{DecayBase: aimDecayBase, Multiplier: aimMultiplier}
	speedSkill := rulesets.StrainSkill{DecayBase: speedDecayBase, Multiplier: speedMultiplier}
	flSkill := rulesets.StrainSkill{DecayBase: aimDecayBase, Multiplier: aimMultiplier * 0.55}

	objs := c.beatmap.HitObjects
	speedNotes := 0.0
	sliderCount := 0
	for i := 1; i < len(objs); i++ {
		cur, prev := objs[i], objs[i-1]
		delta := math.Max((cur.Time-prev.Time)/rate, 25)
		dist := math.Hypot(cur.X-prev.X, cur.Y-prev.Y)

		aimSkill.Process(cur.Time/rate, delta, math.Pow(dist, 0.99)/delta)
		speedSkill.Process(cur.Time/rate, delta, 1/delta)
		// Flashlight weighs recent travel more than raw spacing.
		flSkill.Process(cur.Time/rate, delta, dist/math.Max(delta, 50))

		if delta < 125 { // 240 bpm 1/2
			speedNotes++
		}
		if cur.Kind == beatmap.KindSlider {
			sliderCount++
		}
	}

	aim := rulesets.StarScale(aimSkill.DifficultyValue())
	speed := rulesets.StarScale(speedSkill.DifficultyValue())
	flashlight := rulesets.StarScale(flSkill.DifficultyValue())

	star := aim + speed + math.Abs(aim-speed)/2

	sliderFactor := 1.0
	if len(objs) > 0 {
		sliderFactor = 1 - float64(sliderCount)/float64(len(objs))*0.1
	}

	maxCombo := c.beatmap.MaxCombo
	if maxCombo == 0 {
		maxCombo = len(objs)
	}

	attrs := []attributes.Value{
		{ID: attributes.Aim, Value: aim},
		{ID: attributes.Speed, Value: speed},
		{ID: attributes.OverallDifficulty, Value: rulesets.EffectiveOD(c.beatmap.OverallDifficulty, mods)},
		{ID: attributes.ApproachRate, Value: rulesets.EffectiveAR(c.beatmap.ApproachRate, mods)},
		{ID: attributes.MaxCombo, Value: float64(maxCombo)},
		{ID: attributes.SliderFactor, Value: sliderFactor},
		{ID: attributes.SpeedNoteCount, Value: speedNotes},
	}
	if rulesets.HasMod(mods, "FL") {
		attrs = append(attrs, attributes.Value{ID: attributes.Flashlight, Value: flashlight})
	}

	return rulesets.DifficultyResult{
		Mods:       mods,
		StarRating: star,
		MaxCombo:   maxCombo,
		Attributes: attrs,
	}
}

func (r *Ruleset) CreateLegacyScoreSimulator() rulesets.LegacyScoreSimulator {
	return &scoreSimulator{}
}

type scoreSimulator struct{}

// Simulate replays a perfect legacy score: full accuracy on every object,
// combo-scaled bonus per hit, spinner spins as pure bonus.
func (s *scoreSimulator) Simulate(b *beatmap.Beatmap, p *beatmap.Playable) rulesets.LegacyScoreAttributes {
	var accuracy, combo, bonus int64
	comboCount := 0
	for _, h := range p.HitObjects {
		if h.Kind == beatmap.KindSpinner {
			// 100 points per spin at roughly 477 rpm
			spins := int64(h.Duration() / 1000 * 477 / 60)
			bonus += spins * 100
		}
		accuracy += 300
		combo += int64(300 * comboCount / 25)
		comboCount++
	}

	ratio := 0.0
	if accuracy > 0 {
		ratio = float64(bonus) / float64(accuracy)
	}

	maxCombo := b.MaxCombo
	if maxCombo == 0 {
		maxCombo = len(p.HitObjects)
	}

	return rulesets.LegacyScoreAttributes{
		AccuracyScore:   accuracy,
		ComboScore:      combo,
		BonusScoreRatio: ratio,
		BonusScore:      bonus,
		MaxCombo:        maxCombo,
	}
}
