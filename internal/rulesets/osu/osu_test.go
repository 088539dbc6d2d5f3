package osu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
	"github.com/osukit/difficulty-processor/internal/rulesets/osu"
)

func testBeatmap() *beatmap.Beatmap {
	objs := make([]beatmap.HitObject, 0, 100)
	for i := 0; i < 100; i++ {
		objs = append(objs, beatmap.HitObject{
			Time: float64(i) * 300,
			X:    float64((i % 8) * 64),
			Y:    float64((i % 5) * 76),
			Kind: beatmap.KindCircle,
		})
	}
	return &beatmap.Beatmap{
		ID:                1234,
		RulesetID:         0,
		HitObjects:        objs,
		ApproachRate:      9,
		OverallDifficulty: 8,
		DrainRate:         6,
		CircleSize:        4,
		BeatLength:        300,
		MaxCombo:          100,
	}
}

func hasAttr(res rulesets.DifficultyResult, id attributes.ID) bool {
	for _, a := range res.Attributes {
		if a.ID == id {
			return true
		}
	}
	return false
}

func find(t *testing.T, results []rulesets.DifficultyResult, bits int64) rulesets.DifficultyResult {
	t.Helper()
	r := osu.New()
	for _, res := range results {
		if r.ConvertToLegacyMods(res.Mods) == bits {
			return res
		}
	}
	t.Fatalf("no result with mods bitmask %d", bits)
	return rulesets.DifficultyResult{}
}

func TestAllLegacyCombinations(t *testing.T) {
	r := osu.New()
	results, err := r.CreateDifficultyCalculator(testBeatmap()).CalculateAllLegacyCombinations()
	require.NoError(t, err)
	// (none|EZ|HR) x (none|HT|DT) x (none|HD) x (none|FL)
	assert.Len(t, results, 36)
	assert.True(t, results[0].NoMod())
}

func TestDoubleTimeRaisesRating(t *testing.T) {
	r := osu.New()
	results, err := r.CreateDifficultyCalculator(testBeatmap()).CalculateAllLegacyCombinations()
	require.NoError(t, err)

	nomod := find(t, results, 0)
	dt := find(t, results, rulesets.BitDoubleTime)
	ht := find(t, results, rulesets.BitHalfTime)

	assert.Greater(t, dt.StarRating, nomod.StarRating)
	assert.Less(t, ht.StarRating, nomod.StarRating)
}

func TestFlashlightAttributeOnlyWithFL(t *testing.T) {
	r := osu.New()
	results, err := r.CreateDifficultyCalculator(testBeatmap()).CalculateAllLegacyCombinations()
	require.NoError(t, err)

	nomod := find(t, results, 0)
	fl := find(t, results, rulesets.BitFlashlight)

	assert.False(t, hasAttr(nomod, attributes.Flashlight))
	assert.True(t, hasAttr(fl, attributes.Flashlight))
	assert.True(t, hasAttr(nomod, attributes.Aim))
	assert.True(t, hasAttr(nomod, attributes.Speed))
}

func TestCreatePlayableAppliesRate(t *testing.T) {
	r := osu.New()
	b := testBeatmap()
	dt, ok := r.CreateMod("DT")
	require.True(t, ok)

	p := r.CreatePlayable(b, []rulesets.Mod{dt})
	assert.Equal(t, rulesets.BitDoubleTime, p.Mods)
	assert.InDelta(t, b.HitObjects[1].Time/1.5, p.HitObjects[1].Time, 1e-9)
	// source untouched
	assert.Equal(t, 300.0, b.HitObjects[1].Time)
}

func TestCreateModUnknown(t *testing.T) {
	_, ok := osu.New().CreateMod("XX")
	assert.False(t, ok)
}

func TestLegacyScoreSimulation(t *testing.T) {
	r := osu.New()
	b := testBeatmap()
	p := r.CreatePlayable(b, nil)

	attrs := r.CreateLegacyScoreSimulator().Simulate(b, p)
	assert.Equal(t, int64(300*100), attrs.AccuracyScore)
	assert.Greater(t, attrs.ComboScore, int64(0))
	assert.Equal(t, 100, attrs.MaxCombo)
	assert.Zero(t, attrs.BonusScore, "no spinners, no bonus")
	assert.Zero(t, attrs.BonusScoreRatio)
}
