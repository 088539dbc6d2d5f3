package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/processor"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

/* ---------------- in-memory fakes for rulesets.Ruleset and processor.Store ---------------- */

type fakeCalculator struct {
	results []rulesets.DifficultyResult
	err     error
	invoked *bool
}

func (c *fakeCalculator) CalculateAllLegacyCombinations() ([]rulesets.DifficultyResult, error) {
	if c.invoked != nil {
		*c.invoked = true
	}
	return c.results, c.err
}

type fakeRuleset struct {
	id         int
	name       string
	results    []rulesets.DifficultyResult
	calcErr    error
	calcCalled bool
}

func (r *fakeRuleset) ID() int      { return r.id }
func (r *fakeRuleset) Name() string { return r.name }

func (r *fakeRuleset) CreateDifficultyCalculator(b *beatmap.Beatmap) rulesets.DifficultyCalculator {
	return &fakeCalculator{results: r.results, err: r.calcErr, invoked: &r.calcCalled}
}

func (r *fakeRuleset) ConvertToLegacyMods(mods []rulesets.Mod) int64 {
	return rulesets.SumLegacyBits(mods)
}

func (r *fakeRuleset) CreateMod(acronym string) (rulesets.Mod, bool) {
	if acronym == "CL" {
		return rulesets.Mod{Acronym: "CL", RateMultiplier: 1}, true
	}
	return rulesets.Mod{}, false
}

func (r *fakeRuleset) CreatePlayable(b *beatmap.Beatmap, mods []rulesets.Mod) *beatmap.Playable {
	return &beatmap.Playable{
		BeatmapID:  b.ID,
		RulesetID:  r.id,
		Mods:       r.ConvertToLegacyMods(mods),
		HitObjects: b.HitObjects,
	}
}

// fakeScoringRuleset additionally carries the legacy-score extension.
type fakeScoringRuleset struct {
	fakeRuleset
	simCalled bool
	attrs     rulesets.LegacyScoreAttributes
}

func (r *fakeScoringRuleset) CreateLegacyScoreSimulator() rulesets.LegacyScoreSimulator {
	return &fakeSimulator{parent: r}
}

type fakeSimulator struct{ parent *fakeScoringRuleset }

func (s *fakeSimulator) Simulate(b *beatmap.Beatmap, p *beatmap.Playable) rulesets.LegacyScoreAttributes {
	s.parent.simCalled = true
	return s.parent.attrs
}

type starWrite struct {
	beatmapID, rulesetID int
	mods                 int64
	rating               float64
}

type scoringWrite struct {
	beatmapID, rulesetID int
	attrs                rulesets.LegacyScoreAttributes
}

type fakeSession struct {
	ranked    map[int]bool
	rankedErr error
	writeErr  error

	starWrites    []starWrite
	attrBatches   []*attributes.Batch
	scoringWrites []scoringWrite
	metaWrites    []processor.ItemMetadata
	closed        bool
}

func (s *fakeSession) RankedStatus(ctx context.Context, beatmapID int) (bool, error) {
	if s.rankedErr != nil {
		return false, s.rankedErr
	}
	return s.ranked[beatmapID], nil
}

func (s *fakeSession) UpsertStarRating(ctx context.Context, beatmapID, rulesetID int, mods int64, rating float64) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.starWrites = append(s.starWrites, starWrite{beatmapID, rulesetID, mods, rating})
	return nil
}

func (s *fakeSession) UpsertAttributes(ctx context.Context, batch *attributes.Batch) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.attrBatches = append(s.attrBatches, batch)
	return nil
}

func (s *fakeSession) UpsertScoringAttribs(ctx context.Context, beatmapID, rulesetID int, attrs rulesets.LegacyScoreAttributes) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.scoringWrites = append(s.scoringWrites, scoringWrite{beatmapID, rulesetID, attrs})
	return nil
}

func (s *fakeSession) UpsertMetadata(ctx context.Context, meta processor.ItemMetadata) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.metaWrites = append(s.metaWrites, meta)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) writeCount() int {
	return len(s.starWrites) + len(s.attrBatches) + len(s.scoringWrites) + len(s.metaWrites)
}

type fakeStore struct{ sess *fakeSession }

func (f *fakeStore) Acquire(ctx context.Context) (processor.Session, error) {
	return f.sess, nil
}

/* ---------------- helpers ---------------- */

func someResults() []rulesets.DifficultyResult {
	dt := rulesets.Mod{Acronym: "DT", Bit: rulesets.BitDoubleTime, RateMultiplier: 1.5}
	return []rulesets.DifficultyResult{
		{
			Mods:       nil,
			StarRating: 5.2,
			MaxCombo:   321,
			Attributes: []attributes.Value{
				{ID: attributes.Aim, Value: 2.5},
				{ID: attributes.Speed, Value: 1.8},
			},
		},
		{
			Mods:       []rulesets.Mod{dt},
			StarRating: 7.1,
			MaxCombo:   321,
			Attributes: []attributes.Value{
				{ID: attributes.Aim, Value: 3.4},
				{ID: attributes.Speed, Value: 2.9},
			},
		},
	}
}

func testBeatmap(id, rulesetID int, objects int) *beatmap.Beatmap {
	objs := make([]beatmap.HitObject, objects)
	for i := range objs {
		objs[i] = beatmap.HitObject{Time: float64(i) * 250}
	}
	return &beatmap.Beatmap{
		ID:         id,
		RulesetID:  rulesetID,
		HitObjects: objs,
		BeatLength: 500,
		MaxCombo:   objects,
	}
}

func newProcessor(t *testing.T, sess *fakeSession, opts processor.Options, list ...rulesets.Ruleset) *processor.Processor {
	t.Helper()
	reg, err := rulesets.NewRegistry(list...)
	require.NoError(t, err)
	p, err := processor.New(reg, &fakeStore{sess: sess}, nil, opts)
	require.NoError(t, err)
	return p
}

/* ---------------- tests ---------------- */

func TestRankedBeatmapWithoutContentFails(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{77: true}}
	p := newProcessor(t, sess, processor.Options{}, &fakeRuleset{id: 0, name: "fake"})

	err := p.Process(context.Background(), testBeatmap(77, 0, 0), processor.ModeAll)
	require.Error(t, err)

	var perr *processor.ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 77, perr.BeatmapID)
	assert.Equal(t, processor.PhaseValidate, perr.Phase)
	assert.True(t, errors.Is(err, processor.ErrNoPlayableContent))

	assert.Zero(t, sess.writeCount(), "failed validation must issue no writes")
	assert.True(t, sess.closed, "session released on failure path")
}

func TestUnrankedEmptyBeatmapProcesses(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{}}
	rs := &fakeRuleset{id: 0, name: "fake"}
	p := newProcessor(t, sess, processor.Options{}, rs)

	err := p.Process(context.Background(), testBeatmap(5, 0, 0), processor.ModeDifficulty)
	require.NoError(t, err)
}

func TestNoApplicableRulesetIsNoOp(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{9: true}}
	// allowlist excludes the beatmap's native ruleset
	p := newProcessor(t, sess,
		processor.Options{RulesetIDs: []int{1}, ProcessConverts: true},
		&fakeRuleset{id: 0, name: "zero"}, &fakeRuleset{id: 1, name: "one"})

	err := p.Process(context.Background(), testBeatmap(9, 2, 10), processor.ModeAll)
	require.NoError(t, err, "exclusion is a silent no-op, not an error")
	assert.Zero(t, sess.writeCount())
	assert.True(t, sess.closed)
}

func TestDifficultyWrites(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeRuleset{id: 0, name: "fake", results: someResults()}
	p := newProcessor(t, sess, processor.Options{WriteMetadata: true}, rs)

	b := testBeatmap(10, 0, 50)
	require.NoError(t, p.Process(context.Background(), b, processor.ModeDifficulty))

	require.Len(t, sess.starWrites, 2)
	assert.Equal(t, starWrite{10, 0, 0, 5.2}, sess.starWrites[0])
	assert.Equal(t, starWrite{10, 0, rulesets.BitDoubleTime, 7.1}, sess.starWrites[1])

	require.Len(t, sess.attrBatches, 2)
	assert.Equal(t, 2, sess.attrBatches[0].Len())

	// metadata only for the no-mod native result
	require.Len(t, sess.metaWrites, 1)
	meta := sess.metaWrites[0]
	assert.Equal(t, 10, meta.BeatmapID)
	assert.Equal(t, 5.2, meta.Rating)
	assert.InDelta(t, 120.0, meta.BPM, 0.001)
	assert.Equal(t, 321, meta.MaxCombo)

	assert.Empty(t, sess.scoringWrites, "difficulty mode issues no scoring writes")
}

func TestMetadataDisabledByDefault(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeRuleset{id: 0, name: "fake", results: someResults()}
	p := newProcessor(t, sess, processor.Options{}, rs)

	require.NoError(t, p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeDifficulty))
	assert.Empty(t, sess.metaWrites)
}

func TestMetadataNotWrittenForConverts(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	native := &fakeRuleset{id: 0, name: "native", results: someResults()}
	convert := &fakeRuleset{id: 1, name: "convert", results: someResults()}
	p := newProcessor(t, sess,
		processor.Options{ProcessConverts: true, WriteMetadata: true}, native, convert)

	require.NoError(t, p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeDifficulty))

	require.Len(t, sess.starWrites, 4, "two results per ruleset")
	require.Len(t, sess.metaWrites, 1, "converts never write metadata")
	assert.Equal(t, 10, sess.metaWrites[0].BeatmapID)
}

func TestDryRunComputesButWritesNothing(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeScoringRuleset{fakeRuleset: fakeRuleset{id: 0, name: "fake", results: someResults()}}
	p := newProcessor(t, sess, processor.Options{DryRun: true, WriteMetadata: true}, rs)

	require.NoError(t, p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeAll))

	assert.True(t, rs.calcCalled, "dry run still exercises the difficulty capability")
	assert.True(t, rs.simCalled, "dry run still exercises the score simulation")
	assert.Zero(t, sess.writeCount())
}

func TestDryRunStillSurfacesMappingMismatch(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeRuleset{id: 0, name: "fake", results: []rulesets.DifficultyResult{{
		StarRating: 1,
		Attributes: []attributes.Value{{ID: 12345, Value: 1}},
	}}}
	p := newProcessor(t, sess, processor.Options{DryRun: true}, rs)

	err := p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeDifficulty)
	require.Error(t, err)

	var unknown *attributes.UnknownAttributeError
	assert.True(t, errors.As(err, &unknown), "mapping mismatch is never silently dropped")
}

func TestLegacyScoreWrites(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeScoringRuleset{
		fakeRuleset: fakeRuleset{id: 0, name: "fake", results: someResults()},
		attrs: rulesets.LegacyScoreAttributes{
			AccuracyScore: 30000, ComboScore: 700000, BonusScoreRatio: 0.1, BonusScore: 3000, MaxCombo: 50,
		},
	}
	p := newProcessor(t, sess, processor.Options{}, rs)

	require.NoError(t, p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeLegacyScore))

	require.Len(t, sess.scoringWrites, 1)
	assert.Equal(t, int64(30000), sess.scoringWrites[0].attrs.AccuracyScore)
	assert.Empty(t, sess.starWrites, "legacy-score mode issues no difficulty writes")
}

func TestLegacyScoreSkippedWithoutExtension(t *testing.T) {
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeRuleset{id: 0, name: "fake", results: someResults()}
	p := newProcessor(t, sess, processor.Options{}, rs)

	require.NoError(t, p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeLegacyScore))
	assert.Zero(t, sess.writeCount())
}

func TestCalculatorFailureWrapped(t *testing.T) {
	boom := errors.New("boom")
	sess := &fakeSession{ranked: map[int]bool{10: true}}
	rs := &fakeRuleset{id: 0, name: "fake", calcErr: boom}
	p := newProcessor(t, sess, processor.Options{}, rs)

	err := p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeDifficulty)
	require.Error(t, err)

	var perr *processor.ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 10, perr.BeatmapID)
	assert.Equal(t, processor.PhaseDifficulty, perr.Phase)
	assert.True(t, errors.Is(err, boom), "root cause preserved")
}

func TestValidationReadFailureWrapped(t *testing.T) {
	down := errors.New("replica down")
	sess := &fakeSession{rankedErr: down}
	p := newProcessor(t, sess, processor.Options{}, &fakeRuleset{id: 0, name: "fake"})

	err := p.Process(context.Background(), testBeatmap(10, 0, 50), processor.ModeAll)
	require.Error(t, err)

	var perr *processor.ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, processor.PhaseValidate, perr.Phase)
	assert.True(t, errors.Is(err, down))
	assert.True(t, sess.closed)
}
