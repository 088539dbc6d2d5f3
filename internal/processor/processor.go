// Package processor drives one beatmap through validation, ruleset
// resolution, difficulty and legacy-score computation, and persistence.
// One call processes one beatmap to completion; concurrency belongs to
// the caller.
package processor

import (
	"context"
	"log/slog"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

// Mode selects which sub-pipelines one call runs.
type Mode int

const (
	ModeAll Mode = iota
	ModeDifficulty
	ModeLegacyScore
)

func (m Mode) wantsDifficulty() bool  { return m == ModeAll || m == ModeDifficulty }
func (m Mode) wantsLegacyScore() bool { return m == ModeAll || m == ModeLegacyScore }

func (m Mode) String() string {
	switch m {
	case ModeDifficulty:
		return "difficulty"
	case ModeLegacyScore:
		return "legacy-score"
	default:
		return "all"
	}
}

// ItemMetadata is the optional descriptive write for the no-mod, native
// case.
type ItemMetadata struct {
	BeatmapID         int
	Rating            float64
	ApproachRate      float64
	OverallDifficulty float64
	DrainRate         float64
	CircleSize        float64
	BPM               float64
	MaxCombo          int
}

// Session is the pair of connection handles one pipeline call holds: the
// replica side serves the ranked-status read, the primary side takes all
// writes. Close releases both on every exit path.
type Session interface {
	RankedStatus(ctx context.Context, beatmapID int) (bool, error)

	UpsertStarRating(ctx context.Context, beatmapID, rulesetID int, mods int64, rating float64) error
	UpsertAttributes(ctx context.Context, batch *attributes.Batch) error
	UpsertScoringAttribs(ctx context.Context, beatmapID, rulesetID int, attrs rulesets.LegacyScoreAttributes) error
	UpsertMetadata(ctx context.Context, meta ItemMetadata) error

	Close() error
}

// Store hands out one Session per pipeline call.
type Store interface {
	Acquire(ctx context.Context) (Session, error)
}

// Options is the construction-time configuration of a Processor.
type Options struct {
	// RulesetIDs restricts processing; empty means every registered ruleset.
	RulesetIDs []int
	// ProcessConverts fans convert-eligible beatmaps out over every
	// allowed ruleset.
	ProcessConverts bool
	// DryRun exercises all computation but suppresses every write.
	DryRun bool
	// WriteMetadata enables the beatmap_metadata write (off by default).
	WriteMetadata bool
}

type Processor struct {
	resolver *Resolver
	store    Store
	log      *slog.Logger
	opts     Options
}

// New validates the allowlist against the registry and builds the
// processor. Registry and options are immutable afterwards, so one
// Processor is safe for concurrent Process calls.
func New(reg *rulesets.Registry, store Store, log *slog.Logger, opts Options) (*Processor, error) {
	resolver, err := NewResolver(reg, opts.RulesetIDs, opts.ProcessConverts)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{resolver: resolver, store: store, log: log, opts: opts}, nil
}

// Process runs the requested sub-pipelines for one beatmap. Every failure
// is wrapped once with the beatmap id and the phase it escaped from. A
// beatmap no allowed ruleset applies to completes as a no-op.
func (p *Processor) Process(ctx context.Context, b *beatmap.Beatmap, mode Mode) error {
	sess, err := p.store.Acquire(ctx)
	if err != nil {
		return wrap(b.ID, PhaseValidate, err)
	}
	defer sess.Close()

	ranked, err := sess.RankedStatus(ctx, b.ID)
	if err != nil {
		return wrap(b.ID, PhaseValidate, err)
	}
	if ranked && len(b.HitObjects) == 0 {
		return wrap(b.ID, PhaseValidate, ErrNoPlayableContent)
	}

	units := p.resolver.Units(b, ranked)
	if len(units) == 0 {
		p.log.Debug("no applicable ruleset, skipping", "beatmap", b.ID, "native_ruleset", b.RulesetID)
		return nil
	}

	for _, u := range units {
		if mode.wantsDifficulty() {
			if err := p.processDifficulty(ctx, sess, u); err != nil {
				return wrap(b.ID, PhaseDifficulty, err)
			}
		}
		if mode.wantsLegacyScore() {
			if err := p.processLegacyScore(ctx, sess, u); err != nil {
				return wrap(b.ID, PhaseLegacyScore, err)
			}
		}
	}
	return nil
}

func (p *Processor) processDifficulty(ctx context.Context, sess Session, u Unit) error {
	calc := u.Ruleset.CreateDifficultyCalculator(u.Beatmap)
	results, err := calc.CalculateAllLegacyCombinations()
	if err != nil {
		return err
	}

	for _, res := range results {
		legacyMods := u.Ruleset.ConvertToLegacyMods(res.Mods)

		// Resolve the column mapping before the dry-run gate so a mapping
		// mismatch surfaces even without writes.
		batch, err := attributes.Group(u.BeatmapID(), u.RulesetID(), legacyMods, res.Attributes)
		if err != nil {
			return err
		}

		if p.opts.DryRun {
			continue
		}

		if err := sess.UpsertStarRating(ctx, u.BeatmapID(), u.RulesetID(), legacyMods, res.StarRating); err != nil {
			return err
		}
		if err := sess.UpsertAttributes(ctx, batch); err != nil {
			return err
		}

		if res.NoMod() && u.RulesetID() == u.Beatmap.RulesetID && p.opts.WriteMetadata {
			meta := ItemMetadata{
				BeatmapID:         u.BeatmapID(),
				Rating:            res.StarRating,
				ApproachRate:      u.Beatmap.ApproachRate,
				OverallDifficulty: u.Beatmap.OverallDifficulty,
				DrainRate:         u.Beatmap.DrainRate,
				CircleSize:        u.Beatmap.CircleSize,
				BPM:               u.Beatmap.BPM(),
				MaxCombo:          res.MaxCombo,
			}
			if err := sess.UpsertMetadata(ctx, meta); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) processLegacyScore(ctx context.Context, sess Session, u Unit) error {
	provider, ok := u.Ruleset.(rulesets.LegacyScoreProvider)
	if !ok {
		p.log.Debug("ruleset has no legacy score simulation", "ruleset", u.Ruleset.Name())
		return nil
	}

	var mods []rulesets.Mod
	if classic, ok := u.Ruleset.CreateMod("CL"); ok {
		mods = append(mods, classic)
	}
	playable := u.Ruleset.CreatePlayable(u.Beatmap, mods)

	attrs := provider.CreateLegacyScoreSimulator().Simulate(u.Beatmap, playable)

	if p.opts.DryRun {
		return nil
	}
	return sess.UpsertScoringAttribs(ctx, u.BeatmapID(), u.RulesetID(), attrs)
}
