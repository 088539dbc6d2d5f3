package processor

import (
	"errors"
	"fmt"
)

// Phase names the pipeline stage a failure escaped from, so batch drivers
// can branch without string-matching.
type Phase string

const (
	PhaseValidate    Phase = "validate"
	PhaseResolve     Phase = "resolve"
	PhaseDifficulty  Phase = "difficulty"
	PhaseLegacyScore Phase = "legacy-score"
	PhaseCommit      Phase = "commit"
)

// ErrNoPlayableContent marks a ranked beatmap with zero hit objects.
// Non-retryable for that beatmap.
var ErrNoPlayableContent = errors.New("ranked beatmap has no playable content")

// ProcessError wraps any failure inside one beatmap's processing exactly
// once, preserving the cause while adding addressability.
type ProcessError struct {
	BeatmapID int
	Phase     Phase
	Err       error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("beatmap %d: %s: %v", e.BeatmapID, e.Phase, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

func wrap(beatmapID int, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &ProcessError{BeatmapID: beatmapID, Phase: phase, Err: err}
}
