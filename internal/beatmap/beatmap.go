package beatmap

import "math"

// HitObjectKind distinguishes the playable object classes rulesets care
// about. Converted playables keep the source kind.
type HitObjectKind int

const (
	KindCircle HitObjectKind = iota
	KindSlider
	KindSpinner
)

type HitObject struct {
	Time    float64       `json:"time"` // ms from audio start
	EndTime float64       `json:"end_time,omitempty"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Kind    HitObjectKind `json:"kind"`
}

func (h HitObject) Duration() float64 {
	if h.EndTime <= h.Time {
		return 0
	}
	return h.EndTime - h.Time
}

// Beatmap is one item of content as handed over by the driver. The
// processor only reads it; ownership stays with the caller.
type Beatmap struct {
	ID        int
	RulesetID int

	HitObjects []HitObject

	ApproachRate      float64
	OverallDifficulty float64
	DrainRate         float64
	CircleSize        float64

	// BeatLength is the most common beat length in ms.
	BeatLength float64

	MaxCombo int
}

// BPM derives tempo from the most common beat length, rounded to two
// decimal places. A non-positive beat length yields 0.
func (b *Beatmap) BPM() float64 {
	if b.BeatLength <= 0 {
		return 0
	}
	return math.Round(60000/b.BeatLength*100) / 100
}

// Playable is a beatmap rendered under a specific ruleset with a set of
// mods applied: converted objects plus adjusted difficulty settings.
type Playable struct {
	BeatmapID int
	RulesetID int

	// Mods is the legacy encoding of the mods applied during conversion.
	Mods int64

	HitObjects []HitObject

	ApproachRate      float64
	OverallDifficulty float64
	DrainRate         float64
	CircleSize        float64
}
