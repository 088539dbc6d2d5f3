// Package attributes maps stable numeric difficulty-attribute ids onto
// the columns of the beatmap_difficulty table and shapes computed values
// into column-grouped write batches.
package attributes

import "fmt"

// ID is a stable numeric identifier for one scalar difficulty metric.
// Ids are odd by convention; even values are reserved.
type ID int

const (
	Aim               ID = 1
	Speed             ID = 3
	OverallDifficulty ID = 5
	ApproachRate      ID = 7
	MaxCombo          ID = 9
	Strain            ID = 11
	HitWindow300      ID = 13
	ScoreMultiplier   ID = 15
	Flashlight        ID = 17
	SliderFactor      ID = 19
	SpeedNoteCount    ID = 21
)

// Column names one destination column of beatmap_difficulty. The set is
// closed: persistence keeps one prepared statement per column and never
// interpolates column names at runtime.
type Column string

const (
	ColAim             Column = "diff_aim"
	ColSpeed           Column = "diff_speed"
	ColOverall         Column = "diff_overall"
	ColApproach        Column = "diff_approach"
	ColMaxCombo        Column = "diff_max_combo"
	ColStrain          Column = "diff_strain"
	ColHitWindow300    Column = "diff_hit_window_300"
	ColScoreMultiplier Column = "diff_score_multiplier"
	ColFlashlight      Column = "diff_flashlight"
	ColSliderFactor    Column = "diff_slider_factor"
	ColSpeedNoteCount  Column = "diff_speed_note_count"
)

// columns is the immutable id→column table, loaded once at startup.
var columns = map[ID]Column{
	Aim:               ColAim,
	Speed:             ColSpeed,
	OverallDifficulty: ColOverall,
	ApproachRate:      ColApproach,
	MaxCombo:          ColMaxCombo,
	Strain:            ColStrain,
	HitWindow300:      ColHitWindow300,
	ScoreMultiplier:   ColScoreMultiplier,
	Flashlight:        ColFlashlight,
	SliderFactor:      ColSliderFactor,
	SpeedNoteCount:    ColSpeedNoteCount,
}

// Columns returns every known destination column. The result is a fresh
// slice; callers may not mutate mapping state through it.
func Columns() []Column {
	out := make([]Column, 0, len(columns))
	for _, c := range columns {
		out = append(out, c)
	}
	return out
}

// UnknownAttributeError reports a computed attribute id with no mapped
// column. It signals a version mismatch between the difficulty capability
// and this process and is never silently ignored.
type UnknownAttributeError struct {
	ID ID
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("no column mapped for attribute id %d", e.ID)
}

// ColumnFor resolves one attribute id.
func ColumnFor(id ID) (Column, error) {
	c, ok := columns[id]
	if !ok {
		return "", &UnknownAttributeError{ID: id}
	}
	return c, nil
}

// Value is one computed (attribute id, value) pair.
type Value struct {
	ID    ID
	Value float64
}

// Write is one pending cell write, fully keyed.
type Write struct {
	BeatmapID int
	RulesetID int
	Mods      int64
	Column    Column
	Value     float64
}

// Batch holds the writes of one difficulty result grouped by destination
// column, so persistence issues one statement per distinct column touched.
type Batch struct {
	BeatmapID int
	RulesetID int
	Mods      int64

	byColumn map[Column][]Write
}

// Group translates an ordered attribute list into a column-grouped batch.
// An unmapped id fails the whole batch.
func Group(beatmapID, rulesetID int, mods int64, values []Value) (*Batch, error) {
	b := &Batch{
		BeatmapID: beatmapID,
		RulesetID: rulesetID,
		Mods:      mods,
		byColumn:  make(map[Column][]Write, len(values)),
	}
	for _, v := range values {
		col, err := ColumnFor(v.ID)
		if err != nil {
			return nil, err
		}
		b.byColumn[col] = append(b.byColumn[col], Write{
			BeatmapID: beatmapID,
			RulesetID: rulesetID,
			Mods:      mods,
			Column:    col,
			Value:     v.Value,
		})
	}
	return b, nil
}

// Len reports how many distinct columns the batch touches.
func (b *Batch) Len() int { return len(b.byColumn) }

// Writes returns the pending writes for one column.
func (b *Batch) Writes(col Column) []Write { return b.byColumn[col] }

// ForEachColumn visits every touched column group.
func (b *Batch) ForEachColumn(fn func(Column, []Write) error) error {
	for col, ws := range b.byColumn {
		if err := fn(col, ws); err != nil {
			return err
		}
	}
	return nil
}
