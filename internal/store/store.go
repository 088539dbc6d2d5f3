// Package store is the persistence adapter: a read-only replica handle
// for validation reads and a read-write primary for all writes. Every
// write is an idempotent upsert keyed by its identity tuple, so re-runs
// converge instead of duplicating rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/osukit/difficulty-processor/internal/attributes"
	"github.com/osukit/difficulty-processor/internal/beatmap"
	"github.com/osukit/difficulty-processor/internal/processor"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

// attribStmt holds one fixed upsert statement per destination column.
// The set is assembled once at startup from the closed column enum;
// no statement text is ever built from runtime values.
var attribStmt = map[attributes.Column]string{}

func init() {
	for _, col := range attributes.Columns() {
		attribStmt[col] = fmt.Sprintf(`INSERT INTO beatmap_difficulty (beatmap_id, ruleset_id, mods, %[1]s)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (beatmap_id, ruleset_id, mods) DO UPDATE SET %[1]s=EXCLUDED.%[1]s`, col)
	}
}

// Store hands out per-call sessions over the replica/primary pool pair.
// Point both at the same pool for single-database deployments.
type Store struct {
	replica *sql.DB
	primary *sql.DB
}

func New(replica, primary *sql.DB) *Store {
	return &Store{replica: replica, primary: primary}
}

// Acquire borrows one connection from each pool for the duration of one
// pipeline call.
func (s *Store) Acquire(ctx context.Context) (processor.Session, error) {
	rc, err := s.replica.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire replica conn: %w", err)
	}
	pc, err := s.primary.Conn(ctx)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("acquire primary conn: %w", err)
	}
	return &session{replica: rc, primary: pc}, nil
}

type session struct {
	replica *sql.Conn
	primary *sql.Conn
}

func (s *session) Close() error {
	return errors.Join(s.replica.Close(), s.primary.Close())
}

func (s *session) RankedStatus(ctx context.Context, beatmapID int) (bool, error) {
	var approved int
	err := s.replica.QueryRowContext(ctx,
		`SELECT approved FROM beatmaps WHERE beatmap_id=$1`, beatmapID).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("beatmap %d not found", beatmapID)
	}
	if err != nil {
		return false, err
	}
	return approved > 0, nil
}

func (s *session) UpsertStarRating(ctx context.Context, beatmapID, rulesetID int, mods int64, rating float64) error {
	_, err := s.primary.ExecContext(ctx, `INSERT INTO beatmap_difficulty (beatmap_id, ruleset_id, mods, star_rating)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (beatmap_id, ruleset_id, mods) DO UPDATE SET star_rating=EXCLUDED.star_rating`,
		beatmapID, rulesetID, mods, rating)
	return err
}

func (s *session) UpsertAttributes(ctx context.Context, batch *attributes.Batch) error {
	return batch.ForEachColumn(func(col attributes.Column, writes []attributes.Write) error {
		stmt, ok := attribStmt[col]
		if !ok {
			return fmt.Errorf("no statement for column %s", col)
		}
		for _, w := range writes {
			if _, err := s.primary.ExecContext(ctx, stmt, w.BeatmapID, w.RulesetID, w.Mods, w.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *session) UpsertScoringAttribs(ctx context.Context, beatmapID, rulesetID int, attrs rulesets.LegacyScoreAttributes) error {
	_, err := s.primary.ExecContext(ctx, `INSERT INTO beatmap_scoring_attribs
		(beatmap_id, ruleset_id, legacy_accuracy_score, legacy_combo_score, legacy_bonus_score_ratio, legacy_bonus_score, max_combo)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (beatmap_id, ruleset_id) DO UPDATE SET
			legacy_accuracy_score=EXCLUDED.legacy_accuracy_score,
			legacy_combo_score=EXCLUDED.legacy_combo_score,
			legacy_bonus_score_ratio=EXCLUDED.legacy_bonus_score_ratio,
			legacy_bonus_score=EXCLUDED.legacy_bonus_score,
			max_combo=EXCLUDED.max_combo`,
		beatmapID, rulesetID, attrs.AccuracyScore, attrs.ComboScore, attrs.BonusScoreRatio, attrs.BonusScore, attrs.MaxCombo)
	return err
}

func (s *session) UpsertMetadata(ctx context.Context, meta processor.ItemMetadata) error {
	_, err := s.primary.ExecContext(ctx, `INSERT INTO beatmap_metadata
		(beatmap_id, rating, approach_rate, overall_difficulty, drain_rate, circle_size, bpm, max_combo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (beatmap_id) DO UPDATE SET
			rating=EXCLUDED.rating,
			approach_rate=EXCLUDED.approach_rate,
			overall_difficulty=EXCLUDED.overall_difficulty,
			drain_rate=EXCLUDED.drain_rate,
			circle_size=EXCLUDED.circle_size,
			bpm=EXCLUDED.bpm,
			max_combo=EXCLUDED.max_combo`,
		meta.BeatmapID, meta.Rating, meta.ApproachRate, meta.OverallDifficulty,
		meta.DrainRate, meta.CircleSize, meta.BPM, meta.MaxCombo)
	return err
}

// Beatmap loads one item from the replica, hit objects included.
func (s *Store) Beatmap(ctx context.Context, id int) (*beatmap.Beatmap, error) {
	var b beatmap.Beatmap
	var objJSON string
	err := s.replica.QueryRowContext(ctx, `SELECT beatmap_id, ruleset_id, hit_objects_json,
			approach_rate, overall_difficulty, drain_rate, circle_size, beat_length, max_combo
		FROM beatmaps WHERE beatmap_id=$1`, id).
		Scan(&b.ID, &b.RulesetID, &objJSON, &b.ApproachRate, &b.OverallDifficulty,
			&b.DrainRate, &b.CircleSize, &b.BeatLength, &b.MaxCombo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("beatmap %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(objJSON), &b.HitObjects); err != nil {
		return nil, fmt.Errorf("beatmap %d: decode hit objects: %w", id, err)
	}
	return &b, nil
}

// AllBeatmapIDs enumerates every stored item in id order, for batch runs.
func (s *Store) AllBeatmapIDs(ctx context.Context) ([]int, error) {
	rows, err := s.replica.QueryContext(ctx, `SELECT beatmap_id FROM beatmaps ORDER BY beatmap_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveBeatmap upserts one item row, used by ingest and test seeding.
func (s *Store) SaveBeatmap(ctx context.Context, b *beatmap.Beatmap, approved bool) error {
	objJSON, err := json.Marshal(b.HitObjects)
	if err != nil {
		return err
	}
	approvedVal := 0
	if approved {
		approvedVal = 1
	}
	_, err = s.primary.ExecContext(ctx, `INSERT INTO beatmaps
		(beatmap_id, ruleset_id, approved, hit_objects, hit_objects_json,
		 approach_rate, overall_difficulty, drain_rate, circle_size, beat_length, max_combo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (beatmap_id) DO UPDATE SET
			ruleset_id=EXCLUDED.ruleset_id,
			approved=EXCLUDED.approved,
			hit_objects=EXCLUDED.hit_objects,
			hit_objects_json=EXCLUDED.hit_objects_json,
			approach_rate=EXCLUDED.approach_rate,
			overall_difficulty=EXCLUDED.overall_difficulty,
			drain_rate=EXCLUDED.drain_rate,
			circle_size=EXCLUDED.circle_size,
			beat_length=EXCLUDED.beat_length,
			max_combo=EXCLUDED.max_combo`,
		b.ID, b.RulesetID, approvedVal, len(b.HitObjects), string(objJSON),
		b.ApproachRate, b.OverallDifficulty, b.DrainRate, b.CircleSize, b.BeatLength, b.MaxCombo)
	return err
}

// DifficultyRow is one computed rating row, as served by the status API.
type DifficultyRow struct {
	RulesetID  int     `json:"ruleset_id"`
	Mods       int64   `json:"mods"`
	StarRating float64 `json:"star_rating"`
}

// DifficultyRows lists the stored ratings for one beatmap.
func (s *Store) DifficultyRows(ctx context.Context, beatmapID int) ([]DifficultyRow, error) {
	rows, err := s.replica.QueryContext(ctx, `SELECT ruleset_id, mods, star_rating
		FROM beatmap_difficulty WHERE beatmap_id=$1 ORDER BY ruleset_id, mods`, beatmapID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DifficultyRow
	for rows.Next() {
		var r DifficultyRow
		if err := rows.Scan(&r.RulesetID, &r.Mods, &r.StarRating); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
