package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/n0madic/stridecoach/internal/store"
)

type profileColumn struct {
	col    string
	field  string
	number bool
}

var profileColumns = []profileColumn{
	{"name", "name", false},
	{"age", "age", true},
	{"weight", "weight", true},
	{"height", "height", true},
	{"years_running", "yearsRunning", true},
	{"weekly_km", "weeklyKm", true},
	{"pb_5k", "pb5k", false},
	{"pb_10k", "pb10k", false},
	{"pb_half_marathon", "pbHalfMarathon", false},
	{"pb_marathon", "pbMarathon", false},
	{"current_goal", "currentGoal", false},
	{"target_race", "targetRace", false},
	{"target_date", "targetDate", false},
	{"target_time", "targetTime", false},
	{"injuries", "injuries", false},
	{"health_notes", "healthNotes", false},
	{"preferred_terrain", "preferredTerrain", false},
	{"available_days", "availableDays", false},
	{"max_time_per_session", "maxTimePerSession", true},
	{"coach_notes", "coachNotes", false},
}

var (
	profileSelectSQL string
	profileUpsertSQL string
)

func init() {
	cols := make([]string, 0, len(profileColumns)+3)
	sets := make([]string, 0, len(profileColumns)+2)
	for _, c := range profileColumns {
		cols = append(cols, c.col)
		sets = append(sets, c.col+" = excluded."+c.col)
	}
	cols = append(cols, "additional_info", "created_ns", "updated_ns")
	sets = append(sets, "additional_info = excluded.additional_info", "updated_ns = excluded.updated_ns")

	profileSelectSQL = `SELECT ` + strings.Join(cols, ", ") + ` FROM runner_profile WHERE id = 1`
	profileUpsertSQL = `INSERT INTO runner_profile(id, ` + strings.Join(cols, ", ") + `)
		VALUES(1` + strings.Repeat(", ?", len(cols)) + `)
		ON CONFLICT(id) DO UPDATE SET ` + strings.Join(sets, ", ")
}

func (s *Store) GetRunnerProfile(ctx context.Context) (*store.Profile, error) {
	return readProfile(ctx, s.db)
}

// GetOrCreateRunnerProfile returns the profile, inserting an empty row
// first when none exists. The insert is a no-op under a concurrent create.
func (s *Store) GetOrCreateRunnerProfile(ctx context.Context) (*store.Profile, error) {
	now := s.nowNS()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runner_profile(id, created_ns, updated_ns) VALUES(1, ?, ?) ON CONFLICT(id) DO NOTHING`,
		now, now,
	); err != nil {
		return nil, fmt.Errorf("create runner profile: %w", err)
	}
	return readProfile(ctx, s.db)
}

func (s *Store) UpsertRunnerProfile(ctx context.Context, upd store.ProfileUpdate) (*store.Profile, error) {
	var out *store.Profile
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadForWrite(ctx, tx)
		if err != nil {
			return err
		}
		upd.Apply(p)
		if err := s.writeProfile(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Store) AppendCoachNotes(ctx context.Context, notes string) (*store.Profile, error) {
	var out *store.Profile
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := s.loadForWrite(ctx, tx)
		if err != nil {
			return err
		}
		merged := notes
		if p.CoachNotes != nil && *p.CoachNotes != "" {
			merged = *p.CoachNotes + store.CoachNotesSeparator + notes
		}
		p.CoachNotes = &merged
		if err := s.writeProfile(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// loadForWrite reads the current row inside tx, or a fresh profile when the
// row does not exist yet.
func (s *Store) loadForWrite(ctx context.Context, tx *sql.Tx) (*store.Profile, error) {
	p, err := readProfile(ctx, tx)
	if errors.Is(err, store.ErrNotFound) {
		now := fromNS(s.nowNS())
		return &store.Profile{CreatedAt: now, UpdatedAt: now}, nil
	}
	return p, err
}

func (s *Store) writeProfile(ctx context.Context, q querier, p *store.Profile) error {
	p.UpdatedAt = fromNS(s.nowNS())
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	args := make([]any, 0, len(profileColumns)+3)
	for _, c := range profileColumns {
		if c.number {
			args = append(args, nullableFloat(*p.NumberField(c.field)))
		} else {
			args = append(args, nullable(*p.StringField(c.field)))
		}
	}
	var info any
	if p.AdditionalInfo != nil {
		b, err := json.Marshal(p.AdditionalInfo)
		if err != nil {
			return fmt.Errorf("marshal additional info: %w", err)
		}
		info = string(b)
	}
	args = append(args, info, p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())

	if _, err := q.ExecContext(ctx, profileUpsertSQL, args...); err != nil {
		return fmt.Errorf("upsert runner profile: %w", err)
	}
	return nil
}

func readProfile(ctx context.Context, q querier) (*store.Profile, error) {
	dest := make([]any, 0, len(profileColumns)+3)
	for _, c := range profileColumns {
		if c.number {
			dest = append(dest, new(sql.NullFloat64))
		} else {
			dest = append(dest, new(sql.NullString))
		}
	}
	var info sql.NullString
	var created, updated int64
	dest = append(dest, &info, &created, &updated)

	if err := q.QueryRowContext(ctx, profileSelectSQL).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("read runner profile: %w", err)
	}

	p := &store.Profile{CreatedAt: fromNS(created), UpdatedAt: fromNS(updated)}
	for i, c := range profileColumns {
		if c.number {
			*p.NumberField(c.field) = floatPtr(*dest[i].(*sql.NullFloat64))
		} else {
			*p.StringField(c.field) = stringPtr(*dest[i].(*sql.NullString))
		}
	}
	if info.Valid && info.String != "" {
		if err := json.Unmarshal([]byte(info.String), &p.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("decode additional info: %w", err)
		}
	}
	return p, nil
}
