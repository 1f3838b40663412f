package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/n0madic/stridecoach/internal/store"
)

const eventColumns = `id, date, category, type, title, time, distance, duration, pace, notes, heart_rate, feeling, completed, created_ns, updated_ns`

func (s *Store) QueryEvents(ctx context.Context, q store.EventQuery) ([]store.Event, error) {
	var where []string
	var args []any
	if q.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, q.EndDate)
	}
	if q.Category != "" && q.Category != store.CategoryAll {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}

	query := `SELECT ` + eventColumns + ` FROM running_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_ns ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []store.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM running_events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return ev, err
}

// CreateEvent inserts ev with a fresh id. Date and Type are required;
// Category defaults to running.
func (s *Store) CreateEvent(ctx context.Context, ev store.Event) (*store.Event, error) {
	if err := normalizeEvent(&ev); err != nil {
		return nil, err
	}
	ev.ID = uuid.NewString()
	now := s.nowNS()
	ev.CreatedAt = fromNS(now)
	ev.UpdatedAt = ev.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO running_events(`+eventColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		ev.ID, ev.Date, ev.Category, ev.Type,
		nullable(ev.Title), nullable(ev.Time), nullable(ev.Distance), nullable(ev.Duration),
		nullable(ev.Pace), nullable(ev.Notes), nullableInt(ev.HeartRate), nullable(ev.Feeling),
		ev.Completed, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &ev, nil
}

// UpdateEvent overwrites every mutable column of the event with ev.ID.
func (s *Store) UpdateEvent(ctx context.Context, ev store.Event) (*store.Event, error) {
	if ev.ID == "" {
		return nil, fmt.Errorf("%w: event id is required", store.ErrInvalid)
	}
	if err := normalizeEvent(&ev); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE running_events SET
			date = ?, category = ?, type = ?, title = ?, time = ?, distance = ?, duration = ?,
			pace = ?, notes = ?, heart_rate = ?, feeling = ?, completed = ?, updated_ns = ?
		WHERE id = ?;`,
		ev.Date, ev.Category, ev.Type,
		nullable(ev.Title), nullable(ev.Time), nullable(ev.Distance), nullable(ev.Duration),
		nullable(ev.Pace), nullable(ev.Notes), nullableInt(ev.HeartRate), nullable(ev.Feeling),
		ev.Completed, s.nowNS(), ev.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetEvent(ctx, ev.ID)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM running_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func normalizeEvent(ev *store.Event) error {
	ev.Date = strings.TrimSpace(ev.Date)
	ev.Type = strings.TrimSpace(ev.Type)
	if ev.Date == "" || ev.Type == "" {
		return fmt.Errorf("%w: date and type are required", store.ErrInvalid)
	}
	switch ev.Category {
	case "":
		ev.Category = store.CategoryRunning
	case store.CategoryRunning, store.CategoryPersonal:
	default:
		return fmt.Errorf("%w: unknown category %q", store.ErrInvalid, ev.Category)
	}
	if ev.Completed != 0 {
		ev.Completed = 1
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*store.Event, error) {
	var (
		ev                                                  store.Event
		title, tm, distance, duration, pace, notes, feeling sql.NullString
		heartRate                                           sql.NullInt64
		created, updated                                    int64
	)
	if err := r.Scan(
		&ev.ID, &ev.Date, &ev.Category, &ev.Type,
		&title, &tm, &distance, &duration, &pace, &notes, &heartRate, &feeling,
		&ev.Completed, &created, &updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	ev.Title = stringPtr(title)
	ev.Time = stringPtr(tm)
	ev.Distance = stringPtr(distance)
	ev.Duration = stringPtr(duration)
	ev.Pace = stringPtr(pace)
	ev.Notes = stringPtr(notes)
	ev.HeartRate = intPtr(heartRate)
	ev.Feeling = stringPtr(feeling)
	ev.CreatedAt = fromNS(created)
	ev.UpdatedAt = fromNS(updated)
	return &ev, nil
}
