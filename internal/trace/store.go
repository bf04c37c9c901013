// Package trace records gesture sessions to SQLite and replays them
// through an engine.
package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trackpad/internal/gesture"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("trace: session not found")

// SessionInfo describes one recorded session.
type SessionInfo struct {
	ID        int64
	StartedAt time.Time
	Geometry  gesture.Geometry
	Note      string
	Samples   int
	Actions   int
}

// TimedAction is an engine action with the time it was produced.
type TimedAction struct {
	At     uint32
	Action gesture.Action
}

func (a TimedAction) String() string {
	return fmt.Sprintf("t=%dms %s", a.At, a.Action)
}

// Store is the SQLite trace store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the trace database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginSession creates a session for geometry g and returns its id.
func (s *Store) BeginSession(g gesture.Geometry, note string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sessions (started_ns, hres, vres, scroll_w, scroll_h, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UnixNano(), g.HRes, g.VRes, g.ScrollZoneW, g.ScrollZoneH, note,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// AppendSample stores one sample at the end of session id.
func (s *Store) AppendSample(id int64, smp gesture.Sample) error {
	return s.appendBatch(id, []gesture.Sample{smp}, nil)
}

// AppendAction stores one action at the end of session id.
func (s *Store) AppendAction(id int64, a TimedAction) error {
	return s.appendBatch(id, nil, []TimedAction{a})
}

// appendBatch stores samples and actions in one transaction, continuing
// the sequence numbers of the session.
func (s *Store) appendBatch(id int64, samples []gesture.Sample, actions []TimedAction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(samples) > 0 {
		next, err := nextSeq(tx, "samples", id)
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO samples (session_id, seq, kind, x, y, ts_ms) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()
		for i, smp := range samples {
			if _, err := stmt.Exec(id, next+int64(i), int(smp.Kind), smp.X, smp.Y, smp.TimestampMs); err != nil {
				return fmt.Errorf("insert sample: %w", err)
			}
		}
	}

	if len(actions) > 0 {
		next, err := nextSeq(tx, "actions", id)
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO actions (session_id, seq, ts_ms, kind, dx, dy, scroll, buttons) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()
		for i, a := range actions {
			act := a.Action
			if _, err := stmt.Exec(id, next+int64(i), a.At, act.Kind.String(), act.DX, act.DY, act.Scroll, act.Buttons); err != nil {
				return fmt.Errorf("insert action: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nextSeq(tx *sql.Tx, table string, id int64) (int64, error) {
	var next int64
	err := tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM `+table+` WHERE session_id = ?`, id).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next %s seq: %w", table, err)
	}
	return next, nil
}

// Sessions lists every session, newest first.
func (s *Store) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.started_ns, s.hres, s.vres, s.scroll_w, s.scroll_h, COALESCE(s.note, ''),
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id),
		       (SELECT COUNT(*) FROM actions WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Session returns one session or ErrSessionNotFound.
func (s *Store) Session(id int64) (SessionInfo, error) {
	row := s.db.QueryRow(`
		SELECT s.id, s.started_ns, s.hres, s.vres, s.scroll_w, s.scroll_h, COALESCE(s.note, ''),
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id),
		       (SELECT COUNT(*) FROM actions WHERE session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return info, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (SessionInfo, error) {
	var info SessionInfo
	var startedNs int64
	err := r.Scan(&info.ID, &startedNs, &info.Geometry.HRes, &info.Geometry.VRes,
		&info.Geometry.ScrollZoneW, &info.Geometry.ScrollZoneH, &info.Note, &info.Samples, &info.Actions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, err
		}
		return info, fmt.Errorf("scan session: %w", err)
	}
	info.StartedAt = time.Unix(0, startedNs)
	return info, nil
}

// Samples returns the samples of session id in recording order.
func (s *Store) Samples(id int64) ([]gesture.Sample, error) {
	if _, err := s.Session(id); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT kind, x, y, ts_ms FROM samples WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []gesture.Sample
	for rows.Next() {
		var smp gesture.Sample
		var kind int
		if err := rows.Scan(&kind, &smp.X, &smp.Y, &smp.TimestampMs); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Kind = gesture.EventKind(kind)
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// Actions returns the actions of session id in recording order.
func (s *Store) Actions(id int64) ([]TimedAction, error) {
	if _, err := s.Session(id); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT ts_ms, kind, dx, dy, scroll, buttons FROM actions WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []TimedAction
	for rows.Next() {
		var a TimedAction
		var kind string
		if err := rows.Scan(&a.At, &kind, &a.Action.DX, &a.Action.DY, &a.Action.Scroll, &a.Action.Buttons); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		k, ok := gesture.ParseActionKind(kind)
		if !ok {
			return nil, fmt.Errorf("scan action: unknown kind %q", kind)
		}
		a.Action.Kind = k
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and its rows.
func (s *Store) DeleteSession(id int64) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	return nil
}
