package main

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"onehand/internal/keymap"
)

var csvHeader = []string{
	"time", "layer", "key_press_count", "fn_press_count",
	"encoder_turn_count", "mouse_click_count", "last_key_id", "last_key_label",
}

// csvLog appends one row per detected key press.
type csvLog struct {
	f *os.File
	w *csv.Writer
}

func openCSVLog(path string) (*csvLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv log: %w", err)
	}

	l := &csvLog{f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := l.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		l.w.Flush()
	}
	return l, nil
}

func (l *csvLog) Append(r KeyRecord) error {
	row := []string{
		r.At.Format(time.RFC3339),
		strconv.Itoa(int(r.Layer)),
		strconv.Itoa(r.KeyPresses),
		strconv.Itoa(r.FnPresses),
		strconv.Itoa(r.EncoderSteps),
		strconv.Itoa(r.MouseClicks),
		strconv.Itoa(r.KeyID),
		r.KeyLabel,
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *csvLog) Close() error {
	l.w.Flush()
	return errors.Join(l.w.Error(), l.f.Close())
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_ns  INTEGER NOT NULL,
    source      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS key_presses (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id          INTEGER NOT NULL REFERENCES sessions(id),
    timestamp_ns        INTEGER NOT NULL,
    layer               INTEGER NOT NULL,
    key_layer           INTEGER NOT NULL,
    key_id              INTEGER NOT NULL,
    key_label           TEXT NOT NULL,
    key_press_count     INTEGER NOT NULL,
    fn_press_count      INTEGER NOT NULL,
    encoder_turn_count  INTEGER NOT NULL,
    mouse_click_count   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_key_presses_layer ON key_presses(key_layer, key_id);
`

// Store keeps key-press history across sessions.
type Store struct {
	db        *sql.DB
	sessionID int64
}

// OpenStore opens or creates the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginSession starts a new session; later inserts belong to it.
func (s *Store) BeginSession(source string, at time.Time) error {
	res, err := s.db.Exec(`INSERT INTO sessions (started_ns, source) VALUES (?, ?)`, at.UnixNano(), source)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get session id: %w", err)
	}
	s.sessionID = id
	return nil
}

func (s *Store) InsertKeyPress(r KeyRecord) error {
	if s.sessionID == 0 {
		return errors.New("no session started")
	}
	_, err := s.db.Exec(`
		INSERT INTO key_presses (session_id, timestamp_ns, layer, key_layer, key_id, key_label,
			key_press_count, fn_press_count, encoder_turn_count, mouse_click_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, r.At.UnixNano(), int(r.Layer), int(r.KeyLayer), r.KeyID, r.KeyLabel,
		r.KeyPresses, r.FnPresses, r.EncoderSteps, r.MouseClicks,
	)
	if err != nil {
		return fmt.Errorf("insert key press: %w", err)
	}
	return nil
}

// LayerCounts returns all-time press counts per position for layer l.
func (s *Store) LayerCounts(l keymap.Layer) ([keymap.PositionCount]int, error) {
	var out [keymap.PositionCount]int
	rows, err := s.db.Query(`
		SELECT key_id, COUNT(*) FROM key_presses
		WHERE key_layer = ? GROUP BY key_id`, int(l))
	if err != nil {
		return out, fmt.Errorf("query layer counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return out, fmt.Errorf("scan layer count: %w", err)
		}
		if keymap.KeyPosition(id).Valid() {
			out[id] = n
		}
	}
	return out, rows.Err()
}

// SessionCount returns how many sessions have been recorded.
func (s *Store) SessionCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// SessionLog writes key records to the CSV file and the database.
type SessionLog struct {
	csv   *csvLog
	store *Store
}

// OpenSessionLog creates telemetry_<timestamp>.csv and opens history.db in dir.
func OpenSessionLog(dir, source string, now time.Time) (*SessionLog, string, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log directory: %w", err)
	}

	csvPath := filepath.Join(dir, "telemetry_"+now.Format("20060102_150405")+".csv")
	c, err := openCSVLog(csvPath)
	if err != nil {
		return nil, "", err
	}

	store, err := OpenStore(filepath.Join(dir, "history.db"))
	if err != nil {
		c.Close()
		return nil, "", err
	}
	if err := store.BeginSession(source, now); err != nil {
		c.Close()
		store.Close()
		return nil, "", err
	}

	return &SessionLog{csv: c, store: store}, csvPath, nil
}

func (l *SessionLog) Append(r KeyRecord) error {
	return errors.Join(l.csv.Append(r), l.store.InsertKeyPress(r))
}

func (l *SessionLog) Close() error {
	return errors.Join(l.csv.Close(), l.store.Close())
}
