package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petasbytes/go-agent/internal/transcript"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	record        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// SQLiteStore keeps session records in a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu sync.Mutex // guards id allocation
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer connection avoids SQLITE_BUSY between session queues
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, msgs []transcript.Message) (Info, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := newID(now, func(id string) (bool, error) {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return Info{}, fmt.Errorf("allocate session id: %w", err)
	}
	if err := s.upsert(ctx, id, newRecord(now, now, msgs)); err != nil {
		return Info{}, err
	}
	return Info{ID: id, CreatedAt: now.UTC(), UpdatedAt: now.UTC(), MessageCount: len(msgs)}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id string, createdAt time.Time, msgs []transcript.Message) error {
	return s.upsert(ctx, id, newRecord(createdAt, s.now(), msgs))
}

func (s *SQLiteStore) upsert(ctx context.Context, id string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, updated_at, message_count, record)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	updated_at = excluded.updated_at,
	message_count = excluded.message_count,
	record = excluded.record`,
		id, rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano), len(rec.Messages), string(data))
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, updated_at, message_count FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info             Info
			created, updated string
		)
		if err := rows.Scan(&info.ID, &created, &updated, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sortInfos(out)
	return out, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
