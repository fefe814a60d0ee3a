package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// FileStore keeps one "<id>.json" file per session under Dir.
type FileStore struct {
	dir string
	now func() time.Time

	mu sync.Mutex // guards id allocation
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Create(ctx context.Context, msgs []transcript.Message) (Info, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create session dir: %w", err)
	}
	now := s.now()

	s.mu.Lock()
	id, err := newID(now, func(id string) (bool, error) {
		_, err := os.Stat(filepath.Join(s.dir, id+".json"))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	})
	if err == nil {
		err = s.write(id, newRecord(now, now, msgs))
	}
	s.mu.Unlock()
	if err != nil {
		return Info{}, err
	}
	return Info{ID: id, CreatedAt: now.UTC(), UpdatedAt: now.UTC(), MessageCount: len(msgs)}, nil
}

func (s *FileStore) Save(ctx context.Context, id string, createdAt time.Time, msgs []transcript.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return s.write(id, newRecord(createdAt, s.now(), msgs))
}

// write replaces the session file atomically via a sibling temp file.
func (s *FileStore) write(id string, rec Record) error {
	dst, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("write session %s: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", id, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Record, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

// List skips files that cannot be decoded.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		rec, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, Info{ID: id, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt, MessageCount: len(rec.Messages)})
	}
	sortInfos(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func sortInfos(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].UpdatedAt.Equal(infos[j].UpdatedAt) {
			return infos[i].ID > infos[j].ID
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
}
