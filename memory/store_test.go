package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-agent/internal/transcript"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

type storeCase struct {
	name string
	open func(t *testing.T, c *clock) Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"file", func(t *testing.T, c *clock) Store {
			s := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
			s.now = c.now
			return s
		}},
		{"sqlite", func(t *testing.T, c *clock) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
			require.NoError(t, err)
			s.now = c.now
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func sample() []transcript.Message {
	return []transcript.Message{
		{Role: transcript.RoleSystem, Content: "sys"},
		{Role: transcript.RoleUser, Content: "hi"},
		{Role: transcript.RoleAssistant, ToolCalls: []transcript.ToolCall{
			{ID: "c1", Type: "function", Function: transcript.FunctionCall{Name: "getPlan", Arguments: "{}"}},
		}},
		{Role: transcript.RoleTool, ToolCallID: "c1", Content: "No plan exists yet."},
	}
}

func TestStore_CreateThenLoad(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c := newClock()
			s := tc.open(t, c)
			ctx := context.Background()

			info, err := s.Create(ctx, sample())
			require.NoError(t, err)
			assert.Equal(t, "20250314-092653-"+strconv.Itoa(os.Getpid()), info.ID)
			assert.Equal(t, 4, info.MessageCount)

			rec, err := s.Load(ctx, info.ID)
			require.NoError(t, err)
			assert.Equal(t, RecordVersion, rec.Version)
			assert.True(t, rec.CreatedAt.Equal(c.t))
			assert.Equal(t, sample(), rec.Messages)
		})
	}
}

func TestStore_SaveOverwritesAndStampsUpdatedAt(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c := newClock()
			s := tc.open(t, c)
			ctx := context.Background()

			info, err := s.Create(ctx, sample()[:1])
			require.NoError(t, err)

			c.advance(time.Minute)
			target := Target{Store: s, ID: info.ID, CreatedAt: info.CreatedAt}
			require.NoError(t, target.Write(ctx, sample()))

			rec, err := s.Load(ctx, info.ID)
			require.NoError(t, err)
			assert.Len(t, rec.Messages, 4)
			assert.True(t, rec.CreatedAt.Equal(info.CreatedAt), "createdAt preserved")
			assert.True(t, rec.UpdatedAt.Equal(c.t), "updatedAt stamped at write time")
		})
	}
}

func TestStore_IDCollisionGetsSuffix(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.open(t, newClock())
			ctx := context.Background()

			a, err := s.Create(ctx, nil)
			require.NoError(t, err)
			b, err := s.Create(ctx, nil)
			require.NoError(t, err)
			assert.NotEqual(t, a.ID, b.ID)
			assert.Equal(t, a.ID+"-2", b.ID)
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c := newClock()
			s := tc.open(t, c)
			ctx := context.Background()

			old, err := s.Create(ctx, sample()[:1])
			require.NoError(t, err)
			c.advance(time.Second)
			newer, err := s.Create(ctx, sample()[:2])
			require.NoError(t, err)

			infos, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 2)
			assert.Equal(t, newer.ID, infos[0].ID)
			assert.Equal(t, 2, infos[0].MessageCount)

			// touching the older session moves it to the front
			c.advance(time.Second)
			require.NoError(t, s.Save(ctx, old.ID, old.CreatedAt, sample()))
			infos, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, old.ID, infos[0].ID)
			assert.Equal(t, 4, infos[0].MessageCount)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.open(t, newClock())
			_, err := s.Load(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStore_RecordFormat(t *testing.T) {
	c := newClock()
	s := NewFileStore(t.TempDir())
	s.now = c.now

	info, err := s.Create(context.Background(), sample()[:2])
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Dir(), info.ID+".json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"version\": 1,"), "two-space indented, version first: %s", data)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2025-03-14T09:26:53Z", raw["createdAt"])
	assert.Contains(t, raw, "updatedAt")
	assert.Len(t, raw["messages"], 2)
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, err := s.Load(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStore_ListSkipsCorruptFiles(t *testing.T) {
	s := NewFileStore(t.TempDir())
	s.now = newClock().now
	_, err := s.Create(context.Background(), sample())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}
