package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// RecordVersion is the current on-disk format version.
const RecordVersion = 1

// ErrNotFound is returned when a session id does not exist in the store.
var ErrNotFound = errors.New("session not found")

// Record is the persisted form of one session.
type Record struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Messages  []transcript.Message `json:"messages"`
}

// Info summarizes a stored session for listing.
type Info struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Store persists session records.
type Store interface {
	// Create writes a new record holding msgs and returns its identity.
	Create(ctx context.Context, msgs []transcript.Message) (Info, error)
	// Save overwrites the record for id, stamping UpdatedAt with the current time.
	Save(ctx context.Context, id string, createdAt time.Time, msgs []transcript.Message) error
	Load(ctx context.Context, id string) (*Record, error)
	// List returns all sessions, most recently updated first.
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// Target binds one stored session as a persistence target.
type Target struct {
	Store     Store
	ID        string
	CreatedAt time.Time
}

func (t Target) Write(ctx context.Context, msgs []transcript.Message) error {
	return t.Store.Save(ctx, t.ID, t.CreatedAt, msgs)
}

func newRecord(createdAt, updatedAt time.Time, msgs []transcript.Message) Record {
	if msgs == nil {
		msgs = []transcript.Message{}
	}
	return Record{
		Version:   RecordVersion,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
		Messages:  msgs,
	}
}

// newID returns "YYYYMMDD-HHMMSS-<pid>", suffixed with -N while taken reports a collision.
func newID(now time.Time, taken func(string) (bool, error)) (string, error) {
	base := fmt.Sprintf("%s-%d", now.Format("20060102-150405"), os.Getpid())
	id := base
	for n := 2; ; n++ {
		exists, err := taken(id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}
