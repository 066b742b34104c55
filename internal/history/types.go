package history

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures the fired-alarm record.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite busy_timeout; 0 means default
}

// Entry is one fired alarm. Keep it compact and schema-stable.
type Entry struct {
	ScheduledAt time.Time
	FiredAt     time.Time
	Message     string
}

// Store is the minimal persistence API used by the recorder.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
