package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxMessageLen caps the message payload in characters.
// Longer submissions are rejected at ingestion, never truncated.
const MaxMessageLen = 63

var (
	ErrEmptyMessage   = errors.New("alarm: empty message")
	ErrMessageTooLong = fmt.Errorf("alarm: message longer than %d characters", MaxMessageLen)
)

// Request is a single one-shot alarm: fire FireAt, emit Message once.
type Request struct {
	// FireAt is the absolute point in time the alarm is due.
	FireAt time.Time

	Message string
}

// NewRequest builds a Request due delay after now.
// Delays <= 0 are legal and produce an immediately due request.
func NewRequest(now time.Time, delay time.Duration, message string) (Request, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Request{}, ErrEmptyMessage
	}
	if len([]rune(message)) > MaxMessageLen {
		return Request{}, ErrMessageTooLong
	}
	return Request{FireAt: now.Add(delay), Message: message}, nil
}

// Remaining reports how long until the request is due.
// Zero or negative means already due.
func (r Request) Remaining(now time.Time) time.Duration {
	return r.FireAt.Sub(now)
}
