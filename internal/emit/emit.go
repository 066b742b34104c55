// Package emit provides the output collaborators a fired alarm is rendered
// through.
package emit

import (
	"fmt"
	"io"
	"sync"
	"time"

	"alarmd/internal/alarm"
)

// Emitter is the shape of a sink a fired alarm is rendered through. It
// mirrors the worker's output hook so sinks here compose without this
// package depending on the scheduler.
type Emitter interface {
	Emit(r alarm.Request, firedAt time.Time)
}

// Console writes the fired message to a single output stream, one line per
// alarm. Writes are serialized; every alarm is rendered exactly once.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(r alarm.Request, _ time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, r.Message)
}

// Multi fans a fired alarm out to several emitters in order.
type Multi []Emitter

func (m Multi) Emit(r alarm.Request, firedAt time.Time) {
	for _, e := range m {
		if e != nil {
			e.Emit(r, firedAt)
		}
	}
}
