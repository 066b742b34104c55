package emit

import (
	"bytes"
	"testing"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/sched"
)

// The worker's output hook must stay satisfied without emit importing sched.
var (
	_ sched.Emitter = (*Console)(nil)
	_ sched.Emitter = Multi(nil)
)

type captureEmitter struct {
	got []string
}

func (c *captureEmitter) Emit(r alarm.Request, _ time.Time) {
	c.got = append(c.got, r.Message)
}

func TestConsoleWritesOneLinePerAlarm(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Emit(alarm.Request{Message: "first"}, time.Now())
	c.Emit(alarm.Request{Message: "second"}, time.Now())

	if got, want := buf.String(), "first\nsecond\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestMultiFansOutInOrder(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cap1 := &captureEmitter{}
	cap2 := &captureEmitter{}

	m := Multi{cap1, NewConsole(&buf), cap2, nil}
	m.Emit(alarm.Request{Message: "ding"}, time.Now())

	if len(cap1.got) != 1 || len(cap2.got) != 1 {
		t.Fatalf("fanout missed an emitter: %v / %v", cap1.got, cap2.got)
	}
	if buf.String() != "ding\n" {
		t.Fatalf("console output = %q", buf.String())
	}
}
