package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alarmd/internal/eventbus"
	logx "alarmd/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "history.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteAppendAndRecent(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	for i, msg := range []string{"first", "second", "third"} {
		e := Entry{
			ScheduledAt: now.Add(time.Duration(i) * time.Second),
			FiredAt:     now.Add(time.Duration(i)*time.Second + 10*time.Millisecond),
			Message:     msg,
		}
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append(%q): %v", msg, err)
		}
	}

	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Message != "third" || got[1].Message != "second" {
		t.Fatalf("Recent order = [%s, %s], want [third, second]", got[0].Message, got[1].Message)
	}
	if !got[0].ScheduledAt.Equal(now.Add(2 * time.Second)) {
		t.Fatalf("ScheduledAt = %v, want %v", got[0].ScheduledAt, now.Add(2*time.Second))
	}
}

func TestRecorderConsumesFiredEvents(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	bus := eventbus.New()

	rec := NewRecorder(st, bus, logx.Nop())
	ctx := context.Background()
	rec.Start(ctx)

	now := time.Now()
	bus.Publish(eventbus.Event{
		Type: eventbus.EventAlarmFired,
		Time: now,
		Data: eventbus.Fired{ScheduledAt: now.Add(-time.Second), FiredAt: now, Message: "recorded"},
	})
	bus.Publish(eventbus.Event{Type: "other", Data: "ignored"})

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rec.Stop(stopCtx)

	got, err := st.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Message != "recorded" {
		t.Fatalf("history = %+v, want one entry %q", got, "recorded")
	}
}
