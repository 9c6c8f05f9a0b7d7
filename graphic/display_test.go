package graphic

import (
	"context"
	"testing"
	"time"

	"github.com/nsf/termbox-go"
	"github.com/stretchr/testify/require"
)

// TestEventPollerLifecycle feeds synthetic events through the poller and
// checks the teardown handshake Close relies on: quit keys cancel the session
// without ending the poller, and only the interrupt event lets it exit.
func TestEventPollerLifecycle(t *testing.T) {
	d := NewDisplay(Config{})
	d.done = make(chan struct{})

	events := make(chan termbox.Event)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(d.done)
		d.eventPoller(cancel, func() termbox.Event { return <-events })
	}()

	events <- termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEnter}

	select {
	case <-d.Confirmed():
	case <-time.After(time.Second):
		t.Fatal("enter did not signal confirm")
	}

	events <- termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("escape did not cancel the session")
	}

	select {
	case <-d.done:
		t.Fatal("poller exited before the interrupt event")
	default:
	}

	events <- termbox.Event{Type: termbox.EventInterrupt}

	select {
	case <-d.done:
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on interrupt")
	}
}

func TestEventPollerErrorCancels(t *testing.T) {
	d := NewDisplay(Config{})
	d.done = make(chan struct{})

	events := make(chan termbox.Event)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(d.done)
		d.eventPoller(cancel, func() termbox.Event { return <-events })
	}()

	events <- termbox.Event{Type: termbox.EventError}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("error event did not cancel the session")
	}

	events <- termbox.Event{Type: termbox.EventInterrupt}

	require.Eventually(t, func() bool {
		select {
		case <-d.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
