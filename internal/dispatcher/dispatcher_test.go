package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.add("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("ERROR", msg, keysAndValues) }

func (l *testLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

var ctx = context.Background()

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":TICK:", func(_ context.Context, e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(ctx, Event{Command: ":TICK:", Args: []string{"12"}})
	require.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.Equal(t, []string{"12"}, got.Args)
	assert.False(t, got.Timestamp.IsZero(), "timestamp is filled in")
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Dispatch(ctx, Event{Command: ":UNKNOWN:"})
	assert.Error(t, err)
}

func TestDispatcher_BufferedKeepsOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var seen []string
	d.Register(":DAMAGE:ENTITY:", func(_ context.Context, e Event) (any, error) {
		mu.Lock()
		seen = append(seen, e.Args[0])
		mu.Unlock()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 20; i++ {
		result, err := d.Dispatch(ctx, Event{Command: ":DAMAGE:ENTITY:", Args: []string{fmt.Sprint(i)}})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}
	require.NoError(t, d.Close(ctx))

	require.Len(t, seen, 20)
	for i, v := range seen {
		assert.Equal(t, fmt.Sprint(i), v)
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(":FULL:", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))

	d.Dispatch(ctx, Event{Command: ":FULL:"})
	<-started
	d.Dispatch(ctx, Event{Command: ":FULL:"})
	d.Dispatch(ctx, Event{Command: ":FULL:"})

	_, err := d.Dispatch(ctx, Event{Command: ":FULL:"})
	assert.Error(t, err, "queue is full")

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(":BLOCKING:", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(ctx, Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(ctx, Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(ctx, Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_BlockingRespectsContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{}, 1)
	d.Register(":BLOCKING:", func(context.Context, Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(ctx, Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(ctx, Event{Command: ":BLOCKING:"})

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := d.Dispatch(cctx, Event{Command: ":BLOCKING:"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(context.Context, Event) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(ctx, Event{Command: ":LOGGED:", Args: []string{"a", "b"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, logger.count("DEBUG"), 2)
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(context.Context, Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(ctx, Event{Command: ":ERROR:"})
	assert.Error(t, err)
	assert.Equal(t, 1, logger.count("ERROR"))
}

func TestDispatcher_BufferedErrorLoggedOnce(t *testing.T) {
	for _, logged := range []bool{false, true} {
		t.Run(fmt.Sprintf("logged=%v", logged), func(t *testing.T) {
			d, logger := newTestDispatcher(t)
			opts := []Option{Buffered(4)}
			if logged {
				opts = append(opts, Logged())
			}
			d.Register(":BAD:", func(context.Context, Event) (any, error) {
				return nil, fmt.Errorf("boom")
			}, opts...)

			_, err := d.Dispatch(ctx, Event{Command: ":BAD:"})
			require.NoError(t, err)
			require.NoError(t, d.Close(ctx))
			assert.Equal(t, 1, logger.count("ERROR"))
		})
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(context.Context, Event) (any, error) { return nil, nil }
	d.Register(":TICK:", noop)
	d.Register(":OPAQUE:", noop)

	assert.True(t, d.HasHandler(":TICK:"))
	assert.False(t, d.HasHandler(":NOT_EXISTS:"))
	assert.Equal(t, []string{":OPAQUE:", ":TICK:"}, d.Commands())
}

func TestDispatcher_CloseRejectsNewEvents(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":Q:", func(context.Context, Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(ctx, Event{Command: ":Q:"})
		require.NoError(t, err)
	}
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, int32(5), processed.Load(), "close drains queued events")

	_, err := d.Dispatch(ctx, Event{Command: ":Q:"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, d.Close(ctx), "close is idempotent")
}

func TestDispatcher_CloseTimeout(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	defer close(block)
	d.Register(":SLOW:", func(context.Context, Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1))
	d.Dispatch(ctx, Event{Command: ":SLOW:"})

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(cctx), context.DeadlineExceeded)
}
