// Package notify addresses narration to connected observers.
package notify

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/frontierstation/damagecast/internal/identity"
	"github.com/frontierstation/damagecast/internal/queue"
	"github.com/frontierstation/damagecast/pkg/core"
	"github.com/frontierstation/damagecast/pkg/streaming"
)

const instrumentationName = "github.com/frontierstation/damagecast/internal/notify"

// Notifier enqueues chat messages for observers that have a connected
// session and silently skips the rest.
type Notifier struct {
	lookup identity.Lookup
	outbox *queue.Queue[streaming.Outbound]

	sent    metric.Int64Counter
	skipped metric.Int64Counter
}

// New returns a notifier resolving handles through lookup and pushing onto
// outbox. Uses the global OTel meter (no-op if not configured).
func New(lookup identity.Lookup, outbox *queue.Queue[streaming.Outbound]) (*Notifier, error) {
	n := &Notifier{lookup: lookup, outbox: outbox}
	m := otel.Meter(instrumentationName)

	var err error
	n.sent, err = m.Int64Counter(
		"damage.notifications.sent",
		metric.WithDescription("Messages queued for a connected observer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	n.skipped, err = m.Int64Counter(
		"damage.notifications.skipped",
		metric.WithDescription("Messages dropped because the observer has no session"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}
	return n, nil
}

// Notify queues text for observer. It returns the handle the message was
// addressed to, or false when the observer has no session.
func (n *Notifier) Notify(ctx context.Context, observer core.EntityID, text string) (core.Handle, bool) {
	h, ok := n.lookup.HandleFor(observer)
	if !ok {
		n.skipped.Add(ctx, 1)
		return 0, false
	}
	n.outbox.Push(streaming.Outbound{Handle: h, Message: streaming.ChatMessage(text)})
	n.sent.Add(ctx, 1)
	return h, true
}
