// Package notify fans settlement and claim events out to role-scoped
// recipients. Persisting the notification row is the durability guarantee;
// any live transport on top is best-effort and swappable.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/user"
	"github.com/umatik/lottery-engine/internal/app/metrics"
	"github.com/umatik/lottery-engine/internal/app/storage"
	"github.com/umatik/lottery-engine/internal/app/system"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Transport delivers a persisted notification over a live channel
// (websocket, polling, push). Delivery failures are logged, never surfaced.
type Transport interface {
	Deliver(ctx context.Context, n notification.Notification) error
}

// Invalidator drops cached read-model state for recipients whose
// notification rows changed.
type Invalidator interface {
	Invalidate(ctx context.Context, recipientIDs ...string)
}

// Dispatcher resolves recipients and writes durable notification rows. It
// runs an asynchronous queue so settlement and claim transitions never block
// on notification work.
type Dispatcher struct {
	store       storage.NotificationStore
	users       storage.UserStore
	transport   Transport
	invalidator Invalidator
	log         *logger.Logger

	mu      sync.Mutex
	queue   chan notification.Event
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

var _ system.Service = (*Dispatcher)(nil)

// New constructs a dispatcher.
func New(store storage.NotificationStore, users storage.UserStore, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &Dispatcher{
		store: store,
		users: users,
		log:   log,
		queue: make(chan notification.Event, 256),
	}
}

// WithTransport attaches a live delivery transport.
func (d *Dispatcher) WithTransport(t Transport) {
	d.mu.Lock()
	d.transport = t
	d.mu.Unlock()
}

// WithInvalidator attaches a read-model invalidator, called after new rows
// are written so cached unread counts never outlive a delivery.
func (d *Dispatcher) WithInvalidator(inv Invalidator) {
	d.mu.Lock()
	d.invalidator = inv
	d.mu.Unlock()
}

func (d *Dispatcher) Name() string { return "notification-dispatcher" }

// Start launches the queue worker.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case event := <-d.queue:
				if _, err := d.Dispatch(runCtx, event); err != nil {
					d.log.WithError(err).
						WithField("kind", event.Kind).
						WithField("ticket_id", event.TicketID).
						Warn("notification dispatch failed")
				}
			}
		}
	}()
	return nil
}

// Stop halts the worker. Events still queued stay in the channel and are
// processed on the next Start.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	d.running = false
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands an event to the dispatcher without blocking the caller. It
// is invoked after a state transition commits; when the queue is full the
// event is dispatched on its own goroutine rather than dropped.
func (d *Dispatcher) Enqueue(event notification.Event) {
	select {
	case d.queue <- event:
	default:
		go func() {
			if _, err := d.Dispatch(context.Background(), event); err != nil {
				d.log.WithError(err).WithField("kind", event.Kind).Warn("overflow dispatch failed")
			}
		}()
	}
}

// Dispatch resolves the recipient set for an event and writes one
// notification row per recipient. A failure on one recipient does not stop
// the others; the first error is returned after all writes are attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, event notification.Event) ([]string, error) {
	recipients, err := d.resolveRecipients(ctx, event)
	if err != nil {
		metrics.RecordNotificationFailure()
		return nil, err
	}

	var ids []string
	var written []string
	var firstErr error
	for _, recipientID := range recipients {
		row := d.buildNotification(event, recipientID)
		created, err := d.store.CreateNotification(ctx, row)
		if err != nil {
			metrics.RecordNotificationFailure()
			if firstErr == nil {
				firstErr = fmt.Errorf("notify %s: %w", recipientID, err)
			}
			continue
		}
		ids = append(ids, created.ID)
		written = append(written, recipientID)
		metrics.RecordNotification(string(created.Type))
		d.deliver(ctx, created)
	}
	if d.invalidator != nil && len(written) > 0 {
		d.invalidator.Invalidate(ctx, written...)
	}

	d.log.WithField("kind", event.Kind).
		WithField("ticket_id", event.TicketID).
		WithField("recipients", len(ids)).
		Info("notifications dispatched")
	return ids, firstErr
}

// resolveRecipients walks the ownership chain: a win notifies the owning
// agent, the agent's coordinator and that coordinator's area coordinator
// when the hierarchy defines them; claim decisions notify only the
// submitting agent.
func (d *Dispatcher) resolveRecipients(ctx context.Context, event notification.Event) ([]string, error) {
	if event.AgentID == "" {
		return nil, fmt.Errorf("event %s has no agent reference", event.Kind)
	}
	if event.Kind != notification.EventWin {
		return []string{event.AgentID}, nil
	}

	recipients := []string{event.AgentID}
	agent, err := d.users.GetUser(ctx, event.AgentID)
	if err != nil {
		// The agent row is gone or the lookup failed; the agent's own
		// notification still goes out.
		d.log.WithError(err).WithField("agent_id", event.AgentID).Warn("hierarchy lookup failed")
		return recipients, nil
	}
	if agent.SupervisorID == "" {
		return recipients, nil
	}
	recipients = append(recipients, agent.SupervisorID)

	coordinator, err := d.users.GetUser(ctx, agent.SupervisorID)
	if err == nil && coordinator.Role == user.RoleCoordinator && coordinator.SupervisorID != "" {
		recipients = append(recipients, coordinator.SupervisorID)
	}
	return recipients, nil
}

func (d *Dispatcher) buildNotification(event notification.Event, recipientID string) notification.Notification {
	n := notification.Notification{
		RecipientID: recipientID,
		TicketID:    event.TicketID,
		DrawID:      event.DrawID,
		Amount:      event.Amount,
	}
	switch event.Kind {
	case notification.EventWin:
		n.Type = notification.TypeWin
		n.Title = "Winning ticket"
		n.Message = fmt.Sprintf("Ticket %s won %s in the %s draw", event.TicketID, formatPeso(event.Amount), event.Slot)
	case notification.EventClaimApproved:
		n.Type = notification.TypeClaimApproved
		n.Title = "Claim approved"
		n.Message = fmt.Sprintf("Claim for ticket %s approved, %s payable", event.TicketID, formatPeso(event.Amount))
	case notification.EventClaimRejected:
		n.Type = notification.TypeClaimRejected
		n.Title = "Claim rejected"
		n.Message = fmt.Sprintf("Claim for ticket %s was rejected: %s", event.TicketID, event.Notes)
	default:
		n.Type = notification.TypeInfo
		n.Title = string(event.Kind)
		n.Message = event.Notes
	}
	return n
}

func (d *Dispatcher) deliver(ctx context.Context, n notification.Notification) {
	d.mu.Lock()
	transport := d.transport
	d.mu.Unlock()
	if transport == nil {
		return
	}
	if err := transport.Deliver(ctx, n); err != nil {
		// Best-effort only; the durable row already exists.
		d.log.WithError(err).WithField("notification_id", n.ID).Debug("live delivery failed")
	}
}

func formatPeso(centavos int64) string {
	return fmt.Sprintf("₱%.2f", float64(centavos)/100)
}
