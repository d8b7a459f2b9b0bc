// Package storage defines the persistence interfaces for the settlement and
// claim engine. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/domain/user"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConditionFailed is returned when a conditional update matched no row:
// the record exists but its guarded fields no longer hold the expected
// values. Callers re-read to classify the conflict.
var ErrConditionFailed = errors.New("conditional update failed")

// DrawStore persists draws and their published results.
type DrawStore interface {
	CreateDraw(ctx context.Context, d draw.Draw) (draw.Draw, error)
	GetDraw(ctx context.Context, id string) (draw.Draw, error)
	ListDrawsByDate(ctx context.Context, date time.Time) ([]draw.Draw, error)
	// UpdateDrawStatus performs a conditional status transition.
	UpdateDrawStatus(ctx context.Context, id string, from, to draw.Status) (draw.Draw, error)
	// PublishResult records the winning number on a closed draw whose number
	// is still unset. The write-once guard is part of the update condition.
	PublishResult(ctx context.Context, id, winningNumber string) (draw.Draw, error)
}

// TicketStore persists tickets and their bets. Status and reprint counter
// mutations are single conditional writes.
type TicketStore interface {
	CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	GetTicket(ctx context.Context, id string) (ticket.Ticket, error)
	ListTicketsByDraw(ctx context.Context, drawID string, status ticket.Status) ([]ticket.Ticket, error)
	ListTicketsByAgent(ctx context.Context, agentID string, limit int) ([]ticket.Ticket, error)
	// TransitionStatus moves a ticket from an expected status to the next one
	// and persists the cached prize, all in one guarded write.
	TransitionStatus(ctx context.Context, id string, from, to ticket.Status, prizeAmount int64) (ticket.Ticket, error)
	// IncrementReprint bumps the reprint counter iff it is below max and the
	// ticket has not been determined a winner. Check and increment are one
	// atomic operation.
	IncrementReprint(ctx context.Context, id string, max int) (ticket.Ticket, error)
}

// ClaimStore persists claims and their append-only decision records.
type ClaimStore interface {
	CreateClaim(ctx context.Context, c claim.Claim) (claim.Claim, error)
	GetClaim(ctx context.Context, id string) (claim.Claim, error)
	GetOpenClaimByTicket(ctx context.Context, ticketID string) (claim.Claim, error)
	// DecideClaim moves a claim from pending to a decided status. The
	// pending-only condition gives Decide single-writer semantics.
	DecideClaim(ctx context.Context, id string, to claim.Status, decidedAt time.Time) (claim.Claim, error)
	AppendClaimRecord(ctx context.Context, rec claim.Record) (claim.Record, error)
	ListClaimRecords(ctx context.Context, ticketID string) ([]claim.Record, error)
}

// NotificationStore persists the per-recipient notification read model.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// PrizeRuleStore persists versioned prize rule configurations.
type PrizeRuleStore interface {
	CreatePrizeRule(ctx context.Context, r prize.Rule) (prize.Rule, error)
	// PrizeRuleAt returns the latest rule effective at the given instant,
	// falling back to the built-in default when none is configured.
	PrizeRuleAt(ctx context.Context, at time.Time) (prize.Rule, error)
	ListPrizeRules(ctx context.Context) ([]prize.Rule, error)
}

// UserStore exposes the hierarchy consumed by notification fan-out.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
}

// Store is the full persistence surface the application wires together.
type Store interface {
	DrawStore
	TicketStore
	ClaimStore
	NotificationStore
	PrizeRuleStore
	UserStore
}
