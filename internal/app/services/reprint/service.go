// Package reprint guards the reissue of physical ticket copies. A ticket may
// be reprinted at most MaxReprints times, and never once it has been
// determined a winner.
package reprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/metrics"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// MaxReprints is the lifetime cap on reissues per ticket.
const MaxReprints = 2

// Service enforces the reprint policy.
type Service struct {
	tickets storage.TicketStore
	log     *logger.Logger
}

// New constructs a reprint service.
func New(tickets storage.TicketStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reprint")
	}
	return &Service{tickets: tickets, log: log}
}

// CanReprint reports whether the ticket is currently eligible for a reissue.
// When it is not, the returned error carries the coded reason. It is
// advisory only; Reprint re-checks atomically.
func CanReprint(t ticket.Ticket) (bool, error) {
	if t.SettledWinner() {
		return false, enginerr.TicketSettled(t.ID, string(t.Status))
	}
	if t.ReprintCount >= MaxReprints {
		return false, enginerr.LimitReached(t.ID, t.ReprintCount)
	}
	return true, nil
}

// Reprint consumes one reissue of the ticket and returns the updated copy.
// The count check and the increment are a single conditional write, so
// concurrent requests can never push the counter past the cap.
func (s *Service) Reprint(ctx context.Context, ticketID, agentID string) (ticket.Ticket, error) {
	tk, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ticket.Ticket{}, enginerr.NotFound("ticket", ticketID)
		}
		return ticket.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	if agentID != "" && tk.AgentID != agentID {
		metrics.RecordReprint("denied")
		return ticket.Ticket{}, enginerr.NotEligible("ticket is not owned by the requesting agent")
	}

	updated, err := s.tickets.IncrementReprint(ctx, ticketID, MaxReprints)
	if err == nil {
		s.log.WithField("ticket_id", ticketID).
			WithField("reprint_count", updated.ReprintCount).
			Info("Ticket reprinted")
		metrics.RecordReprint("allowed")
		return updated, nil
	}
	if !errors.Is(err, storage.ErrConditionFailed) {
		return ticket.Ticket{}, fmt.Errorf("increment reprint: %w", err)
	}

	// The conditional write refused; re-read to tell the caller why.
	metrics.RecordReprint("denied")
	tk, rerr := s.tickets.GetTicket(ctx, ticketID)
	if rerr != nil {
		return ticket.Ticket{}, fmt.Errorf("reprint denied, re-read failed: %w", rerr)
	}
	if tk.SettledWinner() {
		return ticket.Ticket{}, enginerr.TicketSettled(tk.ID, string(tk.Status))
	}
	return ticket.Ticket{}, enginerr.LimitReached(tk.ID, tk.ReprintCount)
}
