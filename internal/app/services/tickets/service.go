// Package tickets handles ticket sales against open draws.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/services/betmatch"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Service sells tickets.
type Service struct {
	tickets storage.TicketStore
	draws   storage.DrawStore
	loc     *time.Location
	now     func() time.Time
	log     *logger.Logger
}

// New constructs a ticket sales service. loc is the lottery's local
// timezone used for the betting cutoff; nil defaults to Asia/Manila.
func New(tickets storage.TicketStore, draws storage.DrawStore, loc *time.Location, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tickets")
	}
	if loc == nil {
		if l, err := time.LoadLocation("Asia/Manila"); err == nil {
			loc = l
		} else {
			loc = time.FixedZone("PHT", 8*3600)
		}
	}
	return &Service{tickets: tickets, draws: draws, loc: loc, now: time.Now, log: log}
}

// Sell validates and persists a ticket against an open draw. Combinations
// are normalized, bet amounts bounded, and the sale refused once the draw's
// betting cutoff has passed.
func (s *Service) Sell(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	for i := range t.Bets {
		combo, err := betmatch.Normalize(t.Bets[i].Combination)
		if err != nil {
			return ticket.Ticket{}, err
		}
		t.Bets[i].Combination = combo
		betType, err := ticket.ParseBetType(string(t.Bets[i].Type))
		if err != nil {
			return ticket.Ticket{}, enginerr.Validation("bet %d: %v", i, err)
		}
		t.Bets[i].Type = betType
	}
	if err := t.Validate(); err != nil {
		return ticket.Ticket{}, enginerr.Validation("%v", err)
	}

	d, err := s.draws.GetDraw(ctx, t.DrawID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ticket.Ticket{}, enginerr.NotFound("draw", t.DrawID)
		}
		return ticket.Ticket{}, fmt.Errorf("get draw: %w", err)
	}
	if d.Status != draw.StatusOpen {
		return ticket.Ticket{}, enginerr.DrawNotReady(d.ID,
			fmt.Sprintf("draw is %s, sales require an open draw", d.Status))
	}
	if !s.now().In(s.loc).Before(draw.CutoffTime(d.DrawDate.In(s.loc), d.Slot, s.loc)) {
		return ticket.Ticket{}, enginerr.DrawNotReady(d.ID, "betting cutoff has passed")
	}

	created, err := s.tickets.CreateTicket(ctx, t)
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	s.log.WithField("ticket_id", created.ID).
		WithField("draw_id", created.DrawID).
		WithField("total_amount", created.TotalAmount).
		Info("Ticket sold")
	return created, nil
}

// Get fetches a ticket.
func (s *Service) Get(ctx context.Context, ticketID string) (ticket.Ticket, error) {
	t, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ticket.Ticket{}, enginerr.NotFound("ticket", ticketID)
		}
		return ticket.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// ListByAgent returns an agent's most recent tickets.
func (s *Service) ListByAgent(ctx context.Context, agentID string, limit int) ([]ticket.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.tickets.ListTicketsByAgent(ctx, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return items, nil
}
