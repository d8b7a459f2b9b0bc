// Package settlement evaluates every ticket of a draw once its winning
// number is published and drives the resulting status transitions.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/metrics"
	"github.com/umatik/lottery-engine/internal/app/services/betmatch"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// EventSink receives win events after a ticket transition commits. It must
// never block settlement; the notify dispatcher's Enqueue satisfies that.
type EventSink interface {
	Enqueue(event notification.Event)
}

// Service is the settlement engine.
type Service struct {
	draws   storage.DrawStore
	tickets storage.TicketStore
	rules   storage.PrizeRuleStore
	events  EventSink
	log     *logger.Logger
	workers int
}

// New constructs a settlement service.
func New(draws storage.DrawStore, tickets storage.TicketStore, rules storage.PrizeRuleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settlement")
	}
	return &Service{
		draws:   draws,
		tickets: tickets,
		rules:   rules,
		log:     log,
		workers: 4,
	}
}

// WithEventSink attaches the win-event sink.
func (s *Service) WithEventSink(sink EventSink) { s.events = sink }

// WithWorkers overrides the ticket evaluation concurrency.
func (s *Service) WithWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Report summarises one settlement run.
type Report struct {
	DrawID        string    `json:"draw_id"`
	WinningNumber string    `json:"winning_number"`
	Evaluated     int       `json:"evaluated"`
	Winners       int       `json:"winners"`
	NoWins        int       `json:"no_wins"`
	TotalPrize    int64     `json:"total_prize"`
	Failed        int       `json:"failed"`
	DrawSettled   bool      `json:"draw_settled"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

type ticketResult struct {
	won    bool
	prize  int64
	failed bool
}

// Settle evaluates all still-active tickets of a draw and transitions each
// one to won or no_win. Tickets are processed independently under a bounded
// worker pool; a failure on one ticket is logged and does not abort the
// rest. The draw moves closed → settled only when every ticket succeeded,
// so a partial failure leaves the draw closed and safe to re-run. Re-running
// an already-settled draw is a no-op because no ticket is still active.
func (s *Service) Settle(ctx context.Context, drawID string) (Report, error) {
	d, err := s.draws.GetDraw(ctx, drawID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Report{}, enginerr.NotFound("draw", drawID)
		}
		return Report{}, fmt.Errorf("get draw: %w", err)
	}
	if d.Status == draw.StatusSettled {
		// Idempotent short-circuit: nothing left to transition.
		return Report{DrawID: drawID, WinningNumber: d.WinningNumber, DrawSettled: true}, nil
	}
	if d.Status != draw.StatusClosed {
		return Report{}, enginerr.DrawNotReady(drawID, fmt.Sprintf("status is %s", d.Status))
	}
	if !d.ResultPublished() {
		return Report{}, enginerr.DrawNotReady(drawID, "winning number not published")
	}

	rules, err := s.rules.PrizeRuleAt(ctx, draw.DrawTime(d.DrawDate, d.Slot, time.UTC))
	if err != nil {
		return Report{}, fmt.Errorf("load prize rules: %w", err)
	}

	pending, err := s.tickets.ListTicketsByDraw(ctx, drawID, ticket.StatusActive)
	if err != nil {
		return Report{}, fmt.Errorf("list tickets: %w", err)
	}

	report := Report{
		DrawID:        drawID,
		WinningNumber: d.WinningNumber,
		StartedAt:     time.Now().UTC(),
	}

	jobs := make(chan ticket.Ticket)
	results := make(chan ticketResult)

	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(pending) && len(pending) > 0 {
		workers = len(pending)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range jobs {
				results <- s.settleTicket(ctx, tk, d, rules)
			}
		}()
	}
	go func() {
		for _, tk := range pending {
			jobs <- tk
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		report.Evaluated++
		switch {
		case res.failed:
			report.Failed++
		case res.won:
			report.Winners++
			report.TotalPrize += res.prize
		default:
			report.NoWins++
		}
	}
	report.FinishedAt = time.Now().UTC()

	if report.Failed > 0 {
		s.log.WithField("draw_id", drawID).
			WithField("failed", report.Failed).
			Warn("settlement incomplete, draw stays closed for retry")
		return report, nil
	}

	if _, err := s.draws.UpdateDrawStatus(ctx, drawID, draw.StatusClosed, draw.StatusSettled); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// A concurrent run won the race to settle; the tickets are done
			// either way.
			report.DrawSettled = true
			return report, nil
		}
		return report, fmt.Errorf("mark draw settled: %w", err)
	}
	report.DrawSettled = true
	metrics.RecordDrawSettled(report.FinishedAt.Sub(report.StartedAt))

	s.log.WithField("draw_id", drawID).
		WithField("winning_number", d.WinningNumber).
		WithField("evaluated", report.Evaluated).
		WithField("winners", report.Winners).
		WithField("total_prize", report.TotalPrize).
		Info("draw settled")
	return report, nil
}

func (s *Service) settleTicket(ctx context.Context, tk ticket.Ticket, d draw.Draw, rules prize.Rule) ticketResult {
	outcome, err := betmatch.EvaluateTicket(tk, d.WinningNumber, rules)
	if err != nil {
		s.log.WithError(err).WithField("ticket_id", tk.ID).Warn("ticket evaluation failed")
		return ticketResult{failed: true}
	}

	next := ticket.StatusNoWin
	if outcome.Winner {
		next = ticket.StatusWon
	}

	if _, err := s.tickets.TransitionStatus(ctx, tk.ID, ticket.StatusActive, next, outcome.TotalPrize); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// Another worker or a retry already settled this ticket. Treat as
			// done and emit nothing, so re-runs never duplicate events.
			return ticketResult{won: false, prize: 0}
		}
		s.log.WithError(err).WithField("ticket_id", tk.ID).Warn("ticket transition failed")
		return ticketResult{failed: true}
	}

	metrics.RecordTicketSettled(string(next), outcome.TotalPrize)

	if outcome.Winner && s.events != nil {
		s.events.Enqueue(notification.Event{
			Kind:     notification.EventWin,
			TicketID: tk.ID,
			DrawID:   d.ID,
			AgentID:  tk.AgentID,
			Amount:   outcome.TotalPrize,
			Slot:     string(d.Slot),
		})
	}
	return ticketResult{won: outcome.Winner, prize: outcome.TotalPrize}
}

// Explain returns the full matcher trace for a persisted ticket against its
// draw's published result, replacing ad hoc diagnostic scripts.
func (s *Service) Explain(ctx context.Context, ticketID string) (betmatch.TicketTrace, error) {
	tk, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return betmatch.TicketTrace{}, enginerr.NotFound("ticket", ticketID)
		}
		return betmatch.TicketTrace{}, fmt.Errorf("get ticket: %w", err)
	}
	d, err := s.draws.GetDraw(ctx, tk.DrawID)
	if err != nil {
		return betmatch.TicketTrace{}, fmt.Errorf("get draw: %w", err)
	}
	if !d.ResultPublished() {
		return betmatch.TicketTrace{}, enginerr.DrawNotReady(d.ID, "winning number not published")
	}
	rules, err := s.rules.PrizeRuleAt(ctx, draw.DrawTime(d.DrawDate, d.Slot, time.UTC))
	if err != nil {
		return betmatch.TicketTrace{}, fmt.Errorf("load prize rules: %w", err)
	}
	return betmatch.ExplainTicket(tk, d.WinningNumber, rules)
}
