// Package claims handles agent-submitted claims on winning tickets and the
// administrator approve/reject workflow with its append-only audit trail.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/metrics"
	"github.com/umatik/lottery-engine/internal/app/services/betmatch"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// EventSink receives claim-decision events after the transition commits.
type EventSink interface {
	Enqueue(event notification.Event)
}

// Service implements the claim workflow.
type Service struct {
	claims  storage.ClaimStore
	tickets storage.TicketStore
	draws   storage.DrawStore
	rules   storage.PrizeRuleStore
	events  EventSink
	log     *logger.Logger
}

// New constructs a claims service.
func New(claims storage.ClaimStore, tickets storage.TicketStore, draws storage.DrawStore, rules storage.PrizeRuleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("claims")
	}
	return &Service{
		claims:  claims,
		tickets: tickets,
		draws:   draws,
		rules:   rules,
		log:     log,
	}
}

// WithEventSink attaches the decision-event sink.
func (s *Service) WithEventSink(sink EventSink) { s.events = sink }

// Submit opens a claim on a winning ticket. Only the owning agent may
// submit, only while the ticket is won, and only one claim can be
// outstanding at a time. The ticket moves to pending_approval.
func (s *Service) Submit(ctx context.Context, ticketID, agentID string) (claim.Claim, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return claim.Claim{}, enginerr.Validation("agent_id is required")
	}

	tk, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return claim.Claim{}, enginerr.NotFound("ticket", ticketID)
		}
		return claim.Claim{}, fmt.Errorf("get ticket: %w", err)
	}
	if tk.AgentID != agentID {
		return claim.Claim{}, enginerr.NotEligible("ticket is not owned by the claiming agent")
	}
	if tk.Status != ticket.StatusWon {
		return claim.Claim{}, enginerr.NotEligible(fmt.Sprintf("ticket status is %s, not won", tk.Status))
	}

	// Move the ticket first; the expected-state guard closes the race with a
	// concurrent submission or decision.
	if _, err := s.tickets.TransitionStatus(ctx, ticketID, ticket.StatusWon, ticket.StatusPendingApproval, -1); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return claim.Claim{}, enginerr.StaleState(ticketID, string(ticket.StatusWon))
		}
		return claim.Claim{}, fmt.Errorf("transition ticket: %w", err)
	}

	created, err := s.claims.CreateClaim(ctx, claim.Claim{
		TicketID:    ticketID,
		AgentID:     agentID,
		Status:      claim.StatusPending,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		// Put the ticket back so the agent can retry; the claim row is the
		// source of truth for an open claim.
		if _, rbErr := s.tickets.TransitionStatus(ctx, ticketID, ticket.StatusPendingApproval, ticket.StatusWon, -1); rbErr != nil {
			s.log.WithError(rbErr).WithField("ticket_id", ticketID).Error("claim rollback failed")
		}
		if errors.Is(err, storage.ErrConditionFailed) {
			return claim.Claim{}, enginerr.NotEligible("ticket already has an open claim")
		}
		return claim.Claim{}, fmt.Errorf("create claim: %w", err)
	}

	s.log.WithField("claim_id", created.ID).
		WithField("ticket_id", ticketID).
		WithField("agent_id", agentID).
		Info("claim submitted")
	return created, nil
}

// Decide applies an administrator decision to a pending claim. The
// authoritative prize is always recomputed from the bets and the published
// winning number; a supplied override becomes the payable amount but the
// computed figure is retained in the audit record. The pending-only
// conditional update guarantees exactly one decision per claim.
func (s *Service) Decide(ctx context.Context, claimID, actorID string, action claim.Action, notes string, overridePrize *int64) (claim.Record, error) {
	if action != claim.ActionApproved && action != claim.ActionRejected {
		return claim.Record{}, enginerr.Validation("action must be approved or rejected")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return claim.Record{}, enginerr.Validation("actor_id is required")
	}

	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return claim.Record{}, enginerr.NotFound("claim", claimID)
		}
		return claim.Record{}, fmt.Errorf("get claim: %w", err)
	}
	if c.Status != claim.StatusPending {
		return claim.Record{}, enginerr.AlreadyDecided(claimID)
	}

	tk, err := s.tickets.GetTicket(ctx, c.TicketID)
	if err != nil {
		return claim.Record{}, fmt.Errorf("get ticket: %w", err)
	}
	if tk.Status != ticket.StatusPendingApproval {
		return claim.Record{}, enginerr.StaleState(tk.ID, string(ticket.StatusPendingApproval))
	}

	computed, err := s.computePrize(ctx, tk)
	if err != nil {
		return claim.Record{}, err
	}
	payable := computed
	overridden := false
	if overridePrize != nil {
		if *overridePrize < 0 {
			return claim.Record{}, enginerr.Validation("override prize cannot be negative")
		}
		payable = *overridePrize
		overridden = true
	}

	decidedAt := time.Now().UTC()
	decidedStatus := claim.StatusApproved
	nextTicket := ticket.StatusApproved
	if action == claim.ActionRejected {
		decidedStatus = claim.StatusRejected
		// Rejection returns the ticket to won; the audit record keeps the
		// rejection history.
		nextTicket = ticket.StatusWon
	}

	// Single-writer gate: only one concurrent Decide can flip pending.
	if _, err := s.claims.DecideClaim(ctx, claimID, decidedStatus, decidedAt); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return claim.Record{}, enginerr.AlreadyDecided(claimID)
		}
		return claim.Record{}, fmt.Errorf("decide claim: %w", err)
	}

	if _, err := s.tickets.TransitionStatus(ctx, tk.ID, ticket.StatusPendingApproval, nextTicket, -1); err != nil {
		return claim.Record{}, fmt.Errorf("transition ticket: %w", err)
	}

	rec, err := s.claims.AppendClaimRecord(ctx, claim.Record{
		ClaimID:       claimID,
		TicketID:      tk.ID,
		Action:        action,
		DecidedBy:     actorID,
		Notes:         notes,
		ComputedPrize: computed,
		PrizeAmount:   payable,
		Overridden:    overridden,
		DecidedAt:     decidedAt,
	})
	if err != nil {
		return claim.Record{}, fmt.Errorf("append claim record: %w", err)
	}

	metrics.RecordClaimDecision(string(action))
	s.log.WithField("claim_id", claimID).
		WithField("ticket_id", tk.ID).
		WithField("action", action).
		WithField("prize", payable).
		Info("claim decided")

	if s.events != nil {
		kind := notification.EventClaimApproved
		if action == claim.ActionRejected {
			kind = notification.EventClaimRejected
		}
		s.events.Enqueue(notification.Event{
			Kind:     kind,
			TicketID: tk.ID,
			DrawID:   tk.DrawID,
			AgentID:  c.AgentID,
			Amount:   payable,
			Notes:    notes,
		})
	}
	return rec, nil
}

// Records returns the append-only decision history for a ticket.
func (s *Service) Records(ctx context.Context, ticketID string) ([]claim.Record, error) {
	return s.claims.ListClaimRecords(ctx, ticketID)
}

func (s *Service) computePrize(ctx context.Context, tk ticket.Ticket) (int64, error) {
	d, err := s.draws.GetDraw(ctx, tk.DrawID)
	if err != nil {
		return 0, fmt.Errorf("get draw: %w", err)
	}
	if !d.ResultPublished() {
		return 0, enginerr.DrawNotReady(d.ID, "winning number not published")
	}
	rules, err := s.rules.PrizeRuleAt(ctx, draw.DrawTime(d.DrawDate, d.Slot, time.UTC))
	if err != nil {
		return 0, fmt.Errorf("load prize rules: %w", err)
	}
	outcome, err := betmatch.EvaluateTicket(tk, d.WinningNumber, rules)
	if err != nil {
		return 0, err
	}
	return outcome.TotalPrize, nil
}
