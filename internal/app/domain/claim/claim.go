// Package claim defines agent claims on winning tickets and their
// append-only decision audit trail.
package claim

import "time"

// Status is the mutable decision state of a claim.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Action is the administrator decision recorded on a claim.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Claim is one agent-submitted claim on a winning ticket. A ticket has at
// most one outstanding claim at a time.
type Claim struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	AgentID     string    `json:"agent_id"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	DecidedAt   time.Time `json:"decided_at,omitempty"`
}

// Record is one decision in the audit trail. Records are append-only and
// never mutated or deleted. ComputedPrize is always the amount re-derived
// from the bets and the winning number; PrizeAmount is what becomes payable
// (the override when an administrator supplied one).
type Record struct {
	ID            string    `json:"id"`
	ClaimID       string    `json:"claim_id"`
	TicketID      string    `json:"ticket_id"`
	Action        Action    `json:"action"`
	DecidedBy     string    `json:"decided_by"`
	Notes         string    `json:"notes,omitempty"`
	ComputedPrize int64     `json:"computed_prize"`
	PrizeAmount   int64     `json:"prize_amount"`
	Overridden    bool      `json:"overridden"`
	DecidedAt     time.Time `json:"decided_at"`
}
