// Package notification defines durable per-recipient notifications and the
// internal events that produce them.
package notification

import "time"

// Type classifies a notification for the read model.
type Type string

const (
	TypeWin           Type = "win"
	TypeClaimApproved Type = "claim_approved"
	TypeClaimRejected Type = "claim_rejected"
	TypeInfo          Type = "info"
)

// Notification is one durable row per recipient. Persistence of the row is
// the delivery guarantee; any live transport on top is best-effort.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	TicketID    string    `json:"ticket_id,omitempty"`
	DrawID      string    `json:"draw_id,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventKind classifies dispatcher events.
type EventKind string

const (
	EventWin           EventKind = "ticket.won"
	EventClaimApproved EventKind = "claim.approved"
	EventClaimRejected EventKind = "claim.rejected"
)

// Event is produced by settlement and claim decisions after their state
// transitions commit, and fanned out to role-scoped recipients.
type Event struct {
	Kind     EventKind `json:"kind"`
	TicketID string    `json:"ticket_id"`
	DrawID   string    `json:"draw_id"`
	AgentID  string    `json:"agent_id"`
	Amount   int64     `json:"amount"`
	Notes    string    `json:"notes,omitempty"`
	Slot     string    `json:"slot,omitempty"`
}
