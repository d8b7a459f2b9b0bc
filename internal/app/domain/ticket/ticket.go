// Package ticket defines tickets, bets and the ticket status state machine.
package ticket

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a ticket. Rejected claims return the
// ticket to StatusWon; the rejection itself is kept as claim history, not a
// ticket state.
type Status string

const (
	StatusActive          Status = "active"
	StatusWon             Status = "won"
	StatusNoWin           Status = "no_win"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
)

// BetType distinguishes exact-order from any-order bets.
type BetType string

const (
	BetStandard  BetType = "standard"
	BetRambolito BetType = "rambolito"
)

// Amounts are stored in centavos.
const (
	MinBetAmount int64 = 100       // ₱1
	MaxBetAmount int64 = 1_000_000 // ₱10,000
)

// Bet is a single 3-digit combination wagered on a ticket.
type Bet struct {
	ID          string  `json:"id"`
	TicketID    string  `json:"ticket_id"`
	Combination string  `json:"combination"`
	Type        BetType `json:"bet_type"`
	Amount      int64   `json:"amount"`
}

// Ticket belongs to exactly one draw and one agent. It is created at sale
// time and never deleted; only Status, PrizeAmount and ReprintCount mutate.
type Ticket struct {
	ID           string    `json:"id"`
	TicketNumber string    `json:"ticket_number"`
	AgentID      string    `json:"agent_id"`
	DrawID       string    `json:"draw_id"`
	Bets         []Bet     `json:"bets"`
	TotalAmount  int64     `json:"total_amount"`
	Status       Status    `json:"status"`
	PrizeAmount  int64     `json:"prize_amount"`
	ReprintCount int       `json:"reprint_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanTransition reports whether a ticket status change is legal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusWon || to == StatusNoWin
	case StatusWon:
		return to == StatusPendingApproval
	case StatusPendingApproval:
		// Approval is terminal; rejection returns the ticket to won.
		return to == StatusApproved || to == StatusWon
	default:
		return false
	}
}

// SettledWinner reports whether the ticket has been determined a winner and
// must not be reissued as a physical claim instrument.
func (t Ticket) SettledWinner() bool {
	switch t.Status {
	case StatusWon, StatusPendingApproval, StatusApproved:
		return true
	}
	return false
}

// ParseBetType validates a bet type tag. The original sales channels used
// "straight" and "rambol" as aliases.
func ParseBetType(raw string) (BetType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "standard", "straight":
		return BetStandard, nil
	case "rambolito", "rambol":
		return BetRambolito, nil
	default:
		return "", fmt.Errorf("unknown bet type %q", raw)
	}
}

// Validate checks a ticket at sale time.
func (t Ticket) Validate() error {
	if strings.TrimSpace(t.AgentID) == "" {
		return fmt.Errorf("agent_id is required")
	}
	if strings.TrimSpace(t.DrawID) == "" {
		return fmt.Errorf("draw_id is required")
	}
	if len(t.Bets) == 0 {
		return fmt.Errorf("ticket must carry at least one bet")
	}
	var total int64
	for i, bet := range t.Bets {
		if _, err := ParseBetType(string(bet.Type)); err != nil {
			return fmt.Errorf("bet %d: %w", i, err)
		}
		if bet.Amount < MinBetAmount || bet.Amount > MaxBetAmount {
			return fmt.Errorf("bet %d: amount %d out of range [%d, %d]", i, bet.Amount, MinBetAmount, MaxBetAmount)
		}
		total += bet.Amount
	}
	if t.TotalAmount != 0 && t.TotalAmount != total {
		return fmt.Errorf("total_amount %d does not match sum of bets %d", t.TotalAmount, total)
	}
	return nil
}
