// Package betmatch is the single source of truth for win determination and
// prize math. Everything here is pure: results depend only on the bet, the
// winning number and the rule snapshot passed in, so any settlement can be
// recomputed byte-for-byte later.
package betmatch

import (
	"math"
	"sort"
	"strings"

	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
)

// Result is the outcome of evaluating one bet.
type Result struct {
	Winner     bool    `json:"winner"`
	Multiplier float64 `json:"multiplier"`
	Prize      int64   `json:"prize"`
}

// Normalize strips whitespace and validates a 3-digit combination.
func Normalize(combination string) (string, error) {
	trimmed := strings.Join(strings.Fields(combination), "")
	if len(trimmed) != 3 {
		return "", enginerr.InvalidCombination(combination)
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", enginerr.InvalidCombination(combination)
		}
	}
	return trimmed, nil
}

// Evaluate decides whether a bet wins against a winning number and computes
// its prize under the given rule snapshot. A losing bet returns a zero
// Result and no error.
func Evaluate(bet ticket.Bet, winningNumber string, rules prize.Rule) (Result, error) {
	combo, err := Normalize(bet.Combination)
	if err != nil {
		return Result{}, err
	}
	winning, err := Normalize(winningNumber)
	if err != nil {
		return Result{}, err
	}

	var multiplier float64
	switch bet.Type {
	case ticket.BetStandard:
		if combo != winning {
			return Result{}, nil
		}
		multiplier = rules.StandardMultiplier
	case ticket.BetRambolito:
		if sortDigits(combo) != sortDigits(winning) {
			return Result{}, nil
		}
		// The double payout hinges on the bet's own digits, not the
		// winning number's.
		if hasRepeatedDigit(combo) {
			multiplier = rules.RambolitoDoubleMultiplier
		} else {
			multiplier = rules.RambolitoMultiplier
		}
	default:
		return Result{}, enginerr.Validation("unknown bet type %q", bet.Type)
	}

	return Result{
		Winner:     true,
		Multiplier: multiplier,
		Prize:      int64(math.Round(float64(bet.Amount) * multiplier)),
	}, nil
}

// TicketOutcome aggregates the per-bet results for one ticket. The ticket
// wins when any bet wins; its prize is the sum of all winning bets' prizes.
type TicketOutcome struct {
	Winner     bool
	TotalPrize int64
	Results    []Result
}

// EvaluateTicket evaluates every bet on a ticket.
func EvaluateTicket(t ticket.Ticket, winningNumber string, rules prize.Rule) (TicketOutcome, error) {
	outcome := TicketOutcome{Results: make([]Result, 0, len(t.Bets))}
	for _, bet := range t.Bets {
		res, err := Evaluate(bet, winningNumber, rules)
		if err != nil {
			return TicketOutcome{}, err
		}
		if res.Winner {
			outcome.Winner = true
			outcome.TotalPrize += res.Prize
		}
		outcome.Results = append(outcome.Results, res)
	}
	return outcome, nil
}

// BetTrace is one bet's line in a diagnostic trace.
type BetTrace struct {
	BetID       string         `json:"bet_id"`
	Combination string         `json:"combination"`
	Normalized  string         `json:"normalized"`
	Type        ticket.BetType `json:"bet_type"`
	Amount      int64          `json:"amount"`
	Winner      bool           `json:"winner"`
	Multiplier  float64        `json:"multiplier,omitempty"`
	Prize       int64          `json:"prize"`
	Reason      string         `json:"reason"`
}

// TicketTrace is the full matcher trace for a ticket, exposed through the
// engine's Explain operation instead of ad hoc diagnostic scripts.
type TicketTrace struct {
	TicketID      string     `json:"ticket_id"`
	DrawID        string     `json:"draw_id"`
	WinningNumber string     `json:"winning_number"`
	RuleID        string     `json:"rule_id,omitempty"`
	Winner        bool       `json:"winner"`
	TotalPrize    int64      `json:"total_prize"`
	Bets          []BetTrace `json:"bets"`
}

// ExplainTicket produces a per-bet trace of the win determination.
func ExplainTicket(t ticket.Ticket, winningNumber string, rules prize.Rule) (TicketTrace, error) {
	winning, err := Normalize(winningNumber)
	if err != nil {
		return TicketTrace{}, err
	}

	trace := TicketTrace{
		TicketID:      t.ID,
		DrawID:        t.DrawID,
		WinningNumber: winning,
		RuleID:        rules.ID,
		Bets:          make([]BetTrace, 0, len(t.Bets)),
	}
	for _, bet := range t.Bets {
		line := BetTrace{
			BetID:       bet.ID,
			Combination: bet.Combination,
			Type:        bet.Type,
			Amount:      bet.Amount,
		}
		normalized, err := Normalize(bet.Combination)
		if err != nil {
			line.Reason = "malformed combination"
			trace.Bets = append(trace.Bets, line)
			continue
		}
		line.Normalized = normalized

		res, err := Evaluate(bet, winning, rules)
		if err != nil {
			return TicketTrace{}, err
		}
		line.Winner = res.Winner
		line.Multiplier = res.Multiplier
		line.Prize = res.Prize
		line.Reason = explain(bet.Type, normalized, winning, res)

		if res.Winner {
			trace.Winner = true
			trace.TotalPrize += res.Prize
		}
		trace.Bets = append(trace.Bets, line)
	}
	return trace, nil
}

func explain(betType ticket.BetType, combo, winning string, res Result) string {
	switch betType {
	case ticket.BetStandard:
		if res.Winner {
			return "exact match"
		}
		return "no exact match"
	case ticket.BetRambolito:
		if !res.Winner {
			return "digit multisets differ"
		}
		if hasRepeatedDigit(combo) {
			return "permutation match, repeated digit pays double"
		}
		return "permutation match"
	default:
		return "unknown bet type"
	}
}

func sortDigits(s string) string {
	digits := []byte(s)
	sort.Slice(digits, func(i, j int) bool { return digits[i] < digits[j] })
	return string(digits)
}

func hasRepeatedDigit(s string) bool {
	return s[0] == s[1] || s[1] == s[2] || s[0] == s[2]
}
