package betmatch

import (
	"testing"

	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"123", "123", false},
		{" 1 2 3 ", "123", false},
		{"\t455\n", "455", false},
		{"12", "", true},
		{"1234", "", true},
		{"12a", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Normalize(%q): expected error", tc.in)
			}
			if !enginerr.IsCode(err, enginerr.CodeInvalidCombination) {
				t.Fatalf("Normalize(%q): wrong code %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEvaluate_StandardExactOrderOnly(t *testing.T) {
	rules := prize.DefaultRule()
	bet := ticket.Bet{Combination: "123", Type: ticket.BetStandard, Amount: 1000}

	res, err := Evaluate(bet, "123", rules)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Winner || res.Prize != 450_000 {
		t.Fatalf("expected win of 450000, got %#v", res)
	}

	for _, losing := range []string{"132", "213", "231", "312", "321", "124"} {
		res, err := Evaluate(bet, losing, rules)
		if err != nil {
			t.Fatalf("evaluate vs %s: %v", losing, err)
		}
		if res.Winner || res.Prize != 0 {
			t.Fatalf("standard bet must not win against %s: %#v", losing, res)
		}
	}
}

func TestEvaluate_RambolitoAnyOrder(t *testing.T) {
	rules := prize.DefaultRule()
	bet := ticket.Bet{Combination: "123", Type: ticket.BetRambolito, Amount: 1000}

	for _, winning := range []string{"123", "132", "213", "231", "312", "321"} {
		res, err := Evaluate(bet, winning, rules)
		if err != nil {
			t.Fatalf("evaluate vs %s: %v", winning, err)
		}
		if !res.Winner {
			t.Fatalf("rambolito 123 must win against %s", winning)
		}
		if res.Multiplier != prize.DefaultRambolitoMultiplier {
			t.Fatalf("all-distinct rambolito got multiplier %v", res.Multiplier)
		}
	}

	for _, losing := range []string{"124", "113", "223", "456"} {
		res, err := Evaluate(bet, losing, rules)
		if err != nil {
			t.Fatalf("evaluate vs %s: %v", losing, err)
		}
		if res.Winner {
			t.Fatalf("rambolito 123 must not win against %s", losing)
		}
	}
}

func TestEvaluate_RambolitoDoubleMultiplier(t *testing.T) {
	rules := prize.DefaultRule()

	// Repeated digit in the bet pays the double multiplier.
	double := ticket.Bet{Combination: "112", Type: ticket.BetRambolito, Amount: 1000}
	res, err := Evaluate(double, "121", rules)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Winner || res.Multiplier != prize.DefaultRambolitoDoubleMultiplier {
		t.Fatalf("expected double multiplier win, got %#v", res)
	}

	// All-distinct bet pays the regular multiplier even against a shuffled number.
	regular := ticket.Bet{Combination: "123", Type: ticket.BetRambolito, Amount: 1000}
	res, err = Evaluate(regular, "312", rules)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Winner || res.Multiplier != prize.DefaultRambolitoMultiplier {
		t.Fatalf("expected regular multiplier win, got %#v", res)
	}
}

func TestEvaluateTicket_MixedBets(t *testing.T) {
	// Draw 455: standard 455 for ₱10 wins 4500, rambolito 456 loses.
	tk := ticket.Ticket{
		ID:     "t1",
		DrawID: "d1",
		Bets: []ticket.Bet{
			{ID: "b1", Combination: "455", Type: ticket.BetStandard, Amount: 1000},
			{ID: "b2", Combination: "456", Type: ticket.BetRambolito, Amount: 1000},
		},
	}
	outcome, err := EvaluateTicket(tk, "455", prize.DefaultRule())
	if err != nil {
		t.Fatalf("evaluate ticket: %v", err)
	}
	if !outcome.Winner {
		t.Fatalf("ticket should win")
	}
	if outcome.TotalPrize != 450_000 {
		t.Fatalf("total prize = %d, want 450000", outcome.TotalPrize)
	}
}

func TestEvaluateTicket_DoubleScenario(t *testing.T) {
	// Rambolito 677 for ₱5 against 767: multiset match with a repeated digit,
	// prize = 5 * 150 = 750.
	tk := ticket.Ticket{
		ID:     "u1",
		DrawID: "d2",
		Bets: []ticket.Bet{
			{ID: "b1", Combination: "677", Type: ticket.BetRambolito, Amount: 500},
		},
	}
	outcome, err := EvaluateTicket(tk, "767", prize.DefaultRule())
	if err != nil {
		t.Fatalf("evaluate ticket: %v", err)
	}
	if !outcome.Winner || outcome.TotalPrize != 75_000 {
		t.Fatalf("expected prize 75000 centavos, got %#v", outcome)
	}
}

func TestEvaluate_RespectsRuleSnapshot(t *testing.T) {
	rules := prize.Rule{StandardMultiplier: 500, RambolitoMultiplier: 80, RambolitoDoubleMultiplier: 160}
	bet := ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000}
	res, err := Evaluate(bet, "455", rules)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Prize != 500_000 {
		t.Fatalf("prize = %d, want 500000 under the 500x snapshot", res.Prize)
	}
}

func TestExplainTicket(t *testing.T) {
	tk := ticket.Ticket{
		ID:     "t1",
		DrawID: "d1",
		Bets: []ticket.Bet{
			{ID: "b1", Combination: " 455", Type: ticket.BetStandard, Amount: 1000},
			{ID: "b2", Combination: "456", Type: ticket.BetRambolito, Amount: 1000},
		},
	}
	trace, err := ExplainTicket(tk, "455", prize.DefaultRule())
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !trace.Winner || trace.TotalPrize != 450_000 {
		t.Fatalf("unexpected trace summary: %#v", trace)
	}
	if len(trace.Bets) != 2 {
		t.Fatalf("expected 2 bet lines, got %d", len(trace.Bets))
	}
	if trace.Bets[0].Normalized != "455" || !trace.Bets[0].Winner {
		t.Fatalf("first line should be a normalized win: %#v", trace.Bets[0])
	}
	if trace.Bets[1].Winner || trace.Bets[1].Reason != "digit multisets differ" {
		t.Fatalf("second line should lose with a reason: %#v", trace.Bets[1])
	}
}

func TestExplainTicket_BadWinningNumber(t *testing.T) {
	tk := ticket.Ticket{Bets: []ticket.Bet{{Combination: "123", Type: ticket.BetStandard, Amount: 100}}}
	if _, err := ExplainTicket(tk, "45", prize.DefaultRule()); err == nil {
		t.Fatalf("expected invalid combination error")
	}
}
