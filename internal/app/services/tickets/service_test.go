package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/storage/memory"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
)

var saleDate = time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

func openDraw(t *testing.T, store *memory.Store, slot draw.Slot) draw.Draw {
	t.Helper()
	ctx := context.Background()
	d, err := store.CreateDraw(ctx, draw.Draw{DrawDate: saleDate, Slot: slot})
	if err != nil {
		t.Fatalf("create draw: %v", err)
	}
	if d, err = store.UpdateDrawStatus(ctx, d.ID, draw.StatusScheduled, draw.StatusOpen); err != nil {
		t.Fatalf("open draw: %v", err)
	}
	return d
}

func newService(store *memory.Store, at time.Time) *Service {
	svc := New(store, store, time.UTC, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestSell(t *testing.T) {
	store := memory.New()
	d := openDraw(t, store, draw.SlotNinePM)
	svc := newService(store, saleDate.Add(12*time.Hour))

	sold, err := svc.Sell(context.Background(), ticket.Ticket{
		AgentID: "agent-1",
		DrawID:  d.ID,
		Bets: []ticket.Bet{
			{Combination: " 4 5 5 ", Type: "straight", Amount: 1000},
			{Combination: "677", Type: "rambol", Amount: 500},
		},
	})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if sold.Status != ticket.StatusActive {
		t.Fatalf("status = %s", sold.Status)
	}
	if sold.TotalAmount != 1500 {
		t.Fatalf("total = %d, want 1500", sold.TotalAmount)
	}
	if sold.Bets[0].Combination != "455" || sold.Bets[0].Type != ticket.BetStandard {
		t.Fatalf("bet not normalized: %#v", sold.Bets[0])
	}
	if sold.Bets[1].Type != ticket.BetRambolito {
		t.Fatalf("rambol alias not mapped: %#v", sold.Bets[1])
	}
}

func TestSell_Validation(t *testing.T) {
	store := memory.New()
	d := openDraw(t, store, draw.SlotNinePM)
	svc := newService(store, saleDate.Add(12*time.Hour))
	ctx := context.Background()

	cases := []struct {
		name string
		tk   ticket.Ticket
		code enginerr.Code
	}{
		{
			"bad combination",
			ticket.Ticket{AgentID: "agent-1", DrawID: d.ID,
				Bets: []ticket.Bet{{Combination: "45a", Type: "standard", Amount: 1000}}},
			enginerr.CodeInvalidCombination,
		},
		{
			"bad bet type",
			ticket.Ticket{AgentID: "agent-1", DrawID: d.ID,
				Bets: []ticket.Bet{{Combination: "455", Type: "parlay", Amount: 1000}}},
			enginerr.CodeValidation,
		},
		{
			"amount below minimum",
			ticket.Ticket{AgentID: "agent-1", DrawID: d.ID,
				Bets: []ticket.Bet{{Combination: "455", Type: "standard", Amount: 50}}},
			enginerr.CodeValidation,
		},
		{
			"amount above maximum",
			ticket.Ticket{AgentID: "agent-1", DrawID: d.ID,
				Bets: []ticket.Bet{{Combination: "455", Type: "standard", Amount: 2_000_000}}},
			enginerr.CodeValidation,
		},
		{
			"no bets",
			ticket.Ticket{AgentID: "agent-1", DrawID: d.ID},
			enginerr.CodeValidation,
		},
		{
			"unknown draw",
			ticket.Ticket{AgentID: "agent-1", DrawID: "nope",
				Bets: []ticket.Bet{{Combination: "455", Type: "standard", Amount: 1000}}},
			enginerr.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Sell(ctx, tc.tk); !enginerr.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestSell_RequiresOpenDraw(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	d, err := store.CreateDraw(ctx, draw.Draw{DrawDate: saleDate, Slot: draw.SlotTwoPM})
	if err != nil {
		t.Fatalf("create draw: %v", err)
	}
	svc := newService(store, saleDate.Add(10*time.Hour))

	_, err = svc.Sell(ctx, ticket.Ticket{
		AgentID: "agent-1",
		DrawID:  d.ID,
		Bets:    []ticket.Bet{{Combination: "455", Type: "standard", Amount: 1000}},
	})
	if !enginerr.IsCode(err, enginerr.CodeDrawNotReady) {
		t.Fatalf("expected DrawNotReady, got %v", err)
	}
}

func TestSell_CutoffEnforced(t *testing.T) {
	store := memory.New()
	d := openDraw(t, store, draw.SlotTwoPM)

	// 13:56 is inside the five-minute cutoff window for the 14:00 draw.
	svc := newService(store, time.Date(2026, 8, 27, 13, 56, 0, 0, time.UTC))
	_, err := svc.Sell(context.Background(), ticket.Ticket{
		AgentID: "agent-1",
		DrawID:  d.ID,
		Bets:    []ticket.Bet{{Combination: "455", Type: "standard", Amount: 1000}},
	})
	if !enginerr.IsCode(err, enginerr.CodeDrawNotReady) {
		t.Fatalf("expected DrawNotReady after cutoff, got %v", err)
	}

	// 13:54 is still sellable.
	svc = newService(store, time.Date(2026, 8, 27, 13, 54, 0, 0, time.UTC))
	if _, err := svc.Sell(context.Background(), ticket.Ticket{
		AgentID: "agent-1",
		DrawID:  d.ID,
		Bets:    []ticket.Bet{{Combination: "455", Type: "standard", Amount: 1000}},
	}); err != nil {
		t.Fatalf("sell before cutoff: %v", err)
	}
}
