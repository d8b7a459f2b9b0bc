package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/storage/memory"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
)

type captureSink struct {
	mu     sync.Mutex
	events []notification.Event
}

func (c *captureSink) Enqueue(event notification.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func setupDraw(t *testing.T, store *memory.Store, status draw.Status, winningNumber string) draw.Draw {
	t.Helper()
	d, err := store.CreateDraw(context.Background(), draw.Draw{
		DrawDate: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
		Slot:     draw.SlotTwoPM,
		Status:   draw.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("create draw: %v", err)
	}
	for _, step := range []draw.Status{draw.StatusOpen, draw.StatusClosed} {
		if status == draw.StatusScheduled {
			break
		}
		if d, err = store.UpdateDrawStatus(context.Background(), d.ID, d.Status, step); err != nil {
			t.Fatalf("advance draw: %v", err)
		}
		if d.Status == status {
			break
		}
	}
	if winningNumber != "" {
		if d, err = store.PublishResult(context.Background(), d.ID, winningNumber); err != nil {
			t.Fatalf("publish result: %v", err)
		}
	}
	return d
}

func addTicket(t *testing.T, store *memory.Store, drawID, agentID string, bets ...ticket.Bet) ticket.Ticket {
	t.Helper()
	tk, err := store.CreateTicket(context.Background(), ticket.Ticket{
		AgentID: agentID,
		DrawID:  drawID,
		Bets:    bets,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return tk
}

func TestSettle_EndToEnd(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "455")

	winner := addTicket(t, store, d.ID, "agent-1",
		ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
		ticket.Bet{Combination: "456", Type: ticket.BetRambolito, Amount: 1000},
	)
	loser := addTicket(t, store, d.ID, "agent-2",
		ticket.Bet{Combination: "111", Type: ticket.BetStandard, Amount: 1000},
	)

	sink := &captureSink{}
	svc := New(store, store, store, nil)
	svc.WithEventSink(sink)

	report, err := svc.Settle(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if report.Evaluated != 2 || report.Winners != 1 || report.NoWins != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if report.TotalPrize != 450_000 {
		t.Fatalf("total prize = %d, want 450000", report.TotalPrize)
	}
	if !report.DrawSettled {
		t.Fatalf("draw should be settled")
	}

	got, err := store.GetTicket(context.Background(), winner.ID)
	if err != nil {
		t.Fatalf("get winner: %v", err)
	}
	if got.Status != ticket.StatusWon || got.PrizeAmount != 450_000 {
		t.Fatalf("winner state: %#v", got)
	}
	gotLoser, err := store.GetTicket(context.Background(), loser.ID)
	if err != nil {
		t.Fatalf("get loser: %v", err)
	}
	if gotLoser.Status != ticket.StatusNoWin || gotLoser.PrizeAmount != 0 {
		t.Fatalf("loser state: %#v", gotLoser)
	}

	if sink.count() != 1 {
		t.Fatalf("expected exactly one win event, got %d", sink.count())
	}

	settled, err := store.GetDraw(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("get draw: %v", err)
	}
	if settled.Status != draw.StatusSettled {
		t.Fatalf("draw status = %s", settled.Status)
	}
}

func TestSettle_Idempotent(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "455")
	addTicket(t, store, d.ID, "agent-1",
		ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
	)

	sink := &captureSink{}
	svc := New(store, store, store, nil)
	svc.WithEventSink(sink)

	if _, err := svc.Settle(context.Background(), d.ID); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	report, err := svc.Settle(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if report.Evaluated != 0 || !report.DrawSettled {
		t.Fatalf("re-run should short-circuit: %#v", report)
	}
	if sink.count() != 1 {
		t.Fatalf("re-run duplicated win events: %d", sink.count())
	}
}

func TestSettle_RequiresPublishedResult(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "")

	svc := New(store, store, store, nil)
	_, err := svc.Settle(context.Background(), d.ID)
	if !enginerr.IsCode(err, enginerr.CodeDrawNotReady) {
		t.Fatalf("expected DrawNotReady, got %v", err)
	}
}

func TestSettle_RequiresClosedDraw(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusOpen, "")

	svc := New(store, store, store, nil)
	_, err := svc.Settle(context.Background(), d.ID)
	if !enginerr.IsCode(err, enginerr.CodeDrawNotReady) {
		t.Fatalf("expected DrawNotReady, got %v", err)
	}
}

func TestSettle_PartialFailureLeavesDrawClosed(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "455")

	addTicket(t, store, d.ID, "agent-1",
		ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
	)
	// A corrupt combination makes this ticket fail evaluation.
	bad, err := store.CreateTicket(context.Background(), ticket.Ticket{
		AgentID: "agent-2",
		DrawID:  d.ID,
		Bets:    []ticket.Bet{{Combination: "45", Type: ticket.BetStandard, Amount: 1000}},
	})
	if err != nil {
		t.Fatalf("create bad ticket: %v", err)
	}

	svc := New(store, store, store, nil)
	report, err := svc.Settle(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if report.Failed != 1 || report.DrawSettled {
		t.Fatalf("expected partial failure without settling the draw: %#v", report)
	}

	stillClosed, err := store.GetDraw(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("get draw: %v", err)
	}
	if stillClosed.Status != draw.StatusClosed {
		t.Fatalf("draw must stay closed after partial failure, got %s", stillClosed.Status)
	}
	badTicket, err := store.GetTicket(context.Background(), bad.ID)
	if err != nil {
		t.Fatalf("get bad ticket: %v", err)
	}
	if badTicket.Status != ticket.StatusActive {
		t.Fatalf("failed ticket must stay active, got %s", badTicket.Status)
	}
}

func TestSettle_ManyTicketsConcurrently(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "123")

	for i := 0; i < 50; i++ {
		combo := "123"
		if i%2 == 1 {
			combo = "999"
		}
		addTicket(t, store, d.ID, "agent-1",
			ticket.Bet{Combination: combo, Type: ticket.BetStandard, Amount: 100},
		)
	}

	svc := New(store, store, store, nil)
	svc.WithWorkers(8)
	report, err := svc.Settle(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if report.Evaluated != 50 || report.Winners != 25 || report.NoWins != 25 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestExplain(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusClosed, "455")
	tk := addTicket(t, store, d.ID, "agent-1",
		ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
		ticket.Bet{Combination: "545", Type: ticket.BetRambolito, Amount: 500},
	)

	svc := New(store, store, store, nil)
	trace, err := svc.Explain(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !trace.Winner {
		t.Fatalf("trace should mark the ticket a winner")
	}
	// Standard 455 wins 450x; rambolito 545 (double) wins 150x on ₱5.
	if trace.TotalPrize != 450_000+75_000 {
		t.Fatalf("trace total = %d", trace.TotalPrize)
	}
	if len(trace.Bets) != 2 || !trace.Bets[1].Winner {
		t.Fatalf("unexpected bet lines: %#v", trace.Bets)
	}
}

func TestExplain_UnpublishedDraw(t *testing.T) {
	store := memory.New()
	d := setupDraw(t, store, draw.StatusOpen, "")
	tk := addTicket(t, store, d.ID, "agent-1",
		ticket.Bet{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
	)

	svc := New(store, store, store, nil)
	if _, err := svc.Explain(context.Background(), tk.ID); !enginerr.IsCode(err, enginerr.CodeDrawNotReady) {
		t.Fatalf("expected DrawNotReady, got %v", err)
	}
}
