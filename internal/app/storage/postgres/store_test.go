package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func ticketRow(id string, status ticket.Status, prize int64, reprints int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "ticket_number", "agent_id", "draw_id", "total_amount",
		"status", "prize_amount", "reprint_count", "created_at", "updated_at",
	}).AddRow(id, "TN-1", "agent-1", "draw-1", int64(1000), string(status), prize, reprints, now, now)
}

func emptyBets() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "ticket_id", "combination", "bet_type", "amount"})
}

func TestTransitionStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE app_tickets").
		WithArgs("t-1", "active", "won", int64(450_000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM app_tickets").
		WithArgs("t-1").
		WillReturnRows(ticketRow("t-1", ticket.StatusWon, 450_000, 0))
	mock.ExpectQuery("SELECT (.+) FROM app_bets").
		WithArgs("t-1").
		WillReturnRows(emptyBets())

	got, err := store.TransitionStatus(context.Background(), "t-1", ticket.StatusActive, ticket.StatusWon, 450_000)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != ticket.StatusWon || got.PrizeAmount != 450_000 {
		t.Fatalf("unexpected ticket: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatus_RejectsIllegalPairBeforeQuery(t *testing.T) {
	store, mock := newMockStore(t)

	if _, err := store.TransitionStatus(context.Background(), "t-1", ticket.StatusActive, ticket.StatusApproved, -1); err == nil {
		t.Fatal("expected error for illegal transition pair")
	}
	// No statement may reach the database.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatus_ZeroRowsClassified(t *testing.T) {
	t.Run("existing row is a condition failure", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec("UPDATE app_tickets").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1 FROM app_tickets").
			WithArgs("t-1").
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		_, err := store.TransitionStatus(context.Background(), "t-1", ticket.StatusActive, ticket.StatusWon, 0)
		if !errors.Is(err, storage.ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
	})

	t.Run("missing row is not found", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec("UPDATE app_tickets").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1 FROM app_tickets").
			WithArgs("t-1").
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

		_, err := store.TransitionStatus(context.Background(), "t-1", ticket.StatusActive, ticket.StatusWon, 0)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestIncrementReprint_ConditionFailed(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE app_tickets").
		WithArgs("t-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM app_tickets").
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := store.IncrementReprint(context.Background(), "t-1", 2)
	if !errors.Is(err, storage.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPublishResult_WriteOnceGuardInQuery(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE app_draws").
		WithArgs("d-1", "455", sqlmock.AnyArg(), "closed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM app_draws").
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := store.PublishResult(context.Background(), "d-1", "455")
	if !errors.Is(err, storage.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateClaim_AntiJoinRefusesSecondOpenClaim(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO app_claims").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.CreateClaim(context.Background(), claim.Claim{TicketID: "t-1", AgentID: "agent-1"})
	if !errors.Is(err, storage.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDecideClaim_PendingOnly(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE app_claims").
		WithArgs("c-1", "approved", sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM app_claims").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := store.DecideClaim(context.Background(), "c-1", claim.StatusApproved, time.Now().UTC())
	if !errors.Is(err, storage.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateTicket_InsertsBetsInTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO app_tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO app_bets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO app_bets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sold, err := store.CreateTicket(context.Background(), ticket.Ticket{
		AgentID: "agent-1",
		DrawID:  "draw-1",
		Bets: []ticket.Bet{
			{Combination: "455", Type: ticket.BetStandard, Amount: 1000},
			{Combination: "677", Type: ticket.BetRambolito, Amount: 500},
		},
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if sold.TotalAmount != 1500 {
		t.Fatalf("total = %d", sold.TotalAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
