// Package postgres implements the storage interfaces backed by PostgreSQL.
// Every guarded mutation is a single conditional UPDATE; a zero row count is
// classified into ErrNotFound or ErrConditionFailed by re-checking existence.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/domain/user"
	"github.com/umatik/lottery-engine/internal/app/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// classify turns a zero-row conditional update into the right sentinel:
// missing row → ErrNotFound, present row → ErrConditionFailed.
func (s *Store) classify(ctx context.Context, existsQuery, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", id, storage.ErrConditionFailed)
}

// --- DrawStore --------------------------------------------------------------

const drawColumns = "id, draw_date, draw_time, winning_number, status, created_at, updated_at"

func (s *Store) CreateDraw(ctx context.Context, d draw.Draw) (draw.Draw, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = draw.StatusScheduled
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_draws (id, draw_date, draw_time, winning_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.DrawDate, string(d.Slot), d.WinningNumber, string(d.Status), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return draw.Draw{}, err
	}
	return d, nil
}

func (s *Store) GetDraw(ctx context.Context, id string) (draw.Draw, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+drawColumns+`
		FROM app_draws
		WHERE id = $1
	`, id)
	return scanDraw(row)
}

func (s *Store) ListDrawsByDate(ctx context.Context, date time.Time) ([]draw.Draw, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+drawColumns+`
		FROM app_draws
		WHERE draw_date::date = $1::date
		ORDER BY created_at
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []draw.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) UpdateDrawStatus(ctx context.Context, id string, from, to draw.Status) (draw.Draw, error) {
	if !draw.CanTransition(from, to) {
		return draw.Draw{}, fmt.Errorf("illegal draw transition %s -> %s", from, to)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_draws
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return draw.Draw{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return draw.Draw{}, s.classify(ctx, `SELECT 1 FROM app_draws WHERE id = $1`, id)
	}
	return s.GetDraw(ctx, id)
}

func (s *Store) PublishResult(ctx context.Context, id, winningNumber string) (draw.Draw, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_draws
		SET winning_number = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND winning_number = ''
	`, id, winningNumber, time.Now().UTC(), string(draw.StatusClosed))
	if err != nil {
		return draw.Draw{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return draw.Draw{}, s.classify(ctx, `SELECT 1 FROM app_draws WHERE id = $1`, id)
	}
	return s.GetDraw(ctx, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraw(row rowScanner) (draw.Draw, error) {
	var (
		d    draw.Draw
		slot string
		stat string
	)
	err := row.Scan(&d.ID, &d.DrawDate, &slot, &d.WinningNumber, &stat, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return draw.Draw{}, fmt.Errorf("draw: %w", storage.ErrNotFound)
	}
	if err != nil {
		return draw.Draw{}, err
	}
	d.Slot = draw.Slot(slot)
	d.Status = draw.Status(stat)
	return d, nil
}

// --- TicketStore ------------------------------------------------------------

const ticketColumns = "id, ticket_number, agent_id, draw_id, total_amount, status, prize_amount, reprint_count, created_at, updated_at"

func (s *Store) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.TicketNumber == "" {
		t.TicketNumber = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = ticket.StatusActive
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var total int64
	for i := range t.Bets {
		if t.Bets[i].ID == "" {
			t.Bets[i].ID = uuid.NewString()
		}
		t.Bets[i].TicketID = t.ID
		total += t.Bets[i].Amount
	}
	if t.TotalAmount == 0 {
		t.TotalAmount = total
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ticket.Ticket{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_tickets (id, ticket_number, agent_id, draw_id, total_amount, status, prize_amount, reprint_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.TicketNumber, t.AgentID, t.DrawID, t.TotalAmount, string(t.Status), t.PrizeAmount, t.ReprintCount, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return ticket.Ticket{}, err
	}
	for _, bet := range t.Bets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO app_bets (id, ticket_id, combination, bet_type, amount)
			VALUES ($1, $2, $3, $4, $5)
		`, bet.ID, bet.TicketID, bet.Combination, string(bet.Type), bet.Amount)
		if err != nil {
			return ticket.Ticket{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ticket.Ticket{}, err
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM app_tickets
		WHERE id = $1
	`, id)
	t, err := scanTicket(row)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.Bets, err = s.loadBets(ctx, t.ID)
	if err != nil {
		return ticket.Ticket{}, err
	}
	return t, nil
}

func (s *Store) loadBets(ctx context.Context, ticketID string) ([]ticket.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, combination, bet_type, amount
		FROM app_bets
		WHERE ticket_id = $1
		ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []ticket.Bet
	for rows.Next() {
		var (
			b       ticket.Bet
			betType string
		)
		if err := rows.Scan(&b.ID, &b.TicketID, &b.Combination, &betType, &b.Amount); err != nil {
			return nil, err
		}
		b.Type = ticket.BetType(betType)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

func (s *Store) ListTicketsByDraw(ctx context.Context, drawID string, status ticket.Status) ([]ticket.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM app_tickets
		WHERE draw_id = $1
		ORDER BY created_at`
	args := []interface{}{drawID}
	if status != "" {
		query = `
		SELECT ` + ticketColumns + `
		FROM app_tickets
		WHERE draw_id = $1 AND status = $2
		ORDER BY created_at`
		args = append(args, string(status))
	}
	return s.queryTickets(ctx, query, args...)
}

func (s *Store) ListTicketsByAgent(ctx context.Context, agentID string, limit int) ([]ticket.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryTickets(ctx, `
		SELECT `+ticketColumns+`
		FROM app_tickets
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, agentID, limit)
}

func (s *Store) queryTickets(ctx context.Context, query string, args ...interface{}) ([]ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Bets, err = s.loadBets(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, from, to ticket.Status, prizeAmount int64) (ticket.Ticket, error) {
	if !ticket.CanTransition(from, to) {
		return ticket.Ticket{}, fmt.Errorf("illegal ticket transition %s -> %s", from, to)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_tickets
		SET status = $3,
		    prize_amount = CASE WHEN $4 >= 0 THEN $4 ELSE prize_amount END,
		    updated_at = $5
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), prizeAmount, time.Now().UTC())
	if err != nil {
		return ticket.Ticket{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ticket.Ticket{}, s.classify(ctx, `SELECT 1 FROM app_tickets WHERE id = $1`, id)
	}
	return s.GetTicket(ctx, id)
}

func (s *Store) IncrementReprint(ctx context.Context, id string, max int) (ticket.Ticket, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_tickets
		SET reprint_count = reprint_count + 1, updated_at = $3
		WHERE id = $1
		  AND reprint_count < $2
		  AND status NOT IN ('won', 'pending_approval', 'approved')
	`, id, max, time.Now().UTC())
	if err != nil {
		return ticket.Ticket{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ticket.Ticket{}, s.classify(ctx, `SELECT 1 FROM app_tickets WHERE id = $1`, id)
	}
	return s.GetTicket(ctx, id)
}

func scanTicket(row rowScanner) (ticket.Ticket, error) {
	var (
		t    ticket.Ticket
		stat string
	)
	err := row.Scan(&t.ID, &t.TicketNumber, &t.AgentID, &t.DrawID, &t.TotalAmount, &stat, &t.PrizeAmount, &t.ReprintCount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ticket.Ticket{}, fmt.Errorf("ticket: %w", storage.ErrNotFound)
	}
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.Status = ticket.Status(stat)
	return t, nil
}

// --- ClaimStore -------------------------------------------------------------

func (s *Store) CreateClaim(ctx context.Context, c claim.Claim) (claim.Claim, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = claim.StatusPending
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now().UTC()
	}

	// The anti-join keeps at most one pending claim per ticket without a
	// separate lock.
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO app_claims (id, ticket_id, agent_id, status, submitted_at)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM app_claims WHERE ticket_id = $2 AND status = $6
		)
	`, c.ID, c.TicketID, c.AgentID, string(c.Status), c.SubmittedAt, string(claim.StatusPending))
	if err != nil {
		return claim.Claim{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return claim.Claim{}, fmt.Errorf("ticket %s already has an open claim: %w", c.TicketID, storage.ErrConditionFailed)
	}
	return c, nil
}

func (s *Store) GetClaim(ctx context.Context, id string) (claim.Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticket_id, agent_id, status, submitted_at, decided_at
		FROM app_claims
		WHERE id = $1
	`, id)
	return scanClaim(row)
}

func (s *Store) GetOpenClaimByTicket(ctx context.Context, ticketID string) (claim.Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticket_id, agent_id, status, submitted_at, decided_at
		FROM app_claims
		WHERE ticket_id = $1 AND status = $2
	`, ticketID, string(claim.StatusPending))
	return scanClaim(row)
}

func (s *Store) DecideClaim(ctx context.Context, id string, to claim.Status, decidedAt time.Time) (claim.Claim, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_claims
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = $4
	`, id, string(to), decidedAt, string(claim.StatusPending))
	if err != nil {
		return claim.Claim{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return claim.Claim{}, s.classify(ctx, `SELECT 1 FROM app_claims WHERE id = $1`, id)
	}
	return s.GetClaim(ctx, id)
}

func scanClaim(row rowScanner) (claim.Claim, error) {
	var (
		c         claim.Claim
		stat      string
		decidedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TicketID, &c.AgentID, &stat, &c.SubmittedAt, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return claim.Claim{}, fmt.Errorf("claim: %w", storage.ErrNotFound)
	}
	if err != nil {
		return claim.Claim{}, err
	}
	c.Status = claim.Status(stat)
	if decidedAt.Valid {
		c.DecidedAt = decidedAt.Time
	}
	return c, nil
}

func (s *Store) AppendClaimRecord(ctx context.Context, rec claim.Record) (claim.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_claim_records (id, claim_id, ticket_id, action, decided_by, notes, computed_prize, prize_amount, overridden, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.ClaimID, rec.TicketID, string(rec.Action), rec.DecidedBy, rec.Notes, rec.ComputedPrize, rec.PrizeAmount, rec.Overridden, rec.DecidedAt)
	if err != nil {
		return claim.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListClaimRecords(ctx context.Context, ticketID string) ([]claim.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, ticket_id, action, decided_by, notes, computed_prize, prize_amount, overridden, decided_at
		FROM app_claim_records
		WHERE ticket_id = $1
		ORDER BY decided_at
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []claim.Record
	for rows.Next() {
		var (
			rec    claim.Record
			action string
		)
		if err := rows.Scan(&rec.ID, &rec.ClaimID, &rec.TicketID, &action, &rec.DecidedBy, &rec.Notes, &rec.ComputedPrize, &rec.PrizeAmount, &rec.Overridden, &rec.DecidedAt); err != nil {
			return nil, err
		}
		rec.Action = claim.Action(action)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_notifications (id, recipient_id, notification_type, title, message, ticket_id, draw_id, amount, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.ID, n.RecipientID, string(n.Type), n.Title, n.Message, n.TicketID, n.DrawID, n.Amount, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, recipient_id, notification_type, title, message, ticket_id, draw_id, amount, read, created_at
		FROM app_notifications
		WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += `
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notification.Notification
	for rows.Next() {
		var (
			n     notification.Notification
			ntype string
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &ntype, &n.Title, &n.Message, &n.TicketID, &n.DrawID, &n.Amount, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = notification.Type(ntype)
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_notifications
		SET read = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return notification.Notification{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notification.Notification{}, fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, recipient_id, notification_type, title, message, ticket_id, draw_id, amount, read, created_at
		FROM app_notifications
		WHERE id = $1
	`, id)
	var (
		n     notification.Notification
		ntype string
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &ntype, &n.Title, &n.Message, &n.TicketID, &n.DrawID, &n.Amount, &n.Read, &n.CreatedAt); err != nil {
		return notification.Notification{}, err
	}
	n.Type = notification.Type(ntype)
	return n, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM app_notifications
		WHERE recipient_id = $1 AND read = FALSE
	`, recipientID).Scan(&count)
	return count, err
}

// --- PrizeRuleStore ---------------------------------------------------------

func (s *Store) CreatePrizeRule(ctx context.Context, r prize.Rule) (prize.Rule, error) {
	if err := r.Validate(); err != nil {
		return prize.Rule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EffectiveAt.IsZero() {
		r.EffectiveAt = time.Now().UTC()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_prize_rules (id, standard_multiplier, rambolito_multiplier, rambolito_double_multiplier, effective_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.StandardMultiplier, r.RambolitoMultiplier, r.RambolitoDoubleMultiplier, r.EffectiveAt, r.CreatedBy, r.CreatedAt)
	if err != nil {
		return prize.Rule{}, err
	}
	return r, nil
}

func (s *Store) PrizeRuleAt(ctx context.Context, at time.Time) (prize.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, standard_multiplier, rambolito_multiplier, rambolito_double_multiplier, effective_at, created_by, created_at
		FROM app_prize_rules
		WHERE effective_at <= $1
		ORDER BY effective_at DESC
		LIMIT 1
	`, at)

	var r prize.Rule
	err := row.Scan(&r.ID, &r.StandardMultiplier, &r.RambolitoMultiplier, &r.RambolitoDoubleMultiplier, &r.EffectiveAt, &r.CreatedBy, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return prize.DefaultRule(), nil
	}
	if err != nil {
		return prize.Rule{}, err
	}
	return r, nil
}

func (s *Store) ListPrizeRules(ctx context.Context) ([]prize.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, standard_multiplier, rambolito_multiplier, rambolito_double_multiplier, effective_at, created_by, created_at
		FROM app_prize_rules
		ORDER BY effective_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []prize.Rule
	for rows.Next() {
		var r prize.Rule
		if err := rows.Scan(&r.ID, &r.StandardMultiplier, &r.RambolitoMultiplier, &r.RambolitoDoubleMultiplier, &r.EffectiveAt, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, full_name, role, supervisor_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.FullName, string(u.Role), u.SupervisorID, u.Active, u.CreatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, role, supervisor_id, active, created_at
		FROM app_users
		WHERE id = $1
	`, id)

	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &role, &u.SupervisorID, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return user.User{}, err
	}
	u.Role = user.Role(role)
	return u, nil
}
