// Package migrations applies the engine schema. Statements are idempotent
// and run in order on every start; there is no down path.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS app_users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL DEFAULT '',
		full_name     TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL,
		supervisor_id TEXT NOT NULL DEFAULT '',
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_draws (
		id             TEXT PRIMARY KEY,
		draw_date      TIMESTAMPTZ NOT NULL,
		draw_time      TEXT NOT NULL,
		winning_number TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (draw_date, draw_time)
	)`,
	`CREATE TABLE IF NOT EXISTS app_tickets (
		id            TEXT PRIMARY KEY,
		ticket_number TEXT NOT NULL,
		agent_id      TEXT NOT NULL,
		draw_id       TEXT NOT NULL REFERENCES app_draws (id),
		total_amount  BIGINT NOT NULL,
		status        TEXT NOT NULL,
		prize_amount  BIGINT NOT NULL DEFAULT 0,
		reprint_count INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_draw_status ON app_tickets (draw_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_agent ON app_tickets (agent_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS app_bets (
		id          TEXT PRIMARY KEY,
		ticket_id   TEXT NOT NULL REFERENCES app_tickets (id),
		combination TEXT NOT NULL,
		bet_type    TEXT NOT NULL,
		amount      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_ticket ON app_bets (ticket_id)`,
	`CREATE TABLE IF NOT EXISTS app_claims (
		id           TEXT PRIMARY KEY,
		ticket_id    TEXT NOT NULL REFERENCES app_tickets (id),
		agent_id     TEXT NOT NULL,
		status       TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		decided_at   TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_open
		ON app_claims (ticket_id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS app_claim_records (
		id             TEXT PRIMARY KEY,
		claim_id       TEXT NOT NULL,
		ticket_id      TEXT NOT NULL REFERENCES app_tickets (id),
		action         TEXT NOT NULL,
		decided_by     TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		computed_prize BIGINT NOT NULL,
		prize_amount   BIGINT NOT NULL,
		overridden     BOOLEAN NOT NULL DEFAULT FALSE,
		decided_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_notifications (
		id                TEXT PRIMARY KEY,
		recipient_id      TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		title             TEXT NOT NULL,
		message           TEXT NOT NULL,
		ticket_id         TEXT NOT NULL DEFAULT '',
		draw_id           TEXT NOT NULL DEFAULT '',
		amount            BIGINT NOT NULL DEFAULT 0,
		read              BOOLEAN NOT NULL DEFAULT FALSE,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON app_notifications (recipient_id, read, created_at)`,
	`CREATE TABLE IF NOT EXISTS app_prize_rules (
		id                          TEXT PRIMARY KEY,
		standard_multiplier         DOUBLE PRECISION NOT NULL,
		rambolito_multiplier        DOUBLE PRECISION NOT NULL,
		rambolito_double_multiplier DOUBLE PRECISION NOT NULL,
		effective_at                TIMESTAMPTZ NOT NULL,
		created_by                  TEXT NOT NULL DEFAULT '',
		created_at                  TIMESTAMPTZ NOT NULL
	)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
