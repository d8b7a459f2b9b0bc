// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development; its conditional updates carry the same
// semantics as the postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	"github.com/umatik/lottery-engine/internal/app/domain/user"
	"github.com/umatik/lottery-engine/internal/app/storage"
)

// Store is the in-memory persistence layer.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	draws         map[string]draw.Draw
	tickets       map[string]ticket.Ticket
	claims        map[string]claim.Claim
	claimRecords  map[string][]claim.Record // keyed by ticket ID
	notifications map[string]notification.Notification
	prizeRules    []prize.Rule
	users         map[string]user.User
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		draws:         make(map[string]draw.Draw),
		tickets:       make(map[string]ticket.Ticket),
		claims:        make(map[string]claim.Claim),
		claimRecords:  make(map[string][]claim.Record),
		notifications: make(map[string]notification.Notification),
		users:         make(map[string]user.User),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// DrawStore ------------------------------------------------------------------

func (s *Store) CreateDraw(_ context.Context, d draw.Draw) (draw.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = s.nextIDLocked()
	} else if _, exists := s.draws[d.ID]; exists {
		return draw.Draw{}, fmt.Errorf("draw %s already exists", d.ID)
	}
	for _, existing := range s.draws {
		if existing.Slot == d.Slot && sameDay(existing.DrawDate, d.DrawDate) {
			return draw.Draw{}, fmt.Errorf("draw for %s %s already exists", d.DrawDate.Format("2006-01-02"), d.Slot)
		}
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = draw.StatusScheduled
	}
	s.draws[d.ID] = d
	return d, nil
}

func (s *Store) GetDraw(_ context.Context, id string) (draw.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.draws[id]
	if !ok {
		return draw.Draw{}, fmt.Errorf("draw %s: %w", id, storage.ErrNotFound)
	}
	return d, nil
}

func (s *Store) ListDrawsByDate(_ context.Context, date time.Time) ([]draw.Draw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []draw.Draw
	for _, d := range s.draws {
		if sameDay(d.DrawDate, date) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateDrawStatus(_ context.Context, id string, from, to draw.Status) (draw.Draw, error) {
	if !draw.CanTransition(from, to) {
		return draw.Draw{}, fmt.Errorf("illegal draw transition %s -> %s", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.draws[id]
	if !ok {
		return draw.Draw{}, fmt.Errorf("draw %s: %w", id, storage.ErrNotFound)
	}
	if d.Status != from {
		return draw.Draw{}, fmt.Errorf("draw %s status %s != %s: %w", id, d.Status, from, storage.ErrConditionFailed)
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	s.draws[id] = d
	return d, nil
}

func (s *Store) PublishResult(_ context.Context, id, winningNumber string) (draw.Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.draws[id]
	if !ok {
		return draw.Draw{}, fmt.Errorf("draw %s: %w", id, storage.ErrNotFound)
	}
	if d.Status != draw.StatusClosed || d.WinningNumber != "" {
		return draw.Draw{}, fmt.Errorf("draw %s not closed or result already set: %w", id, storage.ErrConditionFailed)
	}
	d.WinningNumber = winningNumber
	d.UpdatedAt = time.Now().UTC()
	s.draws[id] = d
	return d, nil
}

// TicketStore ----------------------------------------------------------------

func (s *Store) CreateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.tickets[t.ID]; exists {
		return ticket.Ticket{}, fmt.Errorf("ticket %s already exists", t.ID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = ticket.StatusActive
	}
	var total int64
	bets := make([]ticket.Bet, len(t.Bets))
	for i, bet := range t.Bets {
		if bet.ID == "" {
			bet.ID = s.nextIDLocked()
		}
		bet.TicketID = t.ID
		bets[i] = bet
		total += bet.Amount
	}
	t.Bets = bets
	if t.TotalAmount == 0 {
		t.TotalAmount = total
	}

	s.tickets[t.ID] = cloneTicket(t)
	return t, nil
}

func (s *Store) GetTicket(_ context.Context, id string) (ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", id, storage.ErrNotFound)
	}
	return cloneTicket(t), nil
}

func (s *Store) ListTicketsByDraw(_ context.Context, drawID string, status ticket.Status) ([]ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ticket.Ticket
	for _, t := range s.tickets {
		if t.DrawID != drawID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListTicketsByAgent(_ context.Context, agentID string, limit int) ([]ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ticket.Ticket
	for _, t := range s.tickets {
		if t.AgentID == agentID {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TransitionStatus(_ context.Context, id string, from, to ticket.Status, prizeAmount int64) (ticket.Ticket, error) {
	if !ticket.CanTransition(from, to) {
		return ticket.Ticket{}, fmt.Errorf("illegal ticket transition %s -> %s", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", id, storage.ErrNotFound)
	}
	if t.Status != from {
		return ticket.Ticket{}, fmt.Errorf("ticket %s status %s != %s: %w", id, t.Status, from, storage.ErrConditionFailed)
	}
	t.Status = to
	if prizeAmount >= 0 {
		t.PrizeAmount = prizeAmount
	}
	t.UpdatedAt = time.Now().UTC()
	s.tickets[id] = t
	return cloneTicket(t), nil
}

func (s *Store) IncrementReprint(_ context.Context, id string, max int) (ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %s: %w", id, storage.ErrNotFound)
	}
	if t.ReprintCount >= max || t.SettledWinner() {
		return ticket.Ticket{}, fmt.Errorf("ticket %s not reprintable: %w", id, storage.ErrConditionFailed)
	}
	t.ReprintCount++
	t.UpdatedAt = time.Now().UTC()
	s.tickets[id] = t
	return cloneTicket(t), nil
}

// ClaimStore -----------------------------------------------------------------

func (s *Store) CreateClaim(_ context.Context, c claim.Claim) (claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.claims {
		if existing.TicketID == c.TicketID && existing.Status == claim.StatusPending {
			return claim.Claim{}, fmt.Errorf("ticket %s already has an open claim: %w", c.TicketID, storage.ErrConditionFailed)
		}
	}

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	if c.Status == "" {
		c.Status = claim.StatusPending
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now().UTC()
	}
	s.claims[c.ID] = c
	return c, nil
}

func (s *Store) GetClaim(_ context.Context, id string) (claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return claim.Claim{}, fmt.Errorf("claim %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetOpenClaimByTicket(_ context.Context, ticketID string) (claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.claims {
		if c.TicketID == ticketID && c.Status == claim.StatusPending {
			return c, nil
		}
	}
	return claim.Claim{}, fmt.Errorf("open claim for ticket %s: %w", ticketID, storage.ErrNotFound)
}

func (s *Store) DecideClaim(_ context.Context, id string, to claim.Status, decidedAt time.Time) (claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[id]
	if !ok {
		return claim.Claim{}, fmt.Errorf("claim %s: %w", id, storage.ErrNotFound)
	}
	if c.Status != claim.StatusPending {
		return claim.Claim{}, fmt.Errorf("claim %s already %s: %w", id, c.Status, storage.ErrConditionFailed)
	}
	c.Status = to
	c.DecidedAt = decidedAt
	s.claims[id] = c
	return c, nil
}

func (s *Store) AppendClaimRecord(_ context.Context, rec claim.Record) (claim.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}
	s.claimRecords[rec.TicketID] = append(s.claimRecords[rec.TicketID], rec)
	return rec, nil
}

func (s *Store) ListClaimRecords(_ context.Context, ticketID string) ([]claim.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.claimRecords[ticketID]
	out := make([]claim.Record, len(records))
	copy(out, records)
	return out, nil
}

// NotificationStore ----------------------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []notification.Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, fmt.Errorf("notification %s: %w", id, storage.ErrNotFound)
	}
	n.Read = true
	s.notifications[id] = n
	return n, nil
}

func (s *Store) CountUnread(_ context.Context, recipientID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// PrizeRuleStore -------------------------------------------------------------

func (s *Store) CreatePrizeRule(_ context.Context, r prize.Rule) (prize.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.prizeRules = append(s.prizeRules, r)
	return r, nil
}

func (s *Store) PrizeRuleAt(_ context.Context, at time.Time) (prize.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := prize.DefaultRule()
	found := false
	for _, r := range s.prizeRules {
		if r.EffectiveAt.After(at) {
			continue
		}
		if !found || r.EffectiveAt.After(best.EffectiveAt) {
			best = r
			found = true
		}
	}
	return best, nil
}

func (s *Store) ListPrizeRules(_ context.Context) ([]prize.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]prize.Rule, len(s.prizeRules))
	copy(out, s.prizeRules)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

// UserStore ------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Active = true
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

// helpers --------------------------------------------------------------------

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func cloneTicket(t ticket.Ticket) ticket.Ticket {
	bets := make([]ticket.Bet, len(t.Bets))
	copy(bets, t.Bets)
	t.Bets = bets
	return t
}
