// Package results manages the draw lifecycle: scheduling the three daily
// slots, opening and closing betting, and publishing winning numbers. A
// published result hands the draw to the settlement engine.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/services/betmatch"
	"github.com/umatik/lottery-engine/internal/app/services/settlement"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Settler settles a published draw. Implemented by settlement.Service.
type Settler interface {
	Settle(ctx context.Context, drawID string) (settlement.Report, error)
}

// Service manages draws and result publication.
type Service struct {
	draws   storage.DrawStore
	settler Settler
	loc     *time.Location
	log     *logger.Logger
}

// New constructs a results service. loc is the lottery's local timezone;
// nil defaults to Asia/Manila.
func New(draws storage.DrawStore, settler Settler, loc *time.Location, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("results")
	}
	if loc == nil {
		loc = manila()
	}
	return &Service{draws: draws, settler: settler, loc: loc, log: log}
}

func manila() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		return time.FixedZone("PHT", 8*3600)
	}
	return loc
}

// ScheduleDraw creates a scheduled draw for a date and slot. The store
// rejects a duplicate slot on the same date.
func (s *Service) ScheduleDraw(ctx context.Context, date time.Time, slot draw.Slot) (draw.Draw, error) {
	if _, err := draw.ParseSlot(string(slot)); err != nil {
		return draw.Draw{}, enginerr.Validation("%v", err)
	}
	d, err := s.draws.CreateDraw(ctx, draw.Draw{DrawDate: date, Slot: slot})
	if err != nil {
		return draw.Draw{}, fmt.Errorf("create draw: %w", err)
	}
	s.log.WithField("draw_id", d.ID).WithField("slot", string(slot)).Info("Draw scheduled")
	return d, nil
}

// ScheduleDay creates all three slots for a date, skipping slots that
// already exist.
func (s *Service) ScheduleDay(ctx context.Context, date time.Time) ([]draw.Draw, error) {
	existing, err := s.draws.ListDrawsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	have := make(map[draw.Slot]bool, len(existing))
	for _, d := range existing {
		have[d.Slot] = true
	}
	created := make([]draw.Draw, 0, len(draw.Slots))
	for _, slot := range draw.Slots {
		if have[slot] {
			continue
		}
		d, err := s.ScheduleDraw(ctx, date, slot)
		if err != nil {
			return created, err
		}
		created = append(created, d)
	}
	return created, nil
}

// Get fetches a draw.
func (s *Service) Get(ctx context.Context, drawID string) (draw.Draw, error) {
	d, err := s.draws.GetDraw(ctx, drawID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return draw.Draw{}, enginerr.NotFound("draw", drawID)
		}
		return draw.Draw{}, fmt.Errorf("get draw: %w", err)
	}
	return d, nil
}

// ListByDate returns the draws scheduled for a date.
func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]draw.Draw, error) {
	draws, err := s.draws.ListDrawsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	return draws, nil
}

// Open moves a scheduled draw to open so tickets can be sold against it.
func (s *Service) Open(ctx context.Context, drawID string) (draw.Draw, error) {
	return s.transition(ctx, drawID, draw.StatusScheduled, draw.StatusOpen)
}

// Close ends betting on an open draw.
func (s *Service) Close(ctx context.Context, drawID string) (draw.Draw, error) {
	return s.transition(ctx, drawID, draw.StatusOpen, draw.StatusClosed)
}

func (s *Service) transition(ctx context.Context, drawID string, from, to draw.Status) (draw.Draw, error) {
	d, err := s.draws.UpdateDrawStatus(ctx, drawID, from, to)
	if err == nil {
		s.log.WithField("draw_id", drawID).WithField("status", string(to)).Info("Draw transitioned")
		return d, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return draw.Draw{}, enginerr.NotFound("draw", drawID)
	}
	if errors.Is(err, storage.ErrConditionFailed) {
		cur, rerr := s.draws.GetDraw(ctx, drawID)
		if rerr != nil {
			return draw.Draw{}, fmt.Errorf("transition denied, re-read failed: %w", rerr)
		}
		return draw.Draw{}, enginerr.DrawNotReady(drawID,
			fmt.Sprintf("cannot move %s draw to %s", cur.Status, to))
	}
	return draw.Draw{}, fmt.Errorf("update draw status: %w", err)
}

// PublishResult records the winning number on a closed draw and settles it.
// The number is written exactly once; a second publish fails even with the
// same digits. A settlement failure leaves the published draw closed so
// settlement can be retried.
func (s *Service) PublishResult(ctx context.Context, drawID, winningNumber string) (draw.Draw, error) {
	number, err := betmatch.Normalize(winningNumber)
	if err != nil {
		return draw.Draw{}, err
	}

	d, err := s.draws.PublishResult(ctx, drawID, number)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return draw.Draw{}, enginerr.NotFound("draw", drawID)
		}
		if errors.Is(err, storage.ErrConditionFailed) {
			cur, rerr := s.draws.GetDraw(ctx, drawID)
			if rerr != nil {
				return draw.Draw{}, fmt.Errorf("publish denied, re-read failed: %w", rerr)
			}
			if cur.ResultPublished() {
				return draw.Draw{}, enginerr.DrawNotReady(drawID, "result already published")
			}
			return draw.Draw{}, enginerr.DrawNotReady(drawID,
				fmt.Sprintf("draw is %s, result requires a closed draw", cur.Status))
		}
		return draw.Draw{}, fmt.Errorf("publish result: %w", err)
	}

	s.log.WithField("draw_id", drawID).WithField("winning_number", number).Info("Result published")

	if s.settler != nil {
		if _, err := s.settler.Settle(ctx, drawID); err != nil {
			s.log.WithError(err).WithField("draw_id", drawID).Error("Settlement after publish failed")
			return d, nil
		}
		if refreshed, err := s.draws.GetDraw(ctx, drawID); err == nil {
			d = refreshed
		}
	}
	return d, nil
}

// IngestFeed extracts a draw reference and winning number from an upstream
// results payload and publishes it. The feed shape is
// {"draw":{"date":"2006-01-02","slot":"twoPM"},"result":{"number":"455"}}.
func (s *Service) IngestFeed(ctx context.Context, raw []byte) (draw.Draw, error) {
	if !gjson.ValidBytes(raw) {
		return draw.Draw{}, enginerr.Validation("feed payload is not valid JSON")
	}
	payload := gjson.ParseBytes(raw)
	number := payload.Get("result.number").String()
	if number == "" {
		number = payload.Get("winning_number").String()
	}
	if number == "" {
		return draw.Draw{}, enginerr.Validation("feed payload has no winning number")
	}

	drawID := payload.Get("draw.id").String()
	if drawID == "" {
		dateRaw := payload.Get("draw.date").String()
		slotRaw := payload.Get("draw.slot").String()
		date, err := time.ParseInLocation("2006-01-02", dateRaw, s.loc)
		if err != nil {
			return draw.Draw{}, enginerr.Validation("feed draw date %q: %v", dateRaw, err)
		}
		slot, err := draw.ParseSlot(slotRaw)
		if err != nil {
			return draw.Draw{}, enginerr.Validation("%v", err)
		}
		d, err := s.findDraw(ctx, date, slot)
		if err != nil {
			return draw.Draw{}, err
		}
		drawID = d.ID
	}
	return s.PublishResult(ctx, drawID, number)
}

func (s *Service) findDraw(ctx context.Context, date time.Time, slot draw.Slot) (draw.Draw, error) {
	draws, err := s.draws.ListDrawsByDate(ctx, date)
	if err != nil {
		return draw.Draw{}, fmt.Errorf("list draws: %w", err)
	}
	for _, d := range draws {
		if d.Slot == slot {
			return d, nil
		}
	}
	return draw.Draw{}, enginerr.NotFound("draw", fmt.Sprintf("%s/%s", date.Format("2006-01-02"), slot))
}
