package results

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Scheduler drives the daily draw cycle on a cron. Each morning it creates
// the day's three draws and opens them; five minutes before each slot's
// draw time it closes betting on that slot.
type Scheduler struct {
	service *Service
	loc     *time.Location
	cron    *cron.Cron
	log     *logger.Logger
}

// NewScheduler constructs a scheduler over the results service.
func NewScheduler(service *Service, loc *time.Location, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("draw-scheduler")
	}
	if loc == nil {
		loc = manila()
	}
	return &Scheduler{
		service: service,
		loc:     loc,
		cron:    cron.New(cron.WithLocation(loc)),
		log:     log,
	}
}

// Name implements system.Service.
func (s *Scheduler) Name() string { return "draw-scheduler" }

// Start registers the cron entries and kicks off today's cycle so a
// mid-day restart does not miss the morning schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("0 0 * * *", s.openToday); err != nil {
		return fmt.Errorf("schedule daily open: %w", err)
	}
	for _, slot := range draw.Slots {
		slot := slot
		cutoff := draw.CutoffTime(time.Now().In(s.loc), slot, s.loc)
		spec := fmt.Sprintf("%d %d * * *", cutoff.Minute(), cutoff.Hour())
		if _, err := s.cron.AddFunc(spec, func() { s.closeSlot(slot) }); err != nil {
			return fmt.Errorf("schedule %s cutoff: %w", slot, err)
		}
	}
	s.cron.Start()
	go s.openToday()
	s.log.Info("Draw scheduler started")
	return nil
}

// Stop halts the cron and waits for any running job.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("Draw scheduler stopped")
	return nil
}

func (s *Scheduler) openToday() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	today := time.Now().In(s.loc)
	created, err := s.service.ScheduleDay(ctx, today)
	if err != nil {
		s.log.WithError(err).Error("Scheduling today's draws failed")
		return
	}
	now := time.Now().In(s.loc)
	for _, d := range created {
		// Slots whose cutoff already passed stay scheduled; opening them
		// would let bets in after the draw.
		if !now.Before(draw.CutoffTime(today, d.Slot, s.loc)) {
			continue
		}
		if _, err := s.service.Open(ctx, d.ID); err != nil {
			s.log.WithError(err).WithField("draw_id", d.ID).Error("Opening draw failed")
		}
	}
}

func (s *Scheduler) closeSlot(slot draw.Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	today := time.Now().In(s.loc)
	draws, err := s.service.draws.ListDrawsByDate(ctx, today)
	if err != nil {
		s.log.WithError(err).Error("Listing draws at cutoff failed")
		return
	}
	for _, d := range draws {
		if d.Slot != slot || d.Status != draw.StatusOpen {
			continue
		}
		if _, err := s.service.Close(ctx, d.ID); err != nil {
			s.log.WithError(err).WithField("draw_id", d.ID).Error("Closing draw failed")
		}
	}
}
