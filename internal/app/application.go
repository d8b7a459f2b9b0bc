// Package app wires the engine's services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/umatik/lottery-engine/internal/app/cache"
	"github.com/umatik/lottery-engine/internal/app/services/claims"
	"github.com/umatik/lottery-engine/internal/app/services/notify"
	"github.com/umatik/lottery-engine/internal/app/services/reprint"
	"github.com/umatik/lottery-engine/internal/app/services/results"
	"github.com/umatik/lottery-engine/internal/app/services/settlement"
	ticketsvc "github.com/umatik/lottery-engine/internal/app/services/tickets"
	"github.com/umatik/lottery-engine/internal/app/storage"
	"github.com/umatik/lottery-engine/internal/app/storage/memory"
	"github.com/umatik/lottery-engine/internal/app/system"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Draws         storage.DrawStore
	Tickets       storage.TicketStore
	Claims        storage.ClaimStore
	Notifications storage.NotificationStore
	PrizeRules    storage.PrizeRuleStore
	Users         storage.UserStore
}

// Options configures optional application facilities.
type Options struct {
	Location        *time.Location
	Cache           *cache.Cache
	EnableScheduler bool
}

// Application ties the engine services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Tickets       *ticketsvc.Service
	Settlement    *settlement.Service
	Claims        *claims.Service
	Reprints      *reprint.Service
	Results       *results.Service
	Dispatcher    *notify.Dispatcher
	Notifications *notify.Reader
	Hub           *notify.Hub
	PrizeRules    storage.PrizeRuleStore
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Draws == nil {
		stores.Draws = mem
	}
	if stores.Tickets == nil {
		stores.Tickets = mem
	}
	if stores.Claims == nil {
		stores.Claims = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}
	if stores.PrizeRules == nil {
		stores.PrizeRules = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}

	manager := system.NewManager()

	dispatcher := notify.New(stores.Notifications, stores.Users, log)
	hub := notify.NewHub(log)
	dispatcher.WithTransport(hub)

	settlementService := settlement.New(stores.Draws, stores.Tickets, stores.PrizeRules, log)
	settlementService.WithEventSink(dispatcher)

	claimsService := claims.New(stores.Claims, stores.Tickets, stores.Draws, stores.PrizeRules, log)
	claimsService.WithEventSink(dispatcher)

	resultsService := results.New(stores.Draws, settlementService, opts.Location, log)
	ticketService := ticketsvc.New(stores.Tickets, stores.Draws, opts.Location, log)
	reprintService := reprint.New(stores.Tickets, log)
	reader := notify.NewReader(stores.Notifications, opts.Cache)
	dispatcher.WithInvalidator(reader)

	if err := manager.Register(dispatcher); err != nil {
		return nil, fmt.Errorf("register %s: %w", dispatcher.Name(), err)
	}
	if opts.EnableScheduler {
		scheduler := results.NewScheduler(resultsService, opts.Location, log)
		if err := manager.Register(scheduler); err != nil {
			return nil, fmt.Errorf("register %s: %w", scheduler.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Tickets:       ticketService,
		Settlement:    settlementService,
		Claims:        claimsService,
		Reprints:      reprintService,
		Results:       resultsService,
		Dispatcher:    dispatcher,
		Notifications: reader,
		Hub:           hub,
		PrizeRules:    stores.PrizeRules,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
