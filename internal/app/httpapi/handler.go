// Package httpapi exposes the engine's REST surface on a plain ServeMux.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/umatik/lottery-engine/internal/app"
	"github.com/umatik/lottery-engine/internal/app/domain/claim"
	"github.com/umatik/lottery-engine/internal/app/domain/draw"
	"github.com/umatik/lottery-engine/internal/app/domain/prize"
	"github.com/umatik/lottery-engine/internal/app/domain/ticket"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
	"github.com/umatik/lottery-engine/internal/middleware"
)

// handler bundles HTTP endpoints for the engine services.
type handler struct {
	app   *app.Application
	audit *auditLog
	start time.Time
}

// NewHandler returns a mux exposing the engine REST API.
func NewHandler(application *app.Application) http.Handler {
	var sink auditSink
	if path := auditFilePath(); path != "" {
		sink = newFileSink(path)
	}
	h := &handler{
		app:   application,
		audit: newAuditLog(200, sink),
		start: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/draws", h.draws)
	mux.HandleFunc("/draws/", h.drawResources)
	mux.HandleFunc("/tickets", h.tickets)
	mux.HandleFunc("/tickets/", h.ticketResources)
	mux.HandleFunc("/claims/", h.claimResources)
	mux.HandleFunc("/notifications", h.notifications)
	mux.HandleFunc("/notifications/", h.notificationResources)
	mux.HandleFunc("/prize-rules", h.prizeRules)
	mux.HandleFunc("/results/feed", h.resultsFeed)
	mux.HandleFunc("/audit", h.auditEntries)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/ws", application.Hub)
	return mux
}

// --- draws ------------------------------------------------------------------

func (h *handler) draws(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			DrawDate string `json:"draw_date"`
			Slot     string `json:"draw_time"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		date, err := time.Parse("2006-01-02", payload.DrawDate)
		if err != nil {
			h.writeError(w, r, enginerr.Validation("draw_date %q: %v", payload.DrawDate, err))
			return
		}

		// An empty slot schedules the full day.
		if payload.Slot == "" {
			created, err := h.app.Results.ScheduleDay(r.Context(), date)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			h.writeJSON(w, r, http.StatusCreated, created)
			return
		}
		d, err := h.app.Results.ScheduleDraw(r.Context(), date, draw.Slot(payload.Slot))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusCreated, d)

	case http.MethodGet:
		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			h.writeError(w, r, enginerr.Validation("date query parameter: %v", err))
			return
		}
		draws, err := h.app.Results.ListByDate(r.Context(), date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, draws)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) drawResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/draws")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	drawID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d, err := h.app.Results.Get(r.Context(), drawID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, d)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "open":
		d, err := h.app.Results.Open(r.Context(), drawID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, d)
	case "close":
		d, err := h.app.Results.Close(r.Context(), drawID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, d)
	case "result":
		var payload struct {
			WinningNumber string `json:"winning_number"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		d, err := h.app.Results.PublishResult(r.Context(), drawID, payload.WinningNumber)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, d)
	case "settle":
		report, err := h.app.Settlement.Settle(r.Context(), drawID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, report)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) resultsFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.writeError(w, r, enginerr.Validation("read feed: %v", err))
		return
	}
	defer r.Body.Close()

	d, err := h.app.Results.IngestFeed(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, d)
}

// --- tickets ----------------------------------------------------------------

func (h *handler) tickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			AgentID string `json:"agent_id"`
			DrawID  string `json:"draw_id"`
			Bets    []struct {
				Combination string `json:"combination"`
				Type        string `json:"bet_type"`
				Amount      int64  `json:"amount"`
			} `json:"bets"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		if payload.AgentID == "" {
			payload.AgentID = middleware.ActorID(r.Context())
		}

		t := ticket.Ticket{AgentID: payload.AgentID, DrawID: payload.DrawID}
		for _, b := range payload.Bets {
			t.Bets = append(t.Bets, ticket.Bet{
				Combination: b.Combination,
				Type:        ticket.BetType(b.Type),
				Amount:      b.Amount,
			})
		}
		sold, err := h.app.Tickets.Sell(r.Context(), t)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusCreated, sold)

	case http.MethodGet:
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" {
			agentID = middleware.ActorID(r.Context())
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := h.app.Tickets.ListByAgent(r.Context(), agentID, limit)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, items)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) ticketResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/tickets")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ticketID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t, err := h.app.Tickets.Get(r.Context(), ticketID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, t)
		return
	}

	switch parts[1] {
	case "explain":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		trace, err := h.app.Settlement.Explain(r.Context(), ticketID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, trace)

	case "reprint":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		updated, err := h.app.Reprints.Reprint(r.Context(), ticketID, middleware.ActorID(r.Context()))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, updated)

	case "claims":
		h.ticketClaims(w, r, ticketID)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) ticketClaims(w http.ResponseWriter, r *http.Request, ticketID string) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			AgentID string `json:"agent_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil && err != io.EOF {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		if payload.AgentID == "" {
			payload.AgentID = middleware.ActorID(r.Context())
		}
		c, err := h.app.Claims.Submit(r.Context(), ticketID, payload.AgentID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusCreated, c)

	case http.MethodGet:
		records, err := h.app.Claims.Records(r.Context(), ticketID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, records)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- claims -----------------------------------------------------------------

func (h *handler) claimResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/claims")
	if len(parts) != 2 || parts[1] != "decision" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if role := middleware.ActorRole(r.Context()); role != "" && !role.CanDecideClaims() {
		h.writeError(w, r, enginerr.Unauthorized("role may not decide claims"))
		return
	}

	var payload struct {
		Action        string `json:"action"`
		Notes         string `json:"notes"`
		OverridePrize *int64 `json:"override_prize"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, enginerr.Validation("%v", err))
		return
	}
	rec, err := h.app.Claims.Decide(r.Context(), parts[0], middleware.ActorID(r.Context()),
		claim.Action(payload.Action), payload.Notes, payload.OverridePrize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, rec)
}

// --- notifications ----------------------------------------------------------

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		recipient = middleware.ActorID(r.Context())
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.app.Notifications.List(r.Context(), recipient, unreadOnly, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	count, err := h.app.Notifications.UnreadCount(r.Context(), recipient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"notifications": items,
		"unread_count":  count,
	})
}

func (h *handler) notificationResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/notifications")
	if len(parts) != 2 || parts[1] != "read" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n, err := h.app.Notifications.MarkRead(r.Context(), parts[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, n)
}

// --- prize rules ------------------------------------------------------------

func (h *handler) prizeRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if role := middleware.ActorRole(r.Context()); role != "" && !role.CanDecideClaims() {
			h.writeError(w, r, enginerr.Unauthorized("role may not change prize rules"))
			return
		}
		var rule prize.Rule
		if err := decodeJSON(r.Body, &rule); err != nil {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		if rule.CreatedBy == "" {
			rule.CreatedBy = middleware.ActorID(r.Context())
		}
		if err := rule.Validate(); err != nil {
			h.writeError(w, r, enginerr.Validation("%v", err))
			return
		}
		created, err := h.app.PrizeRules.CreatePrizeRule(r.Context(), rule)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusCreated, created)

	case http.MethodGet:
		rules, err := h.app.PrizeRules.ListPrizeRules(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, rules)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- operational ------------------------------------------------------------

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.audit.list())
}

// --- helpers ----------------------------------------------------------------

func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if r.Method != http.MethodGet {
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			Actor:      middleware.ActorID(r.Context()),
			Role:       string(middleware.ActorRole(r.Context())),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     status,
			RemoteAddr: r.RemoteAddr,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := enginerr.HTTPStatus(err)
	if r.Method != http.MethodGet {
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			Actor:      middleware.ActorID(r.Context()),
			Role:       string(middleware.ActorRole(r.Context())),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     status,
			RemoteAddr: r.RemoteAddr,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    enginerr.CodeOf(err),
			"message": err.Error(),
		},
	})
}
