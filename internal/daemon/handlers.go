package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/message"
	"github.com/mgaspar301/txtpay/internal/notify"
	"github.com/mgaspar301/txtpay/internal/render"
	"github.com/mgaspar301/txtpay/internal/status"
	"github.com/mgaspar301/txtpay/internal/store"
	"go.uber.org/zap"
)

// Handlers implements the daemon's HTTP API served over the session socket.
type Handlers struct {
	sessionName string
	db          *store.DB
	bus         *bus.Bus
	machine     *status.Machine
	orch        *notify.Orchestrator
	sink        *render.BusSink
	logger      *zap.Logger
	started     time.Time
}

// NewHandlers creates the API handlers.
func NewHandlers(
	p Params,
	db *store.DB,
	b *bus.Bus,
	machine *status.Machine,
	orch *notify.Orchestrator,
	sink *render.BusSink,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		sessionName: p.SessionName,
		db:          db,
		bus:         b,
		machine:     machine,
		orch:        orch,
		sink:        sink,
		logger:      logger,
		started:     time.Now(),
	}
}

// Routes builds the chi router for the API.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/status", h.getStatus)
	r.Post("/v1/messages", h.postMessage)
	r.Get("/v1/notifications", h.listNotifications)
	r.Post("/v1/notifications/{key}/dismiss", h.dismissNotification)
	r.Put("/v1/foreground", h.setForeground)
	r.Put("/v1/background", h.setBackground)
	r.Get("/v1/conversations", h.listConversations)
	r.Post("/v1/conversations/{id}/accept", h.acceptConversation)
	r.Get("/v1/events", h.streamEvents)
	return r
}

func (h *Handlers) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session":    h.sessionName,
		"state":      h.machine.Current(),
		"uptime_ms":  time.Since(h.started).Milliseconds(),
		"active":     h.orch.Cache().Len(),
		"foreground": h.orch.Cache().Foreground(),
	})
}

type postMessageRequest struct {
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name"`
	Kind       string `json:"kind"`
	Body       string `json:"body"`
	RefKey     string `json:"ref_key"`
}

// postMessage is the inbound transport hook: it publishes the message on
// the bus and returns immediately; the ingest engine picks it up.
func (h *Handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	msg := message.Message{
		ID:         uuid.NewString(),
		Sender:     req.Sender,
		SenderName: req.SenderName,
		Kind:       message.KindFromString(req.Kind),
		Body:       req.Body,
		RefKey:     req.RefKey,
		CreatedAt:  time.Now(),
	}
	h.bus.Publish(bus.Event{
		Kind:      bus.KindTransportMessage,
		Timestamp: time.Now(),
		Payload:   msg,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"id": msg.ID})
}

func (h *Handlers) listNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": h.sink.Visible()})
}

func (h *Handlers) dismissNotification(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	h.orch.DismissNotification(key)
	h.sink.Dismiss(key)
	w.WriteHeader(http.StatusNoContent)
}

type foregroundRequest struct {
	Key string `json:"key"`
}

func (h *Handlers) setForeground(w http.ResponseWriter, r *http.Request) {
	var req foregroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	h.orch.SetForegroundConversation(req.Key)
	w.WriteHeader(http.StatusNoContent)
}

type backgroundRequest struct {
	Backgrounded bool `json:"backgrounded"`
}

func (h *Handlers) setBackground(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	h.orch.SetBackgrounded(req.Backgrounded)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listConversations(w http.ResponseWriter, _ *http.Request) {
	convs, err := h.db.ListConversations(100, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list conversations: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (h *Handlers) acceptConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.db.GetConversation(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("get conversation: %w", err))
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("conversation %q not found", id))
		return
	}
	if err := h.db.SetAccepted(id, true); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("accept conversation: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamEvents streams bus events as server-sent events until the client
// disconnects.
func (h *Handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	ch, unsub := h.bus.Subscribe("", 64)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case evt := <-ch:
			data, err := json.Marshal(map[string]any{
				"kind":    evt.Kind,
				"ts":      evt.Timestamp.UnixMilli(),
				"payload": evt.Payload,
			})
			if err != nil {
				h.logger.Warn("failed to encode event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
