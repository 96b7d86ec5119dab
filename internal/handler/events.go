package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/sse"
)

type EventsHandler struct {
	guard  *PairGuard
	broker *sse.Broker
	state  *service.StateService
}

func NewEventsHandler(guard *PairGuard, broker *sse.Broker, state *service.StateService) *EventsHandler {
	return &EventsHandler{
		guard:  guard,
		broker: broker,
		state:  state,
	}
}

// GET /events?pairId=
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Streaming not supported"})
		return
	}

	ctx := r.Context()
	current, err := h.state.Get(ctx, pairID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(pairID)
	defer h.broker.Unsubscribe(client)

	log.Info().Str("pairId", pairID).Msg("sse connection established")

	if err := h.sendEvent(w, flusher, "connected", map[string]any{
		"pairId":   pairID,
		"versions": current.Versions,
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("pairId", pairID).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("pairId", pairID).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}
			// an unlinked pair has nothing left to stream
			if event.Type == sse.EventUnlinked {
				log.Info().Str("pairId", pairID).Msg("sse connection closed after unlink")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("pairId", pairID).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
