package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/domain"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// PlanSubscriber is satisfied by broadcast.Hub.
type PlanSubscriber interface {
	Subscribe() (<-chan domain.PlanEvent, func())
}

// StreamHandler pushes committed plans to websocket clients as they are
// published. Clients only listen; anything they send is discarded.
type StreamHandler struct {
	Hub PlanSubscriber
}

func (h *StreamHandler) Plans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("plan stream upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	events, unsubscribe := h.Hub.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(dto.FromPlanEvent(evt)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
