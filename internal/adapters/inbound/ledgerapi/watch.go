package ledgerapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/sufield/didchain/internal/dto"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchPongWait     = 60 * time.Second
	watchPingInterval = watchPongWait / 2
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// watch streams a dto.Notification for every message published for the DID
// until the peer goes away. Clients send nothing; anything they send is
// discarded.
func (h *handler) watch(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(w, r)
	if !ok {
		return
	}
	// Subscribed before the handshake completes, so a client never misses a
	// message published after its dial returned.
	events, cancel := h.notifier.Subscribe(did)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an error status.
		h.logger.Debug("watch upgrade failed", "did", did.String(), "error", err)
		return
	}
	defer conn.Close()

	reqID := middleware.GetReqID(r.Context())
	h.logger.Debug("watch started", "did", did.String(), "request_id", reqID)
	defer h.logger.Debug("watch ended", "did", did.String(), "request_id", reqID)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	shutdown := stopping(r.Context())

	// The read loop processes control frames and notices when the peer closes.
	go func() {
		defer stop()
		_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(watchPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(watchPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-shutdown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(watchWriteTimeout))
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(dto.Notification{DID: did, MessageID: id}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteTimeout)); err != nil {
				return
			}
		}
	}
}
