package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API is served to any origin; the token query parameter is the gate
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveUpdates upgrades to a websocket that receives one message per applied change
// @Summary Live inspection updates
// @Tags inspections
// @Param token query string true "Bearer token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Router /ws [get]
func (h *Handler) LiveUpdates(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	clientID := uuid.NewString()
	h.hub.Add(clientID, conn)
	h.log.Debug("Live feed opened", zap.String("client", clientID), zap.String("username", claims.Subject))

	done := make(chan struct{})
	go h.keepAlive(conn, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.hub.Remove(clientID)
	_ = conn.Close()
}

func (h *Handler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
