package events

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

const verifyTimeout = 5 * time.Second

// SessionResolver turns a dashboard token into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Handler upgrades authenticated requests to event streams.
//
// Browsers cannot set headers on websocket requests, so the token is read
// from the "token" query parameter, with the Authorization header as a
// fallback for other clients. The session is checked again on every ping,
// so logging out or expiry ends the stream.
type Handler struct {
	hub      *Hub
	sessions SessionResolver
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. allowedOrigins follows the CORS setting;
// "*" accepts any origin.
func NewHandler(hub *Hub, sessions SessionResolver, allowedOrigins []string) *Handler {
	anyOrigin := slices.Contains(allowedOrigins, "*")
	return &Handler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}

	sess, err := h.sessions.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("Websocket upgrade failed", "operator", sess.Operator.Email, "error", err)
		return
	}

	c := &client{
		conn:     conn,
		operator: sess.Operator.Email,
		send:     make(chan []byte, sendBuffer),
		verify: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
			defer cancel()
			_, err := h.sessions.Resolve(ctx, token)
			return err
		},
	}
	if !h.hub.register(c) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.hub.logger.Info("Event client connected", "operator", c.operator)

	go h.hub.writePump(c)
	go h.hub.readPump(c)
}
