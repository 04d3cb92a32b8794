package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/metrics"
)

// Server upgrades HTTP requests to tracking sessions. Each connection
// owns its own session and tracker; nothing is shared across clients.
type Server struct {
	svc      *tracking.Service
	tokens   map[string]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewServer creates a WebSocket server. clientTokens may be empty, in
// which case sessions are accepted unauthenticated.
func NewServer(svc *tracking.Service, clientTokens []string) *Server {
	tokens := make(map[string]struct{}, len(clientTokens))
	for _, t := range clientTokens {
		tokens[t] = struct{}{}
	}
	return &Server{
		svc:    svc,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: slog.Default(),
	}
}

// ServeHTTP upgrades the connection and runs the session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	session := newSession(conn, s.svc, s.tokens)
	session.run(r.Context())
}
