package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/tracker"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// session is one client connection with its own tracker.
type session struct {
	conn    *websocket.Conn
	svc     *tracking.Service
	tokens  map[string]struct{}
	tracker *tracker.Tracker
	send    chan ServerFrame
	log     *slog.Logger

	authenticated bool
}

func newSession(conn *websocket.Conn, svc *tracking.Service, tokens map[string]struct{}) *session {
	sub := svc.Subscribe(sendBuffer)
	checker := func(ctx context.Context, messageID string) (*domain.StatusUpdate, error) {
		msg, err := svc.Get(ctx, messageID)
		if err != nil {
			return nil, err
		}
		return &domain.StatusUpdate{
			MessageID: msg.ID,
			Status:    msg.Status,
			Timestamp: msg.UpdatedAt,
			Data:      msg.Data,
			Error:     msg.Error,
		}, nil
	}

	s := &session{
		conn:    conn,
		svc:     svc,
		tokens:  tokens,
		tracker: tracker.New(sub, checker),
		send:    make(chan ServerFrame, sendBuffer),
		log:     slog.Default(),
	}

	s.tracker.OnUpdate(func(update domain.StatusUpdate) {
		s.enqueue(updateFrame(update))
	})

	return s
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.tracker.Run(ctx)
	go s.writePump(ctx)

	s.enqueue(connectionFrame(StateOpen))

	s.readPump(ctx)

	cancel()
	s.tracker.Close()
	s.conn.Close()
}

func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame ClientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("WebSocket read failed", "error", err)
			}
			return
		}
		s.handle(ctx, frame)
	}
}

func (s *session) handle(ctx context.Context, frame ClientFrame) {
	switch frame.Type {
	case TypeAuthenticate:
		if len(s.tokens) == 0 {
			s.authenticated = true
			return
		}
		if _, ok := s.tokens[frame.Token]; ok {
			s.authenticated = true
		} else {
			s.enqueue(ServerFrame{Type: TypeError, Message: "invalid token"})
		}

	case TypeTrack:
		if !s.authorized() {
			s.enqueue(ServerFrame{Type: TypeError, Message: "not authenticated"})
			return
		}
		if frame.MessageID == "" {
			s.enqueue(ServerFrame{Type: TypeError, Message: "messageId is required"})
			return
		}
		s.tracker.Track(ctx, frame.MessageID)

	case TypeUntrack:
		if !s.authorized() {
			s.enqueue(ServerFrame{Type: TypeError, Message: "not authenticated"})
			return
		}
		if frame.MessageID == "" {
			s.enqueue(ServerFrame{Type: TypeError, Message: "messageId is required"})
			return
		}
		s.tracker.Untrack(frame.MessageID)

	case TypePing:
		s.enqueue(ServerFrame{Type: TypePong})

	default:
		s.enqueue(ServerFrame{Type: TypeError, Message: "unknown message type"})
	}
}

func (s *session) authorized() bool {
	return len(s.tokens) == 0 || s.authenticated
}

func (s *session) enqueue(frame ServerFrame) {
	select {
	case s.send <- frame:
	default:
		s.log.Warn("Dropping frame for slow WebSocket client", "type", frame.Type)
	}
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
