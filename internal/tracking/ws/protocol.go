package ws

import (
	"encoding/json"
	"time"

	"github.com/solmint/relay/internal/core/domain"
)

// Inbound message types (client -> server).
const (
	TypeAuthenticate = "authenticate"
	TypeTrack        = "track"
	TypeUntrack      = "untrack"
	TypePing         = "ping"
)

// Outbound message types (server -> client).
const (
	TypeMessageUpdate    = "message_update"
	TypeConnectionStatus = "connection_status"
	TypeError            = "error"
	TypePong             = "pong"
)

// Connection states reported via connection_status frames and the
// client's state callback.
const (
	StateConnecting = "CONNECTING"
	StateOpen       = "OPEN"
	StateClosing    = "CLOSING"
	StateClosed     = "CLOSED"
)

// ClientFrame is a message from client to server.
type ClientFrame struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// ServerFrame is a message from server to client. Status carries a
// message status on message_update frames and a connection state on
// connection_status frames.
type ServerFrame struct {
	Type      string          `json:"type"`
	MessageID string          `json:"messageId,omitempty"`
	Status    string          `json:"status,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func updateFrame(update domain.StatusUpdate) ServerFrame {
	return ServerFrame{
		Type:      TypeMessageUpdate,
		MessageID: update.MessageID,
		Status:    string(update.Status),
		Timestamp: update.Timestamp.UTC().Format(time.RFC3339),
		Data:      update.Data,
		Error:     update.Error,
	}
}

func connectionFrame(state string) ServerFrame {
	return ServerFrame{Type: TypeConnectionStatus, Status: state}
}
