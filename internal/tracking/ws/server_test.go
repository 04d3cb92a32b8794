package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage/memory"
	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/hub"
)

func dialTestServer(t *testing.T, tokens []string) (*websocket.Conn, *tracking.Service) {
	t.Helper()

	h := hub.New()
	t.Cleanup(h.Close)
	svc := tracking.NewService(memory.NewMessageRepo(), h)

	srv := httptest.NewServer(NewServer(svc, tokens))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// First frame is always the connection status
	frame := readFrame(t, conn)
	if frame.Type != TypeConnectionStatus || frame.Status != StateOpen {
		t.Fatalf("First frame = %+v, want connection_status OPEN", frame)
	}

	return conn, svc
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return frame
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var frame ServerFrame
	if err := conn.ReadJSON(&frame); err == nil {
		t.Fatalf("Unexpected frame %+v", frame)
	}
}

func TestTrackDeliversUpdates(t *testing.T) {
	conn, svc := dialTestServer(t, nil)
	ctx := context.Background()

	msg, err := svc.Create(ctx, "base", "nft_ownership", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: msg.ID}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	// Immediate status check answers with the current status
	frame := readFrame(t, conn)
	if frame.Type != TypeMessageUpdate || frame.Status != string(domain.StatusCreated) {
		t.Fatalf("frame = %+v, want message_update CREATED", frame)
	}

	if _, err := svc.Advance(ctx, msg.ID, domain.StatusInflight, nil, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	frame = readFrame(t, conn)
	if frame.Type != TypeMessageUpdate || frame.Status != string(domain.StatusInflight) {
		t.Fatalf("frame = %+v, want message_update INFLIGHT", frame)
	}
	if frame.MessageID != msg.ID {
		t.Errorf("MessageID = %s, want %s", frame.MessageID, msg.ID)
	}
}

func TestUntrackStopsDelivery(t *testing.T) {
	conn, svc := dialTestServer(t, nil)
	ctx := context.Background()

	msg, _ := svc.Create(ctx, "base", "nft_ownership", nil)

	conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: msg.ID})
	readFrame(t, conn) // initial status check result

	conn.WriteJSON(ClientFrame{Type: TypeUntrack, MessageID: msg.ID})

	// Give the untrack time to land before publishing
	time.Sleep(50 * time.Millisecond)
	if _, err := svc.Advance(ctx, msg.ID, domain.StatusInflight, nil, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	expectNoFrame(t, conn)
}

func TestPingPong(t *testing.T) {
	conn, _ := dialTestServer(t, nil)

	conn.WriteJSON(ClientFrame{Type: TypePing})
	frame := readFrame(t, conn)
	if frame.Type != TypePong {
		t.Fatalf("frame = %+v, want pong", frame)
	}
}

func TestUnknownMessageType(t *testing.T) {
	conn, _ := dialTestServer(t, nil)

	conn.WriteJSON(ClientFrame{Type: "subscribe"})
	frame := readFrame(t, conn)
	if frame.Type != TypeError || frame.Message != "unknown message type" {
		t.Fatalf("frame = %+v, want unknown message type error", frame)
	}
}

func TestTrackRequiresMessageID(t *testing.T) {
	conn, _ := dialTestServer(t, nil)

	conn.WriteJSON(ClientFrame{Type: TypeTrack})
	frame := readFrame(t, conn)
	if frame.Type != TypeError || frame.Message != "messageId is required" {
		t.Fatalf("frame = %+v, want messageId required error", frame)
	}
}

func TestAuthentication(t *testing.T) {
	conn, svc := dialTestServer(t, []string{"secret"})
	ctx := context.Background()

	msg, _ := svc.Create(ctx, "base", "nft_ownership", nil)

	// Track before authenticating is rejected
	conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: msg.ID})
	frame := readFrame(t, conn)
	if frame.Type != TypeError || frame.Message != "not authenticated" {
		t.Fatalf("frame = %+v, want not authenticated error", frame)
	}

	// Bad token is rejected
	conn.WriteJSON(ClientFrame{Type: TypeAuthenticate, Token: "wrong"})
	frame = readFrame(t, conn)
	if frame.Type != TypeError || frame.Message != "invalid token" {
		t.Fatalf("frame = %+v, want invalid token error", frame)
	}

	// Valid token unlocks tracking
	conn.WriteJSON(ClientFrame{Type: TypeAuthenticate, Token: "secret"})
	conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: msg.ID})
	frame = readFrame(t, conn)
	if frame.Type != TypeMessageUpdate || frame.Status != string(domain.StatusCreated) {
		t.Fatalf("frame = %+v, want message_update after auth", frame)
	}
}

func TestConnectionStatusWireFormat(t *testing.T) {
	h := hub.New()
	t.Cleanup(h.Close)
	svc := tracking.NewService(memory.NewMessageRepo(), h)

	srv := httptest.NewServer(NewServer(svc, nil))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var frame map[string]any
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if frame["type"] != TypeConnectionStatus || frame["status"] != StateOpen {
		t.Errorf("frame = %s, want type connection_status with status OPEN", raw)
	}
	if _, ok := frame["message"]; ok {
		t.Errorf("frame = %s, connection state must be in the status field", raw)
	}
}
