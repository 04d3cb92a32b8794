// Command demo creates a cross-chain message against a running relay
// and follows it over WebSocket until it reaches a terminal status.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/tracking/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	restURL := os.Getenv("RELAY_URL")
	if restURL == "" {
		restURL = "http://localhost:8080"
	}
	wsURL := os.Getenv("RELAY_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}
	token := os.Getenv("RELAY_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	msg, err := createMessage(ctx, restURL, token)
	if err != nil {
		log.Fatalf("create message: %v", err)
	}
	fmt.Printf("Created %s -> %s (%s)\n", msg.ID, msg.DestinationChain, msg.Status)

	terminal := make(chan domain.StatusUpdate, 1)

	client := ws.NewClient(ws.ClientConfig{
		URL:     wsURL,
		Token:   token,
		RestURL: restURL,
	})
	client.OnStateChange(func(state string) {
		fmt.Printf("Connection: %s\n", state)
	})
	client.OnUpdate(func(update domain.StatusUpdate) {
		fmt.Printf("  %s -> %s\n", update.MessageID, update.Status)
		if update.Status.Terminal() {
			select {
			case terminal <- update:
			default:
			}
		}
	})

	client.Start(ctx)
	defer client.Close()

	if err := client.Track(msg.ID); err != nil {
		log.Printf("track: %v", err)
	}

	select {
	case update := <-terminal:
		if update.Status == domain.StatusFailed {
			fmt.Printf("Message failed: %s\n", update.Error)
			return
		}
		fmt.Printf("Message completed: %s\n", string(update.Data))
	case <-ctx.Done():
		log.Fatal("timed out waiting for terminal status")
	}
}

func createMessage(ctx context.Context, restURL, token string) (*domain.Message, error) {
	body, _ := json.Marshal(map[string]any{
		"destinationChain": "base",
		"messageType":      "nft_ownership",
		"payload":          map[string]string{"mint": "demo"},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		restURL+"/cross-chain/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	var msg domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
