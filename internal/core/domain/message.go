package domain

import (
	"encoding/json"
	"time"
)

// Message represents a cross-chain message relayed from Solana to a
// destination chain, tracked from creation to a terminal state.
type Message struct {
	ID               string          `json:"messageId"`
	SourceChain      string          `json:"sourceChain"`
	DestinationChain string          `json:"destinationChain"`
	MessageType      string          `json:"messageType"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Status           MessageStatus   `json:"status"`
	Data             json.RawMessage `json:"data,omitempty"`
	Error            string          `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"timestamp"`
	History          []StatusChange  `json:"history,omitempty"`
}

// StatusChange is one entry of a message's status history.
type StatusChange struct {
	Status    MessageStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// StatusUpdate is the event published when a message changes status.
// Data is attached on COMPLETED, Error on FAILED.
type StatusUpdate struct {
	MessageID string          `json:"messageId"`
	Status    MessageStatus   `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type MessageStatus string

const (
	StatusCreated   MessageStatus = "CREATED"
	StatusInflight  MessageStatus = "INFLIGHT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusCompleted MessageStatus = "COMPLETED"
	StatusFailed    MessageStatus = "FAILED"
)

// statusOrder positions statuses along the delivery sequence.
// FAILED is reachable from any non-terminal status.
var statusOrder = map[MessageStatus]int{
	StatusCreated:   0,
	StatusInflight:  1,
	StatusDelivered: 2,
	StatusCompleted: 3,
}

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s MessageStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Next returns the next status along the delivery sequence.
// Returns false for terminal statuses.
func (s MessageStatus) Next() (MessageStatus, bool) {
	switch s {
	case StatusCreated:
		return StatusInflight, true
	case StatusInflight:
		return StatusDelivered, true
	case StatusDelivered:
		return StatusCompleted, true
	}
	return s, false
}

// CanTransition reports whether from -> to is a legal transition.
// Transitions are monotonic along CREATED -> INFLIGHT -> DELIVERED ->
// COMPLETED; compressed edges (skipping intermediate states) are legal,
// as is failing directly from any non-terminal status.
func CanTransition(from, to MessageStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fromPos, ok := statusOrder[from]
	if !ok {
		return false
	}
	toPos, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toPos > fromPos
}
