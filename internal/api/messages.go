package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage"
)

type createMessageRequest struct {
	DestinationChain string          `json:"destinationChain"`
	MessageType      string          `json:"messageType"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

type listMessagesResponse struct {
	Messages []*domain.Message `json:"messages"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type updateStatusRequest struct {
	Status domain.MessageStatus `json:"status"`
	Data   json.RawMessage      `json:"data,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.DestinationChain == "" || req.MessageType == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !domain.KnownChain(req.DestinationChain) {
		writeError(w, http.StatusBadRequest, "Unsupported destination chain")
		return
	}
	if !domain.KnownMessageType(req.MessageType) {
		writeError(w, http.StatusBadRequest, "Unsupported message type")
		return
	}

	msg, err := s.tracking.Create(r.Context(), req.DestinationChain, req.MessageType, req.Payload)
	if err != nil {
		s.log.Error("Failed to create message", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	// Fresh users get an empty list without hitting storage.
	if r.URL.Query().Get("new_user") == "true" {
		writeJSON(w, http.StatusOK, listMessagesResponse{Messages: []*domain.Message{}})
		return
	}

	filter := storage.ListFilter{
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.MessageStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		filter.Status = &status
	}

	msgs, total, err := s.tracking.List(r.Context(), filter)
	if err != nil {
		s.log.Error("Failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}

	writeJSON(w, http.StatusOK, listMessagesResponse{
		Messages: msgs,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := s.tracking.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			writeError(w, http.StatusNotFound, "Message not found")
			return
		}
		s.log.Error("Failed to get message", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// handleUpdateStatus is the admin path that drives live relay updates.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	msg, err := s.tracking.Advance(r.Context(), id, req.Status, req.Data, req.Error)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, storage.ErrTerminalStatus), errors.Is(err, storage.ErrInvalidTransition):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error("Failed to update status", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": domain.SupportedChains})
}

func (s *Server) handleListMessageTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messageTypes": domain.SupportedMessageTypes})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
