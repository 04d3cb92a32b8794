package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), req.Query)
	if err != nil {
		s.log.Error("Failed to dispatch query", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
