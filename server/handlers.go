package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhite-dev/threadflow/graph"
	"github.com/mwhite-dev/threadflow/triage"
)

// Turn statuses reported to clients.
const (
	statusDone   = "DONE"
	statusPaused = "PAUSED_FOR_APPROVAL"
)

type chatRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message,omitempty"`
	// Approval set means this call resumes a paused thread.
	Approval *bool `json:"approval,omitempty"`
}

type chatResponse struct {
	ThreadID     string           `json:"thread_id"`
	Status       string           `json:"status"`
	Message      string           `json:"message,omitempty"`
	Interrupt    any              `json:"interrupt,omitempty"`
	Intent       triage.Intent    `json:"intent,omitempty"`
	Risk         triage.Risk      `json:"risk,omitempty"`
	ActionResult string           `json:"action_result,omitempty"`
	Messages     []triage.Message `json:"messages,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat runs one turn. A fresh call carries a message and optionally a
// thread id; a resume call carries the paused thread id and the approval
// decision.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var (
		threadID = req.ThreadID
		result   graph.TurnResult[triage.State]
		err      error
	)

	if req.Approval != nil {
		if threadID == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("thread_id is required when resuming"))
			return
		}
		result, err = s.engine.Invoke(r.Context(), threadID, nil, &graph.Command{Resume: *req.Approval})
	} else {
		if req.Message == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("message is required"))
			return
		}
		if threadID == "" {
			id := uuid.New()
			threadID = fmt.Sprintf("%x", id[:])
		}
		initial := triage.NewState(req.Message)
		result, err = s.engine.Invoke(r.Context(), threadID, &initial, nil)
	}

	if err != nil {
		s.logger.Warn("turn failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
		s.writeError(w, turnErrorStatus(err), err)
		return
	}

	if result.Status == graph.StatusPaused {
		s.writeJSON(w, http.StatusOK, chatResponse{
			ThreadID:  threadID,
			Status:    statusPaused,
			Message:   "Approval required. POST again with the same thread_id and approval=true/false.",
			Interrupt: result.Interrupt.Payload,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		ThreadID:     threadID,
		Status:       statusDone,
		Intent:       result.State.Intent,
		Risk:         result.State.Risk,
		ActionResult: result.State.ActionResult,
		Messages:     result.State.Messages,
	})
}

// handleHistory returns the full checkpoint history of a thread in ascending
// sequence order. Unknown threads yield an empty list.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	history, err := s.engine.History(r.Context(), threadID)
	if err != nil {
		s.logger.Error("failed to load history",
			zap.String("thread_id", threadID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"thread_id":   threadID,
		"checkpoints": history,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// turnErrorStatus maps engine errors onto HTTP statuses.
func turnErrorStatus(err error) int {
	switch {
	case errors.Is(err, graph.ErrInvalidInvocation):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrThreadBusy):
		return http.StatusConflict
	case errors.Is(err, graph.ErrNothingToResume):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
