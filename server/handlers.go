package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/ragdesk/action"
	"github.com/hupe1980/ragdesk/orchestrator"
	"github.com/hupe1980/ragdesk/retrieval"
	"github.com/hupe1980/ragdesk/session"
	"github.com/hupe1980/ragdesk/ticket"
)

type createSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type thresholdRequest struct {
	Threshold *float64 `json:"threshold"`
}

type actionView struct {
	Name      string              `json:"name"`
	Outcome   action.Outcome      `json:"outcome"`
	Arguments action.Arguments    `json:"arguments,omitempty"`
	Payload   any                 `json:"payload,omitempty"`
	Error     string              `json:"error,omitempty"`
	Fields    []action.FieldError `json:"fields,omitempty"`
}

type messageResponse struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	Sources   []orchestrator.Source `json:"sources"`
	Outcome   orchestrator.Outcome  `json:"outcome"`
	Action    *actionView           `json:"action,omitempty"`
	Trace     []orchestrator.State  `json:"trace"`
}

func newActionView(res *action.Result) *actionView {
	if res == nil {
		return nil
	}
	v := &actionView{Name: res.Action, Outcome: res.Outcome, Arguments: res.Arguments, Payload: res.Payload}
	if res.Err != nil {
		v.Error = res.Err.Error()
		var verr *action.ValidationError
		if errors.As(res.Err, &verr) {
			v.Fields = verr.Fields
		}
	}
	return v
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.SessionID != "" {
		if _, err := s.desk.Session(req.SessionID); err == nil {
			s.respondError(w, http.StatusConflict, "session already exists")
			return
		}
	}
	sess := s.desk.NewSession(req.SessionID)
	s.respondJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.desk.Session(id); err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.desk.DeleteSession(id)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	b, err := s.desk.Ask(r.Context(), id, req.Message)
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{
		SessionID: id,
		Answer:    b.Answer,
		Sources:   b.Sources,
		Outcome:   b.Outcome,
		Action:    newActionView(b.Action),
		Trace:     b.Trace,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	max := 0
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "max must be an integer")
			return
		}
		max = n
	}
	turns, err := s.desk.History(id, max)
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": turns})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.desk.Reset(id); err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold == nil {
		s.respondError(w, http.StatusBadRequest, "threshold is required")
		return
	}
	if err := s.desk.SetThreshold(id, *req.Threshold); err != nil {
		if errors.Is(err, retrieval.ErrInvalidThreshold) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "threshold": *req.Threshold})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}
	articles, err := s.desk.RelevantArticles(r.Context(), q, k)
	if err != nil {
		s.logger.Error("server.articles.failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, retrieval.ErrUninitialized) || errors.Is(err, retrieval.ErrEmptyStore) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "articles": articles})
}

func (s *Server) handleTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.desk.Ticket(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ticket.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		s.logger.Error("server.ticket.failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	info, ok := s.desk.Index()
	if !ok {
		s.respondError(w, http.StatusNotFound, "index not built")
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	info, err := s.desk.RebuildIndex(r.Context())
	if err != nil {
		s.logger.Error("server.index.rebuild_failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, ok := s.desk.Index()
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "index_loaded": ok})
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error("server.request.failed", "error", err)
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("server.encode.failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
