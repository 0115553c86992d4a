// File: internal/infra/web/handlers.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/infra/logging"
	"qualitative-interview/internal/usecase"
)

const genericFailure = "The interviewer is unavailable right now. Please try again."

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageView struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionView struct {
	SessionID string        `json:"session_id"`
	Username  string        `json:"username"`
	State     string        `json:"state"`
	Messages  []messageView `json:"messages"`
}

func viewOf(s *model.Session) sessionView {
	hist := s.History()
	out := sessionView{
		SessionID: s.ID,
		Username:  s.Username,
		State:     string(s.Status()),
		Messages:  make([]messageView, 0, len(hist)),
	}
	for _, m := range hist {
		out.Messages = append(out.Messages, messageView{Seq: m.Seq, Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// classify maps domain errors to what the respondent may see. Backend
// detail stays in the logs.
func classify(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, errorResponse{"invalid_argument", "Please enter a message."}
	case errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest, errorResponse{"invalid_identity", "Invalid username."}
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusConflict, errorResponse{"already_completed", "Interview already completed."}
	case errors.Is(err, domain.ErrSessionNotActive):
		return http.StatusConflict, errorResponse{"not_active", "The interview has ended."}
	case errors.Is(err, domain.ErrTurnInProgress):
		return http.StatusConflict, errorResponse{"turn_in_progress", "Please wait for the current reply to finish."}
	case errors.Is(err, domain.ErrNothingToRetry):
		return http.StatusConflict, errorResponse{"nothing_to_retry", "There is no unanswered message to retry."}
	case errors.Is(err, domain.ErrBackendTimeout):
		return http.StatusGatewayTimeout, errorResponse{"backend_timeout", genericFailure}
	case errors.Is(err, domain.ErrBackend), errors.Is(err, domain.ErrEmptyReply):
		return http.StatusBadGateway, errorResponse{"backend_failure", genericFailure}
	case errors.Is(err, domain.ErrNotDurable):
		return http.StatusServiceUnavailable, errorResponse{"not_saved", "Your interview could not be saved yet. Please contact the research team."}
	default:
		return http.StatusInternalServerError, errorResponse{"internal", "Something went wrong."}
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= 500 {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeJSON(w, http.StatusOK, map[string]string{"username": s.testIdentity})
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "Invalid request body.")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !model.ValidUsername(req.Username) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "User or password incorrect")
		return
	}
	if s.limiter != nil {
		ok, retry, err := s.limiter.Allow(r.Context(), req.Username)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("login limiter unavailable")
		} else if !ok {
			if secs := int(math.Ceil(retry.Seconds())); secs > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please try again later.")
			return
		}
	}
	if !s.auth.Verify(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "User or password incorrect")
		return
	}
	token, err := s.auth.Mint(w, req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": req.Username, "token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Open(r.Context(), identity(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Current(r.Context(), identity(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	quit, err := s.iv.Quit(r.Context(), sess)
	if err != nil && !quit {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{"quit": quit, "state": string(sess.Status())}
	if quit {
		resp["message"] = s.quitMessage
	}
	if err != nil {
		// the quit is committed but not yet durable
		status, body := classify(err)
		logging.With(r.Context(), s.log).Error().Err(err).Msg("quit not durable")
		resp["error"] = body
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type turnRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.streamTurn(w, r, s.sessions.Open, func(sess *model.Session, onDelta usecase.DeltaFunc) (*usecase.TurnResult, error) {
		return s.iv.Start(r.Context(), sess, onDelta)
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "Invalid request body.")
		return
	}
	s.streamTurn(w, r, s.sessions.Current, func(sess *model.Session, onDelta usecase.DeltaFunc) (*usecase.TurnResult, error) {
		return s.iv.SubmitTurn(r.Context(), sess, req.Message, onDelta)
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.streamTurn(w, r, s.sessions.Current, func(sess *model.Session, onDelta usecase.DeltaFunc) (*usecase.TurnResult, error) {
		return s.iv.Retry(r.Context(), sess, onDelta)
	})
}

type turnEvent struct {
	Message messageView `json:"message"`
	State   string      `json:"state"`
	Outcome string      `json:"outcome,omitempty"`
}

type sessionLookup func(ctx context.Context, username string) (*model.Session, error)

// streamTurn runs one turn and streams it as server-sent events. Errors
// raised before the first event are plain JSON responses. Only the opening
// turn may look its session up with Open; later turns act on the current one.
func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, lookup sessionLookup, run func(*model.Session, usecase.DeltaFunc) (*usecase.TurnResult, error)) {
	sess, err := lookup(r.Context(), identity(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming not supported")
		return
	}
	sse := &sseStream{w: w, flusher: flusher}

	res, err := run(sess, func(text string) {
		_ = sse.event("delta", map[string]string{"text": text})
	})

	if err != nil && (res == nil || res.Noop) && !sse.started {
		s.fail(w, r, err)
		return
	}
	if res != nil && res.Noop && !sse.started {
		writeJSON(w, http.StatusOK, map[string]any{"noop": true, "state": string(res.State)})
		return
	}

	logger := logging.With(r.Context(), s.log)
	if res != nil && !res.Noop {
		ev := turnEvent{
			Message: messageView{Seq: res.Reply.Seq, Role: string(res.Reply.Role), Content: res.Reply.Content, CreatedAt: res.Reply.CreatedAt},
			State:   string(res.State),
		}
		name := "reply"
		if res.Code != nil {
			name = "closing"
			ev.Outcome = string(res.Code.Outcome)
		}
		if werr := sse.event(name, ev); werr != nil {
			logger.Warn().Err(werr).Msg("failed to write SSE event")
			return
		}
	}
	if err != nil {
		status, body := classify(err)
		if status >= 500 {
			logger.Error().Err(err).Msg("turn failed")
		}
		if werr := sse.event("error", body); werr != nil {
			logger.Warn().Err(werr).Msg("failed to write SSE error event")
		}
	}
}

// sseStream writes the event-stream headers with its first event.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseStream) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if err := writeSSE(s.w, name, string(data)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
