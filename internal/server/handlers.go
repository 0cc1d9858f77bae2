package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ajramos/inboxpilot/internal/conversation"
	"github.com/ajramos/inboxpilot/internal/services"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type commandBody struct {
	Command string `json:"command"`
}

type refineBody struct {
	RefinedReply string `json:"refinedReply"`
}

type busyBody struct {
	Error    string                `json:"error"`
	Snapshot conversation.Snapshot `json:"snapshot"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v, answering 400 itself on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmptyCommand),
		errors.Is(err, services.ErrNoSelection):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server errors carry what as
// the message and the cause as details.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error(what, zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, errorBody{Error: what, Details: err.Error()})
	case http.StatusUnauthorized:
		s.logger.Warn("gmail rejected credentials", zap.Error(err))
		writeJSON(w, status, errorBody{Error: "Unauthorized"})
	default:
		writeJSON(w, status, errorBody{Error: err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	if !decode(w, r, &body) {
		return
	}
	command := strings.TrimSpace(body.Command)
	if command == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing 'command' in request body"})
		return
	}
	in := s.interpreter.Interpret(r.Context(), command)
	s.logger.Debug("interpreted", zap.String("action", in.Action.String()), zap.String("source", string(in.Source)))
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res, err := s.inbox.ListLatest(r.Context())
	if err != nil {
		s.fail(w, r, "Unexpected error while fetching emails", err)
		return
	}
	if res.Emails == nil {
		res.Emails = []conversation.EmailSummary{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req services.DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Keyword) == "" && strings.TrimSpace(req.MessageID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Provide a keyword or message ID to delete an email."})
		return
	}

	res, err := s.inbox.Delete(r.Context(), req)
	if err != nil {
		if res != nil && res.Reason != "" && statusFor(err) == http.StatusInternalServerError {
			s.logger.Error("trash failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, res)
			return
		}
		s.fail(w, r, "Unexpected error while deleting email", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req services.ReplyRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.ReplyText) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required fields: 'to', 'subject', or 'replyText'"})
		return
	}
	res, err := s.inbox.SendReply(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Failed to send reply", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req services.RefineRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CurrentReply) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing 'currentReply' in request body"})
		return
	}
	refined, err := s.inbox.RefineReply(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Unexpected error while refining reply", err)
		return
	}
	writeJSON(w, http.StatusOK, refineBody{RefinedReply: refined})
}

func (s *Server) handleChatState(w http.ResponseWriter, r *http.Request) {
	ctrl := s.session(w, r)
	writeJSON(w, http.StatusOK, ctrl.State().Snapshot())
}

func (s *Server) handleChatSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl := s.session(w, r)
	var body commandBody
	if !decode(w, r, &body) {
		return
	}
	snap, err := ctrl.Submit(r.Context(), body.Command)
	switch {
	case errors.Is(err, services.ErrEmptyCommand):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing 'command' in request body"})
	case errors.Is(err, services.ErrBusy):
		writeJSON(w, http.StatusConflict, busyBody{Error: err.Error(), Snapshot: snap})
	case err != nil:
		s.fail(w, r, "Unexpected error while running command", err)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleChatSelect(w http.ResponseWriter, r *http.Request) {
	ctrl := s.session(w, r)
	var body struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if !ctrl.Select(body.ID) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "No loaded email with that id"})
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State().Snapshot())
}

func (s *Server) handleChatReply(w http.ResponseWriter, r *http.Request) {
	ctrl := s.session(w, r)
	var body struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &body) {
		return
	}
	res, err := ctrl.SendReply(r.Context(), body.Text)
	if err != nil {
		s.fail(w, r, "Failed to send reply", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChatRefine(w http.ResponseWriter, r *http.Request) {
	ctrl := s.session(w, r)
	var body struct {
		Instructions string `json:"instructions"`
	}
	if !decode(w, r, &body) {
		return
	}
	refined, err := ctrl.RefineReply(r.Context(), body.Instructions)
	if err != nil {
		s.fail(w, r, "Unexpected error while refining reply", err)
		return
	}
	writeJSON(w, http.StatusOK, refineBody{RefinedReply: refined})
}
