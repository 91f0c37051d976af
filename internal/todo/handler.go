package todo

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
)

// Handler contains dependencies for handling todo endpoints. All routes
// sit behind RequireAuth.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type createRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Completed   json.RawMessage `json:"completed"`
	DueDate     json.RawMessage `json:"dueDate"`
}

type updateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Completed   json.RawMessage `json:"completed"`
	DueDate     json.RawMessage `json:"dueDate"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	todos, err := h.svc.List(r.Context(), token.SubjectFrom(r.Context()))
	if err != nil {
		h.writeError(w, "list todos failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Data: todos})
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	todos, err := h.svc.Recent(r.Context(), token.SubjectFrom(r.Context()), limit)
	if err != nil {
		h.writeError(w, "recent todos failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Data: todos})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), token.SubjectFrom(r.Context()))
	if err != nil {
		h.writeError(w, "todo stats failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Data: st})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := CreateInput{Title: req.Title, Description: req.Description}
	completed, err := parseCompleted(req.Completed)
	if err != nil {
		h.writeError(w, "create todo failed", err)
		return
	}
	if completed != nil {
		in.Completed = *completed
	}
	if in.DueDate, _, err = parseDueDateField(req.DueDate); err != nil {
		h.writeError(w, "create todo failed", err)
		return
	}
	t, err := h.svc.Create(r.Context(), token.SubjectFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, "create todo failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, response{Success: true, Data: t})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), token.SubjectFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "get todo failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Data: t})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := Patch{Title: req.Title, Description: req.Description}
	var err error
	if p.Completed, err = parseCompleted(req.Completed); err != nil {
		h.writeError(w, "update todo failed", err)
		return
	}
	if p.DueDate, p.ClearDueDate, err = parseDueDateField(req.DueDate); err != nil {
		h.writeError(w, "update todo failed", err)
		return
	}
	t, err := h.svc.Update(r.Context(), token.SubjectFrom(r.Context()), r.PathValue("id"), p)
	if err != nil {
		h.writeError(w, "update todo failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Todo Updated Successfully", Data: t})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), token.SubjectFrom(r.Context()), r.PathValue("id")); err != nil {
		h.writeError(w, "delete todo failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Todo deleted successfully"})
}

var jsonNull = []byte("null")

// parseCompleted returns nil when the field is absent or null.
func parseCompleted(raw json.RawMessage) (*bool, error) {
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, ErrCompletedType
	}
	return &b, nil
}

// parseDueDateField distinguishes an absent field from an explicit null or
// empty string, which clears the due date.
func parseDueDateField(raw json.RawMessage) (due *time.Time, clearDue bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(raw, jsonNull) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, ErrDueDate
	}
	if s == "" {
		return nil, true, nil
	}
	t, err := ParseDueDate(s)
	if err != nil {
		return nil, false, err
	}
	return t, false, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid todo payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, response{Message: "Invalid request body."})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status, text := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	h.writeJSON(w, status, response{Message: text})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
