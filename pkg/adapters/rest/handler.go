package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/quire/pkg/core"
)

// maxRequestBody caps the size of a note body accepted by the Handler.
const maxRequestBody = 8 << 20

// Handler serves the notes REST API from a core.Store.
type Handler struct {
	store  core.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for request failures.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler over store.
func NewHandler(store core.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("GET /notes", h.list)
	h.mux.HandleFunc("POST /notes", h.create)
	h.mux.HandleFunc("GET /notes/{id}", h.get)
	h.mux.HandleFunc("PUT /notes/{id}", h.update)
	h.mux.HandleFunc("PUT /notes/{id}/trash", h.trash)
	h.mux.HandleFunc("PUT /notes/{id}/restore", h.restore)
	h.mux.HandleFunc("DELETE /notes/{id}", h.purge)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// GET /notes
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	notes, err := h.store.List(r.Context(), cred)
	if err != nil {
		h.fail(w, core.OpList, err)
		return
	}
	out := make([]wireNote, 0, len(notes))
	for _, n := range notes {
		out = append(out, toWire(n))
	}
	h.jsonResponse(w, out, http.StatusOK)
}

// GET /notes/{id}
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	note, err := h.store.Get(r.Context(), cred, r.PathValue("id"))
	if err != nil {
		h.fail(w, core.OpGet, err)
		return
	}
	h.jsonResponse(w, toWire(note), http.StatusOK)
}

// POST /notes
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	p, ok := h.patch(w, r)
	if !ok {
		return
	}
	note, err := h.store.Create(r.Context(), cred, p)
	if err != nil {
		h.fail(w, core.OpCreate, err)
		return
	}
	h.jsonResponse(w, toWire(note), http.StatusCreated)
}

// PUT /notes/{id}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	p, ok := h.patch(w, r)
	if !ok {
		return
	}
	note, err := h.store.Update(r.Context(), cred, r.PathValue("id"), p)
	if err != nil {
		h.fail(w, core.OpUpdate, err)
		return
	}
	h.jsonResponse(w, toWire(note), http.StatusOK)
}

// PUT /notes/{id}/trash
func (h *Handler) trash(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, core.OpTrash, h.store.Trash, "Note moved to trash")
}

// PUT /notes/{id}/restore
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, core.OpRestore, h.store.Restore, "Note restored")
}

// DELETE /notes/{id}
func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, core.OpPurge, h.store.Purge, "Note permanently deleted")
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, op core.Op,
	fn func(ctx context.Context, credential, id string) error, done string) {
	cred, ok := h.credential(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), cred, r.PathValue("id")); err != nil {
		h.fail(w, op, err)
		return
	}
	h.jsonResponse(w, errorBody{Message: done}, http.StatusOK)
}

// --- Helper methods ---

func (h *Handler) credential(w http.ResponseWriter, r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		h.jsonError(w, "Not authorized, no token", http.StatusUnauthorized)
		return "", false
	}
	return token, true
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) (core.Patch, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return core.Patch{}, false
	}
	p, err := decodePatch(data)
	if err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return core.Patch{}, false
	}
	return p, true
}

func (h *Handler) fail(w http.ResponseWriter, op core.Op, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		h.jsonError(w, "Note not found", http.StatusNotFound)
	case errors.Is(err, core.ErrUnauthenticated):
		h.jsonError(w, "Not authorized, token failed", http.StatusUnauthorized)
	default:
		status := core.StatusOf(err)
		if status == 0 {
			status = http.StatusInternalServerError
		}
		h.logger.Error("request failed", "op", op, "status", status, "error", err)
		h.jsonError(w, core.MessageOf(err), status)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, errorBody{Message: message}, status)
}
