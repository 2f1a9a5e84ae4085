// Package handlers provides HTTP handlers for strategy CRUD, validation,
// compilation and preview.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
	"github.com/quantblocks/quantblocks/internal/modules/strategies"
)

// maxBodyBytes bounds request bodies; strategy trees are small by
// construction (indicator and depth limits).
const maxBodyBytes = 1 << 20

// Handler handles strategy HTTP requests.
type Handler struct {
	service *strategies.Service
	log     zerolog.Logger
}

// NewHandler creates a new strategies handler.
func NewHandler(service *strategies.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "strategies").Logger(),
	}
}

// strategyRequest is the body of save/update/compile requests.
type strategyRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Strategy    *builder.Strategy `json:"strategy"`
}

// savedResponse combines the persisted record with its validation result.
type savedResponse struct {
	*strategies.Record
	Validation builder.Result `json:"validation"`
}

// HandleList handles GET /api/strategies.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list strategies")
		h.writeError(w, http.StatusInternalServerError, "Failed to list strategies")
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// HandleGet handles GET /api/strategies/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Get(id)
	if errors.Is(err, strategies.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Strategy not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to load strategy")
		h.writeError(w, http.StatusInternalServerError, "Failed to load strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST /api/strategies. Saves are gated on a clean
// validation result; an invalid tree returns 422 with the full result so
// the editor can show every violation.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeStrategyRequest(w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "Strategy name is required")
		return
	}

	rec, res, err := h.service.Save(req.Name, req.Description, req.Strategy)
	if errors.Is(err, strategies.ErrInvalid) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"validation": res})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save strategy")
		h.writeError(w, http.StatusInternalServerError, "Failed to save strategy")
		return
	}

	h.writeJSON(w, http.StatusCreated, savedResponse{Record: rec, Validation: res})
}

// HandleUpdate handles PUT /api/strategies/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, ok := h.decodeStrategyRequest(w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "Strategy name is required")
		return
	}

	rec, res, err := h.service.Update(id, req.Name, req.Description, req.Strategy)
	if errors.Is(err, strategies.ErrInvalid) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"validation": res})
		return
	}
	if errors.Is(err, strategies.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Strategy not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to update strategy")
		h.writeError(w, http.StatusInternalServerError, "Failed to update strategy")
		return
	}

	h.writeJSON(w, http.StatusOK, savedResponse{Record: rec, Validation: res})
}

// HandleDelete handles DELETE /api/strategies/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.service.Delete(id)
	if errors.Is(err, strategies.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Strategy not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete strategy")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete strategy")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleValidate handles POST /api/strategies/validate. Runs on every edit
// in the editor, so it does nothing but validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeStrategyRequest(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Validate(req.Strategy))
}

// HandleCompile handles POST /api/strategies/compile: the editor's JSON
// preview. Compilation never fails on shape, so the response always carries
// a document; the validation result says whether it is executable.
func (h *Handler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeStrategyRequest(w, r)
	if !ok {
		return
	}

	doc, res := h.service.Compile(req.Strategy, req.Name, req.Description)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"dsl":        doc,
		"validation": res,
	})
}

// HandleDescribe handles POST /api/strategies/describe.
func (h *Handler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeStrategyRequest(w, r)
	if !ok {
		return
	}

	entry, exit := h.service.Describe(req.Strategy)
	h.writeJSON(w, http.StatusOK, map[string]string{
		"entry": entry,
		"exit":  exit,
	})
}

// HandleExport handles GET /api/strategies/{id}/export. The bundle is a
// msgpack envelope suitable for download and later import.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := h.service.Export(id)
	if errors.Is(err, strategies.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Strategy not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to export strategy")
		h.writeError(w, http.StatusInternalServerError, "Failed to export strategy")
		return
	}

	w.Header().Set("Content-Type", "application/x-msgpack")
	w.Header().Set("Content-Disposition", `attachment; filename="strategy.qbx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export response")
	}
}

// HandleImport handles POST /api/strategies/import with a msgpack bundle
// body. The bundled tree is re-validated and recompiled on the way in.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	rec, res, err := h.service.Import(data)
	if errors.Is(err, strategies.ErrInvalid) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"validation": res})
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("Rejected strategy import")
		h.writeError(w, http.StatusBadRequest, "Invalid strategy bundle: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, savedResponse{Record: rec, Validation: res})
}

// decodeStrategyRequest parses the shared request body and ensures a tree
// is present.
func (h *Handler) decodeStrategyRequest(w http.ResponseWriter, r *http.Request) (*strategyRequest, bool) {
	var req strategyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if req.Strategy == nil {
		h.writeError(w, http.StatusBadRequest, "Missing strategy tree")
		return nil, false
	}
	return &req, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
