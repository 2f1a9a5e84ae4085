// Package handlers provides HTTP handlers for indicator preview
// evaluation.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
	"github.com/quantblocks/quantblocks/internal/modules/preview"
)

// maxCandles bounds preview payloads; a few years of daily bars is plenty
// for an editor overlay.
const maxCandles = 5000

// Handler handles preview HTTP requests.
type Handler struct {
	service *preview.Service
	log     zerolog.Logger
}

// NewHandler creates a new preview handler.
func NewHandler(service *preview.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "preview").Logger(),
	}
}

type previewRequest struct {
	Indicator *builder.IndicatorBlock `json:"indicator"`
	Candles   []preview.Candle        `json:"candles"`
}

// HandleIndicator handles POST /api/preview/indicator.
func (h *Handler) HandleIndicator(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Indicator == nil {
		h.writeError(w, http.StatusBadRequest, "Missing indicator block")
		return
	}
	if len(req.Candles) == 0 {
		h.writeError(w, http.StatusBadRequest, "No candles provided")
		return
	}
	if len(req.Candles) > maxCandles {
		h.writeError(w, http.StatusBadRequest, "Too many candles (max 5000)")
		return
	}

	series, err := h.service.Evaluate(req.Indicator, req.Candles)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, series)
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
