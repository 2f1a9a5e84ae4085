// Package live provides the websocket session backing the editor's
// edit/re-derive loop: the client pushes its current block tree on every
// edit and receives validation results, the compiled DSL preview and the
// natural-language summary back in one message.
package live

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
	"github.com/quantblocks/quantblocks/internal/modules/strategies"
)

// writeWait bounds how long a single response write may take.
const writeWait = 10 * time.Second

// Handler upgrades editor connections and serves the derive loop.
type Handler struct {
	service *strategies.Service
	log     zerolog.Logger
}

// NewHandler creates a new live session handler.
func NewHandler(service *strategies.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "live").Logger(),
	}
}

// editMessage is one tree push from the editor.
type editMessage struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Strategy    *builder.Strategy `json:"strategy"`
}

// deriveMessage is the server's response to one edit.
type deriveMessage struct {
	Validation builder.Result    `json:"validation"`
	DSL        *builder.Document `json:"dsl"`
	Entry      string            `json:"entrySummary"`
	Exit       string            `json:"exitSummary"`
	Error      string            `json:"error,omitempty"`
}

// ServeHTTP handles GET /api/strategies/live.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dashboard frontend may be served from a different origin in
		// development; CORS policy is handled at the router level.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended unexpectedly")

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Live session started")

	ctx := r.Context()
	for {
		var msg editMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				h.log.Debug().Msg("Live session closed")
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			h.log.Debug().Err(err).Msg("Live session read failed")
			conn.Close(websocket.StatusInvalidFramePayloadData, "unreadable edit message")
			return
		}

		response := h.derive(&msg)

		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := wsjson.Write(writeCtx, conn, response)
		cancel()
		if err != nil {
			h.log.Debug().Err(err).Msg("Live session write failed")
			return
		}
	}
}

// derive recomputes everything the editor displays from one tree push.
// Bad payloads produce an error message on the socket, never a dropped
// connection; the user may simply be mid-drag.
func (h *Handler) derive(msg *editMessage) deriveMessage {
	if msg.Strategy == nil {
		return deriveMessage{Error: "missing strategy tree"}
	}

	doc, res := h.service.Compile(msg.Strategy, msg.Name, msg.Description)
	entry, exit := h.service.Describe(msg.Strategy)

	return deriveMessage{
		Validation: res,
		DSL:        doc,
		Entry:      entry,
		Exit:       exit,
	}
}
