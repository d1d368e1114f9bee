package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/peersenco/storefront-backend/api/responses"
	"github.com/peersenco/storefront-backend/api/validators"
	"github.com/peersenco/storefront-backend/internal/chat"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
)

// Chat streams the assistant reply as plain text, flushing every chunk. Errors
// before the first byte use the JSON envelope; later errors end the stream.
func Chat(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		var payload chat.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Start(r.Context(), payload.Messages)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reply.Close()

		flusher, _ := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)

		for {
			chunk, err := reply.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if logg != nil && r.Context().Err() == nil {
					logg.Error(r.Context(), "chat.stream_failed", err)
				}
				return
			}
			if _, err := io.WriteString(w, chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
