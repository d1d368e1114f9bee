package middleware

import (
	"net/http"
	"strings"

	"github.com/peersenco/storefront-backend/api/responses"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
)

// CartSessionHeader carries the client generated device id.
const CartSessionHeader = "X-Cart-Session"

const maxCartSessionLength = 128

// CartSession reads X-Cart-Session into the context. When required is set a
// missing header is a 400; otherwise the request continues without one.
func CartSession(required bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if id == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, CartSessionHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if len(id) > maxCartSessionLength || strings.ContainsAny(id, " \t\r\n:") {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+CartSessionHeader+" header"))
				return
			}

			ctx := WithCartSession(r.Context(), id)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
