package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/peersenco/storefront-backend/api/middleware"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
)

// userIDFromRequest returns the authenticated caller; routes using it sit
// behind middleware.Auth.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
