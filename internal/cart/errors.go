package cart

import pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"

var (
	ErrInvalidQuantity = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	ErrMissingSession  = pkgerrors.New(pkgerrors.CodeValidation, "cart session id is required")
	ErrProductNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
)
