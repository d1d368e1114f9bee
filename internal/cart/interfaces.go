package cart

import (
	"context"

	"github.com/google/uuid"
)

// LocalStore keeps the guest cart of one device.
type LocalStore interface {
	// Read returns the stored cart. Missing or unreadable snapshots yield an
	// empty cart; an error means the store itself was unreachable.
	Read(ctx context.Context, sessionID string) (Cart, error)
	Write(ctx context.Context, sessionID string, c Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// RemoteStore keeps customer carts as rows keyed by (user, product).
type RemoteStore interface {
	SelectAllForUser(ctx context.Context, userID uuid.UUID) ([]Line, error)
	Insert(ctx context.Context, userID uuid.UUID, line Line) error
	// UpdateQuantity reports whether a row existed.
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (bool, error)
	DeleteByKey(ctx context.Context, userID, productID uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	// ReplaceAll swaps every row of the user for lines in one transaction.
	ReplaceAll(ctx context.Context, userID uuid.UUID, lines []Line) error
}

// ProductLookup resolves catalog products into cart snapshots.
type ProductLookup interface {
	SnapshotByID(ctx context.Context, productID uuid.UUID) (ProductSnapshot, error)
}
