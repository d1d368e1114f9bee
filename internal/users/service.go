package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
)

// UpdateProfileInput carries the editable profile fields. Nil leaves a field
// unchanged; an empty phone clears it.
type UpdateProfileInput struct {
	FullName *string
	Phone    *string
}

// ProfileService reads and edits the signed-in user's profile.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

type profileService struct {
	repo *Repository
}

func NewProfileService(repo *Repository) (ProfileService, error) {
	if repo == nil {
		return nil, errors.New("user repository required")
	}
	return &profileService{repo: repo}, nil
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	fullName := user.FullName
	if input.FullName != nil {
		fullName = strings.TrimSpace(*input.FullName)
	}
	phone := user.Phone
	if input.Phone != nil {
		trimmed := strings.TrimSpace(*input.Phone)
		if trimmed == "" {
			phone = nil
		} else {
			phone = &trimmed
		}
	}

	if err := s.repo.UpdateProfile(ctx, userID, fullName, phone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	user.FullName = fullName
	user.Phone = phone
	return FromModel(user), nil
}
