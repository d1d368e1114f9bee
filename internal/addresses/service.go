package addresses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

const DefaultCountry = "Norge"

// AddressDTO is the transport shape of a saved address.
type AddressDTO struct {
	ID           uuid.UUID `json:"id"`
	Label        *string   `json:"label,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 *string   `json:"address_line2,omitempty"`
	PostalCode   string    `json:"postal_code"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Phone        *string   `json:"phone,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AddressInput struct {
	Label        *string `json:"label,omitempty" validate:"omitempty,max=60"`
	FirstName    string  `json:"first_name" validate:"required,max=100"`
	LastName     string  `json:"last_name" validate:"required,max=100"`
	AddressLine1 string  `json:"address_line1" validate:"required,max=200"`
	AddressLine2 *string `json:"address_line2,omitempty" validate:"omitempty,max=200"`
	PostalCode   string  `json:"postal_code" validate:"required,numeric,len=4"`
	City         string  `json:"city" validate:"required,max=100"`
	Country      string  `json:"country,omitempty" validate:"omitempty,max=60"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	IsDefault    bool    `json:"is_default"`
}

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*AddressDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input AddressInput) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	repo *Repository
	tx   db.TxRunner
}

func NewService(repo *Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("address repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Create stores a new address. The first address of a user is always the
// default one.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*AddressDTO, error) {
	row := &models.UserAddress{UserID: userID}
	if err := apply(row, input); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count addresses")
		}
		row.IsDefault = input.IsDefault || count == 0
		if row.IsDefault && count > 0 {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input AddressInput) (*AddressDTO, error) {
	var row *models.UserAddress
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		wasDefault := found.IsDefault
		if err := apply(found, input); err != nil {
			return err
		}
		found.IsDefault = wasDefault || input.IsDefault
		if found.IsDefault && !wasDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
			}
		}
		if err := repo.Update(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
		}
		row = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

// SetDefault clears every default of the user then marks id, in one transaction.
func (s *service) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
		found, err := repo.MarkDefault(ctx, userID, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil
	})
}

func apply(row *models.UserAddress, input AddressInput) error {
	required := [][2]string{
		{"first_name", input.FirstName},
		{"last_name", input.LastName},
		{"address_line1", input.AddressLine1},
		{"postal_code", input.PostalCode},
		{"city", input.City},
	}
	for _, field := range required {
		if strings.TrimSpace(field[1]) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field[0]+" is required")
		}
	}
	country := strings.TrimSpace(input.Country)
	if country == "" {
		country = DefaultCountry
	}
	row.Label = trimmedPtr(input.Label)
	row.FirstName = strings.TrimSpace(input.FirstName)
	row.LastName = strings.TrimSpace(input.LastName)
	row.AddressLine1 = strings.TrimSpace(input.AddressLine1)
	row.AddressLine2 = trimmedPtr(input.AddressLine2)
	row.PostalCode = strings.TrimSpace(input.PostalCode)
	row.City = strings.TrimSpace(input.City)
	row.Country = country
	row.Phone = trimmedPtr(input.Phone)
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func toDTO(row models.UserAddress) AddressDTO {
	return AddressDTO{
		ID:           row.ID,
		Label:        row.Label,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		AddressLine1: row.AddressLine1,
		AddressLine2: row.AddressLine2,
		PostalCode:   row.PostalCode,
		City:         row.City,
		Country:      row.Country,
		Phone:        row.Phone,
		IsDefault:    row.IsDefault,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
