package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserAddress struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Label        *string   `gorm:"column:label"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name;not null"`
	AddressLine1 string    `gorm:"column:address_line1;not null"`
	AddressLine2 *string   `gorm:"column:address_line2"`
	PostalCode   string    `gorm:"column:postal_code;not null"`
	City         string    `gorm:"column:city;not null"`
	Country      string    `gorm:"column:country;not null;default:'Norge'"`
	Phone        *string   `gorm:"column:phone"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserAddress) TableName() string { return "user_addresses" }

func (a *UserAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
