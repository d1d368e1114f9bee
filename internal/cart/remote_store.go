package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// RemoteRepository stores customer carts in user_carts.
type RemoteRepository struct {
	db *gorm.DB
}

func NewRemoteRepository(db *gorm.DB) *RemoteRepository {
	return &RemoteRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *RemoteRepository) WithTx(tx *gorm.DB) *RemoteRepository {
	if tx == nil {
		return r
	}
	return &RemoteRepository{db: tx}
}

func (r *RemoteRepository) SelectAllForUser(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	var rows []models.UserCart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFromRow(row))
	}
	return lines, nil
}

func (r *RemoteRepository) Insert(ctx context.Context, userID uuid.UUID, line Line) error {
	row := rowFromLine(userID, line)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *RemoteRepository) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserCart{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RemoteRepository) DeleteByKey(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.UserCart{}).Error
}

func (r *RemoteRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UserCart{}).Error
}

func (r *RemoteRepository) ReplaceAll(ctx context.Context, userID uuid.UUID, lines []Line) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserCart{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		rows := make([]models.UserCart, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, rowFromLine(userID, l))
		}
		return tx.Create(&rows).Error
	})
}

func rowFromLine(userID uuid.UUID, l Line) models.UserCart {
	return models.UserCart{
		UserID:         userID,
		ProductID:      l.Product.ID,
		Quantity:       l.Quantity,
		ProductName:    l.Product.Name,
		Slug:           l.Product.Slug,
		Price:          l.Product.Price,
		CompareAtPrice: l.Product.CompareAtPrice,
		Image:          l.Product.Image,
		Description:    l.Product.Description,
		Category:       l.Product.Category,
		InStock:        l.Product.InStock,
	}
}

func lineFromRow(row models.UserCart) Line {
	return Line{
		Product: ProductSnapshot{
			ID:             row.ProductID,
			Name:           row.ProductName,
			Slug:           row.Slug,
			Price:          row.Price,
			CompareAtPrice: row.CompareAtPrice,
			Image:          row.Image,
			Description:    row.Description,
			Category:       row.Category,
			InStock:        row.InStock,
		},
		Quantity: row.Quantity,
	}
}
