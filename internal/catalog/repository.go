// Package catalog is the read side of the product catalog used when pricing
// an order. Product CRUD lives elsewhere; Upsert exists for seeding.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Aidin1998/foodhub/common/dbutil"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

// Lookup resolves a product id to its current record.
type Lookup interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetProduct returns errors.NotFound for unknown or unavailable products.
func (r *Repository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, errors.NotFound.Explain("product id is empty")
	}
	p, err := dbutil.FindOne[models.Product](r.db.WithContext(ctx).Where(&models.Product{ID: id}))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("product %s not found", id)
		}
		return nil, err
	}
	if !p.IsAvailable {
		return nil, errors.NotFound.Explain("product %s is not available", id)
	}
	return p, nil
}

// Upsert inserts or replaces a product.
func (r *Repository) Upsert(ctx context.Context, p *models.Product) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "is_available", "updated_at"}),
	}).Create(p).Error
	return dbutil.WrapError(err)
}

// UpdatePrice changes the current price. Existing orders keep their snapshot.
func (r *Repository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where(&models.Product{ID: id}).
		Update("price", price)
	if res.Error != nil {
		return dbutil.WrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound.Explain("product %s not found", id)
	}
	return nil
}
