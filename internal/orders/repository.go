package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Aidin1998/foodhub/common/dbutil"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

// Filter narrows ListOrders. Zero values mean no constraint.
type Filter struct {
	Phone  string
	Status models.OrderStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository persists orders with gorm.
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

// Create inserts the order together with its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return dbutil.WrapError(r.db.WithContext(ctx).Create(order).Error)
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.Order, error) {
	order, err := dbutil.FindOne[models.Order](
		r.db.WithContext(ctx).Preload("Items", orderItems).Where("id = ?", id),
	)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("order %d not found", id)
		}
		return nil, err
	}
	return order, nil
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items", orderItems)
	if f.Phone != "" {
		q = q.Where("customer_phone = ?", f.Phone)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []models.Order
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(f.Offset).
		Find(&out).Error
	if err != nil {
		return nil, dbutil.WrapError(err)
	}
	return out, nil
}

// CompareAndSwapStatus moves the order from -> to only if its stored status
// still equals from, and records the transition. It reports false without
// error when the stored status differed or the order is gone.
func (r *Repository) CompareAndSwapStatus(ctx context.Context, id uint64, from, to models.OrderStatus, actor string, at time.Time) (bool, error) {
	swapped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": to, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		swapped = true
		return tx.Create(&models.StatusTransition{
			OrderID:   id,
			From:      from,
			To:        to,
			Actor:     actor,
			CreatedAt: at,
		}).Error
	})
	if err != nil {
		return false, dbutil.WrapError(err)
	}
	return swapped, nil
}

// Transitions returns the audit trail of an order, oldest first.
func (r *Repository) Transitions(ctx context.Context, orderID uint64) ([]models.StatusTransition, error) {
	var out []models.StatusTransition
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&out).Error
	return out, dbutil.WrapError(err)
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
