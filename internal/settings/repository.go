// Package settings is the key/value configuration store the order core reads
// through getSetting. Values are read on every request and never cached so
// that an operator toggling the store mode takes effect immediately.
package settings

import (
	"context"
	"time"

	"github.com/Aidin1998/foodhub/common/dbutil"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys.
const (
	KeyStoreMode        = "store_mode"
	KeyWorkStart        = "work_start"
	KeyWorkEnd          = "work_end"
	KeyBreakStart       = "break_start"
	KeyBreakEnd         = "break_end"
	KeyPhone            = "phone"
	KeyTimezone         = "store_timezone"
	KeyDeliveryPrice    = "delivery_price"
	KeyFreeDeliveryFrom = "free_delivery_from"
	KeyMinOrder         = "min_order"
)

// "key" is a keyword in some dialects, so it is always passed as a quoted column.
var byKey = clause.OrderByColumn{Column: clause.Column{Name: "key"}}

// Getter is the read side consumed by the order core.
type Getter interface {
	// GetSetting returns the value and whether the key exists.
	GetSetting(ctx context.Context, key string) (string, bool, error)
	// GetSettings returns the subset of keys that exist.
	GetSettings(ctx context.Context, keys ...string) (map[string]string, error)
}

// Repository implements Getter on top of gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetSetting implements Getter.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var s models.Setting
	res := r.db.WithContext(ctx).Where(&models.Setting{Key: key}).Limit(1).Find(&s)
	if res.Error != nil {
		return "", false, dbutil.WrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return s.Value, true, nil
}

// GetSettings implements Getter.
func (r *Repository) GetSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	var rows []models.Setting
	q := r.db.WithContext(ctx)
	if len(keys) > 0 {
		q = q.Where(map[string]any{"key": keys})
	}
	if err := q.Order(byKey).Find(&rows).Error; err != nil {
		return nil, dbutil.WrapError(err)
	}
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Key] = s.Value
	}
	return out, nil
}

// List returns all settings ordered by key.
func (r *Repository) List(ctx context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Order(byKey).Find(&rows).Error; err != nil {
		return nil, dbutil.WrapError(err)
	}
	return rows, nil
}

// Set upserts a setting.
func (r *Repository) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	if key == "" {
		return nil, errors.Invalid.Explain("setting key is required")
	}
	s := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return nil, dbutil.WrapError(err)
	}
	return s, nil
}
