package repository

import (
	"context"
	"time"

	"economat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockAlertRepository interface {
	Create(ctx context.Context, a *model.StockAlert) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockAlert, error)
	Update(ctx context.Context, a *model.StockAlert) error
	// ExistsSince reports whether an alert of kind was raised for the product
	// after since, whatever its delivery state.
	ExistsSince(ctx context.Context, productID uuid.UUID, kind string, since time.Time) (bool, error)
	// ListDue returns pending alerts whose next_retry_at has passed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.StockAlert, error)
	ListRecent(ctx context.Context, limit int) ([]model.StockAlert, error)
}

type stockAlertRepo struct{ db *gorm.DB }

func NewStockAlertRepository(db *gorm.DB) StockAlertRepository {
	return &stockAlertRepo{db: db}
}

func (r *stockAlertRepo) Create(ctx context.Context, a *model.StockAlert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *stockAlertRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockAlert, error) {
	var a model.StockAlert
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *stockAlertRepo) Update(ctx context.Context, a *model.StockAlert) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *stockAlertRepo) ExistsSince(ctx context.Context, productID uuid.UUID, kind string, since time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.StockAlert{}).
		Where("product_id = ? AND kind = ? AND created_at >= ?", productID, kind, since).
		Count(&n).Error
	return n > 0, err
}

func (r *stockAlertRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.StockAlert, error) {
	var alerts []model.StockAlert
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.AlertPending, now).
		Order("next_retry_at ASC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

func (r *stockAlertRepo) ListRecent(ctx context.Context, limit int) ([]model.StockAlert, error) {
	var alerts []model.StockAlert
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}
