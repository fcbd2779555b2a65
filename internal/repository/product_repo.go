package repository

import (
	"context"
	"errors"
	"time"

	"economat/internal/dto"
	"economat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrGuardRejected is returned by guarded updates whose WHERE predicate matched
// no row: the product vanished or its quantity no longer covers the delta.
var ErrGuardRejected = errors.New("guarded update matched no row")

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	ListByZone(ctx context.Context, zoneID uuid.UUID) ([]model.Product, error)
	LowStock(ctx context.Context) ([]model.Product, error)
	ExpiringBefore(ctx context.Context, t time.Time) ([]model.Product, error)

	// Used inside transactions — callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)

	// AdjustQuantityTx adds delta to quantity and recomputes amount in a single
	// statement guarded by quantity + delta >= 0. It returns the row as written.
	AdjustQuantityTx(tx *gorm.DB, id uuid.UUID, delta int) (*model.Product, error)

	// UpdateMetadataTx writes the given columns. A unit_price change also
	// recomputes amount from the stored quantity.
	UpdateMetadataTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error

	// AddSupplierTx appends name to the suppliers list unless already present.
	AddSupplierTx(tx *gorm.DB, id uuid.UUID, name string) error

	CountSortieRefsTx(tx *gorm.DB, id uuid.UUID) (int64, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Zone").
		Preload("Vouchers", func(db *gorm.DB) *gorm.DB { return db.Order("voucher_date ASC") }).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.ZoneID != "" {
		q = q.Where("zone_id = ?", filter.ZoneID)
	}
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Zone").Order("name ASC").Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListByZone(ctx context.Context, zoneID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Preload("Zone").Preload("Vouchers").
		Where("zone_id = ?", zoneID).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) LowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("safety_threshold IS NOT NULL AND quantity <= safety_threshold").
		Order("quantity ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) ExpiringBefore(ctx context.Context, t time.Time) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("expiration_date IS NOT NULL AND expiration_date <= ? AND quantity > 0", t).
		Order("expiration_date ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) AdjustQuantityTx(tx *gorm.DB, id uuid.UUID, delta int) (*model.Product, error) {
	var rows []model.Product
	res := tx.Model(&rows).Clauses(clause.Returning{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", delta),
			"amount":   gorm.Expr("unit_price * (quantity + ?)", delta),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, ErrGuardRejected
	}
	return &rows[0], nil
}

func (r *productRepo) UpdateMetadataTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if price, ok := fields["unit_price"]; ok {
		fields["amount"] = gorm.Expr("? * quantity", price)
	}
	res := tx.Model(&model.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) AddSupplierTx(tx *gorm.DB, id uuid.UUID, name string) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).
		Update("suppliers", gorm.Expr(
			"CASE WHEN suppliers @> to_jsonb(ARRAY[?::text]) THEN suppliers ELSE suppliers || to_jsonb(ARRAY[?::text]) END",
			name, name)).Error
}

func (r *productRepo) CountSortieRefsTx(tx *gorm.DB, id uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.SortieItem{}).Where("product_id = ?", id).Count(&n).Error
	return n, err
}

func (r *productRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
