package repository

import (
	"context"
	"time"

	"economat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoucherRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	// SearchByDate returns the vouchers dated on the calendar day of day.
	SearchByDate(ctx context.Context, day time.Time) ([]model.Voucher, error)

	CreateTx(tx *gorm.DB, v *model.Voucher) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Voucher, error)
	UpdateTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	DeleteTx(tx *gorm.DB, ids ...uuid.UUID) error

	ListBySortieTx(tx *gorm.DB, sortieID uuid.UUID) ([]model.Voucher, error)
	// ListByProductTx returns vouchers owned by or linked to the product.
	ListByProductTx(tx *gorm.DB, productID uuid.UUID) ([]model.Voucher, error)

	LinkTx(tx *gorm.DB, voucherID uuid.UUID, productIDs []uuid.UUID) error
	UnlinkProductTx(tx *gorm.DB, productID uuid.UUID) error
	LinkedProductIDsTx(tx *gorm.DB, voucherID uuid.UUID) ([]uuid.UUID, error)
	ReassignOwnerTx(tx *gorm.DB, voucherID, productID uuid.UUID) error
}

type voucherRepo struct{ db *gorm.DB }

func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepo{db: db}
}

func (r *voucherRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	var v model.Voucher
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	return &v, err
}

func (r *voucherRepo) SearchByDate(ctx context.Context, day time.Time) ([]model.Voucher, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var vouchers []model.Voucher
	err := r.db.WithContext(ctx).
		Where("voucher_date >= ? AND voucher_date < ?", start, start.AddDate(0, 0, 1)).
		Order("voucher_date ASC").Find(&vouchers).Error
	return vouchers, err
}

func (r *voucherRepo) CreateTx(tx *gorm.DB, v *model.Voucher) error {
	return tx.Create(v).Error
}

func (r *voucherRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Voucher, error) {
	var v model.Voucher
	err := tx.First(&v, "id = ?", id).Error
	return &v, err
}

func (r *voucherRepo) UpdateTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	res := tx.Model(&model.Voucher{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *voucherRepo) DeleteTx(tx *gorm.DB, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("voucher_id IN ?", ids).Delete(&model.ProductVoucher{}).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.Sortie{}).Where("voucher_id IN ?", ids).Update("voucher_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.Voucher{}).Error
}

func (r *voucherRepo) ListBySortieTx(tx *gorm.DB, sortieID uuid.UUID) ([]model.Voucher, error) {
	var vouchers []model.Voucher
	err := tx.Where("sortie_id = ?", sortieID).Order("created_at ASC").Find(&vouchers).Error
	return vouchers, err
}

func (r *voucherRepo) ListByProductTx(tx *gorm.DB, productID uuid.UUID) ([]model.Voucher, error) {
	var vouchers []model.Voucher
	err := tx.Where("product_id = ? OR id IN (?)", productID,
		tx.Model(&model.ProductVoucher{}).Select("voucher_id").Where("product_id = ?", productID)).
		Find(&vouchers).Error
	return vouchers, err
}

func (r *voucherRepo) LinkTx(tx *gorm.DB, voucherID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	links := make([]model.ProductVoucher, 0, len(productIDs))
	for _, pid := range productIDs {
		links = append(links, model.ProductVoucher{ProductID: pid, VoucherID: voucherID})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func (r *voucherRepo) UnlinkProductTx(tx *gorm.DB, productID uuid.UUID) error {
	return tx.Where("product_id = ?", productID).Delete(&model.ProductVoucher{}).Error
}

func (r *voucherRepo) LinkedProductIDsTx(tx *gorm.DB, voucherID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.Model(&model.ProductVoucher{}).Where("voucher_id = ?", voucherID).
		Order("product_id").Pluck("product_id", &ids).Error
	return ids, err
}

func (r *voucherRepo) ReassignOwnerTx(tx *gorm.DB, voucherID, productID uuid.UUID) error {
	return tx.Model(&model.Voucher{}).Where("id = ?", voucherID).Update("product_id", productID).Error
}
