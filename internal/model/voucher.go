package model

import (
	"time"

	"github.com/google/uuid"
)

// Voucher types.
// Delivery vouchers are owned by a product, withdrawal vouchers by a sortie.
const (
	VoucherDelivery   = "delivery"
	VoucherWithdrawal = "withdrawal"
)

// Voucher (bon) is the scanned evidence of a delivery or a withdrawal.
// Exactly one of ProductID / SortieID is set.
type Voucher struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ImageRef     string     `gorm:"not null"`
	Type         string     `gorm:"type:varchar(20);not null;default:'delivery'"`
	VoucherDate  time.Time  `gorm:"not null;index"`
	ProductID    *uuid.UUID `gorm:"type:uuid;index"`
	SortieID     *uuid.UUID `gorm:"type:uuid;index"`
	SupplierName *string
	CreatedAt    time.Time
}

// ProductVoucher links a delivery voucher to every product it evidences.
type ProductVoucher struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	VoucherID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (ProductVoucher) TableName() string { return "product_vouchers" }
