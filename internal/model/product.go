package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Units of measure accepted for a product.
const (
	UnitKilogram = "kg"
	UnitGram     = "g"
	UnitPiece    = "unit"
	UnitLiter    = "liter"
	UnitMilliter = "ml"
)

// ValidUnit reports whether u is one of the accepted units of measure.
func ValidUnit(u string) bool {
	switch u {
	case UnitKilogram, UnitGram, UnitPiece, UnitLiter, UnitMilliter:
		return true
	}
	return false
}

// Product is a stock-keeping unit. Quantity is only ever changed through
// guarded SQL updates; Amount always equals UnitPrice * Quantity.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string          `gorm:"index;not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity        int             `gorm:"not null;default:0"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Unit            string          `gorm:"type:varchar(10);not null;default:'unit'"`
	SafetyThreshold *int
	ZoneID          *uuid.UUID `gorm:"type:uuid;index"`
	ExpirationDate  *time.Time
	// Suppliers accumulates supplier names across intakes and replenishments.
	Suppliers  datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"`
	PartNumber *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Zone     *Zone     `gorm:"foreignKey:ZoneID"`
	Vouchers []Voucher `gorm:"many2many:product_vouchers;"`
}

// ComputeAmount returns UnitPrice * Quantity.
func (p *Product) ComputeAmount() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// BelowThreshold reports whether the quantity has reached the safety threshold.
func (p *Product) BelowThreshold() bool {
	return p.SafetyThreshold != nil && p.Quantity <= *p.SafetyThreshold
}
