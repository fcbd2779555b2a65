package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement kinds.
const (
	MovementIntake       = "intake"
	MovementReplenish    = "replenish"
	MovementSortie       = "sortie"
	MovementSortieRevert = "sortie_revert"
)

// StockMovement records each quantity change of a product. Rows are never
// modified; they let operators reconcile adjustments whose originating record
// is missing.
type StockMovement struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind           string    `gorm:"type:varchar(20);not null"`
	Delta          int       `gorm:"not null"` // positive = in, negative = out
	QuantityBefore int       `gorm:"not null"`
	QuantityAfter  int       `gorm:"not null"`
	ReferenceID    *uuid.UUID `gorm:"type:uuid;index"` // sortie or voucher
	CreatedAt      time.Time
}

// TableName keeps the plural explicit.
func (StockMovement) TableName() string { return "stock_movements" }
