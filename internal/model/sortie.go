package model

import (
	"time"

	"github.com/google/uuid"
)

// Sortie is a dated withdrawal of goods from stock.
// Applied is true while the line items are debited from their products;
// an update that failed halfway leaves it false with the old items kept.
type Sortie struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Date       time.Time `gorm:"not null;index"`
	IssuerName string    `gorm:"not null;default:''"`
	VoucherID  *uuid.UUID `gorm:"type:uuid"`
	Applied    bool       `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items   []SortieItem `gorm:"foreignKey:SortieID"`
	Voucher *Voucher     `gorm:"foreignKey:VoucherID"`
}

// SortieItem is one (product, quantity) line of a Sortie.
type SortieItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SortieID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Position  int       `gorm:"not null"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity  int       `gorm:"not null"`
	// ProductName is a snapshot taken when the line was debited.
	ProductName string `gorm:"not null"`
}
