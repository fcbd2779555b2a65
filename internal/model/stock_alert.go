package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert kinds and delivery states.
const (
	AlertLowStock = "low_stock"
	AlertExpiry   = "expiry"

	AlertPending = "pending"
	AlertSent    = "sent"
	AlertError   = "error"
)

// StockAlert is a notification about a product that reached its safety
// threshold or is about to expire. Delivery is retried by the scheduler.
type StockAlert struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind        string    `gorm:"type:varchar(20);not null"`
	Threshold   *int
	Quantity    int    `gorm:"not null"`
	Message     string `gorm:"not null"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'"`
	RetryCount  int    `gorm:"not null;default:0"`
	NextRetryAt *time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
