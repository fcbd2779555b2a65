package model

import "github.com/google/uuid"

// Zone is a storage area. Zones are managed elsewhere; this service only reads them.
type Zone struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `gorm:"uniqueIndex;not null"`
}
