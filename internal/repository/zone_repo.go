package repository

import (
	"context"
	"errors"

	"economat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ZoneRepository is the read side of the zone collaborator, plus the
// idempotent insert used by the seeding tool.
type ZoneRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Zone, error)
	List(ctx context.Context) ([]model.Zone, error)
	EnsureByName(ctx context.Context, name string) (*model.Zone, bool, error)
}

type zoneRepository struct{ db *gorm.DB }

func NewZoneRepository(db *gorm.DB) ZoneRepository {
	return &zoneRepository{db: db}
}

func (r *zoneRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Zone{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *zoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	var z model.Zone
	err := r.db.WithContext(ctx).First(&z, "id = ?", id).Error
	return &z, err
}

func (r *zoneRepository) List(ctx context.Context) ([]model.Zone, error) {
	var list []model.Zone
	err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error
	return list, err
}

// EnsureByName returns the zone called name, creating it when missing.
// The boolean reports whether a row was created.
func (r *zoneRepository) EnsureByName(ctx context.Context, name string) (*model.Zone, bool, error) {
	var z model.Zone
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&z).Error
	if err == nil {
		return &z, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	z = model.Zone{Name: name}
	if err := r.db.WithContext(ctx).Create(&z).Error; err != nil {
		return nil, false, err
	}
	return &z, true, nil
}
