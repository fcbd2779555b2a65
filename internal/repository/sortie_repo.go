package repository

import (
	"context"

	"economat/internal/dto"
	"economat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SortieRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sortie, error)
	List(ctx context.Context, filter dto.SortieFilter) ([]model.Sortie, int64, error)

	CreateTx(tx *gorm.DB, s *model.Sortie) error
	// FindForUpdateTx loads the sortie with its items and locks the row until
	// the transaction ends, so two edits of one sortie queue behind each other.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sortie, error)
	// MarkRevertedTx flips applied from true to false and reports whether this
	// call did the flip.
	MarkRevertedTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	ReplaceItemsTx(tx *gorm.DB, id uuid.UUID, items []model.SortieItem) error
	UpdateTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	DB() *gorm.DB
}

type sortieRepo struct{ db *gorm.DB }

func NewSortieRepository(db *gorm.DB) SortieRepository { return &sortieRepo{db: db} }

func (r *sortieRepo) DB() *gorm.DB { return r.db }

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *sortieRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sortie, error) {
	var s model.Sortie
	err := r.db.WithContext(ctx).Preload("Items", orderedItems).Preload("Voucher").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *sortieRepo) List(ctx context.Context, filter dto.SortieFilter) ([]model.Sortie, int64, error) {
	var sorties []model.Sortie
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Sortie{})
	if filter.From != "" {
		q = q.Where("DATE(date) >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("DATE(date) <= ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items", orderedItems).Preload("Voucher").
		Order("date DESC, created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sorties).Error
	return sorties, total, err
}

func (r *sortieRepo) CreateTx(tx *gorm.DB, s *model.Sortie) error {
	return tx.Omit("Voucher").Create(s).Error
}

func (r *sortieRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sortie, error) {
	var s model.Sortie
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return &s, err
	}
	err = tx.Where("sortie_id = ?", id).Order("position ASC").Find(&s.Items).Error
	return &s, err
}

func (r *sortieRepo) MarkRevertedTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.Sortie{}).Where("id = ? AND applied = true", id).Update("applied", false)
	return res.RowsAffected == 1, res.Error
}

func (r *sortieRepo) ReplaceItemsTx(tx *gorm.DB, id uuid.UUID, items []model.SortieItem) error {
	if err := tx.Where("sortie_id = ?", id).Delete(&model.SortieItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SortieID = id
	}
	return tx.Create(&items).Error
}

func (r *sortieRepo) UpdateTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return tx.Model(&model.Sortie{}).Where("id = ?", id).Updates(fields).Error
}

func (r *sortieRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("sortie_id = ?", id).Delete(&model.SortieItem{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&model.Sortie{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
