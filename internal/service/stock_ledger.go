package service

import (
	"context"
	"errors"
	"fmt"

	"economat/internal/apierror"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockLine is a requested quantity for one product.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockLedger owns every quantity change of a product. Debits are validated
// against the current quantities first, then applied with guarded updates so
// the database refuses any write that would take a quantity below zero.
type StockLedger struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewStockLedger(products repository.ProductRepository, movements repository.StockMovementRepository) *StockLedger {
	return &StockLedger{products: products, movements: movements}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// retryOnConflict runs fn a second time when the first attempt lost a race
// on a guarded stock update. Other failures are returned unchanged.
func retryOnConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, apierror.ErrConflict) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	log.Warn().Err(err).Str("op", op).Msg("stock conflict, retrying once")
	return fn()
}

// persistence classifies a storage error, leaving already classified errors alone.
func persistence(op string, err error) error {
	var ae *apierror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierror.Persistence(op, err)
}

// merge sums the quantities of lines that target the same product, keeping
// the order in which products first appear.
func merge(lines []StockLine) []StockLine {
	idx := make(map[uuid.UUID]int, len(lines))
	out := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// ValidateTx checks every line against the current quantities without
// writing anything and returns the products keyed by id.
func (l *StockLedger) ValidateTx(tx *gorm.DB, lines []StockLine) (map[uuid.UUID]*model.Product, error) {
	if len(lines) == 0 {
		return nil, apierror.Validation("at least one item is required")
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, apierror.ValidationFields("invalid item quantity", map[string]string{
				itemField(i, "quantity"): "must be a positive integer",
			})
		}
	}

	snapshot := make(map[uuid.UUID]*model.Product, len(lines))
	for _, line := range merge(lines) {
		p, err := l.products.FindByIDTx(tx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("product", line.ProductID)
			}
			return nil, persistence("load product", err)
		}
		if line.Quantity > p.Quantity {
			return nil, apierror.InsufficientStock(p.ID, p.Name, line.Quantity, p.Quantity)
		}
		snapshot[p.ID] = p
	}
	return snapshot, nil
}

// ApplyDeltaTx validates and debits lines. When a debit fails partway the
// debits already applied by this call are credited back before returning,
// so the products are never left with half of the withdrawal.
// It returns the products as written.
func (l *StockLedger) ApplyDeltaTx(tx *gorm.DB, lines []StockLine, ref *uuid.UUID) ([]model.Product, error) {
	if _, err := l.ValidateTx(tx, lines); err != nil {
		return nil, err
	}

	merged := merge(lines)
	written := make([]model.Product, 0, len(merged))
	applied := make([]StockLine, 0, len(merged))
	for _, line := range merged {
		after, err := l.products.AdjustQuantityTx(tx, line.ProductID, -line.Quantity)
		if err != nil {
			l.compensate(tx, applied)
			if errors.Is(err, repository.ErrGuardRejected) {
				return nil, apierror.StockConflict(line.ProductID, line.Quantity)
			}
			return nil, persistence("debit product", err)
		}
		applied = append(applied, line)
		written = append(written, *after)
	}

	for i, line := range merged {
		if err := l.record(tx, model.MovementSortie, -line.Quantity, &written[i], ref); err != nil {
			return nil, err
		}
	}

	log.Debug().Int("products", len(merged)).Msg("stock debited")
	return written, nil
}

// RevertDeltaTx credits lines back to their products.
func (l *StockLedger) RevertDeltaTx(tx *gorm.DB, lines []StockLine, ref *uuid.UUID) ([]model.Product, error) {
	merged := merge(lines)
	written := make([]model.Product, 0, len(merged))
	for _, line := range merged {
		after, err := l.CreditTx(tx, line.ProductID, line.Quantity, model.MovementSortieRevert, ref)
		if err != nil {
			return nil, err
		}
		written = append(written, *after)
	}
	return written, nil
}

// CreditTx adds n to the product's quantity and records the movement.
func (l *StockLedger) CreditTx(tx *gorm.DB, productID uuid.UUID, n int, kind string, ref *uuid.UUID) (*model.Product, error) {
	after, err := l.products.AdjustQuantityTx(tx, productID, n)
	if err != nil {
		if errors.Is(err, repository.ErrGuardRejected) {
			return nil, apierror.NotFound("product", productID)
		}
		return nil, persistence("credit product", err)
	}
	if err := l.record(tx, kind, n, after, ref); err != nil {
		return nil, err
	}
	return after, nil
}

// RecordIntakeTx logs the opening quantity of a freshly created product.
func (l *StockLedger) RecordIntakeTx(tx *gorm.DB, p *model.Product, ref *uuid.UUID) error {
	return l.record(tx, model.MovementIntake, p.Quantity, p, ref)
}

func (l *StockLedger) record(tx *gorm.DB, kind string, delta int, after *model.Product, ref *uuid.UUID) error {
	m := &model.StockMovement{
		ProductID:      after.ID,
		Kind:           kind,
		Delta:          delta,
		QuantityBefore: after.Quantity - delta,
		QuantityAfter:  after.Quantity,
		ReferenceID:    ref,
	}
	if err := l.movements.CreateTx(tx, m); err != nil {
		return persistence("record stock movement", err)
	}
	return nil
}

func (l *StockLedger) compensate(tx *gorm.DB, applied []StockLine) {
	for _, line := range applied {
		if _, err := l.products.AdjustQuantityTx(tx, line.ProductID, line.Quantity); err != nil {
			log.Error().Err(err).
				Str("product_id", line.ProductID.String()).
				Int("quantity", line.Quantity).
				Msg("stock compensation failed")
		}
	}
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
