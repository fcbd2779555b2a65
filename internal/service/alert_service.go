package service

import (
	"context"
	"fmt"
	"time"

	"economat/internal/dto"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// alertCooldown suppresses a second alert of the same kind for a product.
	alertCooldown   = 24 * time.Hour
	alertRetryBatch = 20
	recentAlerts    = 50
)

// AlertQueue hands alerts to the notification workers.
type AlertQueue interface {
	EnqueueAlert(ctx context.Context, alertID uuid.UUID) error
}

// AlertService raises low-stock and expiry alerts. Raising never fails the
// stock operation that triggered it; problems are logged and left to the
// retry schedule.
type AlertService interface {
	CheckLowStock(ctx context.Context, products []model.Product)
	SweepExpiring(ctx context.Context) (int, error)
	RequeueDue(ctx context.Context) (int, error)
	Overview(ctx context.Context) (*dto.AlertsResponse, error)
}

type alertService struct {
	repo        repository.StockAlertRepository
	products    repository.ProductRepository
	queue       AlertQueue
	warningDays int
	now         func() time.Time
}

func NewAlertService(repo repository.StockAlertRepository, products repository.ProductRepository, queue AlertQueue, warningDays int) AlertService {
	if warningDays <= 0 {
		warningDays = 7
	}
	return &alertService{repo: repo, products: products, queue: queue, warningDays: warningDays, now: time.Now}
}

func (s *alertService) CheckLowStock(ctx context.Context, products []model.Product) {
	for i := range products {
		p := &products[i]
		if !p.BelowThreshold() {
			continue
		}
		msg := fmt.Sprintf("%s is at %d %s, safety threshold %d", p.Name, p.Quantity, p.Unit, *p.SafetyThreshold)
		s.raise(ctx, p, model.AlertLowStock, msg)
	}
}

func (s *alertService) SweepExpiring(ctx context.Context) (int, error) {
	limit := s.now().AddDate(0, 0, s.warningDays)
	products, err := s.products.ExpiringBefore(ctx, limit)
	if err != nil {
		return 0, persistence("list expiring products", err)
	}
	raised := 0
	for i := range products {
		p := &products[i]
		msg := fmt.Sprintf("%s (%d %s) expires on %s", p.Name, p.Quantity, p.Unit, p.ExpirationDate.Format(dateLayout))
		if s.raise(ctx, p, model.AlertExpiry, msg) {
			raised++
		}
	}
	log.Info().Int("checked", len(products)).Int("raised", raised).Msg("expiry sweep done")
	return raised, nil
}

func (s *alertService) raise(ctx context.Context, p *model.Product, kind, msg string) bool {
	exists, err := s.repo.ExistsSince(ctx, p.ID, kind, s.now().Add(-alertCooldown))
	if err != nil {
		log.Error().Err(err).Str("product_id", p.ID.String()).Msg("alert lookup failed")
		return false
	}
	if exists {
		return false
	}

	a := &model.StockAlert{
		ProductID: p.ID,
		Kind:      kind,
		Threshold: p.SafetyThreshold,
		Quantity:  p.Quantity,
		Message:   msg,
		Status:    model.AlertPending,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		log.Error().Err(err).Str("product_id", p.ID.String()).Str("kind", kind).Msg("alert create failed")
		return false
	}
	log.Info().Str("product_id", p.ID.String()).Str("kind", kind).Int("quantity", p.Quantity).Msg("stock alert raised")

	if s.queue == nil {
		return true
	}
	if err := s.queue.EnqueueAlert(ctx, a.ID); err != nil {
		// Leave it to the retry schedule.
		next := s.now()
		a.NextRetryAt = &next
		errMsg := err.Error()
		a.LastError = &errMsg
		if uerr := s.repo.Update(ctx, a); uerr != nil {
			log.Error().Err(uerr).Str("alert_id", a.ID.String()).Msg("alert reschedule failed")
		}
		log.Warn().Err(err).Str("alert_id", a.ID.String()).Msg("alert enqueue failed, scheduled for retry")
	}
	return true
}

// RequeueDue pushes pending alerts whose retry time has come back on the queue.
func (s *alertService) RequeueDue(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, nil
	}
	due, err := s.repo.ListDue(ctx, s.now(), alertRetryBatch)
	if err != nil {
		return 0, persistence("list due alerts", err)
	}
	n := 0
	for i := range due {
		a := &due[i]
		a.NextRetryAt = nil
		if err := s.repo.Update(ctx, a); err != nil {
			log.Error().Err(err).Str("alert_id", a.ID.String()).Msg("alert requeue failed")
			continue
		}
		if err := s.queue.EnqueueAlert(ctx, a.ID); err != nil {
			next := s.now().Add(time.Minute)
			a.NextRetryAt = &next
			_ = s.repo.Update(ctx, a)
			log.Warn().Err(err).Str("alert_id", a.ID.String()).Msg("alert requeue failed")
			continue
		}
		n++
	}
	return n, nil
}

func (s *alertService) Overview(ctx context.Context) (*dto.AlertsResponse, error) {
	low, err := s.products.LowStock(ctx)
	if err != nil {
		return nil, persistence("list low stock", err)
	}
	recent, err := s.repo.ListRecent(ctx, recentAlerts)
	if err != nil {
		return nil, persistence("list alerts", err)
	}
	resp := &dto.AlertsResponse{
		LowStock: make([]dto.ProductResponse, 0, len(low)),
		Recent:   make([]dto.StockAlertResponse, 0, len(recent)),
	}
	for i := range low {
		resp.LowStock = append(resp.LowStock, toProductResponse(&low[i]))
	}
	for i := range recent {
		resp.Recent = append(resp.Recent, toAlertResponse(&recent[i]))
	}
	return resp, nil
}
