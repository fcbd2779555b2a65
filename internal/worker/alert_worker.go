package worker

// alert_worker.go
// Delivers stock alerts by email. Delivery goes through the circuit breaker;
// failures are rescheduled with backoff and parked in the DLQ once exhausted.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"economat/internal/infra"
	"economat/internal/model"
	"economat/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxAlertAttempts is the number of failed deliveries before an alert is
// marked as error and moved to the DLQ.
const MaxAlertAttempts = 3

// Notifier sends one alert message.
type Notifier interface {
	SendAlert(subject, body string) error
}

// AlertWorker processes jobs from QueueAlerts.
type AlertWorker struct {
	alerts   repository.StockAlertRepository
	notifier Notifier
	cb       *infra.CircuitBreaker
	dlq      *DeadLetters
	now      func() time.Time
}

func NewAlertWorker(alerts repository.StockAlertRepository, notifier Notifier, cb *infra.CircuitBreaker, dlq *DeadLetters) *AlertWorker {
	return &AlertWorker{alerts: alerts, notifier: notifier, cb: cb, dlq: dlq, now: time.Now}
}

// Process delivers the alert named by the payload. Alerts that are no longer
// pending are skipped, so a requeued duplicate is harmless.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload AlertJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}
	alert, err := w.alerts.FindByID(ctx, payload.AlertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("alert_id", payload.AlertID.String()).Msg("alert_worker: alert gone, skipping")
			return nil
		}
		return fmt.Errorf("alert_worker: load alert: %w", err)
	}
	if alert.Status != model.AlertPending {
		return nil
	}

	subject := alertSubject(alert)
	sendErr := w.cb.Execute(func() error {
		return w.notifier.SendAlert(subject, alert.Message)
	})
	if sendErr == nil {
		alert.Status = model.AlertSent
		alert.NextRetryAt = nil
		alert.LastError = nil
		log.Info().Str("alert_id", alert.ID.String()).Str("kind", alert.Kind).Msg("alert_worker: alert delivered")
		return w.alerts.Update(ctx, alert)
	}

	errMsg := sendErr.Error()
	alert.LastError = &errMsg
	if errors.Is(sendErr, infra.ErrCircuitOpen) {
		// The relay was not tried; wait out the breaker without spending an attempt.
		next := w.now().Add(time.Minute)
		alert.NextRetryAt = &next
		return w.alerts.Update(ctx, alert)
	}

	alert.RetryCount++
	if alert.RetryCount >= MaxAlertAttempts {
		alert.Status = model.AlertError
		alert.NextRetryAt = nil
		log.Error().
			Str("alert_id", alert.ID.String()).
			Int("attempts", alert.RetryCount).
			Msg("alert_worker: delivery attempts exhausted, moving to DLQ")
		w.dlq.Send(ctx, QueueAlerts, JobStockAlert, raw,
			fmt.Sprintf("max attempts (%d) exceeded: %s", MaxAlertAttempts, errMsg), alert.RetryCount)
	} else {
		next := w.now().Add(retryBackoff(alert.RetryCount))
		alert.NextRetryAt = &next
		log.Warn().
			Str("alert_id", alert.ID.String()).
			Int("retry_count", alert.RetryCount).
			Time("next_retry_at", next).
			Msg("alert_worker: delivery failed, scheduled next attempt")
	}
	return w.alerts.Update(ctx, alert)
}

func alertSubject(a *model.StockAlert) string {
	switch a.Kind {
	case model.AlertExpiry:
		return "Economat: product expiring soon"
	default:
		return "Economat: low stock"
	}
}

// retryBackoff doubles from one minute: 1m, 2m, 4m...
func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * time.Minute
}
