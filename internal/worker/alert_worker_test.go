package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"economat/internal/infra"
	"economat/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memAlerts struct {
	byID map[uuid.UUID]model.StockAlert
}

func newMemAlerts(alerts ...model.StockAlert) *memAlerts {
	m := &memAlerts{byID: map[uuid.UUID]model.StockAlert{}}
	for _, a := range alerts {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAlerts) Create(_ context.Context, a *model.StockAlert) error {
	m.byID[a.ID] = *a
	return nil
}

func (m *memAlerts) FindByID(_ context.Context, id uuid.UUID) (*model.StockAlert, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (m *memAlerts) Update(_ context.Context, a *model.StockAlert) error {
	m.byID[a.ID] = *a
	return nil
}

func (m *memAlerts) ExistsSince(context.Context, uuid.UUID, string, time.Time) (bool, error) {
	return false, nil
}

func (m *memAlerts) ListDue(context.Context, time.Time, int) ([]model.StockAlert, error) {
	return nil, nil
}

func (m *memAlerts) ListRecent(context.Context, int) ([]model.StockAlert, error) {
	return nil, nil
}

type fakeNotifier struct {
	err      error
	subjects []string
}

func (n *fakeNotifier) SendAlert(subject, _ string) error {
	n.subjects = append(n.subjects, subject)
	return n.err
}

var fixedNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestWorker(alerts *memAlerts, n Notifier, threshold int) *AlertWorker {
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "test", FailureThreshold: threshold, OpenTimeout: time.Hour})
	w := NewAlertWorker(alerts, n, cb, NewDeadLetters(nil))
	w.now = func() time.Time { return fixedNow }
	return w
}

func pendingAlert(kind string) model.StockAlert {
	return model.StockAlert{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Kind:      kind,
		Quantity:  2,
		Message:   "Flour is at 2 kg, safety threshold 5",
		Status:    model.AlertPending,
	}
}

func payloadFor(id uuid.UUID) json.RawMessage {
	raw, _ := json.Marshal(AlertJobPayload{AlertID: id})
	return raw
}

func TestAlertWorker_DeliversPendingAlert(t *testing.T) {
	a := pendingAlert(model.AlertLowStock)
	prev := "smtp timeout"
	a.LastError = &prev
	store := newMemAlerts(a)
	n := &fakeNotifier{}

	require.NoError(t, newTestWorker(store, n, 5).Process(context.Background(), payloadFor(a.ID)))

	got := store.byID[a.ID]
	assert.Equal(t, model.AlertSent, got.Status)
	assert.Nil(t, got.LastError)
	assert.Nil(t, got.NextRetryAt)
	assert.Equal(t, []string{"Economat: low stock"}, n.subjects)
}

func TestAlertWorker_SkipsNonPendingAndMissing(t *testing.T) {
	a := pendingAlert(model.AlertExpiry)
	a.Status = model.AlertSent
	store := newMemAlerts(a)
	n := &fakeNotifier{}
	w := newTestWorker(store, n, 5)

	require.NoError(t, w.Process(context.Background(), payloadFor(a.ID)))
	require.NoError(t, w.Process(context.Background(), payloadFor(uuid.New())))
	assert.Empty(t, n.subjects)
}

func TestAlertWorker_InvalidPayload(t *testing.T) {
	w := newTestWorker(newMemAlerts(), &fakeNotifier{}, 5)
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{"alert_id":`)))
}

func TestAlertWorker_FailureBacksOffThenGivesUp(t *testing.T) {
	a := pendingAlert(model.AlertLowStock)
	store := newMemAlerts(a)
	n := &fakeNotifier{err: errors.New("relay refused")}
	w := newTestWorker(store, n, 10)

	require.NoError(t, w.Process(context.Background(), payloadFor(a.ID)))
	got := store.byID[a.ID]
	assert.Equal(t, model.AlertPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.NextRetryAt)
	assert.Equal(t, fixedNow.Add(time.Minute), *got.NextRetryAt)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "relay refused", *got.LastError)

	require.NoError(t, w.Process(context.Background(), payloadFor(a.ID)))
	got = store.byID[a.ID]
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, fixedNow.Add(2*time.Minute), *got.NextRetryAt)

	require.NoError(t, w.Process(context.Background(), payloadFor(a.ID)))
	got = store.byID[a.ID]
	assert.Equal(t, model.AlertError, got.Status)
	assert.Equal(t, MaxAlertAttempts, got.RetryCount)
	assert.Nil(t, got.NextRetryAt)

	// Exhausted alerts are not retried.
	require.NoError(t, w.Process(context.Background(), payloadFor(a.ID)))
	assert.Len(t, n.subjects, MaxAlertAttempts)
}

func TestAlertWorker_OpenCircuitDoesNotSpendAttempt(t *testing.T) {
	first := pendingAlert(model.AlertLowStock)
	second := pendingAlert(model.AlertLowStock)
	store := newMemAlerts(first, second)
	n := &fakeNotifier{err: errors.New("relay down")}
	w := newTestWorker(store, n, 1)

	require.NoError(t, w.Process(context.Background(), payloadFor(first.ID)))
	assert.Equal(t, infra.CBOpen, w.cb.State())

	require.NoError(t, w.Process(context.Background(), payloadFor(second.ID)))
	got := store.byID[second.ID]
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, model.AlertPending, got.Status)
	require.NotNil(t, got.NextRetryAt)
	assert.Equal(t, fixedNow.Add(time.Minute), *got.NextRetryAt)
	require.NotNil(t, got.LastError)
	assert.Equal(t, infra.ErrCircuitOpen.Error(), *got.LastError)
	assert.Len(t, n.subjects, 1)
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, retryBackoff(0))
	assert.Equal(t, time.Minute, retryBackoff(1))
	assert.Equal(t, 2*time.Minute, retryBackoff(2))
	assert.Equal(t, 4*time.Minute, retryBackoff(3))
}
