package service_test

import (
	"context"
	"testing"
	"time"

	"economat/internal/model"
	"economat/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiring_RaisesOncePerCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	soon := h.seedProduct("Milk", "1.10", 12)
	later := h.seedProduct("Rice", "1.50", 12)
	empty := h.seedProduct("Cream", "2.00", 0)
	require.NoError(t, h.products.UpdateMetadataTx(nil, soon.ID, map[string]interface{}{"expiration_date": time.Now().AddDate(0, 0, 3)}))
	require.NoError(t, h.products.UpdateMetadataTx(nil, later.ID, map[string]interface{}{"expiration_date": time.Now().AddDate(0, 1, 0)}))
	require.NoError(t, h.products.UpdateMetadataTx(nil, empty.ID, map[string]interface{}{"expiration_date": time.Now()}))

	raised, err := h.alertSvc.SweepExpiring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	alerts := h.alerts.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, soon.ID, alerts[0].ProductID)
	assert.Equal(t, model.AlertExpiry, alerts[0].Kind)
	assert.Equal(t, model.AlertPending, alerts[0].Status)
	assert.Contains(t, alerts[0].Message, "Milk")
	assert.Len(t, h.queue.enqueued(), 1)

	raised, err = h.alertSvc.SweepExpiring(ctx)
	require.NoError(t, err)
	assert.Zero(t, raised)
	assert.Len(t, h.alerts.all(), 1)
}

func TestCheckLowStock_EnqueueFailureIsRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seedProduct("Flour", "2.00", 2)
	require.NoError(t, h.products.UpdateMetadataTx(nil, p.ID, map[string]interface{}{"safety_threshold": 5}))
	low, err := h.products.FindByIDTx(nil, p.ID)
	require.NoError(t, err)

	h.queue.fail = true
	h.alertSvc.CheckLowStock(ctx, []model.Product{*low})

	alerts := h.alerts.all()
	require.Len(t, alerts, 1)
	require.NotNil(t, alerts[0].NextRetryAt)
	require.NotNil(t, alerts[0].LastError)
	assert.Empty(t, h.queue.enqueued())

	h.queue.fail = false
	n, err := h.alertSvc.RequeueDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, alerts[0].ID, h.queue.enqueued()[0])
	assert.Nil(t, h.alerts.all()[0].NextRetryAt)

	n, err = h.alertSvc.RequeueDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckLowStock_IgnoresProductsAboveThreshold(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Flour", "2.00", 9)
	threshold := 5
	p.SafetyThreshold = &threshold
	plain := h.seedProduct("Salt", "1.00", 0)

	h.alertSvc.CheckLowStock(context.Background(), []model.Product{*p, *plain})
	assert.Empty(t, h.alerts.all())
}

func TestRequeueDue_WithoutQueue(t *testing.T) {
	h := newHarness(t)
	svc := service.NewAlertService(h.alerts, h.products, nil, 0)
	n, err := svc.RequeueDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAlertOverview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.seedProduct("Flour", "2.00", 1)
	require.NoError(t, h.products.UpdateMetadataTx(nil, p.ID, map[string]interface{}{"safety_threshold": 3}))
	h.seedProduct("Rice", "1.00", 50)

	low, err := h.products.FindByIDTx(nil, p.ID)
	require.NoError(t, err)
	h.alertSvc.CheckLowStock(ctx, []model.Product{*low})

	resp, err := h.alertSvc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, resp.LowStock, 1)
	assert.Equal(t, "Flour", resp.LowStock[0].Name)
	require.Len(t, resp.Recent, 1)
	assert.Equal(t, p.ID.String(), resp.Recent[0].ProductID)
	assert.Equal(t, model.AlertPending, resp.Recent[0].Status)
}
