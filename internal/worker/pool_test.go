package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	got []json.RawMessage
	err error
}

func (h *recordingHandler) Process(_ context.Context, payload json.RawMessage) error {
	h.got = append(h.got, payload)
	return h.err
}

func TestPoolDispatch_RoutesByType(t *testing.T) {
	p := NewPool(nil)
	h := &recordingHandler{}
	p.Handle(JobStockAlert, h)

	id := uuid.New()
	payload, err := json.Marshal(AlertJobPayload{AlertID: id})
	require.NoError(t, err)
	raw, err := json.Marshal(Job{Type: JobStockAlert, Payload: payload})
	require.NoError(t, err)

	require.NoError(t, p.dispatch(context.Background(), string(raw)))
	require.Len(t, h.got, 1)

	var decoded AlertJobPayload
	require.NoError(t, json.Unmarshal(h.got[0], &decoded))
	assert.Equal(t, id, decoded.AlertID)
}

func TestPoolDispatch_Errors(t *testing.T) {
	p := NewPool(nil)
	failing := &recordingHandler{err: errors.New("smtp down")}
	p.Handle(JobStockAlert, failing)

	assert.Error(t, p.dispatch(context.Background(), "not json"))
	assert.ErrorContains(t, p.dispatch(context.Background(), `{"type":"rebuild_index","payload":{}}`), "no handler")
	assert.ErrorContains(t, p.dispatch(context.Background(), `{"type":"stock_alert","payload":{}}`), "smtp down")
}

func TestDeadLetters_NilClientOnlyLogs(t *testing.T) {
	var d *DeadLetters
	assert.NotPanics(t, func() {
		d.Send(context.Background(), QueueAlerts, JobStockAlert, json.RawMessage(`{}`), "exhausted", 3)
	})
	assert.NotPanics(t, func() {
		NewDeadLetters(nil).Send(context.Background(), QueueAlerts, JobStockAlert, nil, "exhausted", 3)
	})
}

type countingSweeper struct {
	requeued atomic.Int32
	swept    atomic.Int32
}

func (s *countingSweeper) RequeueDue(context.Context) (int, error) {
	s.requeued.Add(1)
	return 0, nil
}

func (s *countingSweeper) SweepExpiring(context.Context) (int, error) {
	s.swept.Add(1)
	return 0, nil
}

func TestStartScheduler_RejectsInvalidSpec(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := StartScheduler(ctx, &countingSweeper{}, SchedulerConfig{RetrySchedule: "every minute", ExpirySchedule: "@daily"})
	assert.Error(t, err)

	_, err = StartScheduler(ctx, &countingSweeper{}, SchedulerConfig{RetrySchedule: "@every 1m", ExpirySchedule: "61 * * * *"})
	assert.Error(t, err)
}

func TestStartScheduler_RegistersBothJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := StartScheduler(ctx, &countingSweeper{}, SchedulerConfig{RetrySchedule: "@every 1m", ExpirySchedule: "0 6 * * *"})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
}
