package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"economat/internal/apierror"
	"economat/internal/model"
	"economat/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoucherAttach_Ownership(t *testing.T) {
	h := newHarness(t)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pid, sid := uuid.New(), uuid.New()

	_, err := h.voucherSvc.AttachTx(nil, service.VoucherOwner{}, "/uploads/a.jpg", "", date, nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	_, err = h.voucherSvc.AttachTx(nil, service.VoucherOwner{ProductID: &pid, SortieID: &sid}, "/uploads/a.jpg", "", date, nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	_, err = h.voucherSvc.AttachTx(nil, service.VoucherOwner{ProductID: &pid}, "/uploads/a.jpg", "receipt", date, nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	_, err = h.voucherSvc.AttachTx(nil, service.VoucherOwner{ProductID: &pid}, "/uploads/a.jpg", model.VoucherWithdrawal, date, nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	_, err = h.voucherSvc.AttachTx(nil, service.VoucherOwner{SortieID: &sid}, "/uploads/a.jpg", model.VoucherDelivery, date, nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation))

	v, err := h.voucherSvc.AttachTx(nil, service.VoucherOwner{SortieID: &sid}, "/uploads/a.jpg", "", date, nil)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherWithdrawal, v.Type)

	v, err = h.voucherSvc.AttachTx(nil, service.VoucherOwner{ProductID: &pid}, "/uploads/b.jpg", "", date, nil)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherDelivery, v.Type)
}

func TestVoucherSearchByDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pid := uuid.New()
	for _, d := range []int{1, 1, 2} {
		date := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		_, err := h.voucherSvc.AttachTx(nil, service.VoucherOwner{ProductID: &pid}, "/uploads/x.jpg", "", date, nil)
		require.NoError(t, err)
	}

	found, err := h.voucherSvc.SearchByDate(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = h.voucherSvc.SearchByDate(ctx, "2026-03-09")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = h.voucherSvc.SearchByDate(ctx, "March 1st")
	assert.True(t, errors.Is(err, apierror.ErrValidation))
}

func TestVoucherGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sid := uuid.New()
	v, err := h.voucherSvc.AttachTx(nil, service.VoucherOwner{SortieID: &sid}, "/uploads/s.jpg", "", time.Now(), nil)
	require.NoError(t, err)

	got, err := h.voucherSvc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/s.jpg", got.ImageRef)
	require.NotNil(t, got.SortieID)
	assert.Equal(t, sid.String(), *got.SortieID)
	assert.Nil(t, got.ProductID)

	_, err = h.voucherSvc.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, apierror.ErrNotFound))
}
