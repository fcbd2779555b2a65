package service

import (
	"strings"
	"time"

	"economat/internal/apierror"
	"economat/internal/dto"
	"economat/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// money columns are numeric with two decimal places.
func fitsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// parseDate accepts a calendar date (YYYY-MM-DD) or a full RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apierror.ValidationFields("invalid date", map[string]string{
		field: "expected YYYY-MM-DD",
	})
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, apierror.ValidationFields("invalid identifier", map[string]string{
			field: "must be a UUID",
		})
	}
	return id, nil
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func toVoucherResponse(v *model.Voucher) dto.VoucherResponse {
	return dto.VoucherResponse{
		ID:           v.ID.String(),
		ImageRef:     v.ImageRef,
		Type:         v.Type,
		VoucherDate:  v.VoucherDate.Format(dateLayout),
		ProductID:    idString(v.ProductID),
		SortieID:     idString(v.SortieID),
		SupplierName: v.SupplierName,
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
	}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	suppliers := []string(p.Suppliers)
	if suppliers == nil {
		suppliers = []string{}
	}
	resp := dto.ProductResponse{
		ID:              p.ID.String(),
		Name:            p.Name,
		UnitPrice:       p.UnitPrice,
		Quantity:        p.Quantity,
		Amount:          p.Amount,
		Unit:            p.Unit,
		SafetyThreshold: p.SafetyThreshold,
		ZoneID:          idString(p.ZoneID),
		ExpirationDate:  dateString(p.ExpirationDate),
		Suppliers:       suppliers,
		PartNumber:      p.PartNumber,
		Vouchers:        make([]dto.VoucherResponse, 0, len(p.Vouchers)),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Zone != nil {
		name := p.Zone.Name
		resp.ZoneName = &name
	}
	for i := range p.Vouchers {
		resp.Vouchers = append(resp.Vouchers, toVoucherResponse(&p.Vouchers[i]))
	}
	return resp
}

func toSortieResponse(s *model.Sortie) dto.SortieResponse {
	resp := dto.SortieResponse{
		ID:         s.ID.String(),
		Date:       s.Date.Format(dateLayout),
		IssuerName: s.IssuerName,
		Applied:    s.Applied,
		Items:      make([]dto.SortieItemResponse, 0, len(s.Items)),
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339),
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, dto.SortieItemResponse{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
		})
	}
	if s.Voucher != nil {
		v := toVoucherResponse(s.Voucher)
		resp.Voucher = &v
	}
	return resp
}

func toMovementResponse(m *model.StockMovement) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		ID:             m.ID.String(),
		Kind:           m.Kind,
		Delta:          m.Delta,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		ReferenceID:    idString(m.ReferenceID),
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func toAlertResponse(a *model.StockAlert) dto.StockAlertResponse {
	return dto.StockAlertResponse{
		ID:         a.ID.String(),
		ProductID:  a.ProductID.String(),
		Kind:       a.Kind,
		Threshold:  a.Threshold,
		Quantity:   a.Quantity,
		Message:    a.Message,
		Status:     a.Status,
		RetryCount: a.RetryCount,
		LastError:  a.LastError,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}
