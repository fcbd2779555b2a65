package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// IntakeItemRequest describes one product of a delivery.
// Amount is optional; when present it must equal unit_price * quantity.
type IntakeItemRequest struct {
	Name            string           `json:"name"             validate:"required,max=160"`
	UnitPrice       decimal.Decimal  `json:"unit_price"       validate:"min=0"`
	Quantity        int              `json:"quantity"         validate:"min=0"`
	Amount          *decimal.Decimal `json:"amount"`
	ZoneID          string           `json:"zone_id"          validate:"required,uuid"`
	ExpirationDate  string           `json:"expiration_date"  validate:"required"`
	Unit            string           `json:"unit"             validate:"omitempty,oneof=kg g unit liter ml"`
	SafetyThreshold *int             `json:"safety_threshold" validate:"omitempty,min=0"`
	PartNumber      *string          `json:"part_number"`
}

// IntakeRequest creates a batch of products from one delivery.
type IntakeRequest struct {
	DeliveryDate string              `json:"delivery_date" validate:"required"`
	SupplierName string              `json:"supplier_name" validate:"required"`
	VoucherType  string              `json:"voucher_type"  validate:"omitempty,oneof=delivery"`
	Items        []IntakeItemRequest `json:"items"         validate:"required,min=1,dive"`
}

// ReplenishRequest adds quantity to an existing product.
type ReplenishRequest struct {
	Quantity       int     `json:"quantity"`
	ExpirationDate *string `json:"expiration_date"`
	SupplierName   *string `json:"supplier_name"`
	PartNumber     *string `json:"part_number"`
	// VoucherDate dates the attached delivery voucher; defaults to today.
	VoucherDate *string `json:"voucher_date"`
}

// UpdateProductRequest edits product metadata. Quantity is not editable here.
type UpdateProductRequest struct {
	Name            *string          `json:"name"             validate:"omitempty,min=1,max=160"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	Unit            *string          `json:"unit"             validate:"omitempty,oneof=kg g unit liter ml"`
	SafetyThreshold *int             `json:"safety_threshold" validate:"omitempty,min=0"`
	ZoneID          *string          `json:"zone_id"          validate:"omitempty,uuid"`
	Suppliers       []string         `json:"suppliers"`
	ExpirationDate  *string          `json:"expiration_date"`
	PartNumber      *string          `json:"part_number"`
	VoucherDate     *string          `json:"voucher_date"`
	SupplierName    *string          `json:"supplier_name"`
	// ReplaceVouchers drops the existing voucher list in favour of the new one.
	ReplaceVouchers bool `json:"replace_vouchers"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	ZoneID string `form:"zone_id"`
	Name   string `form:"name"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	UnitPrice       decimal.Decimal   `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	Amount          decimal.Decimal   `json:"amount"`
	Unit            string            `json:"unit"`
	SafetyThreshold *int              `json:"safety_threshold"`
	ZoneID          *string           `json:"zone_id"`
	ZoneName        *string           `json:"zone_name,omitempty"`
	ExpirationDate  *string           `json:"expiration_date"`
	Suppliers       []string          `json:"suppliers"`
	PartNumber      *string           `json:"part_number"`
	Vouchers        []VoucherResponse `json:"vouchers"`
	UpdatedAt       string            `json:"updated_at"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

type StockMovementResponse struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Delta          int     `json:"delta"`
	QuantityBefore int     `json:"quantity_before"`
	QuantityAfter  int     `json:"quantity_after"`
	ReferenceID    *string `json:"reference_id"`
	CreatedAt      string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
