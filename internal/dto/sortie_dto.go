package dto

// ─── Filter / List ──────────────────────────────────────────────────────────

// SortieFilter is bound from query string of GET /v1/sorties.
type SortieFilter struct {
	From  string `form:"from"` // YYYY-MM-DD, inclusive
	To    string `form:"to"`   // YYYY-MM-DD, inclusive
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SortieListResponse struct {
	Data  []SortieResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SortieItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
	// ProductName is a display hint only; the stored snapshot comes from the product.
	ProductName *string `json:"product_name"`
}

// SortieRequest is shared by create and update.
type SortieRequest struct {
	Date       string              `json:"date"        validate:"required"`
	IssuerName *string             `json:"issuer_name" validate:"omitempty,max=120"`
	Items      []SortieItemRequest `json:"items"       validate:"required,min=1,dive"`
	// AppendVoucher keeps the current bon and adds the new one instead of replacing it.
	AppendVoucher bool `json:"append_voucher"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SortieItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type SortieResponse struct {
	ID         string               `json:"id"`
	Date       string               `json:"date"`
	IssuerName string               `json:"issuer_name"`
	Applied    bool                 `json:"applied"`
	Items      []SortieItemResponse `json:"items"`
	Voucher    *VoucherResponse     `json:"voucher"`
	CreatedAt  string               `json:"created_at"`
	UpdatedAt  string               `json:"updated_at"`
}
