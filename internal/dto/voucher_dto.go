package dto

// ImageUpload is an uploaded voucher image, already read from the request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type VoucherFilter struct {
	Date string `form:"date" validate:"required"` // YYYY-MM-DD
}

type VoucherResponse struct {
	ID           string  `json:"id"`
	ImageRef     string  `json:"image_ref"`
	Type         string  `json:"type"`
	VoucherDate  string  `json:"voucher_date"`
	ProductID    *string `json:"product_id"`
	SortieID     *string `json:"sortie_id"`
	SupplierName *string `json:"supplier_name"`
	CreatedAt    string  `json:"created_at"`
}
