// Package apierror provides standardized error response structures for the API
// and the error taxonomy shared by services and handlers.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func NewValidation(detail string, fields map[string]string) *ValidationError {
	if detail == "" {
		detail = "Validation error"
	}
	return &ValidationError{Detail: detail, Fields: fields}
}

// StockError is returned when a withdrawal exceeds the quantity on hand.
// It carries enough context for the caller to correct the request.
type StockError struct {
	Detail    string `json:"detail"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
