package dto

// StockAlertResponse is one persisted low-stock or expiry notification.
type StockAlertResponse struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"product_id"`
	Kind       string  `json:"kind"`
	Threshold  *int    `json:"threshold"`
	Quantity   int     `json:"quantity"`
	Message    string  `json:"message"`
	Status     string  `json:"status"`
	RetryCount int     `json:"retry_count"`
	LastError  *string `json:"last_error"`
	CreatedAt  string  `json:"created_at"`
}

// AlertsResponse backs GET /v1/alerts.
type AlertsResponse struct {
	LowStock []ProductResponse    `json:"low_stock"`
	Recent   []StockAlertResponse `json:"recent"`
}

