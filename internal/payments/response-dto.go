package payments

import (
	"time"

	"github.com/google/uuid"
)

type InitializePaymentResponse struct {
	PaymentID            uuid.UUID `json:"payment_id"`
	TransactionReference string    `json:"transaction_reference"`
	AuthorizationURL     string    `json:"authorization_url"`
	AccessCode           string    `json:"access_code"`
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency"`
	Status               string    `json:"status"`
}

type PaymentResponse struct {
	PaymentID            uuid.UUID  `json:"payment_id"`
	BookingID            uuid.UUID  `json:"booking_id"`
	TransactionReference string     `json:"transaction_reference"`
	Amount               float64    `json:"amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	FailureReason        string     `json:"failure_reason,omitempty"`
	RefundReference      string     `json:"refund_reference,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}
