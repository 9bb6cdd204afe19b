package payments

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
	StatusCancelled  = "cancelled"
)

// Transition sources, recorded for metrics
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

// Payment tracks one gateway transaction for a booking. All state changes
// flow through the reconciliation transition; nothing else writes status.
type Payment struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"booking_id"`
	UserID               uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	TransactionReference string     `gorm:"unique;not null" json:"transaction_reference"`
	Amount               float64    `gorm:"not null" json:"amount"`
	Currency             string     `gorm:"type:varchar(3);default:'NGN'" json:"currency"`
	Gateway              string     `gorm:"type:varchar(20);default:'paystack'" json:"gateway"`
	PaymentMethod        string     `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	Status               string     `gorm:"type:varchar(20);check:status IN ('pending', 'processing', 'success', 'failed', 'refunded', 'cancelled');default:'pending'" json:"status"`
	GatewayReference     string     `json:"gateway_reference,omitempty"`
	GatewayResponse      string     `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	FailureReason        string     `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	FailedAt             *time.Time `json:"failed_at,omitempty"`
	ReceiptSentAt        *time.Time `json:"receipt_sent_at,omitempty"`

	// Refund details, populated only after the gateway confirms
	RefundReference string     `json:"refund_reference,omitempty"`
	RefundAmount    float64    `json:"refund_amount,omitempty"`
	RefundReason    string     `gorm:"type:varchar(255)" json:"refund_reason,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether no further gateway results may change the
// payment, refunds excepted.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusRefunded || p.Status == StatusCancelled
}
