package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what happened
type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTypeBookingCancelled NotificationType = "booking_cancelled"
	NotificationTypePaymentReceipt   NotificationType = "payment_receipt"
)

// Notification statuses
const (
	NotificationStatusQueued = "queued"
	NotificationStatusFailed = "failed"
)

// Notification is the message consumed downstream by the delivery worker.
// This service only produces; delivery (email, push) lives elsewhere.
type Notification struct {
	ID             uuid.UUID              `json:"id"`
	Type           NotificationType       `json:"type"`
	RecipientID    uuid.UUID              `json:"recipient_id"`
	RecipientEmail string                 `json:"recipient_email,omitempty"`
	Subject        string                 `json:"subject"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewNotification builds a queued notification for a recipient.
func NewNotification(notificationType NotificationType, recipientID uuid.UUID, email, subject string, data map[string]interface{}) *Notification {
	return &Notification{
		ID:             uuid.New(),
		Type:           notificationType,
		RecipientID:    recipientID,
		RecipientEmail: email,
		Subject:        subject,
		Data:           data,
		Status:         NotificationStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}
}

// ToJSON serializes the notification for the wire.
func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// PartitionKey routes all of one recipient's notifications to the same
// partition so delivery order holds per user.
func (n *Notification) PartitionKey() string {
	return n.RecipientID.String()
}
