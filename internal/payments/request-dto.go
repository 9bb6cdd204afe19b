package payments

type InitializePaymentRequest struct {
	BookingID     string `json:"booking_id" binding:"required,uuid" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=card bank_transfer ussd"`
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"required" validate:"required,max=255"`
}
