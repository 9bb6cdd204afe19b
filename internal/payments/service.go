package payments

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"trekka/internal/bookings"
	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/middleware"
	"trekka/pkg/logger"
	"trekka/pkg/metrics"

	"github.com/google/uuid"
)

// BookingStore is the slice of the booking service the payment flow needs.
type BookingStore interface {
	GetBookingRecord(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error)
}

// ReceiptPublisher emits the payment receipt notification. Delivery is a
// downstream concern; publishing is attempted exactly once per payment.
type ReceiptPublisher interface {
	PublishPaymentReceipt(ctx context.Context, userID uuid.UUID, email, reference string, amount float64, currency string) error
}

type Service interface {
	Initialize(ctx context.Context, principal middleware.Principal, req *InitializePaymentRequest) (*InitializePaymentResponse, error)
	VerifyPayment(ctx context.Context, principal middleware.Principal, reference string) (*PaymentResponse, error)
	Refund(ctx context.Context, principal middleware.Principal, paymentID uuid.UUID, req *RefundRequest) (*PaymentResponse, error)
	GetUserPayments(ctx context.Context, principal middleware.Principal, limit, offset int) (*PaymentListResponse, error)

	// ApplyGatewayResult is the single reconciliation transition. Both the
	// verify endpoint and the webhook feed through here, so replays and
	// out-of-order deliveries resolve the same way everywhere.
	ApplyGatewayResult(ctx context.Context, reference string, result *GatewayResult, source string) (*Payment, error)
}

type service struct {
	repo      Repository
	gateway   Gateway
	bookings  BookingStore
	publisher ReceiptPublisher
	currency  string
}

func NewService(repo Repository, gateway Gateway, bookingStore BookingStore, publisher ReceiptPublisher, currency string) Service {
	return &service{
		repo:      repo,
		gateway:   gateway,
		bookings:  bookingStore,
		publisher: publisher,
		currency:  currency,
	}
}

func (s *service) Initialize(ctx context.Context, principal middleware.Principal, req *InitializePaymentRequest) (*InitializePaymentResponse, error) {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID: %w", apperrors.ErrValidation)
	}

	booking, err := s.bookings.GetBookingRecord(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrNotFound
	}
	if booking.Status != bookings.StatusConfirmed {
		return nil, fmt.Errorf("booking is %s, only confirmed bookings are payable: %w",
			booking.Status, apperrors.ErrInvalidStateTransition)
	}

	// The amount is always the booking total; clients never supply it.
	payment := &Payment{
		BookingID:     bookingID,
		UserID:        booking.UserID,
		Amount:        booking.TotalPrice,
		Currency:      s.currency,
		Gateway:       "paystack",
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPending,
	}

	// Reference collisions are rare; retry with a fresh one a few times
	for attempt := 0; attempt < 3; attempt++ {
		reference, err := s.generateTransactionReference()
		if err != nil {
			return nil, fmt.Errorf("failed to generate transaction reference: %w", err)
		}
		payment.TransactionReference = reference

		err = s.repo.Create(ctx, payment)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateReference) {
			return nil, err
		}
		if attempt == 2 {
			return nil, fmt.Errorf("failed to allocate transaction reference: %w", err)
		}
	}

	auth, err := s.gateway.Initialize(ctx, principal.Email, payment.TransactionReference, payment.Amount)
	if err != nil {
		// A rejected initialization is final; timeouts leave the payment
		// pending so a later attempt or verify can settle it.
		if errors.Is(err, apperrors.ErrGatewayRejected) {
			if _, failErr := s.repo.TransitionToFailed(ctx, payment.TransactionReference, "gateway rejected initialization", ""); failErr != nil {
				logger.GetDefault().ErrorWithContext(ctx, "failed to mark payment failed after rejection", failErr, nil)
			}
		}
		return nil, err
	}

	return &InitializePaymentResponse{
		PaymentID:            payment.ID,
		TransactionReference: payment.TransactionReference,
		AuthorizationURL:     auth.AuthorizationURL,
		AccessCode:           auth.AccessCode,
		Amount:               payment.Amount,
		Currency:             payment.Currency,
		Status:               StatusPending,
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, principal middleware.Principal, reference string) (*PaymentResponse, error) {
	payment, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrUnknownReference
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	updated, err := s.ApplyGatewayResult(ctx, reference, result, SourceVerify)
	if err != nil {
		return nil, err
	}
	return toPaymentResponse(updated), nil
}

func (s *service) ApplyGatewayResult(ctx context.Context, reference string, result *GatewayResult, source string) (*Payment, error) {
	payment, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	// Terminal states never move; replayed or late results are no-ops.
	if payment.IsTerminal() {
		return payment, nil
	}

	switch result.Status {
	case GatewayStatusSuccess:
		// A success payload for the wrong amount is a failed payment, not
		// a discounted one. Compared in kobo: the gateway settles in the
		// minor unit, and raw float equality trips on representation noise.
		if toKobo(result.Amount) != toKobo(payment.Amount) {
			reason := fmt.Sprintf("amount mismatch: charged %.2f, expected %.2f", result.Amount, payment.Amount)
			won, err := s.repo.TransitionToFailed(ctx, reference, reason, result.RawPayload)
			if err != nil {
				return nil, err
			}
			if won {
				metrics.TrackPaymentTransition(StatusFailed, source)
				logger.GetDefault().LogPaymentTransition(ctx, reference, payment.Status, StatusFailed)
			}
			return s.repo.GetByReference(ctx, reference)
		}

		won, err := s.repo.TransitionToSuccess(ctx, reference, result.GatewayReference, result.RawPayload)
		if err != nil {
			return nil, err
		}
		if won {
			metrics.TrackPaymentTransition(StatusSuccess, source)
			logger.GetDefault().LogPaymentTransition(ctx, reference, payment.Status, StatusSuccess)
			s.sendReceiptOnce(ctx, payment)
		}

	case GatewayStatusFailed:
		won, err := s.repo.TransitionToFailed(ctx, reference, "gateway reported failure", result.RawPayload)
		if err != nil {
			return nil, err
		}
		if won {
			metrics.TrackPaymentTransition(StatusFailed, source)
			logger.GetDefault().LogPaymentTransition(ctx, reference, payment.Status, StatusFailed)
		}

	case GatewayStatusPending, GatewayStatusUnknown:
		// Nothing to settle yet. Unknown means the gateway has not seen the
		// reference; the charge may still land later.
		return payment, nil
	}

	return s.repo.GetByReference(ctx, reference)
}

func (s *service) Refund(ctx context.Context, principal middleware.Principal, paymentID uuid.UUID, req *RefundRequest) (*PaymentResponse, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrNotFound
	}
	if payment.Status != StatusSuccess {
		return nil, fmt.Errorf("payment is %s, only successful payments can be refunded: %w",
			payment.Status, apperrors.ErrInvalidStateTransition)
	}

	// Gateway first. Local state only moves after the money did.
	refund, err := s.gateway.Refund(ctx, payment.TransactionReference, payment.Amount, req.Reason)
	if err != nil {
		return nil, err
	}

	won, err := s.repo.MarkRefunded(ctx, paymentID, refund.RefundReference, refund.Amount, req.Reason)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperrors.ErrInvalidStateTransition
	}

	metrics.TrackPaymentTransition(StatusRefunded, "refund")
	logger.GetDefault().LogPaymentTransition(ctx, payment.TransactionReference, StatusSuccess, StatusRefunded)

	updated, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return toPaymentResponse(updated), nil
}

func (s *service) GetUserPayments(ctx context.Context, principal middleware.Principal, limit, offset int) (*PaymentListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	payments, total, err := s.repo.GetByUser(ctx, principal.UserID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, *toPaymentResponse(&payments[i]))
	}

	return &PaymentListResponse{
		Payments: responses,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// sendReceiptOnce claims the receipt marker with a conditional update before
// publishing, so redelivered gateway results cannot double-send.
func (s *service) sendReceiptOnce(ctx context.Context, payment *Payment) {
	if s.publisher == nil {
		return
	}

	claimed, err := s.repo.MarkReceiptSent(ctx, payment.ID)
	if err != nil {
		logger.GetDefault().ErrorWithContext(ctx, "failed to claim receipt marker", err, nil)
		return
	}
	if !claimed {
		return
	}

	err = s.publisher.PublishPaymentReceipt(ctx, payment.UserID, "", payment.TransactionReference, payment.Amount, payment.Currency)
	if err != nil {
		logger.GetDefault().ErrorWithContext(ctx, "failed to publish payment receipt", err,
			map[string]interface{}{"reference": payment.TransactionReference})
	}
}

// generateTransactionReference builds PAY-YYYYMMDD-HHMMSS-XXXX references
func (s *service) generateTransactionReference() (string, error) {
	timestamp := time.Now().Format("20060102-150405")

	const digits = "0123456789"
	randomPart := make([]byte, 4)
	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		randomPart[i] = digits[num.Int64()]
	}

	return fmt.Sprintf("PAY-%s-%s", timestamp, string(randomPart)), nil
}

func toPaymentResponse(p *Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:            p.ID,
		BookingID:            p.BookingID,
		TransactionReference: p.TransactionReference,
		Amount:               p.Amount,
		Currency:             p.Currency,
		Status:               p.Status,
		FailureReason:        p.FailureReason,
		RefundReference:      p.RefundReference,
		CompletedAt:          p.CompletedAt,
		RefundedAt:           p.RefundedAt,
		CreatedAt:            p.CreatedAt,
	}
}
