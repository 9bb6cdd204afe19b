package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trekka/internal/bookings"
	"trekka/internal/shared/apperrors"
	"trekka/internal/shared/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*Payment // keyed by transaction reference
	byID     map[uuid.UUID]string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[string]*Payment),
		byID:     make(map[uuid.UUID]string),
	}
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.payments[payment.TransactionReference]; exists {
		return ErrDuplicateReference
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now().UTC()
	copied := *payment
	f.payments[payment.TransactionReference] = &copied
	f.byID[payment.ID] = payment.TransactionReference
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *f.payments[ref]
	return &copied, nil
}

func (f *fakePaymentRepo) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok {
		return nil, apperrors.ErrUnknownReference
	}
	copied := *p
	return &copied, nil
}

func (f *fakePaymentRepo) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) TransitionToSuccess(ctx context.Context, reference, gatewayReference, payload string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok || (p.Status != StatusPending && p.Status != StatusProcessing) {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = StatusSuccess
	p.GatewayReference = gatewayReference
	p.GatewayResponse = payload
	p.CompletedAt = &now
	return true, nil
}

func (f *fakePaymentRepo) TransitionToFailed(ctx context.Context, reference, reason, payload string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok || (p.Status != StatusPending && p.Status != StatusProcessing) {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = StatusFailed
	p.FailureReason = reason
	p.GatewayResponse = payload
	p.FailedAt = &now
	return true, nil
}

func (f *fakePaymentRepo) MarkRefunded(ctx context.Context, id uuid.UUID, refundReference string, amount float64, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	p := f.payments[ref]
	if p.Status != StatusSuccess {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = StatusRefunded
	p.RefundReference = refundReference
	p.RefundAmount = amount
	p.RefundReason = reason
	p.RefundedAt = &now
	return true, nil
}

func (f *fakePaymentRepo) MarkReceiptSent(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	p := f.payments[ref]
	if p.ReceiptSentAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	p.ReceiptSentAt = &now
	return true, nil
}

type fakeGateway struct {
	mu            sync.Mutex
	initializeErr error
	verifyResult  *GatewayResult
	verifyErr     error
	refundErr     error
	refundCalls   int
}

func (f *fakeGateway) Initialize(ctx context.Context, email, reference string, amount float64) (*Authorization, error) {
	if f.initializeErr != nil {
		return nil, f.initializeErr
	}
	return &Authorization{
		AuthorizationURL: "https://checkout.paystack.com/" + reference,
		AccessCode:       "code_" + reference,
		Reference:        reference,
	}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*GatewayResult, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

func (f *fakeGateway) Refund(ctx context.Context, reference string, amount float64, reason string) (*RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &RefundResult{RefundReference: "rf_1", Amount: amount}, nil
}

func (f *fakeGateway) VerifySignature(rawBody []byte, signature string) bool {
	return signature == "valid"
}

type fakeBookingStore struct {
	booking *bookings.Booking
}

func (f *fakeBookingStore) GetBookingRecord(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error) {
	if f.booking == nil || f.booking.ID != bookingID {
		return nil, apperrors.ErrNotFound
	}
	return f.booking, nil
}

type receiptRecorder struct {
	mu       sync.Mutex
	receipts []string
}

func (r *receiptRecorder) PublishPaymentReceipt(ctx context.Context, userID uuid.UUID, email, reference string, amount float64, currency string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, reference)
	return nil
}

func confirmedBooking(userID uuid.UUID, total float64) *bookings.Booking {
	resID := uuid.New()
	return &bookings.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		VehicleID:     uuid.New(),
		SeatCount:     2,
		TotalPrice:    total,
		Status:        bookings.StatusConfirmed,
		BookingRef:    "TRK-20250901-ABCDEF",
		ReservationID: &resID,
	}
}

func setupPaymentService(t *testing.T, booking *bookings.Booking) (Service, *fakePaymentRepo, *fakeGateway, *receiptRecorder) {
	repo := newFakePaymentRepo()
	gateway := &fakeGateway{}
	recorder := &receiptRecorder{}
	svc := NewService(repo, gateway, &fakeBookingStore{booking: booking}, recorder, "NGN")
	return svc, repo, gateway, recorder
}

func initializedPayment(t *testing.T, svc Service, principal middleware.Principal, booking *bookings.Booking) *InitializePaymentResponse {
	resp, err := svc.Initialize(context.Background(), principal, &InitializePaymentRequest{
		BookingID: booking.ID.String(),
	})
	require.NoError(t, err)
	return resp
}

func TestInitializePayment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	principal := middleware.Principal{UserID: userID, Email: "rider@example.com", Role: middleware.RoleUser}

	t.Run("amount comes from the booking, never the client", func(t *testing.T) {
		booking := confirmedBooking(userID, 120.0)
		svc, _, _, _ := setupPaymentService(t, booking)

		resp := initializedPayment(t, svc, principal, booking)

		assert.Equal(t, 120.0, resp.Amount)
		assert.Equal(t, StatusPending, resp.Status)
		assert.True(t, strings.HasPrefix(resp.TransactionReference, "PAY-"))
		assert.Contains(t, resp.AuthorizationURL, resp.TransactionReference)
	})

	t.Run("cancelled booking is not payable", func(t *testing.T) {
		booking := confirmedBooking(userID, 120.0)
		booking.Status = bookings.StatusCancelled
		svc, _, _, _ := setupPaymentService(t, booking)

		_, err := svc.Initialize(ctx, principal, &InitializePaymentRequest{BookingID: booking.ID.String()})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	})

	t.Run("foreign booking looks like not found", func(t *testing.T) {
		booking := confirmedBooking(uuid.New(), 120.0)
		svc, _, _, _ := setupPaymentService(t, booking)

		_, err := svc.Initialize(ctx, principal, &InitializePaymentRequest{BookingID: booking.ID.String()})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("gateway rejection marks the payment failed", func(t *testing.T) {
		booking := confirmedBooking(userID, 120.0)
		svc, repo, gateway, _ := setupPaymentService(t, booking)
		gateway.initializeErr = apperrors.ErrGatewayRejected

		_, err := svc.Initialize(ctx, principal, &InitializePaymentRequest{BookingID: booking.ID.String()})
		assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))

		for _, p := range repo.payments {
			assert.Equal(t, StatusFailed, p.Status)
		}
	})

	t.Run("gateway timeout leaves the payment pending", func(t *testing.T) {
		booking := confirmedBooking(userID, 120.0)
		svc, repo, gateway, _ := setupPaymentService(t, booking)
		gateway.initializeErr = apperrors.ErrGatewayTimeout

		_, err := svc.Initialize(ctx, principal, &InitializePaymentRequest{BookingID: booking.ID.String()})
		assert.True(t, errors.Is(err, apperrors.ErrGatewayTimeout))

		for _, p := range repo.payments {
			assert.Equal(t, StatusPending, p.Status, "timeout is not a failure; verify can settle it later")
		}
	})
}

func TestApplyGatewayResult(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	principal := middleware.Principal{UserID: userID, Email: "rider@example.com", Role: middleware.RoleUser}

	successResult := func(amount float64) *GatewayResult {
		return &GatewayResult{
			Status:           GatewayStatusSuccess,
			Amount:           amount,
			Currency:         "NGN",
			GatewayReference: "987654",
			RawPayload:       `{"status":"success"}`,
		}
	}

	t.Run("unknown reference is a typed error", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, _ := setupPaymentService(t, booking)

		_, err := svc.ApplyGatewayResult(ctx, "PAY-NEVER-ISSUED", successResult(100.0), SourceWebhook)
		assert.True(t, errors.Is(err, apperrors.ErrUnknownReference))
	})

	t.Run("success settles the payment and sends one receipt", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, recorder := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), SourceWebhook)
		require.NoError(t, err)

		assert.Equal(t, StatusSuccess, updated.Status)
		assert.NotNil(t, updated.CompletedAt)
		assert.Equal(t, "987654", updated.GatewayReference)
		assert.Equal(t, []string{resp.TransactionReference}, recorder.receipts)
	})

	t.Run("replayed success is a no-op with no second receipt", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, recorder := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		_, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), SourceWebhook)
		require.NoError(t, err)
		first, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), SourceVerify)
		require.NoError(t, err)

		assert.Equal(t, StatusSuccess, first.Status)
		assert.Len(t, recorder.receipts, 1, "receipt must be sent exactly once")
	})

	t.Run("late failure cannot overwrite success", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		_, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), SourceWebhook)
		require.NoError(t, err)

		updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference,
			&GatewayResult{Status: GatewayStatusFailed, RawPayload: "{}"}, SourceVerify)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, updated.Status)
	})

	t.Run("amount mismatch fails the payment with a reason", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, recorder := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(55.0), SourceWebhook)
		require.NoError(t, err)

		assert.Equal(t, StatusFailed, updated.Status)
		assert.Contains(t, updated.FailureReason, "amount mismatch")
		assert.Empty(t, recorder.receipts)
	})

	t.Run("sub-kobo float noise does not fail a legitimate charge", func(t *testing.T) {
		// 3 seats at 11.10 accumulates to 33.300000000000004; the gateway
		// reports back 3330 kobo as exactly 33.3
		booking := confirmedBooking(userID, 3*11.10)
		svc, _, _, recorder := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(3330.0/100.0), SourceWebhook)
		require.NoError(t, err)

		assert.Equal(t, StatusSuccess, updated.Status)
		assert.Empty(t, updated.FailureReason)
		assert.Len(t, recorder.receipts, 1)
	})

	t.Run("pending and unknown results change nothing", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		for _, status := range []string{GatewayStatusPending, GatewayStatusUnknown} {
			updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference,
				&GatewayResult{Status: status}, SourceVerify)
			require.NoError(t, err)
			assert.Equal(t, StatusPending, updated.Status)
		}
	})

	t.Run("verify and webhook racing settle exactly once", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, recorder := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				source := SourceWebhook
				if i%2 == 0 {
					source = SourceVerify
				}
				_, _ = svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), source)
			}(i)
		}
		wg.Wait()

		updated, err := svc.ApplyGatewayResult(ctx, resp.TransactionReference, successResult(100.0), SourceVerify)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, updated.Status)
		assert.Len(t, recorder.receipts, 1)
	})
}

func TestRefundPayment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	principal := middleware.Principal{UserID: userID, Email: "rider@example.com", Role: middleware.RoleUser}

	settle := func(t *testing.T, svc Service, reference string, amount float64) {
		_, err := svc.ApplyGatewayResult(ctx, reference, &GatewayResult{
			Status: GatewayStatusSuccess,
			Amount: amount,
		}, SourceWebhook)
		require.NoError(t, err)
	}

	t.Run("refund flows gateway first then local state", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, gateway, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)
		settle(t, svc, resp.TransactionReference, 100.0)

		refunded, err := svc.Refund(ctx, principal, resp.PaymentID, &RefundRequest{Reason: "trip cancelled"})
		require.NoError(t, err)

		assert.Equal(t, StatusRefunded, refunded.Status)
		assert.Equal(t, "rf_1", refunded.RefundReference)
		assert.Equal(t, 1, gateway.refundCalls)
	})

	t.Run("pending payment cannot be refunded", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, gateway, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)

		_, err := svc.Refund(ctx, principal, resp.PaymentID, &RefundRequest{Reason: "x"})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
		assert.Equal(t, 0, gateway.refundCalls, "gateway must not be called for unrefundable payments")
	})

	t.Run("gateway refusal leaves the payment successful", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, repo, gateway, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)
		settle(t, svc, resp.TransactionReference, 100.0)
		gateway.refundErr = apperrors.ErrGatewayRejected

		_, err := svc.Refund(ctx, principal, resp.PaymentID, &RefundRequest{Reason: "x"})
		assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))

		p, err := repo.GetByReference(ctx, resp.TransactionReference)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, p.Status)
	})

	t.Run("double refund rejected", func(t *testing.T) {
		booking := confirmedBooking(userID, 100.0)
		svc, _, _, _ := setupPaymentService(t, booking)
		resp := initializedPayment(t, svc, principal, booking)
		settle(t, svc, resp.TransactionReference, 100.0)

		_, err := svc.Refund(ctx, principal, resp.PaymentID, &RefundRequest{Reason: "x"})
		require.NoError(t, err)

		_, err = svc.Refund(ctx, principal, resp.PaymentID, &RefundRequest{Reason: "again"})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	})
}

func TestVerifyPaymentOwnership(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	principal := middleware.Principal{UserID: userID, Email: "rider@example.com", Role: middleware.RoleUser}

	booking := confirmedBooking(userID, 100.0)
	svc, _, gateway, _ := setupPaymentService(t, booking)
	resp := initializedPayment(t, svc, principal, booking)
	gateway.verifyResult = &GatewayResult{Status: GatewayStatusSuccess, Amount: 100.0}

	stranger := middleware.Principal{UserID: uuid.New(), Role: middleware.RoleUser}
	_, err := svc.VerifyPayment(ctx, stranger, resp.TransactionReference)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownReference))

	verified, err := svc.VerifyPayment(ctx, principal, resp.TransactionReference)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, verified.Status)
}
