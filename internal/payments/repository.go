package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trekka/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateReference signals a transaction reference collision on insert;
// the service retries with a fresh reference.
var ErrDuplicateReference = errors.New("duplicate transaction reference")

type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int64, error)

	// The two reconciliation transitions. Both are compare-and-set updates
	// guarded on non-terminal status; the boolean reports whether this call
	// won the transition.
	TransitionToSuccess(ctx context.Context, reference, gatewayReference, payload string) (bool, error)
	TransitionToFailed(ctx context.Context, reference, reason, payload string) (bool, error)

	MarkRefunded(ctx context.Context, id uuid.UUID, refundReference string, amount float64, reason string) (bool, error)
	MarkReceiptSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("transaction_reference = ?", reference).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownReference
		}
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}
	return &payment, nil
}

func (r *repository) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int64, error) {
	var payments []Payment
	var total int64

	err := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, total, nil
}

func (r *repository) TransitionToSuccess(ctx context.Context, reference, gatewayReference, payload string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("transaction_reference = ? AND status IN ?", reference, []string{StatusPending, StatusProcessing}).
		Updates(map[string]interface{}{
			"status":            StatusSuccess,
			"gateway_reference": gatewayReference,
			"gateway_response":  payload,
			"completed_at":      now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition payment to success: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) TransitionToFailed(ctx context.Context, reference, reason, payload string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("transaction_reference = ? AND status IN ?", reference, []string{StatusPending, StatusProcessing}).
		Updates(map[string]interface{}{
			"status":           StatusFailed,
			"failure_reason":   reason,
			"gateway_response": payload,
			"failed_at":        now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition payment to failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkRefunded only fires from success; refunding anything else means the
// caller skipped the precondition.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, refundReference string, amount float64, reason string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusSuccess).
		Updates(map[string]interface{}{
			"status":           StatusRefunded,
			"refund_reference": refundReference,
			"refund_amount":    amount,
			"refund_reason":    reason,
			"refunded_at":      now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark payment refunded: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkReceiptSent claims the one receipt notification for a payment.
func (r *repository) MarkReceiptSent(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND receipt_sent_at IS NULL", id).
		Update("receipt_sent_at", now)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark receipt sent: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
