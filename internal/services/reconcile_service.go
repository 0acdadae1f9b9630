package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/gateway"
	"github.com/example/semsark/internal/models"
)

// ReconcileService correlates gateway notifications back to Pending payments
// and commits the settlement plus its lifecycle cascade in one transaction.
//
// Matching is by OrderRef, the merchant correlation id round-tripped through
// the gateway order. The legacy "most recent Pending payment" heuristic can
// cross-wire concurrent payments from different users and is kept only as an
// opt-in fallback for callbacks that carry no merchant reference; when used
// its locked read serializes against concurrent confirmations.
type ReconcileService struct {
	db       *gorm.DB
	gw       gateway.Client
	telegram *TelegramService

	allowUnreferenced bool
}

// NewReconcileService constructs a ReconcileService. telegram may be nil.
func NewReconcileService(db *gorm.DB, gw gateway.Client, telegram *TelegramService, allowUnreferenced bool) *ReconcileService {
	return &ReconcileService{db: db, gw: gw, telegram: telegram, allowUnreferenced: allowUnreferenced}
}

// CallbackNotification is the parsed gateway webhook payload.
type CallbackNotification struct {
	TransactionID    string
	Success          bool
	AmountCents      int64
	GatewayOrderID   string
	MerchantOrderRef string
}

// ConfirmResult reports the settled payment; AlreadyConfirmed marks the
// idempotent no-op path taken on duplicate delivery.
type ConfirmResult struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	PaymentType      string    `json:"payment_type"`
	TransactionID    string    `json:"transaction_id"`
	AlreadyConfirmed bool      `json:"-"`
}

// HandleCallback processes a gateway-initiated notification. Delivery is
// at-least-once and unauthenticated: unsuccessful or unmatched notifications
// produce no state change. A nil result with nil error means the
// notification was acknowledged and dropped.
func (s *ReconcileService) HandleCallback(ctx context.Context, n CallbackNotification) (*ConfirmResult, error) {
	if !n.Success || n.TransactionID == "" {
		log.Printf("[Reconcile] Dropping unsuccessful callback (txn=%q order=%q)", n.TransactionID, n.GatewayOrderID)
		return nil, nil
	}

	if n.MerchantOrderRef != "" {
		return s.settle(ctx, n.TransactionID, s.locateByOrderRef(n.MerchantOrderRef))
	}

	if !s.allowUnreferenced {
		log.Printf("[Reconcile] Callback without merchant order ref rejected (txn=%s)", n.TransactionID)
		return nil, apperrors.ErrPaymentNotFound
	}

	return s.settle(ctx, n.TransactionID, s.locateLatestPending(nil))
}

// ConfirmTransaction processes a client-asserted confirmation: the caller
// supplies the gateway transaction id, and its status is verified with the
// gateway before any state change. Matching is scoped to payments the caller
// participates in.
func (s *ReconcileService) ConfirmTransaction(ctx context.Context, transactionID string, callerID uuid.UUID) (*ConfirmResult, error) {
	if transactionID == "" {
		return nil, apperrors.InvalidArgument("transaction id is required")
	}

	success, err := s.gw.QueryTransactionStatus(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, apperrors.GatewayUnavailable(err)
		}
		return nil, apperrors.Internal(err)
	}
	if !success {
		return nil, apperrors.ErrPaymentNotCompleted
	}

	return s.settle(ctx, transactionID, s.locateLatestPending(&callerID))
}

// settle runs the commit algorithm under a single transaction: locate the
// target payment with a row lock, re-check its state, flip it to Paid, and
// cascade the lifecycle transition. Any failure rolls back the whole unit.
func (s *ReconcileService) settle(ctx context.Context, transactionID string, locate paymentLocator) (*ConfirmResult, error) {
	var result *ConfirmResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := locate(tx, transactionID)
		if err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusPaid {
			// Duplicate delivery: success without re-applying side effects.
			result = &ConfirmResult{
				PaymentID:        payment.ID,
				PaymentType:      payment.PaymentType,
				TransactionID:    derefString(payment.TransactionID),
				AlreadyConfirmed: true,
			}
			return nil
		}

		if payment.Status != models.PaymentStatusPending || payment.TransactionID != nil {
			return apperrors.Conflict("payment is not awaiting confirmation")
		}

		// The transaction id is write-once across all payments.
		var holder models.Payment
		err = tx.Where("transaction_id = ?", transactionID).First(&holder).Error
		if err == nil && holder.ID != payment.ID {
			return apperrors.Conflict("transaction already recorded for another payment")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		payment.Status = models.PaymentStatusPaid
		payment.IsConfirmed = true
		payment.TransactionID = &transactionID
		if err := tx.Save(payment).Error; err != nil {
			return err
		}

		if payment.BookingID != nil {
			if err := s.cascadeBooking(tx, *payment.BookingID); err != nil {
				return err
			}
		}

		if payment.PropertyID != nil {
			if err := s.cascadeProperty(tx, *payment.PropertyID); err != nil {
				return err
			}
		}

		result = &ConfirmResult{
			PaymentID:     payment.ID,
			PaymentType:   payment.PaymentType,
			TransactionID: transactionID,
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	if result != nil && !result.AlreadyConfirmed {
		log.Printf("[Reconcile] Payment %s confirmed (type=%s txn=%s)", result.PaymentID, result.PaymentType, transactionID)
		s.notifySettled(result)
	}

	return result, nil
}

func (s *ReconcileService) cascadeBooking(tx *gorm.DB, bookingID uuid.UUID) error {
	var booking models.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Reconcile] Booking %s no longer exists, skipping cascade", bookingID)
			return nil
		}
		return err
	}

	changed, err := ApproveBooking(&booking)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return tx.Save(&booking).Error
}

func (s *ReconcileService) cascadeProperty(tx *gorm.DB, propertyID uuid.UUID) error {
	var property models.Property
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&property, "id = ?", propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Reconcile] Property %s no longer exists, skipping cascade", propertyID)
			return nil
		}
		return err
	}

	if !MarkAdvertised(&property) {
		return nil
	}
	return tx.Save(&property).Error
}

// paymentLocator finds the settlement target inside the commit transaction,
// holding a row lock on the returned payment.
type paymentLocator func(tx *gorm.DB, transactionID string) (*models.Payment, error)

// locateByOrderRef matches on the merchant correlation id. No match is a
// terminal PaymentNotFound.
func (s *ReconcileService) locateByOrderRef(orderRef string) paymentLocator {
	return func(tx *gorm.DB, transactionID string) (*models.Payment, error) {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "order_ref = ?", orderRef).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrPaymentNotFound
			}
			return nil, err
		}
		return &payment, nil
	}
}

// locateLatestPending is the creation-time-ordered fallback. A payment that
// already carries the transaction id is preferred, which makes duplicate
// confirmations no-ops. When callerID is set the search is scoped to that
// user's payments, so concurrent Pending payments from different users
// cannot be cross-wired.
func (s *ReconcileService) locateLatestPending(callerID *uuid.UUID) paymentLocator {
	return func(tx *gorm.DB, transactionID string) (*models.Payment, error) {
		var settled models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&settled, "transaction_id = ?", transactionID).Error
		if err == nil {
			return &settled, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND transaction_id IS NULL", models.PaymentStatusPending)
		if callerID != nil {
			query = query.Where("owner_id = ? OR renter_id = ?", *callerID, *callerID)
		}

		var payment models.Payment
		if err := query.Order("created_at desc").First(&payment).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			// A concurrent confirmation may have settled the payment while
			// this statement waited on its row lock. Re-check the transaction
			// id before reporting no match.
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&settled, "transaction_id = ?", transactionID).Error
			if err == nil {
				return &settled, nil
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrPaymentNotFound
			}
			return nil, err
		}
		return &payment, nil
	}
}

func (s *ReconcileService) notifySettled(result *ConfirmResult) {
	if s.telegram == nil {
		return
	}
	go func() {
		if err := s.telegram.NotifyPaymentSettled(PaymentSettledNotification{
			PaymentID:     result.PaymentID.String(),
			PaymentType:   result.PaymentType,
			TransactionID: result.TransactionID,
		}); err != nil {
			log.Printf("[Reconcile] Telegram notification failed: %v", err)
		}
	}()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
