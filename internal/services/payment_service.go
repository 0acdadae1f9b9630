package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/config"
	"github.com/example/semsark/internal/gateway"
	"github.com/example/semsark/internal/models"
)

// PaymentService owns Payment records: creation, commission arithmetic, and
// the payment-history projection. Settlement lives in ReconcileService.
type PaymentService struct {
	db  *gorm.DB
	gw  gateway.Client
	cfg *config.Config
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, gw gateway.Client, cfg *config.Config) *PaymentService {
	return &PaymentService{db: db, gw: gw, cfg: cfg}
}

// InitiatedPayment is returned to the client after a payment is created and
// a gateway redirect has been obtained.
type InitiatedPayment struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	Amount      float64   `json:"amount"`
	Commission  float64   `json:"commission"`
	RedirectURL string    `json:"redirect_url"`
}

// PaymentHistory is the projection returned by ListPaymentsFor.
type PaymentHistory struct {
	ID            uuid.UUID  `json:"id"`
	Amount        float64    `json:"amount"`
	Commission    float64    `json:"commission"`
	PaymentType   string     `json:"payment_type"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	PropertyID    *uuid.UUID `json:"property_id"`
	PropertyTitle string     `json:"property_title,omitempty"`
	BookingID     *uuid.UUID `json:"booking_id"`
}

// CreateAdvertisePayment creates a Pending advertise payment for the caller's
// property and returns the gateway redirect. The property is driven back into
// the payment-outstanding state in the same transaction as the payment row.
func (s *PaymentService) CreateAdvertisePayment(ctx context.Context, propertyID, callerID uuid.UUID) (*InitiatedPayment, error) {
	var payer models.User
	if err := s.db.WithContext(ctx).First(&payer, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err)
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&property, "id = ?", propertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("property not found")
			}
			return err
		}

		if property.UserID != callerID {
			return apperrors.Forbidden("property is not yours")
		}

		if property.IsPaid {
			return apperrors.Conflict("property has already been paid for")
		}

		payment = models.Payment{
			Amount:      property.Price,
			Commission:  property.Price * s.cfg.AdvertiseCommissionRate,
			PaymentType: models.PaymentTypeAdvertise,
			PropertyID:  &property.ID,
			OwnerID:     callerID,
			Status:      models.PaymentStatusPending,
			OrderRef:    uuid.NewString(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		property.IsPaid = false
		property.Status = models.PropertyStatusPending
		return tx.Save(&property).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}

	redirectURL, err := s.requestRedirect(ctx, &payment, &payer)
	if err != nil {
		return nil, err
	}

	return &InitiatedPayment{
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Commission:  payment.Commission,
		RedirectURL: redirectURL,
	}, nil
}

// CreateBookingPayment creates a Pending booking payment. The booking itself
// stays Pending: only a settled payment approves it.
func (s *PaymentService) CreateBookingPayment(ctx context.Context, bookingID, callerID uuid.UUID) (*InitiatedPayment, error) {
	var payer models.User
	if err := s.db.WithContext(ctx).First(&payer, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err)
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ? AND renter_id = ?", bookingID, callerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("booking not found or not yours")
			}
			return err
		}

		if booking.Status != models.BookingStatusPending {
			return apperrors.Conflict("payment already made or booking is not in pending state")
		}

		var property models.Property
		if err := tx.First(&property, "id = ?", booking.PropertyID).Error; err != nil {
			return err
		}

		days := booking.DurationDays()
		if days <= 0 {
			return apperrors.InvalidArgument("booking date range is invalid")
		}

		amount := property.Price * float64(days)
		payment = models.Payment{
			Amount:      amount,
			Commission:  amount * s.cfg.BookingCommissionRate,
			PaymentType: models.PaymentTypeBooking,
			BookingID:   &booking.ID,
			OwnerID:     property.UserID,
			RenterID:    &callerID,
			Status:      models.PaymentStatusPending,
			OrderRef:    uuid.NewString(),
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}

	redirectURL, err := s.requestRedirect(ctx, &payment, &payer)
	if err != nil {
		return nil, err
	}

	return &InitiatedPayment{
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Commission:  payment.Commission,
		RedirectURL: redirectURL,
	}, nil
}

// ListPaymentsFor returns the payment history visible to a user, newest first.
func (s *PaymentService) ListPaymentsFor(ctx context.Context, userID uuid.UUID) ([]PaymentHistory, error) {
	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Preload("Property").
		Where("owner_id = ? OR renter_id = ?", userID, userID).
		Order("created_at desc").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	history := make([]PaymentHistory, 0, len(payments))
	for _, p := range payments {
		entry := PaymentHistory{
			ID:          p.ID,
			Amount:      p.Amount,
			Commission:  p.Commission,
			PaymentType: p.PaymentType,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			PropertyID:  p.PropertyID,
			BookingID:   p.BookingID,
		}
		if p.Property != nil {
			entry.PropertyTitle = p.Property.Title
		}
		history = append(history, entry)
	}

	return history, nil
}

// requestRedirect walks the gateway flow for a freshly created payment. The
// payment row is already committed; a gateway failure leaves it Pending so
// the client can re-initiate.
func (s *PaymentService) requestRedirect(ctx context.Context, payment *models.Payment, payer *models.User) (string, error) {
	authToken, err := s.gw.Authenticate(ctx)
	if err != nil {
		return "", asGatewayError(err)
	}

	amountCents := gateway.ToCents(payment.Amount)
	orderID, err := s.gw.CreateOrder(ctx, authToken, amountCents, s.cfg.Currency, payment.OrderRef)
	if err != nil {
		return "", asGatewayError(err)
	}

	handle, err := s.gw.CreatePaymentHandle(ctx, authToken, orderID, amountCents, payer.Email, payer.DisplayName())
	if err != nil {
		return "", asGatewayError(err)
	}

	return handle, nil
}

func asGatewayError(err error) error {
	if errors.Is(err, gateway.ErrUnavailable) {
		return apperrors.GatewayUnavailable(err)
	}
	return apperrors.Internal(err)
}

// asAppError passes domain errors through and wraps anything else as internal.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(err)
}
