package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/models"
)

// PropertyService enforces the deletion guard: a property with unresolved
// financial or scheduling obligations cannot be removed.
type PropertyService struct {
	db *gorm.DB
}

// NewPropertyService constructs a PropertyService.
func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{db: db}
}

// DeleteProperty removes a property and its dependent records. Preconditions
// and the cascade run in one transaction: active bookings or pending payments
// block deletion; otherwise images, the full payment history, terminal
// bookings, and finally the property itself are deleted together.
func (s *PropertyService) DeleteProperty(ctx context.Context, propertyID, callerID uuid.UUID, callerRole string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&property, "id = ?", propertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("property not found")
			}
			return err
		}

		if property.UserID != callerID && callerRole != models.RoleAdmin {
			return apperrors.Forbidden("property is not yours")
		}

		var activeBookings int64
		if err := tx.Model(&models.Booking{}).
			Where("property_id = ? AND status IN ?", propertyID,
				[]string{models.BookingStatusPending, models.BookingStatusApproved}).
			Count(&activeBookings).Error; err != nil {
			return err
		}
		if activeBookings > 0 {
			return apperrors.Conflict("property has active bookings")
		}

		var pendingPayments int64
		if err := tx.Model(&models.Payment{}).
			Where("property_id = ? AND status = ?", propertyID, models.PaymentStatusPending).
			Count(&pendingPayments).Error; err != nil {
			return err
		}
		if pendingPayments > 0 {
			return apperrors.Conflict("property has pending payments")
		}

		if err := tx.Where("property_id = ?", propertyID).
			Delete(&models.PropertyImage{}).Error; err != nil {
			return err
		}

		// Settled payments go too: no financial records may point at a
		// deleted property.
		if err := tx.Where("property_id = ?", propertyID).
			Delete(&models.Payment{}).Error; err != nil {
			return err
		}

		// Remaining bookings are all in terminal states after the guard above.
		if err := tx.Where("property_id = ?", propertyID).
			Delete(&models.Booking{}).Error; err != nil {
			return err
		}

		return tx.Delete(&property).Error
	})

	return asAppError(err)
}
