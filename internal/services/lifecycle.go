package services

import (
	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/models"
)

// Lifecycle transitions applied by the reconciliation commit. Pure functions
// on the loaded entity: callers persist inside their own transaction.

// MarkAdvertised settles a property after its advertise payment: the listing
// becomes paid and publicly Available. Invoking it on an already-settled
// property is a no-op; the return value reports whether anything changed.
func MarkAdvertised(p *models.Property) bool {
	if p.IsPaid && p.Status == models.PropertyStatusAvailable {
		return false
	}
	p.IsPaid = true
	p.Status = models.PropertyStatusAvailable
	return true
}

// ApproveBooking moves a Pending booking to Approved after its payment
// settles. Already-Approved is a no-op. Any other state is rejected: a late
// payment must not resurrect a cancelled, rejected, or completed booking.
func ApproveBooking(b *models.Booking) (bool, error) {
	switch b.Status {
	case models.BookingStatusApproved:
		return false, nil
	case models.BookingStatusPending:
		b.Status = models.BookingStatusApproved
		return true, nil
	default:
		return false, apperrors.Conflict("booking is not awaiting payment")
	}
}
