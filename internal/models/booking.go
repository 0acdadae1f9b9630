package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking states. A booking is created Pending and is moved to Approved only
// by a settled booking payment.
const (
	BookingStatusPending   = "Pending"
	BookingStatusApproved  = "Approved"
	BookingStatusCancelled = "Cancelled"
	BookingStatusRejected  = "Rejected"
	BookingStatusCompleted = "Completed"
)

// Booking is a renter's reservation of a property for a date range.
type Booking struct {
	BaseModel
	PropertyID uuid.UUID `gorm:"type:uuid;index" json:"property_id"`
	Property   *Property `json:"property,omitempty"`
	RenterID   uuid.UUID `gorm:"type:uuid;index" json:"renter_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     string    `gorm:"index" json:"status"`
}

// DurationDays returns the whole number of billed days.
func (b *Booking) DurationDays() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}
