package models

import (
	"github.com/google/uuid"
)

// Payment settlement states. Only Pending -> Paid is a success path; Failed
// is applied by the expiry sweeper to abandoned payments.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusFailed  = "Failed"
)

// Payment types tagging which cascade a settlement applies.
const (
	PaymentTypeAdvertise = "Advertise"
	PaymentTypeBooking   = "Booking"
)

// Payment is one payment attempt. Amount and Commission are stored in major
// currency units; the gateway boundary converts to integer minor units.
//
// OrderRef is the merchant-assigned correlation id round-tripped through the
// gateway order, and is how a gateway notification is matched back to the
// record. TransactionID is the gateway's identifier: null while Pending and
// written exactly once on confirmation.
type Payment struct {
	BaseModel
	Amount        float64    `json:"amount"`
	Commission    float64    `json:"commission"`
	PaymentType   string     `gorm:"index" json:"payment_type"`
	PropertyID    *uuid.UUID `gorm:"type:uuid;index" json:"property_id"`
	Property      *Property  `json:"property,omitempty"`
	BookingID     *uuid.UUID `gorm:"type:uuid;index" json:"booking_id"`
	Booking       *Booking   `json:"booking,omitempty"`
	OwnerID       uuid.UUID  `gorm:"type:uuid;index" json:"owner_id"`
	RenterID      *uuid.UUID `gorm:"type:uuid;index" json:"renter_id"`
	Status        string     `gorm:"index" json:"status"`
	IsConfirmed   bool       `json:"is_confirmed"`
	TransactionID *string    `gorm:"uniqueIndex" json:"transaction_id"`
	OrderRef      string     `gorm:"uniqueIndex" json:"order_ref"`
}
