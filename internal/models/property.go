package models

import (
	"github.com/google/uuid"
)

// Property listing states.
const (
	PropertyStatusPending   = "Pending"
	PropertyStatusAvailable = "Available"
	PropertyStatusRejected  = "Rejected"
)

// Property is a rental listing. Price is the per-day rate in major currency
// units. A property becomes Available only after its advertise payment settles.
type Property struct {
	BaseModel
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	City        string          `json:"city"`
	Address     string          `json:"address"`
	Type        string          `json:"type"`
	Status      string          `gorm:"index" json:"status"`
	IsPaid      bool            `json:"is_paid"`
	UserID      uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	User        *User           `json:"user,omitempty"`
	Images      []PropertyImage `json:"images,omitempty"`
}

// PropertyImage stores an uploaded image URL for a property.
type PropertyImage struct {
	BaseModel
	PropertyID uuid.UUID `gorm:"type:uuid;index" json:"property_id"`
	URL        string    `json:"url"`
}
