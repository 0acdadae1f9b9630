package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/semsark/internal/middleware"
	"github.com/example/semsark/internal/models"
)

// BookingHandler manages rental booking requests.
type BookingHandler struct {
	db *gorm.DB
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(db *gorm.DB) *BookingHandler {
	return &BookingHandler{db: db}
}

type bookingRequest struct {
	PropertyID string `json:"property_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// CreateBooking places a booking request against an Available property.
// It rejects date ranges overlapping an already approved booking.
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	renterID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req bookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property_id")
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid start_date")
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid end_date")
	}
	if !end.After(start) {
		return fiber.NewError(fiber.StatusBadRequest, "end_date must be after start_date")
	}

	var property models.Property
	if err := h.db.First(&property, "id = ?", propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return err
	}
	if property.Status != models.PropertyStatusAvailable {
		return fiber.NewError(fiber.StatusConflict, "property is not available for booking")
	}
	if property.UserID == renterID {
		return fiber.NewError(fiber.StatusBadRequest, "you cannot book your own property")
	}

	var overlapping int64
	if err := h.db.Model(&models.Booking{}).
		Where("property_id = ? AND status = ?", propertyID, models.BookingStatusApproved).
		Where("start_date < ? AND end_date > ?", end, start).
		Count(&overlapping).Error; err != nil {
		return err
	}
	if overlapping > 0 {
		return fiber.NewError(fiber.StatusConflict, "property is already booked for these dates")
	}

	booking := models.Booking{
		PropertyID: propertyID,
		RenterID:   renterID,
		StartDate:  start,
		EndDate:    end,
		Status:     models.BookingStatusPending,
	}
	if err := h.db.Create(&booking).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      booking.ID,
		"message": "Booking created successfully",
	})
}

// ListMyBookings returns bookings the caller placed as a renter.
func (h *BookingHandler) ListMyBookings(c *fiber.Ctx) error {
	renterID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var bookings []models.Booking
	if err := h.db.Preload("Property").
		Where("renter_id = ?", renterID).
		Order("created_at desc").
		Find(&bookings).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": bookings})
}

// ListPropertyBookings returns bookings on a property the caller owns.
func (h *BookingHandler) ListPropertyBookings(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	propertyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var property models.Property
	if err := h.db.First(&property, "id = ? AND user_id = ?", propertyID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found or not yours")
		}
		return err
	}

	var bookings []models.Booking
	if err := h.db.Where("property_id = ?", propertyID).
		Order("created_at desc").
		Find(&bookings).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": bookings})
}

// CancelBooking lets the renter withdraw a booking that has not been
// paid for yet.
func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	renterID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var booking models.Booking
	if err := h.db.First(&booking, "id = ? AND renter_id = ?", id, renterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "booking not found or not yours")
		}
		return err
	}

	if booking.Status != models.BookingStatusPending {
		return fiber.NewError(fiber.StatusConflict, "only pending bookings can be cancelled")
	}
	if time.Now().After(booking.EndDate) {
		return fiber.NewError(fiber.StatusConflict, "booking period has already ended")
	}

	booking.Status = models.BookingStatusCancelled
	if err := h.db.Save(&booking).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Booking cancelled successfully"})
}
