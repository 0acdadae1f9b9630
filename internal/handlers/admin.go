package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/semsark/internal/models"
	"github.com/example/semsark/internal/utils"
)

// AdminHandler serves the moderation and dashboard endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// Dashboard returns platform-wide counts and settled commission revenue.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	var userCount, propertyCount, bookingCount, paymentCount int64
	if err := h.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Property{}).Count(&propertyCount).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Booking{}).Count(&bookingCount).Error; err != nil {
		return err
	}
	if err := h.db.Model(&models.Payment{}).Count(&paymentCount).Error; err != nil {
		return err
	}

	var revenue float64
	if err := h.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusPaid).
		Select("COALESCE(SUM(commission), 0)").
		Scan(&revenue).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"users":      userCount,
			"properties": propertyCount,
			"bookings":   bookingCount,
			"payments":   paymentCount,
			"revenue":    revenue,
		},
	})
}

// ListUsers returns all registered users, newest first.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := h.db.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ListAllProperties returns listings in every status, optionally
// filtered, for moderation.
func (h *AdminHandler) ListAllProperties(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Property{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var properties []models.Property
	if err := query.Preload("User").Preload("Images").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&properties).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    properties,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// RejectProperty pulls a listing off the marketplace.
func (h *AdminHandler) RejectProperty(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var property models.Property
	if err := h.db.First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return err
	}

	property.Status = models.PropertyStatusRejected
	if err := h.db.Save(&property).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Property rejected"})
}

// ListAllPayments returns the full payment ledger, newest first.
func (h *AdminHandler) ListAllPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var payments []models.Payment
	if err := query.Preload("Property").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&payments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
