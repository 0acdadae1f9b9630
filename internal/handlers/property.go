package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/semsark/internal/middleware"
	"github.com/example/semsark/internal/models"
	"github.com/example/semsark/internal/services"
	"github.com/example/semsark/internal/utils"
)

// PropertyHandler manages property listings and their images.
type PropertyHandler struct {
	db         *gorm.DB
	properties *services.PropertyService
}

// NewPropertyHandler constructs a PropertyHandler.
func NewPropertyHandler(db *gorm.DB, properties *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{db: db, properties: properties}
}

// ListProperties returns publicly visible (Available) listings.
func (h *PropertyHandler) ListProperties(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Property{}).Where("status = ?", models.PropertyStatusAvailable)

	if city := strings.TrimSpace(c.Query("city")); city != "" {
		query = query.Where("city ILIKE ?", city)
	}
	if propType := strings.TrimSpace(c.Query("type")); propType != "" {
		query = query.Where("type = ?", propType)
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

// GetProperty loads a single property with its owner and images.
func (h *PropertyHandler) GetProperty(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var property models.Property
	if err := h.db.Preload("User").Preload("Images").
		First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": property})
}

// ListMyProperties returns the caller's own listings, any status.
func (h *PropertyHandler) ListMyProperties(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var properties []models.Property
	if err := h.db.Preload("Images").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&properties).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": properties})
}

type propertyRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	Type        string  `json:"type"`
}

// CreateProperty creates a listing in the payment-outstanding state: it
// becomes Available only after the advertise payment settles.
func (h *PropertyHandler) CreateProperty(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req propertyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Title) == "" || req.Price <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "title and a positive price are required")
	}

	property := models.Property{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		City:        req.City,
		Address:     req.Address,
		Type:        req.Type,
		Status:      models.PropertyStatusPending,
		IsPaid:      false,
		UserID:      userID,
	}

	if err := h.db.Create(&property).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      property.ID,
		"message": "Property created successfully",
	})
}

// UpdateProperty edits a listing's descriptive fields.
func (h *PropertyHandler) UpdateProperty(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req propertyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var property models.Property
	if err := h.db.First(&property, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found or not yours")
		}
		return err
	}

	property.Title = req.Title
	property.Description = req.Description
	property.Price = req.Price
	property.City = req.City
	property.Address = req.Address
	property.Type = req.Type

	if err := h.db.Save(&property).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Property updated successfully"})
}

// DeleteProperty removes a listing via the deletion guard.
func (h *PropertyHandler) DeleteProperty(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	role, _ := middleware.GetCurrentUserRole(c)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.properties.DeleteProperty(c.Context(), id, userID, role); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Property deleted successfully"})
}

type propertyImageRequest struct {
	URL string `json:"url"`
}

// AddPropertyImage attaches an image URL to a listing.
func (h *PropertyHandler) AddPropertyImage(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var property models.Property
	if err := h.db.First(&property, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "property not found or not yours")
		}
		return err
	}

	var req propertyImageRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "image url is required")
	}

	image := models.PropertyImage{PropertyID: property.ID, URL: req.URL}
	if err := h.db.Create(&image).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": image})
}

// ListPropertyImages returns all images for a listing.
func (h *PropertyHandler) ListPropertyImages(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var images []models.PropertyImage
	if err := h.db.Where("property_id = ?", id).Find(&images).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": images})
}

// DeletePropertyImage removes a single image from a listing the caller owns.
func (h *PropertyHandler) DeletePropertyImage(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	imageID, err := uuid.Parse(c.Params("imageId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid image id")
	}

	var image models.PropertyImage
	if err := h.db.First(&image, "id = ?", imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "image not found")
		}
		return err
	}

	var property models.Property
	if err := h.db.First(&property, "id = ? AND user_id = ?", image.PropertyID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusForbidden, "image belongs to a property that is not yours")
		}
		return err
	}

	if err := h.db.Delete(&image).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Image deleted successfully"})
}
