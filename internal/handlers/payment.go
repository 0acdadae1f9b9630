package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/middleware"
	"github.com/example/semsark/internal/services"
)

// PaymentHandler exposes payment initiation, history, and the two
// confirmation entry points.
type PaymentHandler struct {
	payments  *services.PaymentService
	reconcile *services.ReconcileService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService, reconcile *services.ReconcileService) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconcile: reconcile}
}

type advertisePaymentRequest struct {
	PropertyID string `json:"property_id"`
}

// CreateAdvertisePayment initiates the listing fee for a property.
func (h *PaymentHandler) CreateAdvertisePayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req advertisePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid property_id")
	}

	initiated, err := h.payments.CreateAdvertisePayment(c.Context(), propertyID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":      "Payment initiated. Please proceed to payment to publish the property.",
		"payment_id":   initiated.PaymentID,
		"commission":   initiated.Commission,
		"redirect_url": initiated.RedirectURL,
	})
}

type bookingPaymentRequest struct {
	BookingID string `json:"booking_id"`
}

// CreateBookingPayment initiates the reservation fee for a booking.
func (h *PaymentHandler) CreateBookingPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req bookingPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid booking_id")
	}

	initiated, err := h.payments.CreateBookingPayment(c.Context(), bookingID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":      "Booking payment initiated. Please proceed to payment.",
		"payment_id":   initiated.PaymentID,
		"total_amount": initiated.Amount,
		"commission":   initiated.Commission,
		"redirect_url": initiated.RedirectURL,
	})
}

// ListMyPayments returns the caller's payment history, newest first.
func (h *PaymentHandler) ListMyPayments(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	history, err := h.payments.ListPaymentsFor(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": history})
}

// callbackPayload mirrors the gateway's notification schema. The gateway
// delivers it as query parameters on GET and as a JSON body on POST.
type callbackPayload struct {
	ID              string `json:"id" query:"id"`
	Success         string `json:"success" query:"success"`
	AmountCents     string `json:"amount_cents" query:"amount_cents"`
	Order           string `json:"order" query:"order"`
	MerchantOrderID string `json:"merchant_order_id" query:"merchant_order_id"`
}

// Callback handles gateway-initiated notifications. Delivery is at-least-once
// and unauthenticated; anything unrecognized is acknowledged with 200 and no
// state change, so the gateway does not hammer us with redeliveries.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	var payload callbackPayload
	if c.Method() == fiber.MethodGet {
		if err := c.QueryParser(&payload); err != nil {
			log.Printf("[Callback] Failed to parse query: %v", err)
			return c.SendStatus(fiber.StatusOK)
		}
	} else {
		if err := c.BodyParser(&payload); err != nil {
			log.Printf("[Callback] Failed to parse body: %v", err)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	amountCents, _ := strconv.ParseInt(payload.AmountCents, 10, 64)
	notification := services.CallbackNotification{
		TransactionID:    payload.ID,
		Success:          payload.Success == "true",
		AmountCents:      amountCents,
		GatewayOrderID:   payload.Order,
		MerchantOrderRef: payload.MerchantOrderID,
	}

	result, err := h.reconcile.HandleCallback(c.Context(), notification)
	if err != nil {
		// Terminal matching failures are acknowledged; only real internal
		// errors surface as 500 so the gateway retries.
		if apperrors.Is(err, apperrors.CodePaymentNotFound) || apperrors.Is(err, apperrors.CodeConflict) {
			log.Printf("[Callback] No state change for txn %s: %v", payload.ID, err)
			return c.SendStatus(fiber.StatusOK)
		}
		return err
	}

	if result == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	return c.JSON(fiber.Map{
		"payment_id":   result.PaymentID,
		"payment_type": result.PaymentType,
	})
}

type confirmRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Confirm handles client-asserted confirmation of a gateway transaction.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.reconcile.ConfirmTransaction(c.Context(), req.TransactionID, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":        "Payment confirmed and saved successfully.",
		"transaction_id": result.TransactionID,
		"payment_id":     result.PaymentID,
		"payment_type":   result.PaymentType,
	})
}
