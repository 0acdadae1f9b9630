package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/semsark/internal/config"
	"github.com/example/semsark/internal/gateway"
	"github.com/example/semsark/internal/handlers"
	"github.com/example/semsark/internal/middleware"
	"github.com/example/semsark/internal/models"
	"github.com/example/semsark/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, gw gateway.Client, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	paymentService := services.NewPaymentService(db, gw, cfg)
	reconcileService := services.NewReconcileService(db, gw, telegramService, cfg.AllowUnreferencedCallbacks)
	propertyService := services.NewPropertyService(db)

	authHandler := handlers.NewAuthHandler(db, cfg)
	propertyHandler := handlers.NewPropertyHandler(db, propertyService)
	bookingHandler := handlers.NewBookingHandler(db)
	paymentHandler := handlers.NewPaymentHandler(paymentService, reconcileService)
	profileHandler := handlers.NewProfileHandler(db)
	adminHandler := handlers.NewAdminHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public property browsing
	api.Get("/properties", propertyHandler.ListProperties)
	api.Get("/properties/:id", propertyHandler.GetProperty)
	api.Get("/properties/:id/images", propertyHandler.ListPropertyImages)

	// Gateway callback is unauthenticated: the gateway posts here directly.
	api.Get("/payments/callback", paymentHandler.Callback)
	api.Post("/payments/callback", paymentHandler.Callback)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)

	owner := middleware.RequireRole(models.RoleOwner, models.RoleAdmin)
	protected.Get("/my/properties", propertyHandler.ListMyProperties)
	protected.Post("/properties", owner, propertyHandler.CreateProperty)
	protected.Put("/properties/:id", owner, propertyHandler.UpdateProperty)
	protected.Delete("/properties/:id", propertyHandler.DeleteProperty)
	protected.Post("/properties/:id/images", owner, propertyHandler.AddPropertyImage)
	protected.Delete("/properties/images/:imageId", owner, propertyHandler.DeletePropertyImage)
	protected.Get("/properties/:id/bookings", owner, bookingHandler.ListPropertyBookings)

	renter := middleware.RequireRole(models.RoleRenter, models.RoleAdmin)
	protected.Post("/bookings", renter, bookingHandler.CreateBooking)
	protected.Get("/my/bookings", bookingHandler.ListMyBookings)
	protected.Post("/bookings/:id/cancel", renter, bookingHandler.CancelBooking)

	protected.Post("/payments/advertise", owner, paymentHandler.CreateAdvertisePayment)
	protected.Post("/payments/booking", renter, paymentHandler.CreateBookingPayment)
	protected.Get("/payments/mine", paymentHandler.ListMyPayments)
	protected.Post("/payments/confirm", paymentHandler.Confirm)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/properties", adminHandler.ListAllProperties)
	admin.Post("/properties/:id/reject", adminHandler.RejectProperty)
	admin.Get("/payments", adminHandler.ListAllPayments)
}
