package userRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupUserRoutes sets up the current user's read views and the admin
// notification re-send
func SetupUserRoutes(app *fiber.App) {
	userGroup := app.Group("/user")

	userGroup.Get("/enrollments", middleware.JWTMiddleware, controllers.GetUserEnrollmentsList)
	userGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)

	// Notification inbox
	userGroup.Get("/notifications", middleware.JWTMiddleware, controllers.GetNotifications)
	userGroup.Put("/notifications/:id/read", middleware.JWTMiddleware, controllers.MarkNotificationRead)
	userGroup.Put("/notifications/read-all", middleware.JWTMiddleware, controllers.MarkAllNotificationsRead)

	// Admin re-send for a persisted notification
	adminGroup := app.Group("/admin")
	adminGroup.Post("/notifications/:id/resend", middleware.JWTMiddleware, middleware.AdminOnly, controllers.ResendNotification)
}
