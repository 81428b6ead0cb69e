package controllers

import (
	"strconv"

	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications lists the current user's notification inbox
func GetNotifications(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db.Model(&models.Notification{}).Where("user_id = ? AND is_deleted = ?", userID, false)
	if c.Query("unread") == "true" {
		db = db.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := db.Order("created_at desc").Limit(100).Find(&notifications).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch notifications!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notifications fetched successfully!", fiber.Map{
		"notifications": notifications,
		"total":         len(notifications),
	})
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	notificationID, err := strconv.Atoi(c.Params("id"))
	if err != nil || notificationID <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid notification ID!", nil)
	}

	var notification models.Notification
	if err := database.Database.Db.Where("id = ? AND user_id = ? AND is_deleted = ?", notificationID, userID, false).First(&notification).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Notification not found!", nil)
	}

	if err := database.Database.Db.Model(&notification).Update("is_read", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update notification!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification marked as read!", nil)
}

// MarkAllNotificationsRead marks the whole inbox as read
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	if err := database.Database.Db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ? AND is_deleted = ?", userID, false, false).
		Update("is_read", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update notifications!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "All notifications marked as read!", nil)
}

// notificationMailer is set at startup for the admin re-send path.
var notificationMailer utils.Mailer

// UseMailer wires the mail transport used for admin re-sends.
func UseMailer(m utils.Mailer) {
	notificationMailer = m
}

// ResendNotification re-attempts email delivery for a persisted
// notification (admin only)
func ResendNotification(c *fiber.Ctx) error {
	notificationID, err := strconv.Atoi(c.Params("id"))
	if err != nil || notificationID <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid notification ID!", nil)
	}

	var notification models.Notification
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", notificationID, false).First(&notification).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Notification not found!", nil)
	}

	if !utils.RetryNotificationEmail(database.Database.Db, notificationMailer, &notification) {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to re-send notification email!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification email re-sent!", notification)
}
