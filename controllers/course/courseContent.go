package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ContentWithStatus represents content with the user's completion status
type ContentWithStatus struct {
	courseModels.CourseContent
	IsCompleted bool `json:"is_completed"`
}

func GetCourseContent(c *fiber.Ctx) error {
	// Retrieve userId from JWT middleware
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	// Check if user exists
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userId, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	// Check enrollment
	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userId, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this course first!", nil)
	}

	// Get optional filters from query params
	db := database.Database.Db.Model(&courseModels.CourseContent{}).Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true)

	if moduleIDStr := c.Query("module_id"); moduleIDStr != "" {
		if moduleID, err := strconv.Atoi(moduleIDStr); err == nil && moduleID > 0 {
			db = db.Where("module_id = ?", moduleID)
		}
	}
	if dayStr := c.Query("day"); dayStr != "" {
		if day, err := strconv.Atoi(dayStr); err == nil && day > 0 {
			db = db.Where("day = ?", day)
		}
	}

	var contents []courseModels.CourseContent
	if err := db.Order("module_id asc, day asc, order_index asc").Find(&contents).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course content!", nil)
	}

	// Enrich contents with completion status
	result := make([]ContentWithStatus, len(contents))
	for i, content := range contents {
		result[i] = ContentWithStatus{CourseContent: content}

		var completion courseModels.ContentCompletion
		if err := database.Database.Db.Where("user_id = ? AND course_content_id = ? AND is_deleted = ?", userId, content.ID, false).First(&completion).Error; err == nil {
			result[i].IsCompleted = true
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course content fetched successfully!", fiber.Map{
		"contents": result,
	})
}
