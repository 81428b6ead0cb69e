package controllers

import (
	"errors"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// UpdateProgress is the direct percentage write for a learner's course
// progress. Completion side effects (certificate, notifications) run after
// the write and never fail it.
func UpdateProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	reqData, ok := c.Locals("validatedProgress").(*struct {
		Percentage *int `json:"percentage"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	progress, err := progressService.Update(c.Context(), userID, uint(courseID), *reqData.Percentage)
	if err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Percentage must be between 0 and 100!", nil)
		}
		if errors.Is(err, services.ErrNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "No active enrollment for this course!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", progress)
}

// MarkContentComplete records a completed content item and recomputes the
// enrollment's percentage through the progress pipeline.
func MarkContentComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	// Retrieve validated IDs
	courseID := c.Locals("courseID").(int)
	contentID := c.Locals("contentID").(int)

	// Check if course exists and is published
	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	// Check if course content exists
	var content courseModels.CourseContent
	if err := database.Database.Db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?", contentID, courseID, false, true).First(&content).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course content not found!", nil)
	}

	// Check if user is enrolled in the course
	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	// Check if content is already marked as completed
	var existingCompletion courseModels.ContentCompletion
	if err := database.Database.Db.Where("user_id = ? AND course_content_id = ? AND is_deleted = ?", userID, contentID, false).First(&existingCompletion).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Content already marked as completed!", nil)
	}

	// Create completion record
	completion := courseModels.ContentCompletion{
		UserID:          userID,
		CourseID:        uint(courseID),
		CourseContentID: uint(contentID),
		Status:          "COMPLETED",
	}

	if err := database.Database.Db.Create(&completion).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark content as completed!", nil)
	}

	// Recompute enrollment progress through the pipeline
	progress, err := progressService.RecomputeFromCompletions(c.Context(), userID, uint(courseID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Content marked as completed successfully!", fiber.Map{
		"completion": completion,
		"progress":   progress,
	})
}

// GetUserProgress returns the learner's progress for a course
func GetUserProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	// Check enrollment
	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	var progress courseModels.CourseProgress
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&progress).Error; err != nil {
		// Not started yet
		progress = courseModels.CourseProgress{UserID: userID, CourseID: uint(courseID)}
	}

	var completedIDs []uint
	database.Database.Db.Model(&courseModels.ContentCompletion{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		Pluck("course_content_id", &completedIDs)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"progress":      progress,
		"completed_ids": completedIDs,
	})
}
