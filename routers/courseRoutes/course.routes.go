package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all user-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	userGroup := app.Group("/course")

	// Course listing and details (public published courses)
	userGroup.Get("/list", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	userGroup.Get("/:id", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseDetails)

	// Enrollment
	userGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.EnrollCourse(), controllers.EnrollInCourse)

	// Content viewing (for enrolled users)
	userGroup.Get("/:id/content", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseContent)

	// Content completion
	userGroup.Post("/:course_id/content/:content_id/complete", middleware.JWTMiddleware, validators.MarkContentComplete(), controllers.MarkContentComplete)

	// Progress tracking
	userGroup.Put("/:course_id/progress", middleware.JWTMiddleware, validators.UpdateProgress(), controllers.UpdateProgress)
	userGroup.Get("/:course_id/progress", middleware.JWTMiddleware, validators.GetCourseProgress(), controllers.GetUserProgress)

	// Certificate for one course
	userGroup.Get("/:course_id/certificate", middleware.JWTMiddleware, validators.GetCourseProgress(), controllers.GetCourseCertificate)
}
