package main

import (
	"context"
	"log"

	"lms/config"
	courseControllers "lms/controllers/course"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/realtime"
	authRoutes "lms/routers/authRoutes"
	courseRoutes "lms/routers/courseRoutes"
	userRoutes "lms/routers/userRoutes"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve static files from the public folder (certificates included)
	app.Static("/", "./public")

	db := database.Database.Db

	// Realtime channel: in-process hub by default, external gateway when
	// configured
	hub := realtime.NewHub()
	var publisher services.RealtimePublisher = hub
	if config.AppConfig.PushGatewayURL != "" {
		publisher = realtime.NewGatewayPublisher(config.AppConfig.PushGatewayURL)
	}

	// Mail transport
	var mailer services.Mailer = utils.SMTPMailer{}
	if config.AppConfig.MailProvider == "SENDGRID" {
		mailer = utils.NewSendGridMailer(config.AppConfig.SendGridAPIKey, config.AppConfig.EmailSender)
	}

	// Certification pipeline
	documentStore := utils.NewLocalDocumentStore(config.AppConfig.CertificateDir)
	renderer := services.NewCertificateRenderer(documentStore, config.AppConfig.BrandingDir)
	coordinator := services.NewCertificationCoordinator(db, renderer)
	fanout := services.NewNotificationFanout(db, publisher, mailer)

	progressService := services.NewProgressService(db)
	progressService.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		certificate, created, err := coordinator.IssueIfEligible(ctx, progress)
		if err != nil {
			return err
		}
		if certificate == nil || !created {
			return nil
		}

		var course courseModels.Course
		if err := db.WithContext(ctx).Where("id = ?", progress.CourseID).First(&course).Error; err != nil {
			return err
		}
		var learner models.User
		if err := db.WithContext(ctx).Where("id = ?", progress.UserID).First(&learner).Error; err != nil {
			return err
		}

		subject, body := utils.CertificateIssuedEmail(learner.Name, course.Title, certificate.CertificateURL)
		_, err = fanout.Dispatch(ctx, services.DomainEvent{
			SubjectID: progress.UserID,
			Kind:      models.NotificationCertificateIssued,
			Payload: map[string]interface{}{
				"course_id":          progress.CourseID,
				"course_title":       course.Title,
				"certificate_id":     certificate.ID,
				"certificate_number": certificate.CertificateNumber,
				"certificate_url":    certificate.CertificateURL,
			},
			EmailSubject: subject,
			EmailBody:    body,
		})
		return err
	})

	courseControllers.UsePipeline(progressService, fanout)
	courseControllers.UseMailer(mailer)

	// Websocket endpoint for the in-process realtime channel
	app.Use("/ws", realtime.Upgrade)
	app.Get("/ws", middleware.JWTMiddleware, hub.Handler())

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	userRoutes.SetupUserRoutes(app)

	// Periodic email retry for undelivered certificate notifications
	utils.StartNotificationRetryScheduler(db, mailer)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
