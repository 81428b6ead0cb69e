package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBName    string
	DBDialect string
	JWTKey    string
	SaltRound int

	EmailSender string
	Password    string // SMTP Password

	MailProvider   string // SMTP or SENDGRID
	SendGridAPIKey string

	PushGatewayURL string // optional external push gateway; empty means in-process hub

	CertificateDir string // where rendered certificate documents are stored
	BrandingDir    string // optional branding assets for certificates
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	// Initialize AppConfig with values from environment variables
	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		DBName:    getEnv("DB_NAME", "lms.db"),
		DBDialect: getEnv("DB_DIALECT", "postgres"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),

		MailProvider:   getEnv("MAIL_PROVIDER", "SMTP"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),

		CertificateDir: getEnv("CERTIFICATE_DIR", "./public/certificates"),
		BrandingDir:    getEnv("BRANDING_DIR", "./public/branding"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.MailProvider == "SENDGRID" && AppConfig.SendGridAPIKey == "" {
		log.Println("Warning: MAIL_PROVIDER is SENDGRID but SENDGRID_API_KEY is empty.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
