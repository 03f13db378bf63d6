package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Storage   StorageConfig
	Admin     AdminConfig
	Gemini    GeminiConfig
	Matching  MatchingConfig
	Books     BooksConfig
	Odoo      OdooConfig
	Email     EmailConfig
	Drive     DriveConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	Dir string
}

// AdminConfig holds the bootstrap admin account. The account is only seeded
// when the users table is empty and a password is configured.
type AdminConfig struct {
	Username string
	Password string
}

// GeminiConfig holds vision-model configuration
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxAttempts int
}

// MatchingConfig holds matcher tuning
type MatchingConfig struct {
	FuzzyThreshold float64
}

// BooksConfig holds the accounting defaults applied to created documents
type BooksConfig struct {
	DefaultCompany string
	PayableAccount string
	TaxAccount     string
	CostCenter     string
	Currency       string
}

// OdooConfig holds the ERP connection. An empty URL disables the sync and
// the document gateway.
type OdooConfig struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval int // in minutes
}

// EmailConfig holds the IMAP intake mailbox. An empty host disables it.
type EmailConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Folder       string
	PollInterval int // in minutes
}

// DriveConfig holds the Google Drive intake folder. An empty folder ID
// disables it.
type DriveConfig struct {
	CredentialsFile string
	InboxFolderID   string
	ArchiveFolderID string
	PollInterval    int // in minutes
}

// PipelineConfig holds extraction pipeline tuning
type PipelineConfig struct {
	Workers          int
	QueueSize        int
	LogRetentionDays int
	FrontendDir      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:      getEnv("PORT", "3200"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "invoiceflow"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "./storage"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxAttempts: getEnvInt("GEMINI_MAX_ATTEMPTS", 3),
		},
		Matching: MatchingConfig{
			FuzzyThreshold: getEnvFloat("MATCH_FUZZY_THRESHOLD", 80),
		},
		Books: BooksConfig{
			DefaultCompany: getEnv("DEFAULT_COMPANY", "Main"),
			PayableAccount: getEnv("DEFAULT_PAYABLE_ACCOUNT", "Accounts Payable"),
			TaxAccount:     getEnv("DEFAULT_TAX_ACCOUNT", "VAT Input"),
			CostCenter:     getEnv("DEFAULT_COST_CENTER", "Main"),
			Currency:       getEnv("DEFAULT_CURRENCY", "ZAR"),
		},
		Odoo: OdooConfig{
			URL:          os.Getenv("ODOO_URL"),
			Database:     os.Getenv("ODOO_DB"),
			Username:     os.Getenv("ODOO_USER"),
			Password:     os.Getenv("ODOO_PASSWORD"),
			SyncInterval: getEnvInt("ODOO_SYNC_INTERVAL", 15),
		},
		Email: EmailConfig{
			Host:         os.Getenv("EMAIL_IMAP_HOST"),
			Port:         getEnv("EMAIL_IMAP_PORT", "993"),
			Username:     os.Getenv("EMAIL_USERNAME"),
			Password:     os.Getenv("EMAIL_PASSWORD"),
			Folder:       getEnv("EMAIL_FOLDER", "INBOX"),
			PollInterval: getEnvInt("EMAIL_POLL_INTERVAL", 5),
		},
		Drive: DriveConfig{
			CredentialsFile: os.Getenv("DRIVE_CREDENTIALS_FILE"),
			InboxFolderID:   os.Getenv("DRIVE_INBOX_FOLDER_ID"),
			ArchiveFolderID: os.Getenv("DRIVE_ARCHIVE_FOLDER_ID"),
			PollInterval:    getEnvInt("DRIVE_POLL_INTERVAL", 10),
		},
		Pipeline: PipelineConfig{
			Workers:          getEnvInt("PIPELINE_WORKERS", 2),
			QueueSize:        getEnvInt("PIPELINE_QUEUE_SIZE", 64),
			LogRetentionDays: getEnvInt("LOG_RETENTION_DAYS", 90),
			FrontendDir:      os.Getenv("FRONTEND_DIR"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
