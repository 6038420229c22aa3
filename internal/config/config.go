package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Directory DirectoryConfig
	Auth      AuthConfig
	Redis     RedisConfig
	OpenFGA   OpenFGAConfig
	Storage   StorageConfig
	Mail      MailConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
	BaseURL      string
}

// DirectoryConfig holds the connection settings for the remote directory
// service that is the system of record for member identities.
type DirectoryConfig struct {
	BaseURL           string
	TokenURL          string
	ClientID          string
	ClientSecret      string
	MembersGroupID    string
	InviteRedirectURL string
}

type AuthConfig struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AdminRole    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OpenFGAConfig struct {
	Enabled  bool
	APIHost  string
	APIToken string
	StoreID  string
	ModelID  string
}

type StorageConfig struct {
	Type      string // "local" or "s3"
	LocalPath string
	S3Bucket  string
	S3Region  string
}

type MailConfig struct {
	SenderID      string
	TemplatePath  string
	AttachmentDir string
}

type TelemetryConfig struct {
	Enabled        bool
	ExporterURL    string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRatio  float64
}

func NewConfig() *Config {
	// Load .env when present; real environments set variables directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			Environment:  getEnv("SERVER_ENVIRONMENT", "development"),
			BaseURL:      getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Directory: DirectoryConfig{
			BaseURL:           getEnv("DIRECTORY_BASE_URL", "https://directory.example.com/v1"),
			TokenURL:          getEnv("DIRECTORY_TOKEN_URL", "https://login.example.com/oauth2/token"),
			ClientID:          getEnv("DIRECTORY_CLIENT_ID", ""),
			ClientSecret:      getEnv("DIRECTORY_CLIENT_SECRET", ""),
			MembersGroupID:    getEnv("DIRECTORY_MEMBERS_GROUP_ID", ""),
			InviteRedirectURL: getEnv("DIRECTORY_INVITE_REDIRECT_URL", "https://members.example.com/profile"),
		},
		Auth: AuthConfig{
			AuthorizeURL: getEnv("AUTH_AUTHORIZE_URL", "https://login.example.com/oauth2/authorize"),
			TokenURL:     getEnv("AUTH_TOKEN_URL", "https://login.example.com/oauth2/token"),
			ClientID:     getEnv("AUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("AUTH_REDIRECT_URL", "http://localhost:8080/auth/callback"),
			Scopes:       []string{"openid", "profile", "email"},
			AdminRole:    getEnv("AUTH_ADMIN_ROLE", "admin"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		OpenFGA: OpenFGAConfig{
			Enabled:  getEnvBool("OPENFGA_ENABLED", false),
			APIHost:  getEnv("OPENFGA_API_HOST", "localhost:8081"),
			APIToken: getEnv("OPENFGA_API_TOKEN", ""),
			StoreID:  getEnv("OPENFGA_STORE_ID", ""),
			ModelID:  getEnv("OPENFGA_MODEL_ID", ""),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/imports"),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:  getEnv("STORAGE_S3_REGION", "eu-west-1"),
		},
		Mail: MailConfig{
			SenderID:      getEnv("MAIL_SENDER_ID", ""),
			TemplatePath:  getEnv("MAIL_TEMPLATE_PATH", "resources/mail/welcome.html"),
			AttachmentDir: getEnv("MAIL_ATTACHMENT_DIR", "resources/mail"),
		},
		Telemetry: TelemetryConfig{
			Enabled:        getEnvBool("TELEMETRY_ENABLED", false),
			ExporterURL:    getEnv("TELEMETRY_EXPORTER_URL", ""),
			ServiceName:    getEnv("TELEMETRY_SERVICE_NAME", "membership"),
			ServiceVersion: getEnv("TELEMETRY_SERVICE_VERSION", "dev"),
			Environment:    getEnv("TELEMETRY_ENVIRONMENT", "development"),
			SamplingRatio:  getEnvFloat("TELEMETRY_SAMPLING_RATIO", 1.0),
		},
	}
}

// Validate reports the settings without which the service cannot talk to the
// directory at all. Everything else has a workable default.
func (c *Config) Validate() error {
	if c.Directory.ClientID == "" || c.Directory.ClientSecret == "" {
		return fmt.Errorf("config: DIRECTORY_CLIENT_ID and DIRECTORY_CLIENT_SECRET are required")
	}
	if c.Directory.MembersGroupID == "" {
		return fmt.Errorf("config: DIRECTORY_MEMBERS_GROUP_ID is required")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
