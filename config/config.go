package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultPath is where Load looks for the JSON configuration file.
var DefaultPath = filepath.Join("config", "config.json")

// AppConfig holds every setting the server needs. It is built once at boot and handed
// to the components that need it; nothing reads the environment after Load returns.
// Sensitive data has no defaults inside code and must come from the file or the environment.
type AppConfig struct {
	AppPort        string
	BaseURL        string
	JWTSecret      string
	JWTExpiration  time.Duration
	AllowedOrigins []string
	// Admins may list every author's posts, drafts included.
	AdminEmails []string
	// AllowAdminRegistration lets an AdminEmails address sign up through /auth/register.
	// Leave it off except while bootstrapping the first admin account.
	AllowAdminRegistration bool
	RateLimitPerMinute     int

	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for list caching and token revocation; empty host disables it.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Uploads
	UploadDir         string
	UploadPublicPath  string
	UploadMaxFileSize int64

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

// fileConfig mirrors the grouped layout of config.json.
type fileConfig struct {
	App struct {
		AppPort                string   `json:"AppPort"`
		BaseURL                string   `json:"BaseURL"`
		JWTSecret              string   `json:"JWTSecret"`
		JWTExpiration          string   `json:"JWTExpiration"`
		AllowedOrigins         []string `json:"AllowedOrigins"`
		AdminEmails            []string `json:"AdminEmails"`
		AllowAdminRegistration bool     `json:"AllowAdminRegistration"`
		RateLimitPerMinute     int      `json:"RateLimitPerMinute"`
	} `json:"app"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		GinMode    string `json:"GinMode"`
		GinPath    string `json:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Upload struct {
		Dir         string `json:"Dir"`
		PublicPath  string `json:"PublicPath"`
		MaxFileSize int64  `json:"MaxFileSize"`
	} `json:"upload"`
	Pagination struct {
		DefaultPageSize int `json:"DefaultPageSize"`
		MaxPageSize     int `json:"MaxPageSize"`
	} `json:"pagination"`
}

// Load builds the configuration.
// Precedence: JSON file -> defaults for zero values -> environment variable overrides.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	if err := loadJSONConfig(path, &cfg); err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET must be set in config or environment")
	}
	return cfg, nil
}

// loadJSONConfig reads the file into cfg if present. A missing file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	var raw fileConfig
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	out.AppPort = raw.App.AppPort
	out.BaseURL = raw.App.BaseURL
	out.JWTSecret = raw.App.JWTSecret
	if raw.App.JWTExpiration != "" {
		d, err := time.ParseDuration(raw.App.JWTExpiration)
		if err != nil {
			return fmt.Errorf("app.JWTExpiration: %w", err)
		}
		out.JWTExpiration = d
	}
	out.AllowedOrigins = raw.App.AllowedOrigins
	out.AdminEmails = raw.App.AdminEmails
	out.AllowAdminRegistration = raw.App.AllowAdminRegistration
	out.RateLimitPerMinute = raw.App.RateLimitPerMinute

	out.DBDriver = raw.Database.Driver
	out.DatabaseURI = raw.Database.DatabaseURI
	out.DBHost = raw.Database.DBHost
	out.DBPort = raw.Database.DBPort
	out.DBUser = raw.Database.DBUser
	out.DBPassword = raw.Database.DBPassword
	out.DBName = raw.Database.DBName

	out.RedisHost = raw.Redis.RedisHost
	out.RedisPort = raw.Redis.RedisPort
	out.RedisDB = raw.Redis.RedisDB
	out.RedisPassword = raw.Redis.RedisPassword

	out.LogLevel = raw.Log.Level
	out.LogPath = raw.Log.Path
	out.GinMode = raw.Log.GinMode
	out.GinPath = raw.Log.GinPath
	out.LogMaxSizeMB = raw.Log.MaxSizeMB
	out.LogMaxBackups = raw.Log.MaxBackups
	out.LogMaxAgeDays = raw.Log.MaxAgeDays
	out.LogCompress = raw.Log.Compress

	out.UploadDir = raw.Upload.Dir
	out.UploadPublicPath = raw.Upload.PublicPath
	out.UploadMaxFileSize = raw.Upload.MaxFileSize

	out.DefaultPageSize = raw.Pagination.DefaultPageSize
	out.MaxPageSize = raw.Pagination.MaxPageSize
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.AppPort
	}
	if c.JWTExpiration == 0 {
		c.JWTExpiration = 7 * 24 * time.Hour
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "blogcms"
	}
	if c.RedisHost != "" && c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("uploads", "images")
	}
	if c.UploadPublicPath == "" {
		c.UploadPublicPath = "/uploads"
	}
	if c.UploadMaxFileSize == 0 {
		c.UploadMaxFileSize = 5 << 20
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = 10
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = 100
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var err error
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" && err == nil {
			var n int
			n, err = strconv.Atoi(v)
			if err != nil {
				err = fmt.Errorf("invalid integer value for %s: %w", key, err)
				return
			}
			*dst = n
		}
	}

	setString("APP_PORT", &c.AppPort)
	// PORT is what most hosting platforms inject.
	setString("PORT", &c.AppPort)
	setString("BASE_URL", &c.BaseURL)
	setString("JWT_SECRET", &c.JWTSecret)
	if v := getEnv("JWT_EXPIRATION", ""); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return fmt.Errorf("invalid duration for JWT_EXPIRATION: %w", perr)
		}
		c.JWTExpiration = d
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_EMAILS", ""); v != "" {
		c.AdminEmails = splitAndTrim(v)
	}
	if v := getEnv("ALLOW_ADMIN_REGISTRATION", ""); v != "" {
		c.AllowAdminRegistration = v == "true"
	}
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)

	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}

	setString("UPLOAD_DESTINATION", &c.UploadDir)
	setString("UPLOAD_PUBLIC_PATH", &c.UploadPublicPath)
	if v := getEnv("MAX_FILE_SIZE", ""); v != "" {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid integer value for MAX_FILE_SIZE: %w", perr)
		}
		c.UploadMaxFileSize = n
	}

	setInt("DEFAULT_PAGE_SIZE", &c.DefaultPageSize)
	setInt("MAX_PAGE_SIZE", &c.MaxPageSize)
	return err
}

// IsAdmin reports whether email belongs to a configured administrator.
func (c AppConfig) IsAdmin(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, a := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

// IsReservedEmail reports whether self-registration with email must be refused. Admin
// rights follow the email in the token, so admin addresses are reserved by default.
func (c AppConfig) IsReservedEmail(email string) bool {
	return !c.AllowAdminRegistration && c.IsAdmin(email)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
