package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds client configuration
type Config struct {
	Env      string
	LogLevel string

	APIBaseURL  string `validate:"required,url"`
	HTTPTimeout time.Duration

	// Session token persistence: "file" or "redis".
	TokenStore    string `validate:"oneof=file redis"`
	TokenFile     string
	Profile       string `validate:"required"`
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Payment gateway
	Gateway            string `validate:"oneof=hosted fake"`
	GatewayKey         string
	GatewaySecret      string
	MerchantName       string
	MerchantLogo       string
	CheckoutListenAddr string
	CheckoutTimeout    time.Duration
	ConfirmTimeout     time.Duration
	AllowFakePayments  bool

	MetricsAddr string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:  strings.TrimRight(getEnv("MEDIBOOK_API_URL", "http://localhost:8080/api"), "/"),
		HTTPTimeout: getEnvAsDuration("MEDIBOOK_HTTP_TIMEOUT", 15*time.Second),

		TokenStore:    strings.ToLower(strings.TrimSpace(getEnv("MEDIBOOK_TOKEN_STORE", "file"))),
		TokenFile:     getEnv("MEDIBOOK_TOKEN_FILE", defaultTokenFile()),
		Profile:       getEnv("MEDIBOOK_PROFILE", "default"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		Gateway:            strings.ToLower(strings.TrimSpace(getEnv("MEDIBOOK_GATEWAY", "hosted"))),
		GatewayKey:         getEnv("MEDIBOOK_GATEWAY_KEY", ""),
		GatewaySecret:      getEnv("MEDIBOOK_GATEWAY_SECRET", ""),
		MerchantName:       getEnv("MEDIBOOK_MERCHANT_NAME", "MediBook Healthcare"),
		MerchantLogo:       getEnv("MEDIBOOK_MERCHANT_LOGO", "/images/logo.png"),
		CheckoutListenAddr: getEnv("MEDIBOOK_CHECKOUT_ADDR", "127.0.0.1:8765"),
		CheckoutTimeout:    getEnvAsDuration("MEDIBOOK_CHECKOUT_TIMEOUT", 10*time.Minute),
		ConfirmTimeout:     getEnvAsDuration("MEDIBOOK_CONFIRM_TIMEOUT", 15*time.Minute),
		AllowFakePayments:  getEnvAsBool("MEDIBOOK_ALLOW_FAKE_PAYMENTS", false),

		MetricsAddr: getEnv("MEDIBOOK_METRICS_ADDR", ""),
	}
}

// Validate checks the loaded values and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Gateway == "fake" && !c.AllowFakePayments {
		return fmt.Errorf("config: fake gateway requires MEDIBOOK_ALLOW_FAKE_PAYMENTS=true")
	}
	if c.TokenStore == "file" && strings.TrimSpace(c.TokenFile) == "" {
		return fmt.Errorf("config: MEDIBOOK_TOKEN_FILE is required for the file token store")
	}
	if c.CheckoutTimeout <= 0 || c.ConfirmTimeout <= 0 {
		return fmt.Errorf("config: checkout and confirm timeouts must be positive")
	}
	if c.ConfirmTimeout < c.CheckoutTimeout {
		return fmt.Errorf("config: MEDIBOOK_CONFIRM_TIMEOUT must not be shorter than MEDIBOOK_CHECKOUT_TIMEOUT")
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "medibook", "token")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
