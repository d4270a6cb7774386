package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string
	AuthTokenTTL  time.Duration
	SecretsKey    string

	CORSAllowedOrigins []string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	Storage   StorageConfig
	Gateways  GatewayConfig
	WhatsApp  WhatsAppConfig
	Bootstrap BootstrapConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// StorageConfig points at an S3 compatible bucket for attachments.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxUploadBytes  int64
}

// GatewayConfig holds outbound HTTP settings shared by gateway clients.
// Base URL overrides are empty in production.
type GatewayConfig struct {
	HTTPTimeout       time.Duration
	PayPalBaseURL     string
	StripeBaseURL     string
	WhatsAppGraphURL  string
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	// GeminiBaseURL overrides the Gemini SDK endpoint. Empty uses Google's.
	GeminiBaseURL     string
	PublicCheckoutURL string
}

type WhatsAppConfig struct {
	VerifyToken   string
	AccessToken   string
	PhoneNumberID string
	// AppSecret signs inbound webhook deliveries (X-Hub-Signature-256).
	AppSecret string
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "glazeops"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret:      strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:       getenvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		SecretsKey:         strings.TrimSpace(getenv("SETTINGS_SECRET_KEY", "")),
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		OTLPEndpoint:       getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "glazeops"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Bucket:          getenv("S3_BUCKET", "glazeops-attachments"),
			Region:          getenv("S3_REGION", "me-central-1"),
			Endpoint:        strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			AccessKeyID:     strings.TrimSpace(getenv("S3_ACCESS_KEY_ID", "")),
			SecretAccessKey: strings.TrimSpace(getenv("S3_SECRET_ACCESS_KEY", "")),
			UsePathStyle:    getenvBool("S3_USE_PATH_STYLE", false),
			MaxUploadBytes:  int64(getenvInt("ATTACHMENT_MAX_BYTES", 10<<20)),
		},
		Gateways: GatewayConfig{
			HTTPTimeout:       getenvDuration("GATEWAY_HTTP_TIMEOUT", 15*time.Second),
			PayPalBaseURL:     strings.TrimSpace(getenv("PAYPAL_BASE_URL", "")),
			StripeBaseURL:     strings.TrimSpace(getenv("STRIPE_BASE_URL", "")),
			WhatsAppGraphURL:  strings.TrimSpace(getenv("WHATSAPP_GRAPH_URL", "https://graph.facebook.com/v19.0")),
			OpenAIBaseURL:     strings.TrimSpace(getenv("OPENAI_BASE_URL", "https://api.openai.com/v1")),
			AnthropicBaseURL:  strings.TrimSpace(getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")),
			GeminiBaseURL:     strings.TrimSpace(getenv("GEMINI_BASE_URL", "")),
			PublicCheckoutURL: strings.TrimSpace(getenv("PUBLIC_CHECKOUT_URL", "")),
		},
		WhatsApp: WhatsAppConfig{
			VerifyToken:   strings.TrimSpace(getenv("WHATSAPP_VERIFY_TOKEN", "")),
			AccessToken:   strings.TrimSpace(getenv("WHATSAPP_ACCESS_TOKEN", "")),
			PhoneNumberID: strings.TrimSpace(getenv("WHATSAPP_PHONE_NUMBER_ID", "")),
			AppSecret:     strings.TrimSpace(getenv("WHATSAPP_APP_SECRET", "")),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
