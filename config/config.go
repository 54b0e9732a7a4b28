package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (buyer notifications)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Payment gateway configuration
	PaymentProvider    string
	Currency           string
	PesapalBaseURL     string
	PesapalKey         string
	PesapalSecret      string
	PesapalCallbackURL string
	PesapalIPNID       string
	PesapalWebhookKey  string

	// Gateway notification relay (PubNub)
	GatewayPNSubKey    string
	GatewayPNSecret    string
	GatewayPNUUID      string
	GatewayPNChannel   string
	GatewayPNCipherKey string

	// Sweeper configuration
	SweepInterval time.Duration

	// Rate limiting
	RateLimitPerMinute int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Payment gateway
		PaymentProvider:    getEnv("PAYMENT_PROVIDER", "mock"),
		Currency:           getEnv("CURRENCY", "KES"),
		PesapalBaseURL:     getEnv("PESAPAL_BASE_URL", "https://pay.pesapal.com/v3"),
		PesapalKey:         getEnv("PESAPAL_CONSUMER_KEY", ""),
		PesapalSecret:      getEnv("PESAPAL_CONSUMER_SECRET", ""),
		PesapalCallbackURL: getEnv("PESAPAL_CALLBACK_URL", ""),
		PesapalIPNID:       getEnv("PESAPAL_IPN_ID", ""),
		PesapalWebhookKey:  getEnv("PESAPAL_WEBHOOK_KEY", ""),

		// Gateway notification relay
		GatewayPNSubKey:    getEnv("GATEWAY_PN_SUBSCRIBE_KEY", ""),
		GatewayPNSecret:    getEnv("GATEWAY_PN_SECRET_KEY", ""),
		GatewayPNUUID:      getEnv("GATEWAY_PN_UUID", "ticket-marketplace"),
		GatewayPNChannel:   getEnv("GATEWAY_PN_CHANNEL", "payment-notifications"),
		GatewayPNCipherKey: getEnv("GATEWAY_PN_CIPHER_KEY", ""),

		// Sweeper
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", "1h"),

		// Rate limiting
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
