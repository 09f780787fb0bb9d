package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide configuration loaded from the environment.
type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string
	BaseURL string // used to build the seed-complete callback URL for loader VMs

	// Logging
	LogLevel string
	LogJSON  bool

	// Database (State Store backing — see internal/store)
	DatabaseURL string

	// Auth — remote JWKS-verified bearer JWTs (external provider, out of scope)
	JWKSIssuerURL string
	JWKSClientID  string

	// Admin bootstrap (O4): first sign-in of a listed email becomes an admin Candidate
	AdminEmails []string

	// Upstream GPU cloud provider
	ProviderAPIKey  string // fallback when settings.lambdaApiKey is unset; see provider.KeyFunc
	ProviderBaseURL string

	// Reconciler cadence
	ReconcileInterval time.Duration

	// Outbound call timeouts (§5). The provider client is built with ProviderDataTimeout
	// alone, which bounds every upstream call, launch/terminate/restart included;
	// ProviderLaunchTimeout is loaded but not read anywhere.
	ProviderDataTimeout   time.Duration
	ProviderLaunchTimeout time.Duration

	// Seed lock staleness (§4.3). Loaded but not read anywhere: the resolver and Pass C
	// use fsresolver.DefaultStaleMinutes.
	SeedClaimStaleMinutes int

	// Optional InfluxDB time-series mirror for cost-accrual history
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string
}

var AppConfig *Config

// Load loads configuration from the environment (and a .env file, if present).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:               getEnv("APP_NAME", "gpucp"),
		Debug:                 getEnvBool("DEBUG", false),
		Port:                  getEnv("PORT", "8080"),
		BaseURL:               getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		LogJSON:               getEnvBool("LOG_JSON", true),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWKSIssuerURL:         getEnv("JWKS_ISSUER_URL", ""),
		JWKSClientID:          getEnv("JWKS_CLIENT_ID", ""),
		AdminEmails:           splitCSV(getEnv("ADMIN_EMAILS", "")),
		ProviderAPIKey:        getEnv("PROVIDER_API_KEY", ""),
		ProviderBaseURL:       getEnv("PROVIDER_BASE_URL", "https://cloud.lambdalabs.com/api/v1"),
		ReconcileInterval:     getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		ProviderDataTimeout:   getEnvDuration("PROVIDER_DATA_TIMEOUT", 10*time.Second),
		ProviderLaunchTimeout: getEnvDuration("PROVIDER_LAUNCH_TIMEOUT", 30*time.Second),
		SeedClaimStaleMinutes: getEnvInt("SEED_CLAIM_STALE_MINUTES", 60),
		InfluxDBURL:           getEnv("INFLUXDB_URL", ""),
		InfluxDBToken:         getEnv("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:           getEnv("INFLUXDB_ORG", "gpucp"),
		InfluxDBBucket:        getEnv("INFLUXDB_BUCKET", "vm_accrual"),
	}

	AppConfig = cfg
	return cfg
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if s := trim(v[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	return out
}

func trim(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("Invalid duration for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return d
	}
	return defaultValue
}
