package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	UseMemoryStore bool
	SeedSampleData bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Feature flags for optional surfaces.
	EnableRiskManagement  bool
	EnableResourceTracker bool
	EnableExecDashboard   bool

	RateLimitFormatted string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("USE_MEMORY_STORE", false)
	viper.SetDefault("SEED_SAMPLE_DATA", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "pmhub-backend")
	viper.SetDefault("FEATURE_RISK_MANAGEMENT", true)
	viper.SetDefault("FEATURE_RESOURCE_TRACKER", true)
	viper.SetDefault("FEATURE_EXEC_DASHBOARD", true)
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.UseMemoryStore = viper.GetBool("USE_MEMORY_STORE")
	if cfg.DatabaseURL == "" && !cfg.UseMemoryStore {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		if jwtExpiryStr != "" {
			log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
		}
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "pmhub-backend"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.SeedSampleData = viper.GetBool("SEED_SAMPLE_DATA")
	cfg.EnableRiskManagement = viper.GetBool("FEATURE_RISK_MANAGEMENT")
	cfg.EnableResourceTracker = viper.GetBool("FEATURE_RESOURCE_TRACKER")
	cfg.EnableExecDashboard = viper.GetBool("FEATURE_EXEC_DASHBOARD")
	cfg.RateLimitFormatted = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = viper.GetStringSlice("CORS_ALLOWED_ORIGINS")

	if cfg.IsProduction && cfg.UseMemoryStore {
		log.Println("Warning: USE_MEMORY_STORE is set in production; data will not survive restarts.")
	}

	return cfg, nil
}
