package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	GeminiAPIKey                     string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL                    string `mapstructure:"GEMINI_BASE_URL"`
	GeminiLiveURL                    string `mapstructure:"GEMINI_LIVE_URL"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	LocalStateDir                    string `mapstructure:"LOCAL_STATE_DIR"`
	PaymentVPA                       string `mapstructure:"PAYMENT_VPA"`
	PaymentPayeeName                 string `mapstructure:"PAYMENT_PAYEE_NAME"`
	PremiumPlanAmount                string `mapstructure:"PREMIUM_PLAN_AMOUNT"`
}

var appConfig *Config

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("LOCAL_STATE_DIR", "./state")
	viper.SetDefault("PAYMENT_PAYEE_NAME", "NexaNeuron")
	viper.SetDefault("PREMIUM_PLAN_AMOUNT", "499.00")

	// Bind environment variables
	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("GEMINI_API_KEY")
	viper.BindEnv("GEMINI_BASE_URL")
	viper.BindEnv("GEMINI_LIVE_URL")
	viper.BindEnv("CLIENT_URL")
	viper.BindEnv("LOCAL_STATE_DIR")
	viper.BindEnv("PAYMENT_VPA")
	viper.BindEnv("PAYMENT_PAYEE_NAME")
	viper.BindEnv("PREMIUM_PLAN_AMOUNT")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if cfg.PaymentVPA == "" {
		return nil, errors.New("PAYMENT_VPA is required")
	}

	appConfig = &cfg
	return appConfig, nil
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
