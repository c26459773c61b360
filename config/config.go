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
	JWTKey    string
	SaltRound int

	// AI dedup service
	DedupBaseURL        string
	DedupSecret         string
	DedupTopK           int
	ThresholdUnique     float64 // below this score a finding is unique
	ThresholdDuplicate  float64 // at or above this score a finding is an exact duplicate
	ExternalTimeoutSecs int     // timeout applied to every external HTTP call

	// Certificate renderer service
	RendererBaseURL string

	// Evidence store (Pinata-compatible pinning API)
	EvidenceBaseURL string
	EvidenceAPIKey  string

	// Blockchain minter service
	MinterBaseURL   string
	ContractAddress string
	ChainID         int

	VerifyBaseURL string
	IssuerName    string

	// Operator alerts
	SendgridAPIKey string
	AlertSender    string
	AlertRecipient string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		DedupBaseURL:        getEnv("AI_DEDUP_BASE_URL", "http://localhost:8001"),
		DedupSecret:         getEnv("AI_DEDUP_SECRET", "default_secret_key"),
		DedupTopK:           getEnvInt("DEDUP_TOPK", 5),
		ThresholdUnique:     getEnvFloat("DEDUP_THRESHOLD_UNIQUE", 0.85),
		ThresholdDuplicate:  getEnvFloat("DEDUP_THRESHOLD_DUPLICATE", 0.97),
		ExternalTimeoutSecs: getEnvInt("EXTERNAL_TIMEOUT_SECS", 30),

		RendererBaseURL: getEnv("RENDERER_BASE_URL", "http://localhost:8002"),

		EvidenceBaseURL: getEnv("EVIDENCE_BASE_URL", "https://api.pinata.cloud"),
		EvidenceAPIKey:  getEnv("EVIDENCE_API_KEY", ""),

		MinterBaseURL:   getEnv("MINTER_BASE_URL", "http://localhost:8545"),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		ChainID:         getEnvInt("CHAIN_ID", 89),

		VerifyBaseURL: getEnv("VERIFY_BASE_URL", "http://localhost:3000/cert/"),
		IssuerName:    getEnv("ISSUER_NAME", "International Training Center"),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AlertSender:    getEnv("ALERT_SENDER", "ops@certmint.local"),
		AlertRecipient: getEnv("ALERT_RECIPIENT", "ops@certmint.local"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.ContractAddress == "" {
		log.Println("Warning: CONTRACT_ADDRESS is not set. Minting will fail until it is configured.")
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

// getEnvFloat retrieves an environment variable as a float or returns the default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Error converting environment variable %s to float: %v", key, err)
		return defaultValue
	}
	return floatValue
}
