package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	MongoURI string
	RedisURL string

	// Model provider config file (hot-reloaded)
	ProviderConfigPath string

	// Optional YAML overrides for the policy word lists
	PolicyConfigPath string

	// Retrieval tuning
	MatchCount          int
	SimilarityThreshold float64

	// Summary refresh cadence (standard cron expression, UTC)
	SummaryRefreshCron    string
	SummaryRefreshEnabled bool

	// Companion endpoint rate limiting (per user, per minute)
	CompanionRateMax int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		ProviderConfigPath: getEnv("PROVIDER_CONFIG_PATH", "provider.json"),
		PolicyConfigPath:   getEnv("POLICY_CONFIG_PATH", ""),

		MatchCount:          getIntEnv("RETRIEVAL_MATCH_COUNT", 10),
		SimilarityThreshold: getFloatEnv("RETRIEVAL_SIMILARITY_THRESHOLD", 0.7),

		SummaryRefreshCron:    getEnv("SUMMARY_REFRESH_CRON", "0 4 * * *"), // 04:00 UTC daily
		SummaryRefreshEnabled: getBoolEnv("SUMMARY_REFRESH_ENABLED", true),

		CompanionRateMax: getIntEnv("COMPANION_RATE_MAX", 30),
	}
}

// PolicyOverrides optionally replaces the built-in policy word lists.
// Lists left empty keep their defaults.
type PolicyOverrides struct {
	CrisisPhrases []string `yaml:"crisis_phrases"`
	TriggerTopics []string `yaml:"trigger_topics"`
}

// LoadPolicyOverrides reads policy word-list overrides from a YAML file
func LoadPolicyOverrides(filePath string) (*PolicyOverrides, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy overrides: %w", err)
	}

	var overrides PolicyOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse policy overrides: %w", err)
	}

	return &overrides, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
