package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	VocabPath string

	Timezone string

	// Session policy is deliberately required: variants of this app silently
	// disagreed on whether auto sign-out was on, so it is never defaulted.
	SessionCutoffHour int
	SessionIdleMin    int

	Provider           string
	Model              string
	NebiusAPIKey       string
	NebiusBaseURL      string
	FeatherlessAPIKey  string
	FeatherlessBaseURL string
	OCRBaseURL         string
	OCRAPIKey          string
	RecognizerChain    string
	RecognizerTimeout  int
	RecognizerRateRPS  int

	RemoteBaseURL   string
	RemoteAPIKey    string
	RemoteTimeoutMs int

	StationEmail       string
	StationDropDir     string
	StationIntervalSec int
	StationBatchMax    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		VocabPath: getEnv("VOCAB_PATH", ""),

		Timezone: getEnv("APP_TZ", "America/Toronto"),

		Provider:           strings.ToLower(getEnv("PROVIDER", "nebius")),
		Model:              getEnv("VLM_MODEL", "google/gemma-3-27b-it"),
		NebiusAPIKey:       getEnv("NEBIUS_API_KEY", ""),
		NebiusBaseURL:      getEnv("NEBIUS_BASE_URL", "https://api.nebius.ai/v1"),
		FeatherlessAPIKey:  getEnv("FEATHERLESS_API_KEY", ""),
		FeatherlessBaseURL: getEnv("FEATHERLESS_BASE_URL", "https://api.featherless.ai/v1"),
		OCRBaseURL:         getEnv("OCR_BASE_URL", ""),
		OCRAPIKey:          getEnv("OCR_API_KEY", ""),
		RecognizerChain:    getEnv("RECOGNIZER_CHAIN", "model,ocr,caption,label"),
		RecognizerTimeout:  getEnvInt("RECOGNIZER_TIMEOUT_MS", 90000),
		RecognizerRateRPS:  getEnvInt("RECOGNIZER_RATE_LIMIT_RPS", 2),

		RemoteBaseURL:   getEnv("SUPABASE_URL", ""),
		RemoteAPIKey:    getEnv("SUPABASE_KEY", ""),
		RemoteTimeoutMs: getEnvInt("REMOTE_TIMEOUT_MS", 30000),

		StationEmail:       getEnv("STATION_EMAIL", ""),
		StationDropDir:     getEnv("STATION_DROP_DIR", filepath.Join(cwd, "data", "drop")),
		StationIntervalSec: getEnvInt("STATION_INTERVAL_SEC", 10),
		StationBatchMax:    getEnvInt("STATION_BATCH_MAX", 10),
	}

	cutoff, err := requireEnvInt("SESSION_CUTOFF_HOUR")
	if err != nil {
		return Config{}, err
	}
	if cutoff < 1 || cutoff > 23 {
		return Config{}, fmt.Errorf("SESSION_CUTOFF_HOUR must be 1-23: %d", cutoff)
	}
	idle, err := requireEnvInt("SESSION_IDLE_MIN")
	if err != nil {
		return Config{}, err
	}
	if idle <= 0 {
		return Config{}, fmt.Errorf("SESSION_IDLE_MIN must be positive: %d", idle)
	}
	cfg.SessionCutoffHour = cutoff
	cfg.SessionIdleMin = idle

	return cfg, nil
}

// Require rejects a blank required setting, env var or flag alike.
func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func requireEnvInt(key string) (int, error) {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return 0, fmt.Errorf("missing required env var: %s", key)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return parsed, nil
}
