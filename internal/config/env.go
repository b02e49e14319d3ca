package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level        string
	Pretty       bool
	File         string
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
	Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines HTTP server behavior.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// UploadConfig defines upload intake limits and temp locations.
type UploadConfig struct {
	MaxBytes  int64
	UploadDir string
	OutDir    string
}

// RenderConfig defines rasterization parameters.
type RenderConfig struct {
	DefaultDPI int
	MaxDPI     int
}

// OverlayConfig tunes the dark-overlay cleaner.
type OverlayConfig struct {
	DarkThreshold int
	MinAreaRatio  float64
	KernelSize    int
	ContrastPct   float64
}

// ConvertConfig bounds concurrent conversions and janitor behavior.
type ConvertConfig struct {
	MaxConcurrent   int
	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Upload  UploadConfig
	Render  RenderConfig
	Overlay OverlayConfig
	Convert ConvertConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdf2docx.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdf2docx",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	// Server defaults
	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "8080"),
		ReadTimeout:     parseDuration(getEnv("READ_TIMEOUT", "120s"), 120*time.Second),
		WriteTimeout:    parseDuration(getEnv("WRITE_TIMEOUT", "300s"), 300*time.Second),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	// Upload defaults: 25MB cap mirrors typical free-tier infra limits
	cfg.Upload = UploadConfig{
		MaxBytes:  parseInt64(getEnv("MAX_CONTENT_LENGTH", "26214400"), 26214400),
		UploadDir: getEnv("UPLOAD_DIR", "/tmp/uploads"),
		OutDir:    getEnv("OUT_DIR", "/tmp/out"),
	}

	// Render defaults
	cfg.Render = RenderConfig{
		DefaultDPI: parseInt(getEnv("DEFAULT_DPI", "300"), 300),
		MaxDPI:     parseInt(getEnv("MAX_DPI", "400"), 400),
	}

	// Overlay defaults
	cfg.Overlay = OverlayConfig{
		DarkThreshold: parseInt(getEnv("OVERLAY_DARK_THRESHOLD", "40"), 40),
		MinAreaRatio:  parseFloat(getEnv("OVERLAY_MIN_AREA_RATIO", "0.02"), 0.02),
		KernelSize:    parseInt(getEnv("OVERLAY_KERNEL", "15"), 15),
		ContrastPct:   parseFloat(getEnv("OVERLAY_CONTRAST_PCT", "5"), 5),
	}

	// Conversion defaults
	cfg.Convert = ConvertConfig{
		MaxConcurrent:   parseInt(getEnv("MAX_CONCURRENT", "2"), 2),
		CleanupInterval: parseDuration(getEnv("CLEANUP_INTERVAL", "15m"), 15*time.Minute),
		CleanupMaxAge:   parseDuration(getEnv("CLEANUP_MAX_AGE", "1h"), time.Hour),
	}
	if cfg.Convert.MaxConcurrent <= 0 {
		cfg.Convert.MaxConcurrent = 1
	}
	// DPI above ~400 risks memory explosions on large pages
	if cfg.Render.MaxDPI <= 0 {
		cfg.Render.MaxDPI = 400
	}
	if cfg.Render.DefaultDPI <= 0 || cfg.Render.DefaultDPI > cfg.Render.MaxDPI {
		cfg.Render.DefaultDPI = cfg.Render.MaxDPI
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
