package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	Env               string
	MaxUploadMB       int64
	UploadDir         string
	ConverterPath     string
	ConversionTimeout time.Duration
	MaxConcurrent     int
	AllowedOrigins    []string
	ShutdownTimeout   time.Duration
	StaleUploadAge    time.Duration
}

// minJanitorInterval bounds how often the staging janitor may run.
const minJanitorInterval = time.Second

func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "5000"),
		Env:               getEnv("ENV", "production"),
		MaxUploadMB:       getEnvAsInt64("MAX_UPLOAD_MB", 50),
		UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "geometry-converter-uploads")),
		ConverterPath:     getEnv("OGR2OGR_PATH", "ogr2ogr"),
		ConversionTimeout: getEnvAsDuration("CONVERSION_TIMEOUT", 60*time.Second),
		MaxConcurrent:     getEnvAsInt("MAX_CONCURRENT_CONVERSIONS", runtime.NumCPU()),
		AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StaleUploadAge:    getEnvAsDuration("STALE_UPLOAD_AGE", 30*time.Minute),
	}

	// A request dir must outlive the conversion running in it.
	if floor := 2 * cfg.ConversionTimeout; cfg.StaleUploadAge < floor {
		cfg.StaleUploadAge = floor
	}

	return cfg
}

// JanitorInterval is how often stale uploads are swept.
func (c *Config) JanitorInterval() time.Duration {
	if interval := c.StaleUploadAge / 2; interval > minJanitorInterval {
		return interval
	}
	return minJanitorInterval
}

// MaxUploadBytes is the body limit applied to both request encodings.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
