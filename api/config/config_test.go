package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "MAX_UPLOAD_MB", "UPLOAD_DIR", "OGR2OGR_PATH",
		"CONVERSION_TIMEOUT", "MAX_CONCURRENT_CONVERSIONS", "CORS_ALLOWED_ORIGINS",
		"SHUTDOWN_TIMEOUT", "STALE_UPLOAD_AGE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "5000" {
		t.Errorf("Expected port 5000, got %s", cfg.Port)
	}
	if cfg.MaxUploadMB != 50 {
		t.Errorf("Expected max upload 50MB, got %d", cfg.MaxUploadMB)
	}
	if cfg.MaxUploadBytes() != 50*1024*1024 {
		t.Errorf("Expected %d bytes, got %d", 50*1024*1024, cfg.MaxUploadBytes())
	}
	if cfg.UploadDir != filepath.Join(os.TempDir(), "geometry-converter-uploads") {
		t.Errorf("Unexpected upload dir %s", cfg.UploadDir)
	}
	if cfg.ConverterPath != "ogr2ogr" {
		t.Errorf("Expected converter ogr2ogr, got %s", cfg.ConverterPath)
	}
	if cfg.ConversionTimeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %s", cfg.ConversionTimeout)
	}
	if cfg.MaxConcurrent != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), cfg.MaxConcurrent)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("Expected wildcard origin, got %v", cfg.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production environment by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8089")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("CONVERSION_TIMEOUT", "2m")
	t.Setenv("MAX_CONCURRENT_CONVERSIONS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ENV", "development")

	cfg := Load()

	if cfg.Port != "8089" {
		t.Errorf("Expected port 8089, got %s", cfg.Port)
	}
	if cfg.MaxUploadBytes() != 5*1024*1024 {
		t.Errorf("Expected 5MB limit, got %d", cfg.MaxUploadBytes())
	}
	if cfg.ConversionTimeout != 2*time.Minute {
		t.Errorf("Expected 2m timeout, got %s", cfg.ConversionTimeout)
	}
	if cfg.MaxConcurrent != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.MaxConcurrent)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development environment")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("CONVERSION_TIMEOUT", "-5s")
	t.Setenv("MAX_CONCURRENT_CONVERSIONS", "0")

	cfg := Load()

	if cfg.MaxUploadMB != 50 {
		t.Errorf("Expected fallback 50, got %d", cfg.MaxUploadMB)
	}
	if cfg.ConversionTimeout != 60*time.Second {
		t.Errorf("Expected fallback 60s, got %s", cfg.ConversionTimeout)
	}
	if cfg.MaxConcurrent != runtime.NumCPU() {
		t.Errorf("Expected fallback NumCPU, got %d", cfg.MaxConcurrent)
	}
}

func TestLoad_StaleUploadAgeOutlivesConversion(t *testing.T) {
	t.Setenv("CONVERSION_TIMEOUT", "90s")
	t.Setenv("STALE_UPLOAD_AGE", "1ns")

	cfg := Load()

	if cfg.StaleUploadAge != 3*time.Minute {
		t.Errorf("Expected stale age clamped to 3m, got %s", cfg.StaleUploadAge)
	}
	if cfg.JanitorInterval() != 90*time.Second {
		t.Errorf("Expected 90s janitor interval, got %s", cfg.JanitorInterval())
	}
}

func TestLoad_StaleUploadAgeOverride(t *testing.T) {
	t.Setenv("CONVERSION_TIMEOUT", "")
	t.Setenv("STALE_UPLOAD_AGE", "2h")

	cfg := Load()

	if cfg.StaleUploadAge != 2*time.Hour {
		t.Errorf("Expected 2h, got %s", cfg.StaleUploadAge)
	}
	if cfg.JanitorInterval() != time.Hour {
		t.Errorf("Expected 1h janitor interval, got %s", cfg.JanitorInterval())
	}
}

func TestJanitorInterval_NeverZero(t *testing.T) {
	cfg := &Config{StaleUploadAge: time.Nanosecond}

	if cfg.JanitorInterval() != time.Second {
		t.Errorf("Expected 1s floor, got %s", cfg.JanitorInterval())
	}
}
