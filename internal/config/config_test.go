package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Pipeline.ROIMode != "square" {
		t.Errorf("expected roi_mode square, got %q", cfg.Pipeline.ROIMode)
	}
	if cfg.Pipeline.BrightnessGain != 1.3 {
		t.Errorf("expected brightness gain 1.3, got %v", cfg.Pipeline.BrightnessGain)
	}
	if cfg.Pipeline.CanonicalSize != 128 || cfg.Pipeline.GridSize != 4 || cfg.Pipeline.TextureBuckets != 32 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Enrollment.AccuracyThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", cfg.Enrollment.AccuracyThreshold)
	}
	if cfg.Enrollment.MinSamplesPerUser != 3 || cfg.Enrollment.MaxSamplesPerUser != 10 {
		t.Errorf("unexpected sample limits: %+v", cfg.Enrollment)
	}
	if !cfg.Enrollment.RequireEnrolled {
		t.Error("expected require_enrolled by default")
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Path != "face_store.json" {
		t.Errorf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.MaxOpenConns != 25 || cfg.Storage.MaxIdleConns != 5 {
		t.Errorf("unexpected pool defaults: %+v", cfg.Storage)
	}
	if cfg.Web.Addr() != "0.0.0.0:8080" {
		t.Errorf("expected addr 0.0.0.0:8080, got %q", cfg.Web.Addr())
	}
	if cfg.Match.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Match.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACCURACY_THRESHOLD", "0.9")
	t.Setenv("MIN_SAMPLES_PER_USER", "5")
	t.Setenv("MAX_SAMPLES_PER_USER", "20")
	t.Setenv("ROI_MODE", "central")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://faceauth@localhost/faceauth")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("REQUIRE_ENROLLED", "false")
	t.Setenv("LOG_FILE", "/tmp/faceauth.log")

	cfg := Load()

	if cfg.Enrollment.AccuracyThreshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", cfg.Enrollment.AccuracyThreshold)
	}
	if cfg.Enrollment.MinSamplesPerUser != 5 || cfg.Enrollment.MaxSamplesPerUser != 20 {
		t.Errorf("unexpected sample limits: %+v", cfg.Enrollment)
	}
	if cfg.Enrollment.RequireEnrolled {
		t.Error("expected require_enrolled false")
	}
	if cfg.Pipeline.ROIMode != "central" {
		t.Errorf("expected roi_mode central, got %q", cfg.Pipeline.ROIMode)
	}
	if cfg.Storage.Target() != "postgres://faceauth@localhost/faceauth" {
		t.Errorf("unexpected target %q", cfg.Storage.Target())
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
	if !reflect.DeepEqual(cfg.Web.AllowedOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Log.File != "/tmp/faceauth.log" {
		t.Errorf("unexpected log file %q", cfg.Log.File)
	}
}

func TestLoad_InvalidEnvKeepsDefault(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MIN_SAMPLES_PER_USER", "invalid"},
		{"MIN_SAMPLES_PER_USER", "-1"},
		{"MIN_SAMPLES_PER_USER", "0"},
		{"ACCURACY_THRESHOLD", "high"},
		{"ACCURACY_THRESHOLD", "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Load()
			if cfg.Enrollment.MinSamplesPerUser != 3 {
				t.Errorf("expected default min samples 3, got %d", cfg.Enrollment.MinSamplesPerUser)
			}
			if cfg.Enrollment.AccuracyThreshold != 0.85 {
				t.Errorf("expected default threshold 0.85, got %v", cfg.Enrollment.AccuracyThreshold)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faceauth.yaml")
	content := "enrollment:\n  max_samples_per_user: 4\nstorage:\n  path: store.cbor\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Enrollment.MaxSamplesPerUser != 4 {
		t.Errorf("expected max samples 4, got %d", cfg.Enrollment.MaxSamplesPerUser)
	}
	if cfg.Enrollment.MinSamplesPerUser != 3 {
		t.Errorf("expected default min samples 3, got %d", cfg.Enrollment.MinSamplesPerUser)
	}
	if cfg.Storage.Target() != "store.cbor" {
		t.Errorf("unexpected target %q", cfg.Storage.Target())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: [not, a, map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"roi mode", func(c *Config) { c.Pipeline.ROIMode = "face" }, "roi_mode"},
		{"resample", func(c *Config) { c.Pipeline.Resample = "nearest" }, "resample"},
		{"canonical size", func(c *Config) { c.Pipeline.CanonicalSize = 4 }, "canonical_size"},
		{"threshold zero", func(c *Config) { c.Enrollment.AccuracyThreshold = 0 }, "accuracy_threshold"},
		{"threshold above one", func(c *Config) { c.Enrollment.AccuracyThreshold = 1.5 }, "accuracy_threshold"},
		{"min above max", func(c *Config) { c.Enrollment.MinSamplesPerUser = 11 }, "exceeds"},
		{"confidence", func(c *Config) { c.Enrollment.MinSampleConfidence = 2 }, "min_sample_confidence"},
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }, "unknown storage backend"},
		{"file path", func(c *Config) { c.Storage.Path = "" }, "storage path"},
		{"postgres url", func(c *Config) { c.Storage.Backend = "postgres" }, "DATABASE_URL"},
		{"mariadb dsn", func(c *Config) { c.Storage.Backend = "mariadb" }, "MARIADB_DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
