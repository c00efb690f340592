package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Storage    StorageConfig    `yaml:"storage"`
	Web        WebConfig        `yaml:"web"`
	Log        LogConfig        `yaml:"log"`
	Match      MatchConfig      `yaml:"match"`
}

// PipelineConfig must be identical for enrollment and authentication,
// otherwise descriptors stop being comparable.
type PipelineConfig struct {
	ROIMode        string  `yaml:"roi_mode"` // square or central
	BrightnessGain float64 `yaml:"brightness_gain"`
	CanonicalSize  int     `yaml:"canonical_size"`
	Resample       string  `yaml:"resample"` // catmullrom or bilinear
	GridSize       int     `yaml:"grid_size"`
	TextureBuckets int     `yaml:"texture_buckets"`
}

type EnrollmentConfig struct {
	AccuracyThreshold   float64 `yaml:"accuracy_threshold"`
	MinSamplesPerUser   int     `yaml:"min_samples_per_user"`
	MaxSamplesPerUser   int     `yaml:"max_samples_per_user"`
	MinSampleConfidence float64 `yaml:"min_sample_confidence"`
	RequireEnrolled     bool    `yaml:"require_enrolled"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"`        // file, postgres or mariadb
	Path         string `yaml:"path"`           // file backend, .json or .cbor
	DatabaseURL  string `yaml:"database_url"`   // PostgreSQL connection URL
	MariaDBDSN   string `yaml:"mariadb_dsn"`    // e.g. faceauth:faceauth@tcp(localhost:3306)/faceauth
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

// Target returns the backend-specific location of the store.
func (c *StorageConfig) Target() string {
	switch c.Backend {
	case "postgres":
		return c.DatabaseURL
	case "mariadb":
		return c.MariaDBDSN
	default:
		return c.Path
	}
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	JWTSecret      string   `yaml:"jwt_secret"` // mutating endpoints are open when empty
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MatchConfig struct {
	Workers int `yaml:"workers"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load returns the embedded defaults with environment overrides applied.
func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	cfg.applyEnv()
	return &cfg
}

// LoadFile reads a YAML file over the embedded defaults, then applies
// environment overrides. Keys missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Pipeline.ROIMode = envString("ROI_MODE", c.Pipeline.ROIMode)
	c.Pipeline.CanonicalSize = envInt("CANONICAL_SIZE", c.Pipeline.CanonicalSize)

	c.Enrollment.AccuracyThreshold = envFloat("ACCURACY_THRESHOLD", c.Enrollment.AccuracyThreshold)
	c.Enrollment.MinSamplesPerUser = envInt("MIN_SAMPLES_PER_USER", c.Enrollment.MinSamplesPerUser)
	c.Enrollment.MaxSamplesPerUser = envInt("MAX_SAMPLES_PER_USER", c.Enrollment.MaxSamplesPerUser)
	c.Enrollment.MinSampleConfidence = envFloat("MIN_SAMPLE_CONFIDENCE", c.Enrollment.MinSampleConfidence)
	c.Enrollment.RequireEnrolled = envBool("REQUIRE_ENROLLED", c.Enrollment.RequireEnrolled)

	c.Storage.Backend = envString("STORE_BACKEND", c.Storage.Backend)
	c.Storage.Path = envString("STORE_PATH", c.Storage.Path)
	c.Storage.DatabaseURL = envString("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.MariaDBDSN = envString("MARIADB_DSN", c.Storage.MariaDBDSN)
	c.Storage.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Storage.MaxOpenConns)
	c.Storage.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Storage.MaxIdleConns)

	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	c.Web.JWTSecret = envString("WEB_JWT_SECRET", c.Web.JWTSecret)
	c.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", c.Web.AllowedOrigins)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.File = envString("LOG_FILE", c.Log.File)

	c.Match.Workers = envInt("MATCH_WORKERS", c.Match.Workers)
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.Pipeline.ROIMode {
	case "square", "central":
	default:
		return fmt.Errorf("invalid roi_mode %q (expected square or central)", c.Pipeline.ROIMode)
	}
	switch c.Pipeline.Resample {
	case "catmullrom", "bilinear":
	default:
		return fmt.Errorf("invalid resample filter %q (expected catmullrom or bilinear)", c.Pipeline.Resample)
	}
	if c.Pipeline.CanonicalSize < 8 {
		return fmt.Errorf("canonical_size must be at least 8, got %d", c.Pipeline.CanonicalSize)
	}
	if c.Enrollment.AccuracyThreshold <= 0 || c.Enrollment.AccuracyThreshold > 1 {
		return fmt.Errorf("accuracy_threshold must be in (0, 1], got %v", c.Enrollment.AccuracyThreshold)
	}
	if c.Enrollment.MinSamplesPerUser > c.Enrollment.MaxSamplesPerUser {
		return fmt.Errorf("min_samples_per_user (%d) exceeds max_samples_per_user (%d)",
			c.Enrollment.MinSamplesPerUser, c.Enrollment.MaxSamplesPerUser)
	}
	if c.Enrollment.MinSampleConfidence < 0 || c.Enrollment.MinSampleConfidence > 1 {
		return fmt.Errorf("min_sample_confidence must be in [0, 1], got %v", c.Enrollment.MinSampleConfidence)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "mariadb":
		if c.Storage.MariaDBDSN == "" {
			return fmt.Errorf("MARIADB_DSN is required for the mariadb backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
