// Package config loads the router's closed-key configuration.
//
// DESIGN: Environment-first, following the teacher's convention of a
// best-effort .env load (github.com/joho/godotenv) layered under real
// process env, plus a YAML endpoint list for anything too structured
// to comfortably live in an env var. Resolution order: process env >
// .env file > endpoints.yaml > built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// AuthKind is the closed set of endpoint authentication modes
// (spec.md §3: "auth (none / bearer)").
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBearer AuthKind = "bearer"
)

// EndpointConfig describes one inference endpoint as loaded from
// endpoints.yaml or built defaults.
type EndpointConfig struct {
	Name              string   `yaml:"name"`
	BaseURL           string   `yaml:"base_url"`
	ModelID           string   `yaml:"model"`
	Priority          int      `yaml:"priority"`
	MaxContextTokens  int      `yaml:"max_context_tokens"`
	MaxResponseTokens int      `yaml:"max_response_tokens"`
	AuthKind          AuthKind `yaml:"auth_kind"`
	AuthSecretRef     string   `yaml:"auth_secret_ref"` // env var name holding the bearer token
	Capabilities      []string `yaml:"capabilities"`
	Local             bool     `yaml:"local"`
}

// ResolvedAuthSecret reads the bearer token from the environment
// variable named by AuthSecretRef. Returns "" if unset or not bearer
// auth.
func (e EndpointConfig) ResolvedAuthSecret() string {
	if e.AuthKind != AuthBearer || e.AuthSecretRef == "" {
		return ""
	}
	return os.Getenv(e.AuthSecretRef)
}

// Config is the router's full runtime configuration. It is read-only
// after startup; components share one *Config and read its fields
// directly, no per-request copy is taken.
type Config struct {
	Endpoints []EndpointConfig

	LocalFirstRatio float64

	RequestTimeoutBase time.Duration
	ComplexMultiplier  float64

	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	BreakerFailureThreshold  int
	BreakerOpenCooldown      time.Duration
	BreakerHalfOpenSuccesses int

	CacheTTL        time.Duration
	CacheMaxBytes   int64
	CacheMaxEntries int

	MaxFileBytes        int64
	MaxFiles            int
	FileConcurrency     int
	AllowedExtensions   map[string]bool
	WorkspaceRoot       string

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryCapDelay  time.Duration

	EmpiricalDemoteThreshold   float64
	EmpiricalMinObservations   int

	DrainOnShutdown time.Duration

	SnapshotPath string // sqlite DSN/path; "" disables persistence
}

var defaultAllowedExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h", ".cpp",
	".hpp", ".cc", ".rs", ".rb", ".php", ".cs", ".swift", ".kt", ".scala",
	".md", ".txt", ".json", ".yaml", ".yml", ".toml", ".sh", ".sql",
}

// Load builds a Config from (in priority order) process env, a .env
// file, an endpoints.yaml file, and built-in defaults.
func Load(envPath, endpointsPath string) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if err := godotenv.Load(envPath); err != nil {
		log.Debug().Err(err).Str("path", envPath).Msg("no .env file loaded")
	}

	cfg := &Config{
		LocalFirstRatio:          envFloat("LOCAL_FIRST_RATIO", DefaultLocalFirstRatio),
		RequestTimeoutBase:       envMillis("REQUEST_TIMEOUT_BASE_MS", DefaultRequestTimeoutBaseMs),
		ComplexMultiplier:        envFloat("COMPLEX_MULTIPLIER", DefaultComplexMultiplier),
		ProbeInterval:            envMillis("PROBE_INTERVAL_MS", int(DefaultProbeInterval/time.Millisecond)),
		ProbeTimeout:             envMillis("PROBE_TIMEOUT_MS", int(DefaultProbeTimeout/time.Millisecond)),
		BreakerFailureThreshold:  envInt("BREAKER_FAILURE_THRESHOLD", DefaultBreakerFailureThreshold),
		BreakerOpenCooldown:      envMillis("BREAKER_OPEN_MS", int(DefaultBreakerOpenCooldown/time.Millisecond)),
		BreakerHalfOpenSuccesses: envInt("BREAKER_HALFOPEN_SUCCESSES", DefaultBreakerHalfOpenSuccesses),
		CacheTTL:                 envMillis("CACHE_TTL_MS", int(DefaultCacheTTL/time.Millisecond)),
		CacheMaxBytes:            int64(envInt("CACHE_MAX_BYTES", DefaultCacheMaxBytes)),
		CacheMaxEntries:          envInt("CACHE_MAX_ENTRIES", DefaultCacheMaxEntries),
		MaxFileBytes:             int64(envInt("MAX_FILE_BYTES", DefaultMaxFileBytes)),
		MaxFiles:                 clampInt(envInt("MAX_FILES", DefaultMaxFiles), 1, HardMaxFiles),
		FileConcurrency:          clampInt(envInt("FILE_CONCURRENCY", DefaultFileConcurrency), 1, HardMaxFileConcurrency),
		AllowedExtensions:        extensionSet(envList("ALLOWED_EXTENSIONS", defaultAllowedExtensions)),
		WorkspaceRoot:            os.Getenv("WORKSPACE_ROOT"),
		RetryAttempts:            envInt("RETRY_ATTEMPTS", DefaultRetryAttempts),
		RetryBaseDelay:           envMillis("RETRY_BASE_MS", int(DefaultRetryBaseBackoff/time.Millisecond)),
		RetryCapDelay:            envMillis("RETRY_CAP_MS", int(DefaultRetryCapBackoff/time.Millisecond)),
		EmpiricalDemoteThreshold: envFloat("EMPIRICAL_DEMOTE_THRESHOLD", DefaultEmpiricalDemoteThreshold),
		EmpiricalMinObservations: envInt("EMPIRICAL_MIN_OBSERVATIONS", DefaultEmpiricalMinObservations),
		DrainOnShutdown:          envMillis("DRAIN_ON_SHUTDOWN_MS", int(DefaultDrainOnShutdown/time.Millisecond)),
		SnapshotPath:             os.Getenv("SNAPSHOT_PATH"),
	}

	if cfg.WorkspaceRoot == "" {
		wd, err := os.Getwd()
		if err == nil {
			cfg.WorkspaceRoot = wd
		}
	}

	endpoints, err := loadEndpoints(endpointsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading endpoints: %v", errConfigSentinel, err)
	}
	cfg.Endpoints = endpoints
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", errConfigSentinel)
	}

	return cfg, nil
}

var errConfigSentinel = fmt.Errorf("config error")

func loadEndpoints(path string) ([]EndpointConfig, error) {
	if path == "" {
		path = "endpoints.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEndpoints(), nil
		}
		return nil, err
	}
	var wrapper struct {
		Endpoints []EndpointConfig `yaml:"endpoints"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Endpoints, nil
}

// DefaultEndpoints returns a single local endpoint, enough for the
// router to run with nothing configured.
func DefaultEndpoints() []EndpointConfig {
	return []EndpointConfig{
		{
			Name:              "local",
			BaseURL:           "http://127.0.0.1:11434",
			ModelID:           "local-default",
			Priority:          1,
			MaxContextTokens:  32768,
			MaxResponseTokens: 4096,
			AuthKind:          AuthNone,
			Capabilities:      []string{"code", "reasoning"},
			Local:             true,
		},
	}
}

func extensionSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = true
	}
	return m
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envMillis(key string, defMs int) time.Duration {
	return time.Duration(envInt(key, defMs)) * time.Millisecond
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
