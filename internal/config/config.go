package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Reference ReferenceConfig
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Caption   CaptionConfig
	Web       WebConfig
	Defaults  Defaults
}

// ReferenceConfig identifies the distinguished submitter whose presence
// among an image's submitters confirms authenticity.
type ReferenceConfig struct {
	OwnerID string // external account id of the reference owner
}

type EmbeddingConfig struct {
	URL   string // embedding service base URL, defaults to http://localhost:8000
	Model string // model name, informational only
	Dim   int    // expected vector dimensionality (default 768)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // maximum open connections (default 25)
	MaxIdleConns int    // maximum idle connections (default 5)
	HNSWEnabled  bool   // build the in-memory HNSW index at startup (default true)
}

type CaptionConfig struct {
	Provider    string // "openai", "gemini" or "" (disabled)
	OpenAIToken string
	GeminiKey   string
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
	AuthToken     string // shared token exchanged at login for a session
}

// Defaults carries the embedded threshold defaults. Environment variables
// take precedence over the embedded file.
type Defaults struct {
	Thresholds Thresholds `yaml:"thresholds"`
}

type Thresholds struct {
	PHashDistance int     `yaml:"phash_distance"`
	VectorScore   float64 `yaml:"vector_score"`
	VectorTopK    int     `yaml:"vector_top_k"`
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

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean with a default.
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

func Load() *Config {
	var defaults Defaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	defaults.Thresholds.PHashDistance = envInt("PHASH_DISTANCE_THRESHOLD", defaults.Thresholds.PHashDistance)
	defaults.Thresholds.VectorScore = envFloat("VECTOR_SCORE_THRESHOLD", defaults.Thresholds.VectorScore)
	defaults.Thresholds.VectorTopK = envInt("VECTOR_TOP_K", defaults.Thresholds.VectorTopK)

	return &Config{
		Reference: ReferenceConfig{
			OwnerID: os.Getenv("REFERENCE_OWNER_ID"),
		},
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: os.Getenv("EMBEDDING_MODEL"),
			Dim:   envInt("EMBEDDING_DIM", 768),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWEnabled:  envBool("HNSW_INDEX_ENABLED", true),
		},
		Caption: CaptionConfig{
			Provider:    os.Getenv("CAPTION_PROVIDER"),
			OpenAIToken: os.Getenv("OPENAI_TOKEN"),
			GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		},
		Web: WebConfig{
			Host:          os.Getenv("WEB_HOST"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			AuthToken:     os.Getenv("AUTH_TOKEN"),
		},
		Defaults: defaults,
	}
}
