package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesYAML []byte

type Config struct {
	Database   DatabaseConfig
	FaceEngine FaceEngineConfig
	Verify     VerifyConfig
	Web        WebConfig
	Messages   MessagesConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type FaceEngineConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // embedding dimension, defaults to 512
}

type VerifyConfig struct {
	Threshold  float64       // maximum accepted cosine distance, defaults to 0.4
	SessionTTL time.Duration // verification session lifetime, defaults to 10 minutes
}

type WebConfig struct {
	APIKey        string // shared secret for the bot-facing API (X-API-Key)
	ReceiptLength int    // hex chars of the vote hash shown as a receipt (default 16)
}

// MessagesConfig holds the user-visible flow messages. They live in an
// embedded YAML file so the bot front end and the capture page render the
// same copy for every terminal outcome.
type MessagesConfig struct {
	Verified       string `yaml:"verified"`
	Rejected       string `yaml:"rejected"`
	Expired        string `yaml:"expired"`
	NotFound       string `yaml:"not_found"`
	InProgress     string `yaml:"in_progress"`
	AlreadyVoted   string `yaml:"already_voted"`
	NotRegistered  string `yaml:"not_registered"`
	VoteSubmitted  string `yaml:"vote_submitted"`
	RegisterDone   string `yaml:"register_done"`
	RegisterFailed string `yaml:"register_failed"`
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

func Load() *Config {
	var messages MessagesConfig
	if err := yaml.Unmarshal(messagesYAML, &messages); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded messages.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		FaceEngine: FaceEngineConfig{
			URL: os.Getenv("FACE_ENGINE_URL"),
			Dim: envInt("FACE_ENGINE_DIM", 512),
		},
		Verify: VerifyConfig{
			Threshold:  envFloat("FACE_MATCH_THRESHOLD", 0.4),
			SessionTTL: time.Duration(envInt("SESSION_TTL_MINUTES", 10)) * time.Minute,
		},
		Web: WebConfig{
			APIKey:        os.Getenv("BOT_API_KEY"),
			ReceiptLength: envInt("VOTE_RECEIPT_LENGTH", 16),
		},
		Messages: messages,
	}
}
