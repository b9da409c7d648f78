// Package config provides configuration for the chat session service.
//
// Values come from an optional YAML file named by STUDYCLUB_CONFIG, then
// from environment variables, which win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the optional YAML config file.
const EnvConfigFile = "STUDYCLUB_CONFIG"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`
	RPCPort  int `yaml:"rpc_port"` // 0 disables the internal JSON-RPC listener

	// Storage
	StorageBackend string `yaml:"storage_backend"`
	DatabaseURL    string `yaml:"database_url"`
	StorageKey     string `yaml:"storage_key"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	NATSURL        string `yaml:"nats_url"`
	NATSBucket     string `yaml:"nats_bucket"`

	// Session lifetime
	MessageTTL    time.Duration `yaml:"message_ttl"`
	PruneInterval time.Duration `yaml:"prune_interval"`

	// Text completion
	LLMProvider     string        `yaml:"llm_provider"`
	LLMAPIKey       string        `yaml:"llm_api_key"`
	LLMBaseURL      string        `yaml:"llm_base_url"`
	LLMModel        string        `yaml:"llm_model"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`
	LLMSystemPrompt string        `yaml:"llm_system_prompt"`

	// Message policy
	PolicyFile string `yaml:"policy_file"`

	// WebSocket settings
	PingInterval   time.Duration `yaml:"ws_ping_interval"`
	WriteTimeout   time.Duration `yaml:"ws_write_timeout"`
	ReadTimeout    time.Duration `yaml:"ws_read_timeout"`
	MaxMessageSize int64         `yaml:"ws_max_message_size"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTPPort:        8080,
		RPCPort:         8081,
		StorageBackend:  "sqlite",
		DatabaseURL:     "file:studyclub.db?cache=shared&mode=rwc",
		StorageKey:      "studyclub24.chat.sessions",
		RedisAddr:       "localhost:6379",
		NATSURL:         "nats://127.0.0.1:4222",
		NATSBucket:      "STUDYCLUB_CHAT",
		MessageTTL:      24 * time.Hour,
		PruneInterval:   time.Hour,
		LLMProvider:     "openai",
		LLMTimeout:      60 * time.Second,
		LLMSystemPrompt: "You are StudyClub24's study assistant. Explain concepts step by step and keep answers focused on the student's question.",
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		MaxMessageSize:  65536,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load loads configuration from the optional file and the environment.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.RPCPort = getEnvInt("RPC_PORT", cfg.RPCPort)
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.StorageKey = getEnv("STORAGE_KEY", cfg.StorageKey)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSBucket = getEnv("NATS_BUCKET", cfg.NATSBucket)
	cfg.MessageTTL = getEnvDuration("MESSAGE_TTL_MS", cfg.MessageTTL)
	cfg.PruneInterval = getEnvDuration("PRUNE_INTERVAL_MS", cfg.PruneInterval)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT_MS", cfg.LLMTimeout)
	cfg.LLMSystemPrompt = getEnv("LLM_SYSTEM_PROMPT", cfg.LLMSystemPrompt)
	cfg.PolicyFile = getEnv("POLICY_FILE", cfg.PolicyFile)
	cfg.PingInterval = getEnvDuration("WS_PING_INTERVAL_MS", cfg.PingInterval)
	cfg.WriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT_MS", cfg.WriteTimeout)
	cfg.ReadTimeout = getEnvDuration("WS_READ_TIMEOUT_MS", cfg.ReadTimeout)
	cfg.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects unknown backends and providers and non-positive durations.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "sqlite", "memory", "redis", "nats":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	switch c.LLMProvider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	durations := map[string]time.Duration{
		"message_ttl":      c.MessageTTL,
		"prune_interval":   c.PruneInterval,
		"llm_timeout":      c.LLMTimeout,
		"ws_ping_interval": c.PingInterval,
		"ws_write_timeout": c.WriteTimeout,
		"ws_read_timeout":  c.ReadTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		return fmt.Errorf("invalid rpc_port %d", c.RPCPort)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
