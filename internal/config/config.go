package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the automation engine.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AI         AIConfig
	Browser    BrowserConfig
	Scheduler  SchedulerConfig
	Automation AutomationConfig
	Notify     NotifyConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL        string
	SessionTTL time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Gemini           GeminiConfig
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type BrowserConfig struct {
	Headless      bool
	ExecPath      string
	UserAgent     string
	PoolSize      int
	ActionTimeout time.Duration
	RetryBackoff  time.Duration
}

type SchedulerConfig struct {
	TickSpec string
}

type AutomationConfig struct {
	MaxPages     int
	SortBy       string
	ChatMaxTurns int
	AnswerMatch  string
	SettleDelay  time.Duration
}

type NotifyConfig struct {
	Timeout      time.Duration
	SMTP         SMTPConfig
	RedisChannel string
	EmailTo      string
	WebhookURL   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SecurityConfig struct {
	// CredentialKey is the 32-byte secretbox key for portal passwords.
	CredentialKey []byte
	// APIKeyHash is the bcrypt hash of the control API bearer token.
	APIKeyHash string
	// RequestsPerMin caps control API calls per client.
	RequestsPerMin int
}

var validProviders = map[string]bool{
	"gemini":    true,
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
}

var validAnswerMatch = map[string]bool{
	"exact":    true,
	"contains": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("AUTOAPPLY_PORT", 8080),
			Env:  envString("AUTOAPPLY_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:        os.Getenv("REDIS_URL"),
			SessionTTL: envDuration("SESSION_TTL", 72*time.Hour),
		},
		AI: AIConfig{
			Provider:         envString("AI_PROVIDER", "gemini"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 30*time.Second),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-2.0-flash"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
		Browser: BrowserConfig{
			Headless:      envBool("BROWSER_HEADLESS", true),
			ExecPath:      os.Getenv("BROWSER_EXEC_PATH"),
			UserAgent:     envString("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			PoolSize:      envInt("BROWSER_POOL_SIZE", 2),
			ActionTimeout: envDuration("BROWSER_ACTION_TIMEOUT", 15*time.Second),
			RetryBackoff:  envDuration("BROWSER_RETRY_BACKOFF", 3*time.Second),
		},
		Scheduler: SchedulerConfig{
			TickSpec: envString("SCHEDULER_TICK", "@every 1m"),
		},
		Automation: AutomationConfig{
			MaxPages:     envInt("SCRAPE_PAGES", 5),
			SortBy:       envString("JOB_SORT_BY", "Date"),
			ChatMaxTurns: envInt("CHAT_MAX_TURNS", 10),
			AnswerMatch:  envString("ANSWER_MATCH", "contains"),
			SettleDelay:  envDuration("SETTLE_DELAY", 3*time.Second),
		},
		Notify: NotifyConfig{
			Timeout: envDuration("NOTIFY_TIMEOUT", 10*time.Second),
			SMTP: SMTPConfig{
				Host:     os.Getenv("EMAIL_HOST"),
				Port:     envInt("EMAIL_PORT", 587),
				Username: os.Getenv("EMAIL_USER"),
				Password: os.Getenv("EMAIL_PASS"),
				From:     os.Getenv("EMAIL_FROM"),
			},
			RedisChannel: os.Getenv("NOTIFY_REDIS_CHANNEL"),
			EmailTo:      os.Getenv("NOTIFY_EMAIL_TO"),
			WebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Security: SecurityConfig{
			APIKeyHash:     os.Getenv("API_KEY_HASH"),
			RequestsPerMin: envInt("API_REQUESTS_PER_MIN", 60),
		},
	}

	if err := cfg.loadCredentialKey(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadCredentialKey() error {
	raw := os.Getenv("CREDENTIAL_KEY")
	if raw == "" {
		return fmt.Errorf("CREDENTIAL_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("CREDENTIAL_KEY must be 64 hex characters (32 bytes)")
	}
	c.Security.CredentialKey = key
	return nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, ollama, vllm, openai, anthropic; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "gemini" && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "vllm" && c.AI.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
	}

	if c.Browser.PoolSize < 1 {
		return fmt.Errorf("BROWSER_POOL_SIZE must be at least 1, got %d", c.Browser.PoolSize)
	}

	if c.Automation.MaxPages < 1 {
		return fmt.Errorf("SCRAPE_PAGES must be at least 1, got %d", c.Automation.MaxPages)
	}
	if c.Automation.ChatMaxTurns < 1 {
		return fmt.Errorf("CHAT_MAX_TURNS must be at least 1, got %d", c.Automation.ChatMaxTurns)
	}
	if !validAnswerMatch[c.Automation.AnswerMatch] {
		return fmt.Errorf("ANSWER_MATCH must be one of exact, contains; got %q", c.Automation.AnswerMatch)
	}

	if c.Notify.WebhookURL != "" &&
		!strings.HasPrefix(c.Notify.WebhookURL, "http://") && !strings.HasPrefix(c.Notify.WebhookURL, "https://") {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL must start with http:// or https://, got %q", c.Notify.WebhookURL)
	}
	if c.Notify.EmailTo != "" && c.Notify.SMTP.Host == "" {
		return fmt.Errorf("EMAIL_HOST is required when NOTIFY_EMAIL_TO is set")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
