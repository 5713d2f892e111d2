package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by LLM.Provider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderCohere = "cohere"
)

// Store drivers accepted by Store.Driver.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Server     Server     `yaml:"server"`
	LLM        LLM        `yaml:"llm"`
	Classifier Classifier `yaml:"classifier"`
	Grounding  Grounding  `yaml:"grounding"`
	Interview  Interview  `yaml:"interview"`
	Store      Store      `yaml:"store"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	Log        Log        `yaml:"log"`
	// Path of the prompt configuration file (sections, follow-up and compile prompts)
	PromptsFile string `yaml:"prompts_file" validate:"required"`
}

type Server struct {
	// Listen address of the HTTP transport
	Addr string `yaml:"addr" example:":8000" validate:"required"`
	// Comma separated CORS origins
	CORSOrigins string `yaml:"cors_origins" example:"http://localhost:8501"`
	// Mount the MCP streamable HTTP handler under /mcp
	EnableMCP bool `yaml:"enable_mcp"`
}

type LLM struct {
	// ollama, openai, claude or gemini
	Provider string `yaml:"provider" validate:"required,oneof=ollama openai claude gemini groq cohere"`
	Model    string `yaml:"model" example:"llama3.1" validate:"required"`
	BaseURL  string `yaml:"base_url" example:"http://localhost:11434"`
	APIKey   string `yaml:"api_key"`
	// Sampling temperature, zero keeps generation deterministic-leaning
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int64   `yaml:"max_tokens" validate:"gte=0"`
	// Calls per second across all sessions, zero disables limiting
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
	// tiktoken encoding used to estimate prompt size
	TokenEncoding string `yaml:"token_encoding" example:"cl100k_base"`
}

type Classifier struct {
	// Zero-shot classification endpoint base
	BaseURL string        `yaml:"base_url" example:"https://api-inference.huggingface.co/models" validate:"required,url"`
	Model   string        `yaml:"model" example:"facebook/bart-large-mnli" validate:"required"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type Grounding struct {
	// Entailment confidence below which a chunk is ungrounded
	Threshold          float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	DescriptionWindow  int     `yaml:"description_window" validate:"gt=0"`
	DescriptionOverlap int     `yaml:"description_overlap" validate:"gte=0"`
	AnswerWindow       int     `yaml:"answer_window" validate:"gt=0"`
	AnswerOverlap      int     `yaml:"answer_overlap" validate:"gte=0"`
	MaxAttempts        int     `yaml:"max_attempts" validate:"gt=0"`
}

type Interview struct {
	// How long the interview waits for a user answer
	InputTimeout time.Duration `yaml:"input_timeout"`
	// How long a transport waits for the next output to be ready
	OutputTimeout time.Duration `yaml:"output_timeout"`
	// How long a transport waits for submitted input to be consumed
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	// Idle time after which a registered session is dropped
	SessionExpiry time.Duration `yaml:"session_expiry"`
}

type Store struct {
	// memory, redis, postgres or mongo
	Driver   string   `yaml:"driver" validate:"required,oneof=memory redis postgres mongo"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Mongo    Mongo    `yaml:"mongo"`
}

type Redis struct {
	Addr     string        `yaml:"addr" example:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type Mongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type Telemetry struct {
	Disable  bool   `yaml:"disable"`
	Endpoint string `yaml:"endpoint"`
}

type Log struct {
	// json, text or console
	Format string `yaml:"format" validate:"omitempty,oneof=json text console"`
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8000"},
		LLM: LLM{
			Provider:      ProviderOllama,
			Model:         "llama3.1",
			BaseURL:       "http://localhost:11434",
			TokenEncoding: "cl100k_base",
		},
		Classifier: Classifier{
			BaseURL: "https://api-inference.huggingface.co/models",
			Model:   "facebook/bart-large-mnli",
			Timeout: 60 * time.Second,
		},
		Grounding: Grounding{
			Threshold:          0.81,
			DescriptionWindow:  600,
			DescriptionOverlap: 10,
			AnswerWindow:       80,
			AnswerOverlap:      8,
			MaxAttempts:        3,
		},
		Interview: Interview{
			InputTimeout:   time.Hour,
			OutputTimeout:  3 * time.Minute,
			ProcessTimeout: 6 * time.Hour,
			SessionExpiry:  24 * time.Hour,
		},
		Store: Store{
			Driver: StoreMemory,
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "bizplan:interview:",
				TTL:    30 * 24 * time.Hour,
			},
			Postgres: Postgres{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "bizplan",
				SSLMode: "disable",
			},
			Mongo: Mongo{
				URI:        "mongodb://localhost:27017",
				Database:   "bizplan",
				Collection: "interviews",
			},
		},
		Log:         Log{Format: "json", Level: "info"},
		PromptsFile: "prompts.yaml",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, oops.Code("config_read").With("path", path).Wrapf(err, "failed to read config file")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, oops.Code("config_parse").With("path", path).Wrapf(err, "failed to parse YAML config")
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("config_invalid").With("path", path).Wrapf(err, "failed to validate config")
	}
	return cfg, nil
}

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := ValidateLLMConfig(c.LLM.Provider, c.LLM.APIKey, c.LLM.Model, c.LLM.Temperature); err != nil {
		return err
	}
	if err := ValidateGroundingConfig(c.Grounding); err != nil {
		return err
	}
	if err := ValidateInterviewConfig(c.Interview); err != nil {
		return err
	}

	switch c.Store.Driver {
	case StoreRedis:
		return ValidateRedisConfig(c.Store.Redis.Addr, c.Store.Redis.DB, c.Store.Redis.Prefix)
	case StorePostgres:
		p := c.Store.Postgres
		return ValidatePostgresConfig(p.Host, p.Port, p.User, p.DBName, p.SSLMode)
	case StoreMongo:
		m := c.Store.Mongo
		return ValidateMongoDBConfig(m.URI, m.Database, m.Collection)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("BIZPLAN_ADDR", c.Server.Addr)
	c.PromptsFile = getEnv("BIZPLAN_PROMPTS_FILE", c.PromptsFile)

	c.LLM.Provider = getEnv("BIZPLAN_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("BIZPLAN_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("BIZPLAN_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("BIZPLAN_LLM_API_KEY", c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderClaude:
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderGroq:
			c.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		case ProviderCohere:
			c.LLM.APIKey = os.Getenv("COHERE_API_KEY")
		}
	}

	c.Classifier.APIKey = getEnv("HF_API_TOKEN", c.Classifier.APIKey)
	c.Grounding.Threshold = getEnvFloat("BIZPLAN_GROUNDING_THRESHOLD", c.Grounding.Threshold)
	c.Interview.InputTimeout = getEnvDuration("BIZPLAN_INPUT_TIMEOUT", c.Interview.InputTimeout)

	c.Store.Driver = getEnv("BIZPLAN_STORE", c.Store.Driver)
	c.Store.Redis.Addr = getEnv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getEnv("REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.Redis.DB = getEnvInt("REDIS_DB", c.Store.Redis.DB)
	c.Store.Postgres.Host = getEnv("POSTGRES_HOST", c.Store.Postgres.Host)
	c.Store.Postgres.Port = getEnvInt("POSTGRES_PORT", c.Store.Postgres.Port)
	c.Store.Postgres.User = getEnv("POSTGRES_USER", c.Store.Postgres.User)
	c.Store.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Store.Postgres.Password)
	c.Store.Postgres.DBName = getEnv("POSTGRES_DB", c.Store.Postgres.DBName)
	c.Store.Mongo.URI = getEnv("MONGODB_URI", c.Store.Mongo.URI)

	c.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Log.Format = getEnv("BIZPLAN_LOG_FORMAT", c.Log.Format)
	c.Log.Level = getEnv("BIZPLAN_LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
