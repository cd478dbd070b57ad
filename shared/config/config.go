package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Schedule   string           `yaml:"schedule"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn" env:"DATABASE_URL"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // openai or gemini
	APIKey   string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`

	ClassifyTemperature float32       `yaml:"classify_temperature"`
	ClassifyMaxTokens   int           `yaml:"classify_max_tokens"`
	ClassifyTimeout     time.Duration `yaml:"classify_timeout"`

	GenerateTemperature float32       `yaml:"generate_temperature"`
	GenerateMaxTokens   int           `yaml:"generate_max_tokens"`
	GenerateTimeout     time.Duration `yaml:"generate_timeout"`

	CopyTemperature float32 `yaml:"copy_temperature"`
	CopyMaxTokens   int     `yaml:"copy_max_tokens"`

	AngleTemperature float32 `yaml:"angle_temperature"`
	AngleMaxTokens   int     `yaml:"angle_max_tokens"`
}

type YouTubeConfig struct {
	APIKey       string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`
	APIKey          string `yaml:"api_key"`
}

type PipelineConfig struct {
	MinTextLength       int           `yaml:"min_text_length"`
	ClassifyDelay       time.Duration `yaml:"classify_delay"`
	PageDelay           time.Duration `yaml:"page_delay"`
	PageSize            int           `yaml:"page_size"`
	SampleCap           int           `yaml:"sample_cap"`
	DefaultPersonas     int           `yaml:"default_personas"`
	DefaultCommentLimit int           `yaml:"default_comment_limit"`
	ScheduledBatchLimit int           `yaml:"scheduled_batch_limit"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	return LoadFile(configFile)
}

// LoadFile reads configuration from path. A missing file is not an error:
// everything can be supplied through the environment.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Database.DSN == "" {
		c.Database.DSN = os.Getenv("DATABASE_URL")
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = os.Getenv("LLM_PROVIDER")
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.Sheets.CredentialsFile == "" {
		c.Sheets.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.Sheets.APIKey == "" {
		c.Sheets.APIKey = c.YouTube.APIKey
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/personas.db"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == "gemini" {
			c.LLM.Model = "gemini-2.5-flash"
		} else {
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.LLM.ClassifyTemperature == 0 {
		c.LLM.ClassifyTemperature = 0.7
	}
	if c.LLM.ClassifyMaxTokens == 0 {
		c.LLM.ClassifyMaxTokens = 500
	}
	if c.LLM.ClassifyTimeout == 0 {
		c.LLM.ClassifyTimeout = 60 * time.Second
	}
	if c.LLM.GenerateTemperature == 0 {
		c.LLM.GenerateTemperature = 0.7
	}
	if c.LLM.GenerateMaxTokens == 0 {
		c.LLM.GenerateMaxTokens = 3000
	}
	if c.LLM.GenerateTimeout == 0 {
		c.LLM.GenerateTimeout = 120 * time.Second
	}
	if c.LLM.CopyTemperature == 0 {
		c.LLM.CopyTemperature = 0.8
	}
	if c.LLM.CopyMaxTokens == 0 {
		c.LLM.CopyMaxTokens = 2000
	}
	if c.LLM.AngleTemperature == 0 {
		c.LLM.AngleTemperature = 0.8
	}
	if c.LLM.AngleMaxTokens == 0 {
		c.LLM.AngleMaxTokens = 4000
	}

	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}

	if c.Pipeline.MinTextLength == 0 {
		c.Pipeline.MinTextLength = 20
	}
	if c.Pipeline.ClassifyDelay == 0 {
		c.Pipeline.ClassifyDelay = 500 * time.Millisecond
	}
	if c.Pipeline.PageDelay == 0 {
		c.Pipeline.PageDelay = 100 * time.Millisecond
	}
	if c.Pipeline.PageSize <= 0 || c.Pipeline.PageSize > 100 {
		c.Pipeline.PageSize = 100
	}
	if c.Pipeline.SampleCap == 0 {
		c.Pipeline.SampleCap = 80
	}
	if c.Pipeline.DefaultPersonas == 0 {
		c.Pipeline.DefaultPersonas = 4
	}
	if c.Pipeline.DefaultCommentLimit == 0 {
		c.Pipeline.DefaultCommentLimit = 500
	}
	if c.Pipeline.ScheduledBatchLimit == 0 {
		c.Pipeline.ScheduledBatchLimit = 200
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 6 * * *" // Daily at 6 AM
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q (use sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set DATABASE_URL or database.dsn)")
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY or llm.api_key)")
		}
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or llm.api_key)")
		}
	default:
		return fmt.Errorf("unsupported LLM provider %q (use openai or gemini)", c.LLM.Provider)
	}

	if c.Pipeline.MinTextLength < 0 {
		return fmt.Errorf("pipeline.min_text_length must not be negative")
	}
	if c.Pipeline.SampleCap < 1 {
		return fmt.Errorf("pipeline.sample_cap must be positive")
	}

	if c.Email.Enabled {
		if c.Email.Username == "" {
			return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
		}
		if c.Email.SMTPServer == "" || c.Email.ToEmail == "" {
			return fmt.Errorf("email.smtp_server and email.to_email are required when email is enabled")
		}
	}
	return nil
}

// Defaults returns a configuration with every default applied and no
// secrets. Used by tests and by components constructed without a file.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
