package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Farcaster     FarcasterConfig `mapstructure:"farcaster"`
	Webhook       WebhookConfig   `mapstructure:"webhook"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	Limits        LimitsConfig    `mapstructure:"limits"`
	Database      DatabaseConfig  `mapstructure:"database"`
	PersonaPath   string          `mapstructure:"persona_path"`
	EmergencyStop bool            `mapstructure:"emergency_stop"`
}

type FarcasterConfig struct {
	APIKey       string   `mapstructure:"api_key"`
	BaseURL      string   `mapstructure:"base_url"`
	SignerUUID   string   `mapstructure:"signer_uuid"`
	BotFID       int64    `mapstructure:"bot_fid"`
	BotUsernames []string `mapstructure:"bot_usernames"`
}

type WebhookConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Secret     string `mapstructure:"secret"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type LimitsConfig struct {
	DedupWindow         time.Duration `mapstructure:"dedup_window"`
	RateCeiling         int           `mapstructure:"rate_ceiling"`
	ReputationThreshold float64       `mapstructure:"reputation_threshold"`
	MaxThreadDepth      int           `mapstructure:"max_thread_depth"`
	MaxBotReplies       int           `mapstructure:"max_bot_replies"`
	ReplyMaxChars       int           `mapstructure:"reply_max_chars"`
	ExtendedMaxChars    int           `mapstructure:"extended_max_chars"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("farcaster.base_url", "https://api.neynar.com/v2/farcaster")
	v.SetDefault("webhook.listen_addr", ":8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.8)
	v.SetDefault("limits.dedup_window", 3*time.Minute)
	v.SetDefault("limits.rate_ceiling", 10)
	v.SetDefault("limits.reputation_threshold", 0.8)
	v.SetDefault("limits.max_thread_depth", 10)
	v.SetDefault("limits.max_bot_replies", 3)
	v.SetDefault("limits.reply_max_chars", 280)
	v.SetDefault("limits.extended_max_chars", 666)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("persona_path", "persona.yaml")
	v.SetDefault("emergency_stop", false)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if apiKey := v.GetString("FARCASTER_API_KEY"); apiKey != "" {
		config.Farcaster.APIKey = apiKey
	}

	if signer := v.GetString("SIGNER_UUID"); signer != "" {
		config.Farcaster.SignerUUID = signer
	}

	if secret := v.GetString("WEBHOOK_SECRET"); secret != "" {
		config.Webhook.Secret = secret
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if v.GetBool("EMERGENCY_STOP") {
		config.EmergencyStop = true
	}

	return &config, nil
}
