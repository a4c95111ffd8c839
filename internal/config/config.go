package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig  `json:"server"`
	OpenAI      OpenAIConfig  `json:"openai"`
	Storage     StorageConfig `json:"storage"`
	Environment string        `json:"environment"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type OpenAIConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
}

type StorageConfig struct {
	Dir string `json:"dir"`
}

// Development reports whether debug behavior should be enabled.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".asistente-legal"))
	}

	// Set defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("openai.model", "gpt-4-1106-preview")
	viper.SetDefault("storage.dir", "conversaciones")
	viper.SetDefault("environment", "production")

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := defaultConfig()
			loadEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4-1106-preview",
		},
		Storage: StorageConfig{
			Dir: "conversaciones",
		},
		Environment: "production",
	}
}

func loadEnvOverrides(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if model := os.Getenv("GPT_MODEL"); model != "" {
		cfg.OpenAI.Model = model
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if dir := os.Getenv("CONVERSATIONS_DIR"); dir != "" {
		cfg.Storage.Dir = dir
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Environment = env
	}
}
