package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	ServerURL      string
	WSURL          string
	DataDir        string
	ForecastMonths int
	AckDelay       time.Duration
	RequestTimeout time.Duration
	LogLevel       string

	// Dev server
	ServerPort  string
	DatabaseURL string
	UploadDir   string
	OCREndpoint string // empty disables OCR
	OllamaURL   string // empty disables the LLM fallback
	OllamaModel string
}

// Load reads defaults, an optional .smartspend.yaml and SMARTSPEND_* env vars,
// in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("server_url", "http://localhost:8000")
	v.SetDefault("ws_url", "")
	v.SetDefault("data_dir", "~/.smartspend")
	v.SetDefault("forecast_months", 3)
	v.SetDefault("ack_delay", time.Second)
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("server_port", "8000")
	v.SetDefault("database_url", "./smart-spend.db")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("ocr_endpoint", "")
	v.SetDefault("ollama_url", "")
	v.SetDefault("ollama_model", "llama3.2")

	v.SetConfigName(".smartspend") // .yaml is implicit
	v.SetEnvPrefix("SMARTSPEND")
	v.AutomaticEnv()

	if override := getEnv("SMARTSPEND_CONFIG_PATH", ""); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	dataDir, err := homedir.Expand(v.GetString("data_dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to expand data dir: %w", err)
	}

	serverURL := strings.TrimRight(v.GetString("server_url"), "/")
	wsURL := strings.TrimRight(v.GetString("ws_url"), "/")
	if wsURL == "" {
		wsURL, err = DeriveWSURL(serverURL)
		if err != nil {
			return nil, err
		}
	}

	months := v.GetInt("forecast_months")
	if months < 1 {
		return nil, fmt.Errorf("forecast_months must be positive, got %d", months)
	}

	return &Config{
		ServerURL:      serverURL,
		WSURL:          wsURL,
		DataDir:        filepath.Clean(dataDir),
		ForecastMonths: months,
		AckDelay:       v.GetDuration("ack_delay"),
		RequestTimeout: v.GetDuration("request_timeout"),
		LogLevel:       v.GetString("log_level"),
		ServerPort:     v.GetString("server_port"),
		DatabaseURL:    v.GetString("database_url"),
		UploadDir:      v.GetString("upload_dir"),
		OCREndpoint:    strings.TrimRight(v.GetString("ocr_endpoint"), "/"),
		OllamaURL:      strings.TrimRight(v.GetString("ollama_url"), "/"),
		OllamaModel:    v.GetString("ollama_model"),
	}, nil
}

// DeriveWSURL maps an http(s) base URL onto its ws(s) counterpart.
func DeriveWSURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// LogFile is where the interactive client writes its logs.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "smartspend.log")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
