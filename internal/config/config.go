package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// MinioConfig configures optional verification-media archival.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// FileConfig represents configuration loaded from YAML with env overrides.
// Chat model and database are startup-fatal when missing; every specialized
// model identifier is optional and only degrades its own feature.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	Debug    bool   `yaml:"debug"`

	DatabaseURL string `yaml:"databaseURL"`

	AuthJWKSURL string `yaml:"authJWKSURL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	ModelAPIKey      string `yaml:"modelAPIKey"`
	ChatBaseURL      string `yaml:"chatBaseURL"`
	ChatModel        string `yaml:"chatModel"`
	InferenceBaseURL string `yaml:"inferenceBaseURL"`

	TranslationModelEnUr string `yaml:"translationModelEnUr"`
	TranslationModelUrEn string `yaml:"translationModelUrEn"`
	SentimentModel       string `yaml:"sentimentModel"`
	CaptionModel         string `yaml:"captionModel"`
	OCRModel             string `yaml:"ocrModel"`
	SpeechModel          string `yaml:"speechModel"`

	KYCServiceURL string `yaml:"kycServiceURL"`

	RedisAddr            string `yaml:"redisAddr"`
	RedisPassword        string `yaml:"redisPassword"`
	AIRateLimitPerMinute int    `yaml:"aiRateLimitPerMinute"`

	TrustedProxies []string `yaml:"trustedProxies"`

	Minio MinioConfig `yaml:"minio"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("AUTH_JWKS_URL"); v != "" {
		cfg.AuthJWKSURL = v
	}
	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		cfg.ModelAPIKey = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("KYC_SERVICE_URL"); v != "" {
		cfg.KYCServiceURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = parsed
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.AuthJWKSURL == "" {
		return errors.New("config: authJWKSURL is required (set in config.yaml or AUTH_JWKS_URL)")
	}
	if cfg.ChatModel == "" {
		return errors.New("config: chatModel is required (set in config.yaml or CHAT_MODEL)")
	}
	return nil
}

// ParseJWTLeeway parses the configured leeway duration; empty means default.
func ParseJWTLeeway(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	leeway, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse jwtLeeway: %w", err)
	}
	return leeway, nil
}
