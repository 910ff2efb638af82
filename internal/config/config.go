package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ad-insights-go/internal/actionable"
	"ad-insights-go/internal/suggest"
	"ad-insights-go/internal/tokenizer"
)

// Config holds all configuration for the application
type Config struct {
	Environment string                `yaml:"environment"`
	LogLevel    string                `yaml:"log_level"`
	Server      ServerConfig          `yaml:"server"`
	Dataset     DatasetConfig         `yaml:"dataset"`
	NGram       NGramConfig           `yaml:"ngram"`
	Tokenizer   tokenizer.Options     `yaml:"tokenizer"`
	Thresholds  actionable.Thresholds `yaml:"thresholds"`
	LLM         suggest.Config        `yaml:"llm"`
	Redis       RedisConfig           `yaml:"redis"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	SuggestTimeout time.Duration `yaml:"suggest_timeout"`
}

type DatasetConfig struct {
	QueriesPath string `yaml:"queries_path"`
	AdsPath     string `yaml:"ads_path"`
}

type NGramConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// RedisConfig enables the suggestion cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file or env overrides apply.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   120 * time.Second,
			SuggestTimeout: 90 * time.Second,
		},
		Dataset: DatasetConfig{
			QueriesPath: "data/search_terms.csv",
			AdsPath:     "data/ads.csv",
		},
		NGram:      NGramConfig{Min: 2, Max: 3},
		Thresholds: actionable.DefaultThresholds(),
		LLM: suggest.Config{
			HTTPTimeout:  25 * time.Second,
			MaxRetryTime: 45 * time.Second,
		},
		Redis: RedisConfig{TTL: 24 * time.Hour},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFromEnv loads .env (if present), the YAML file named by CONFIG_PATH
// (if set) and then applies environment overrides.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load() // loads .env

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Dataset.QueriesPath, "QUERIES_PATH")
	setString(&cfg.Dataset.AdsPath, "ADS_PATH")
	setString(&cfg.LLM.GatewayURL, "LLM_GATEWAY_URL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	ints := map[string]*int{"NGRAM_MIN": &cfg.NGram.Min, "NGRAM_MAX": &cfg.NGram.Max}
	for k, dst := range ints {
		if v := os.Getenv(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = n
		}
	}
	bools := map[string]*bool{"USE_MOCK_LLM": &cfg.LLM.Mock, "STEM_TOKENS": &cfg.Tokenizer.Stem}
	for k, dst := range bools {
		if v := os.Getenv(k); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = b
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.NGram.Min < 1 || c.NGram.Max < c.NGram.Min {
		return fmt.Errorf("invalid ngram range [%d, %d]", c.NGram.Min, c.NGram.Max)
	}
	return nil
}
