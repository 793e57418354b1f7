package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProjectConfig holds settings loaded from bizdoc.yml, a sibling .env file,
// and BIZDOC_* environment variables, in that order of increasing precedence.
type ProjectConfig struct {
	LLM      LLMConfig        `yaml:"llm"`
	Pipeline PipelineSettings `yaml:"pipeline"`
	Server   ServerConfig     `yaml:"server"`
	Valkey   ValkeyConfig     `yaml:"valkey"`
	MinIO    MinIOConfig      `yaml:"minio"`
	Log      LogConfig        `yaml:"log"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	// Provider is one of "chat", "gemini", "bedrock". Empty auto-selects.
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"baseURL,omitempty"`
	APIKey      string  `yaml:"apiKey,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	TimeoutSecs int     `yaml:"timeoutSecs,omitempty"`
	MaxRetries  int     `yaml:"maxRetries,omitempty"`

	// OAuth client-credentials settings for gateways that issue short-lived
	// bearer tokens. Ignored when TokenURL is empty.
	TokenURL      string `yaml:"tokenURL,omitempty"`
	ClientID      string `yaml:"clientID,omitempty"`
	ClientSecret  string `yaml:"clientSecret,omitempty"`
	ResourceGroup string `yaml:"resourceGroup,omitempty"`

	// Region is the AWS region for the bedrock provider.
	Region string `yaml:"region,omitempty"`
}

// PipelineSettings overrides the pipeline's stage budgets and failure policy.
// Zero values keep the built-in defaults.
type PipelineSettings struct {
	DirectorBudgetMs    int     `yaml:"directorBudgetMs,omitempty"`
	SpecialistBudgetMs  int     `yaml:"specialistBudgetMs,omitempty"`
	FinalizeBudgetMs    int     `yaml:"finalizeBudgetMs,omitempty"`
	CallerDeadlineMs    int     `yaml:"callerDeadlineMs,omitempty"`
	DegradedThreshold   float64 `yaml:"degradedThreshold,omitempty"`
	AutoFallback        bool    `yaml:"autoFallback,omitempty"`
	SpecialistMaxTokens int     `yaml:"specialistMaxTokens,omitempty"`
}

type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type ValkeyConfig struct {
	Addr       string `yaml:"addr,omitempty"`
	Password   string `yaml:"password,omitempty"`
	RunTTLSecs int    `yaml:"runTTLSecs,omitempty"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	UseSSL    bool   `yaml:"useSSL,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *ProjectConfig {
	return &ProjectConfig{
		LLM: LLMConfig{
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Valkey: ValkeyConfig{RunTTLSecs: 24 * 60 * 60},
		MinIO:  MinIOConfig{Bucket: "bizdoc"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads bizdoc.yml or bizdoc.yaml from dir on top of Default, then
// loads dir/.env into the process environment (existing variables win), then
// applies BIZDOC_* overrides. A missing config file is not an error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := Default()

	for _, name := range []string{"bizdoc.yml", "bizdoc.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *ProjectConfig) {
	cfg.LLM.Provider = getEnv("BIZDOC_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("BIZDOC_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("BIZDOC_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("BIZDOC_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.TimeoutSecs = getEnvInt("BIZDOC_LLM_TIMEOUT_SECS", cfg.LLM.TimeoutSecs)
	cfg.LLM.MaxRetries = getEnvInt("BIZDOC_LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.TokenURL = getEnv("BIZDOC_LLM_TOKEN_URL", cfg.LLM.TokenURL)
	cfg.LLM.ClientID = getEnv("BIZDOC_LLM_CLIENT_ID", cfg.LLM.ClientID)
	cfg.LLM.ClientSecret = getEnv("BIZDOC_LLM_CLIENT_SECRET", cfg.LLM.ClientSecret)
	cfg.LLM.ResourceGroup = getEnv("BIZDOC_LLM_RESOURCE_GROUP", cfg.LLM.ResourceGroup)
	cfg.LLM.Region = getEnv("BIZDOC_LLM_REGION", cfg.LLM.Region)

	cfg.Pipeline.DirectorBudgetMs = getEnvInt("BIZDOC_DIRECTOR_BUDGET_MS", cfg.Pipeline.DirectorBudgetMs)
	cfg.Pipeline.SpecialistBudgetMs = getEnvInt("BIZDOC_SPECIALIST_BUDGET_MS", cfg.Pipeline.SpecialistBudgetMs)
	cfg.Pipeline.FinalizeBudgetMs = getEnvInt("BIZDOC_FINALIZE_BUDGET_MS", cfg.Pipeline.FinalizeBudgetMs)
	cfg.Pipeline.CallerDeadlineMs = getEnvInt("BIZDOC_CALLER_DEADLINE_MS", cfg.Pipeline.CallerDeadlineMs)
	cfg.Pipeline.DegradedThreshold = getEnvFloat("BIZDOC_DEGRADED_THRESHOLD", cfg.Pipeline.DegradedThreshold)
	cfg.Pipeline.AutoFallback = getEnvBool("BIZDOC_AUTO_FALLBACK", cfg.Pipeline.AutoFallback)

	cfg.Server.Host = getEnv("BIZDOC_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("BIZDOC_SERVER_PORT", cfg.Server.Port)

	cfg.Valkey.Addr = getEnv("BIZDOC_VALKEY_ADDR", cfg.Valkey.Addr)
	cfg.Valkey.Password = getEnv("BIZDOC_VALKEY_PASSWORD", cfg.Valkey.Password)

	cfg.MinIO.Endpoint = getEnv("BIZDOC_MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.AccessKey = getEnv("BIZDOC_MINIO_ACCESS_KEY", cfg.MinIO.AccessKey)
	cfg.MinIO.SecretKey = getEnv("BIZDOC_MINIO_SECRET_KEY", cfg.MinIO.SecretKey)
	cfg.MinIO.Bucket = getEnv("BIZDOC_MINIO_BUCKET", cfg.MinIO.Bucket)
	cfg.MinIO.UseSSL = getEnvBool("BIZDOC_MINIO_USE_SSL", cfg.MinIO.UseSSL)

	cfg.Log.Level = getEnv("BIZDOC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getEnvBool("BIZDOC_LOG_JSON", cfg.Log.JSON)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
