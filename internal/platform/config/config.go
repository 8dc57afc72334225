package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	LLM      LLMConfig      `koanf:"llm"`
	Tone     ToneConfig     `koanf:"tone"`
	Audit    AuditConfig    `koanf:"audit"`
	CORS     CORSConfig     `koanf:"cors"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int    `koanf:"maxconns"`
	// SchemaDir, when set, is applied at startup. Supabase projects usually
	// manage the schema themselves and leave this empty.
	SchemaDir string `koanf:"schemadir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuthConfig struct {
	DevMode  bool           `koanf:"devmode"`
	JWT      JWTConfig      `koanf:"jwt"`
	Supabase SupabaseConfig `koanf:"supabase"`
}

// JWTConfig describes the Supabase access-token signing setup.
type JWTConfig struct {
	Secret      string `koanf:"secret"`
	Audience    string `koanf:"audience"`
	ExpiryHours int    `koanf:"expiryhours"`
}

type SupabaseConfig struct {
	URL     string `koanf:"url"`
	AnonKey string `koanf:"anonkey"`
}

// LLMConfig points the chat completer at an OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL     string  `koanf:"baseurl"`
	APIKey      string  `koanf:"apikey"`
	Model       string  `koanf:"model"`
	TimeoutSecs int     `koanf:"timeoutsecs"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"maxtokens"`
	HistorySize int     `koanf:"historysize"`
}

type ToneConfig struct {
	Intensity string `koanf:"intensity"`
}

type AuditConfig struct {
	BufferSize      int `koanf:"buffersize"`
	BatchSize       int `koanf:"batchsize"`
	FlushIntervalMS int `koanf:"flushintervalms"`
}

type CORSConfig struct {
	AllowedOrigins string `koanf:"allowedorigins"`
}

// Origins splits the comma-separated origin list.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MetricsConfig controls /metrics. Port 0 serves it on the API listener.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":           8080,
		"server.host":           "0.0.0.0",
		"database.maxconns":     10,
		"log.level":             "info",
		"log.format":            "json",
		"auth.devmode":          false,
		"auth.jwt.audience":     "authenticated",
		"auth.jwt.expiryhours":  1,
		"llm.baseurl":           "https://api.deepseek.com/v1",
		"llm.model":             "deepseek-chat",
		"llm.timeoutsecs":       30,
		"llm.temperature":       0.8,
		"llm.maxtokens":         600,
		"llm.historysize":       10,
		"tone.intensity":        "medium",
		"audit.buffersize":      1024,
		"audit.batchsize":       50,
		"audit.flushintervalms": 500,
		"metrics.enabled":       true,
		"metrics.port":          0,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			continue
		}
	}

	// TWINGENIE_LLM_APIKEY -> llm.apikey
	_ = k.Load(env.Provider("TWINGENIE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "TWINGENIE_")),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
