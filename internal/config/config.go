package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/n0madic/stridecoach/internal/reasoning"
)

const (
	UpstreamURLDefault     = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel           = "openai/gpt-4o"
	ImageModelDefault      = "google/gemini-3-pro-image-preview"
	RefererDefault         = "http://localhost:3000"
	TitleDefault           = "OpenRouter Running Coach"
	DatabasePathDefault    = "stridecoach.db"
	ChunkTimeoutDefault    = 60 * time.Second
	RequestTimeoutDefault  = 5 * time.Minute
	ReasoningEffortDefault = "medium"
)

// ServerConfig holds all server configuration.
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	Verbose         bool          `toml:"verbose"`
	Debug           bool          `toml:"debug"`
	AccessToken     string        `toml:"access_token"`
	UpstreamURL     string        `toml:"upstream_url"`
	APIKey          string        `toml:"api_key"`
	Referer         string        `toml:"referer"`
	Title           string        `toml:"title"`
	DefaultModel    string        `toml:"default_model"`
	ImageModel      string        `toml:"image_model"`
	ReasoningEffort string        `toml:"reasoning_effort"`
	DatabasePath    string        `toml:"database_path"`
	ChunkTimeout    time.Duration `toml:"chunk_timeout"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
}

// Defaults returns a ServerConfig populated with built-in defaults only.
func Defaults() *ServerConfig {
	return &ServerConfig{
		Host:            "127.0.0.1",
		Port:            3000,
		UpstreamURL:     UpstreamURLDefault,
		Referer:         RefererDefault,
		Title:           TitleDefault,
		DefaultModel:    DefaultModel,
		ImageModel:      ImageModelDefault,
		ReasoningEffort: ReasoningEffortDefault,
		DatabasePath:    DatabasePathDefault,
		ChunkTimeout:    ChunkTimeoutDefault,
		RequestTimeout:  RequestTimeoutDefault,
	}
}

// DefaultFromEnv creates a ServerConfig with defaults from environment variables.
func DefaultFromEnv() *ServerConfig {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// Load reads the optional TOML file at path on top of the defaults and then
// applies environment overrides. A missing file is only an error when the
// path was given explicitly.
func Load(path string, explicit bool) (*ServerConfig, error) {
	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				cfg.applyEnv()
				return cfg, nil
			}
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports configuration that would make the server unusable.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("no upstream API key configured; set OPENROUTER_API_KEY")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !reasoning.ValidEffort(c.ReasoningEffort) {
		return fmt.Errorf("invalid reasoning effort %q (want one of %s)", c.ReasoningEffort, strings.Join(reasoning.Efforts, ", "))
	}
	return nil
}

func (c *ServerConfig) applyEnv() {
	if v := envString("OPENROUTER_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := envString("STRIDECOACH_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := envString("STRIDECOACH_HOST"); v != "" {
		c.Host = v
	}
	if v := envString("STRIDECOACH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := envString("STRIDECOACH_ACCESS_TOKEN"); v != "" {
		c.AccessToken = v
	}
	if v := envString("STRIDECOACH_UPSTREAM_URL"); v != "" {
		c.UpstreamURL = v
	}
	if v := envString("STRIDECOACH_REFERER"); v != "" {
		c.Referer = v
	}
	if v := envString("STRIDECOACH_TITLE"); v != "" {
		c.Title = v
	}
	if v := envString("STRIDECOACH_DEFAULT_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := envString("STRIDECOACH_IMAGE_MODEL"); v != "" {
		c.ImageModel = v
	}
	c.ReasoningEffort = envOrDefault("STRIDECOACH_REASONING_EFFORT", c.ReasoningEffort)
	if v := envString("STRIDECOACH_DB"); v != "" {
		c.DatabasePath = v
	}
	if d, ok := envDuration("STRIDECOACH_CHUNK_TIMEOUT"); ok {
		c.ChunkTimeout = d
	}
	if d, ok := envDuration("STRIDECOACH_REQUEST_TIMEOUT"); ok {
		c.RequestTimeout = d
	}
	if envBool("STRIDECOACH_DEBUG") {
		c.Debug = true
	}
	if envBool("STRIDECOACH_VERBOSE") {
		c.Verbose = true
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return defaultVal
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func envDuration(key string) (time.Duration, bool) {
	v := envString(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
