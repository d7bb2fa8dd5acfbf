// Package config resolves company-lens settings from defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xyenon/company-lens/internal/paths"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "meta-llama/llama-3.3-8b-instruct:free"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetries     = 1
	DefaultConcurrency = 3
)

const (
	EnvAPIKey         = "OPENROUTER_API_KEY"
	EnvFallbackAPIKey = "OPENAI_API_KEY"
	EnvBaseURL        = "COMPANY_LENS_BASE_URL"
	EnvModel          = "COMPANY_LENS_MODEL"
	EnvTimeout        = "COMPANY_LENS_TIMEOUT"
	EnvDebug          = "COMPANY_LENS_DEBUG"
)

type Config struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// MaxRetries is handed to the HTTP client for transport-level retries.
	MaxRetries int `yaml:"max_retries"`

	// SiteURL and SiteName become OpenRouter's HTTP-Referer and X-Title headers.
	SiteURL  string `yaml:"site_url,omitempty"`
	SiteName string `yaml:"site_name,omitempty"`

	// Retries is how many extra requests a topic gets when its reply cannot be extracted.
	Retries     int `yaml:"retries"`
	Concurrency int `yaml:"concurrency"`

	// FullContentFallback decodes the whole reply when it has no fenced block.
	FullContentFallback bool `yaml:"full_content_fallback"`

	Debug bool `yaml:"debug"`
}

func Default() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		Retries:     DefaultRetries,
		Concurrency: DefaultConcurrency,
	}
}

// Load reads path (the default config file when empty) over the defaults and
// applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = paths.GetConfigFile()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if key := firstNonEmpty(os.Getenv(EnvAPIKey), os.Getenv(EnvFallbackAPIKey)); key != "" {
		c.APIKey = key
	}
	c.BaseURL = envOrDefault(os.Getenv(EnvBaseURL), c.BaseURL)
	c.Model = envOrDefault(os.Getenv(EnvModel), c.Model)

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvDebug); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		c.Debug = on
	}
	return nil
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model is empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("temperature %.2f is outside [0, 2]", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		problems = append(problems, "max_tokens must be positive")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries must not be negative")
	}
	if c.Retries < 0 {
		problems = append(problems, "retries must not be negative")
	}
	if c.Concurrency <= 0 {
		problems = append(problems, "concurrency must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.APIKey = MaskKey(c.APIKey)
	return c
}

func MaskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
	}
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteStarter writes a starter config file to path without an API key.
// It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := paths.EnsureDir(path); err != nil {
		return err
	}

	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := fmt.Sprintf("# company-lens configuration\n# The API key is read from $%s.\n", EnvAPIKey)
	return os.WriteFile(path, append([]byte(header), data...), 0o600)
}

func envOrDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
