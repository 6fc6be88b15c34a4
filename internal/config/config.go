package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	DefaultModel        = "gpt-3.5-turbo-16k"
	DefaultMaxTokens    = 16385
	DefaultTemperature  = 0.3
	DefaultAPIKeyEnv    = "OPENAI_API_KEY"
	DefaultLocale       = "pt-BR"
	DefaultRowsPerTable = 10
)

// envReference matches a value that is entirely "${VAR}".
var envReference = regexp.MustCompile(`^\$\{(\w+)\}$`)

type Config struct {
	Dialects    []string           `json:"dialects,omitempty" mapstructure:"dialects"`
	Connections []ConnectionConfig `json:"connections" mapstructure:"connections"`
	Generation  Generation         `json:"generation" mapstructure:"generation"`
	Insert      Insert             `json:"insert" mapstructure:"insert"`
}

type Generation struct {
	Model        string        `json:"model" mapstructure:"model"`
	MaxTokens    int           `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature  float64       `json:"temperature" mapstructure:"temperature"`
	APIKeyEnv    string        `json:"api_key_env" mapstructure:"api_key_env"`
	BaseURL      string        `json:"base_url,omitempty" mapstructure:"base_url"`
	Locale       string        `json:"locale" mapstructure:"locale"`
	RowsPerTable int           `json:"rows_per_table" mapstructure:"rows_per_table"`
	Timeout      time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
	JSONMode     bool          `json:"json_mode,omitempty" mapstructure:"json_mode"`
}

type Insert struct {
	Timeout time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
}

// Load unmarshals the global viper state populated by the CLI.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults(v)

	for i := range cfg.Connections {
		cfg.Connections[i].Password = expandEnvReference(cfg.Connections[i].Password)
	}

	return &cfg, nil
}

// expandEnvReference resolves a whole-value "${VAR}" reference. Anything else,
// including passwords containing '$', is returned unchanged.
func expandEnvReference(value string) string {
	m := envReference.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return value
	}
	return os.Getenv(m[1])
}

func (c *Config) applyDefaults(v *viper.Viper) {
	if len(c.Dialects) == 0 {
		c.Dialects = append([]string(nil), DefaultDialects...)
	}
	if c.Generation.Model == "" {
		c.Generation.Model = DefaultModel
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = DefaultMaxTokens
	}
	if !v.IsSet("generation.temperature") {
		c.Generation.Temperature = DefaultTemperature
	}
	if c.Generation.APIKeyEnv == "" {
		c.Generation.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Generation.Locale == "" {
		c.Generation.Locale = DefaultLocale
	}
	if c.Generation.RowsPerTable == 0 {
		c.Generation.RowsPerTable = DefaultRowsPerTable
	}
}

// Validate checks the generation settings. Connections are validated when
// they are added to the registry so one bad entry does not hide the others.
func (c *Config) Validate() error {
	if c.Generation.MaxTokens < 0 {
		return fmt.Errorf("generation.max_tokens cannot be negative")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %v", c.Generation.Temperature)
	}
	if c.Generation.RowsPerTable < 0 {
		return fmt.Errorf("generation.rows_per_table cannot be negative")
	}
	if _, err := ParseLocale(c.Generation.Locale); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Connections))
	for _, conn := range c.Connections {
		name := strings.TrimSpace(conn.Name)
		if name != "" && seen[name] {
			return fmt.Errorf("duplicate connection name: %s", name)
		}
		seen[name] = true
	}
	return nil
}

func (c *Config) GetAPIKey() (string, error) {
	key := os.Getenv(c.Generation.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("API key not found in environment variable %s", c.Generation.APIKeyEnv)
	}
	return key, nil
}

// ParseLocale validates a BCP 47 tag and returns its canonical form.
func ParseLocale(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return tag.String(), nil
}
