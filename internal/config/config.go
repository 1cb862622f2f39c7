package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models shipline.yml.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Timer struct {
		Interval string `yaml:"interval"`
	} `yaml:"timer"`
	Snapshot struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"snapshot"`
	Tasks struct {
		DefaultGroup    string `yaml:"default_group"`
		DefaultDeadline string `yaml:"default_deadline"`
	} `yaml:"tasks"`
	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
		GroupName  string `yaml:"group_name"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"notify"`
	Uploads struct {
		Dir   string `yaml:"dir"`
		Minio struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"use_ssl"`
		} `yaml:"minio"`
	} `yaml:"uploads"`
	Seed struct {
		Users []SeedUser `yaml:"users"`
	} `yaml:"seed"`
}

type SeedUser struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

var validRoles = map[string]bool{
	"Admin":       true,
	"Onboard Eng": true,
	"Remote Team": true,
	"Client":      true,
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run sl init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config.auth.jwt_secret is required")
	}
	for _, field := range []struct{ name, val string }{
		{"auth.token_ttl", c.Auth.TokenTTL},
		{"timer.interval", c.Timer.Interval},
		{"snapshot.cache_ttl", c.Snapshot.CacheTTL},
		{"tasks.default_deadline", c.Tasks.DefaultDeadline},
		{"notify.timeout", c.Notify.Timeout},
	} {
		if field.val == "" {
			continue
		}
		if _, err := time.ParseDuration(field.val); err != nil {
			return fmt.Errorf("config.%s: %w", field.name, err)
		}
	}
	for i, u := range c.Seed.Users {
		if u.Name == "" {
			return fmt.Errorf("config.seed.users[%d] has empty name", i)
		}
		if !validRoles[u.Role] {
			return fmt.Errorf("config.seed.users[%d] has unknown role %q", i, u.Role)
		}
	}
	return nil
}

// TokenTTL returns the parsed session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return durationOr(c.Auth.TokenTTL, 12*time.Hour)
}

// TimerInterval returns the parsed accrual tick interval.
func (c *Config) TimerInterval() time.Duration {
	return durationOr(c.Timer.Interval, time.Second)
}

// SnapshotTTL returns the parsed snapshot cache lifetime.
func (c *Config) SnapshotTTL() time.Duration {
	return durationOr(c.Snapshot.CacheTTL, 500*time.Millisecond)
}

// DefaultTaskGroup returns the group assigned to ad-hoc tasks created
// without one.
func (c *Config) DefaultTaskGroup() string {
	if c.Tasks.DefaultGroup == "" {
		return "General"
	}
	return c.Tasks.DefaultGroup
}

// DefaultTaskDeadline returns the deadline for ad-hoc tasks created
// without one.
func (c *Config) DefaultTaskDeadline() time.Duration {
	return durationOr(c.Tasks.DefaultDeadline, time.Hour)
}

// NotifyTimeout returns the parsed webhook request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return durationOr(c.Notify.Timeout, 5*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shipline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(jwtSecret string) string {
	return fmt.Sprintf(defaultTemplate, jwtSecret)
}

// Default returns the default Config struct.
func Default(jwtSecret string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(GenerateDefault(jwtSecret)), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: :4010

auth:
  jwt_secret: %s
  token_ttl: 12h

timer:
  interval: 1s

snapshot:
  cache_ttl: 500ms

tasks:
  default_group: General
  default_deadline: 1h

notify:
  webhook_url: ""
  group_name: "Vessel Takeover"
  timeout: 5s

uploads:
  dir: uploads

seed:
  users:
    - name: admin
      role: Admin
      password: admin
`
