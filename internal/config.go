package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/hugopub/internal/formatter"
	"github.com/starford/hugopub/internal/publish"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Content   ContentConfig     `yaml:"content"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Formatter formatter.Config  `yaml:"formatter"`
	Jobs      JobsConfig        `yaml:"jobs"`
	Client    ClientConfig      `yaml:"client"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Formatter,
		validation.Field(&c.Formatter.Provider, validation.In(formatter.ProviderPassthrough, formatter.ProviderOpenAI)),
		validation.Field(&c.Formatter.BaseURL, validation.By(absoluteURL)),
	); err != nil {
		return fmt.Errorf("formatter: %w", err)
	}
	if err := c.Jobs.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig describes the Hugo site repository.
type ContentConfig struct {
	RepoPath    string       `yaml:"repo_path"`
	Directories []string     `yaml:"directories"`
	DefaultDir  string       `yaml:"default_dir"`
	ImageDir    string       `yaml:"image_dir"`
	PublicURL   string       `yaml:"public_url"`
	Timezone    string       `yaml:"timezone"`
	Author      AuthorConfig `yaml:"author"`
}

// AuthorConfig is the identity used for content commits.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.RepoPath, validation.Required),
		validation.Field(&c.Directories, validation.Required),
		validation.Field(&c.DefaultDir, validation.Required),
		validation.Field(&c.ImageDir, validation.Required),
		validation.Field(&c.PublicURL, validation.By(absoluteURL)),
	); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if !slices.Contains(c.Directories, c.DefaultDir) {
		return fmt.Errorf("content: default_dir %q is not one of directories", c.DefaultDir)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("content: timezone: %w", err)
	}
	return validation.ValidateStruct(&c.Author,
		validation.Field(&c.Author.Name, validation.Required),
		validation.Field(&c.Author.Email, validation.Required, validation.By(emailAddress)),
	)
}

func absoluteURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func emailAddress(v any) error {
	s, _ := v.(string)
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("must be a valid email address")
	}
	return nil
}

// Location resolves Timezone; empty means the local zone.
func (c *ContentConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the mutating API routes are protected:
//   - "disabled" (default): no bearer token required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// Password is what clients verify before publishing or deleting.
type AuthConfig struct {
	Mode     string `yaml:"mode"`
	Token    string `yaml:"token"`
	Password string `yaml:"password"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when token authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// JobsConfig sizes the publish worker pool.
type JobsConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the jobs configuration.
func (c *JobsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.QueueSize, validation.Min(0)),
	)
}

// ClientConfig configures the CLI commands that talk to a backend.
type ClientConfig struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PageSize     int           `yaml:"page_size"`
	Directories  []string      `yaml:"directories"`
	PollRetry    RetryConfig   `yaml:"poll_retry"`
}

// RetryConfig bounds retries of failed job status checks. Zero
// max_attempts stops polling at the first transport error.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// Publish converts the section for the publish controller.
func (c RetryConfig) Publish() publish.RetryConfig {
	return publish.RetryConfig{
		MaxAttempts:       c.MaxAttempts,
		BackoffBase:       c.Backoff,
		BackoffMultiplier: c.Multiplier,
		MaxBackoff:        c.MaxBackoff,
	}
}

// Validate validates the retry configuration.
func (c RetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxAttempts, validation.Min(0), validation.Max(20)),
		validation.Field(&c.Multiplier, validation.Min(1.0)),
	)
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIBaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.PollInterval, validation.Min(10*time.Millisecond)),
		validation.Field(&c.PageSize, validation.Min(1)),
		validation.Field(&c.PollRetry),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			RepoPath:    "./site",
			Directories: []string{"content/posts"},
			DefaultDir:  "content/posts",
			ImageDir:    "static/images",
			Author: AuthorConfig{
				Name:  "hugopub",
				Email: "hugopub@localhost",
			},
		},
		SQLite: SQLiteConfig{
			Path: "./hugopub.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Formatter: formatter.Config{
			Provider: formatter.ProviderPassthrough,
		},
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 32,
			Retention: 24 * time.Hour,
		},
		Client: ClientConfig{
			APIBaseURL:   "http://localhost:8080",
			PollInterval: time.Second,
			PageSize:     20,
			Directories:  []string{"content/posts"},
			PollRetry: RetryConfig{
				Backoff:    500 * time.Millisecond,
				Multiplier: 2,
				MaxBackoff: 5 * time.Second,
			},
		},
	}
}
