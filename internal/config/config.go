// Package config loads configuration from flags, GitHub Action inputs,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultSketchFolder   = "sketches"
	DefaultCollectionName = "My Sketches"
	DefaultBaseURL        = "https://editor.p5js.org"
	DefaultTimeout        = 30 * time.Second
	DefaultEnvFile        = ".env"
)

// ErrMissingCredentials is returned when no username or password is configured.
var ErrMissingCredentials = errors.New(
	"no username or password provided, set P5_USERNAME and P5_PASSWORD (or P5_PASSWORD_SECRET_ID)")

// Config holds all sync configuration.
type Config struct {
	// Editor account
	Username         string `validate:"required"`
	Password         string `validate:"required_without=PasswordSecretID"`
	PasswordSecretID string

	// Sync
	SketchFolder   string `validate:"required"`
	CollectionName string `validate:"required"`
	DryRun         bool

	// HTTP
	BaseURL       string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	RetryAttempts int           `validate:"gte=1,lte=10"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// Metrics textfile, empty to disable
	MetricsFile string

	// Sketch map storage ("file", "s3" or "both")
	StateBackend     string `validate:"oneof=file s3 both"`
	StateS3Bucket    string `validate:"required_unless=StateBackend file"`
	StateS3Key       string
	StateS3Region    string
	StateS3Endpoint  string `validate:"omitempty,url"`
	StateS3AccessKey string
	StateS3SecretKey string

	EnvFile string
}

// flag name -> environment variable.
var envNames = map[string]string{
	"p5-username":           "P5_USERNAME",
	"p5-password":           "P5_PASSWORD",
	"p5-password-secret-id": "P5_PASSWORD_SECRET_ID",
	"sketch-folder":         "SKETCHES_FOLDER",
	"collection-name":       "COLLECTION_NAME",
	"dry-run":               "DRY_RUN",
	"base-url":              "P5_BASE_URL",
	"timeout":               "HTTP_TIMEOUT",
	"retry-attempts":        "RETRY_ATTEMPTS",
	"log-level":             "LOG_LEVEL",
	"log-format":            "LOG_FORMAT",
	"metrics-file":          "METRICS_FILE",
	"state-backend":         "STATE_BACKEND",
	"state-s3-bucket":       "STATE_S3_BUCKET",
	"state-s3-key":          "STATE_S3_KEY",
	"state-s3-region":       "STATE_S3_REGION",
	"state-s3-endpoint":     "STATE_S3_ENDPOINT",
	"state-s3-access-key":   "STATE_S3_ACCESS_KEY",
	"state-s3-secret-key":   "STATE_S3_SECRET_KEY",
	"env-file":              "ENV_FILE",
}

// Load reads configuration from the environment with defaults. Each setting
// is taken from the GitHub Action input (INPUT_<NAME>) first, then from its
// environment variable.
func Load() *Config {
	return &Config{
		Username:         envOr("p5-username", ""),
		Password:         envOr("p5-password", ""),
		PasswordSecretID: envOr("p5-password-secret-id", ""),
		SketchFolder:     envOr("sketch-folder", DefaultSketchFolder),
		CollectionName:   envOr("collection-name", DefaultCollectionName),
		DryRun:           envBool("dry-run", false),
		BaseURL:          envOr("base-url", DefaultBaseURL),
		Timeout:          envDuration("timeout", DefaultTimeout),
		RetryAttempts:    envInt("retry-attempts", 1),
		LogLevel:         envOr("log-level", "info"),
		LogFormat:        envOr("log-format", "console"),
		MetricsFile:      envOr("metrics-file", ""),
		StateBackend:     envOr("state-backend", "file"),
		StateS3Bucket:    envOr("state-s3-bucket", ""),
		StateS3Key:       envOr("state-s3-key", "sketchesMap.json"),
		StateS3Region:    envOr("state-s3-region", "us-east-1"),
		StateS3Endpoint:  envOr("state-s3-endpoint", ""),
		StateS3AccessKey: envOr("state-s3-access-key", ""),
		StateS3SecretKey: envOr("state-s3-secret-key", ""),
		EnvFile:          envOr("env-file", DefaultEnvFile),
	}
}

// LoadEnvFile loads variables from path into the process environment
// without overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// RegisterFlags adds a flag for every setting to fs. Flag defaults are
// informational only; Apply copies a flag into the config only when it was
// set on the command line.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("p5-username", "", "p5.js editor username or email")
	fs.String("p5-password", "", "p5.js editor password")
	fs.String("p5-password-secret-id", "", "AWS Secrets Manager secret holding the password")
	fs.String("sketch-folder", DefaultSketchFolder, "folder containing the sketches")
	fs.String("collection-name", DefaultCollectionName, "collection the sketches are added to")
	fs.Bool("dry-run", false, "scan and build payloads without contacting the editor")
	fs.String("base-url", DefaultBaseURL, "p5.js editor base URL")
	fs.Duration("timeout", DefaultTimeout, "HTTP request timeout")
	fs.Int("retry-attempts", 1, "attempts per API call (1 disables retries)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (console, json)")
	fs.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	fs.String("state-backend", "file", "sketch map storage (file, s3, both)")
	fs.String("state-s3-bucket", "", "S3 bucket for the sketch map")
	fs.String("state-s3-key", "sketchesMap.json", "S3 object key for the sketch map")
	fs.String("state-s3-region", "us-east-1", "S3 region")
	fs.String("state-s3-endpoint", "", "S3-compatible endpoint (e.g. MinIO)")
	fs.String("state-s3-access-key", "", "static S3 access key (default: AWS credential chain)")
	fs.String("state-s3-secret-key", "", "static S3 secret key")
	fs.String("env-file", DefaultEnvFile, "dotenv file loaded before reading the environment")
}

// Apply overrides cfg with every flag set on the command line.
func (c *Config) Apply(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = c.set(f.Name, f.Value.String())
	})
	return err
}

func (c *Config) set(name, value string) error {
	var err error
	switch name {
	case "p5-username":
		c.Username = value
	case "p5-password":
		c.Password = value
	case "p5-password-secret-id":
		c.PasswordSecretID = value
	case "sketch-folder":
		c.SketchFolder = value
	case "collection-name":
		c.CollectionName = value
	case "dry-run":
		c.DryRun, err = strconv.ParseBool(value)
	case "base-url":
		c.BaseURL = value
	case "timeout":
		c.Timeout, err = time.ParseDuration(value)
	case "retry-attempts":
		c.RetryAttempts, err = strconv.Atoi(value)
	case "log-level":
		c.LogLevel = value
	case "log-format":
		c.LogFormat = value
	case "metrics-file":
		c.MetricsFile = value
	case "state-backend":
		c.StateBackend = value
	case "state-s3-bucket":
		c.StateS3Bucket = value
	case "state-s3-key":
		c.StateS3Key = value
	case "state-s3-region":
		c.StateS3Region = value
	case "state-s3-endpoint":
		c.StateS3Endpoint = value
	case "state-s3-access-key":
		c.StateS3AccessKey = value
	case "state-s3-secret-key":
		c.StateS3SecretKey = value
	case "env-file":
		c.EnvFile = value
	}
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Missing credentials are reported as
// ErrMissingCredentials.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Username", "Password":
			return ErrMissingCredentials
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// HasCredentials reports whether a username and password are both known.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func lookup(name string) string {
	if v := os.Getenv("INPUT_" + strings.ToUpper(name)); v != "" {
		return v
	}
	return os.Getenv(envNames[name])
}

func envOr(name, fallback string) string {
	if v := lookup(name); v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	v := lookup(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(name string, fallback int) int {
	v := lookup(name)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := lookup(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
