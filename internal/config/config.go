package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/report"
)

const (
	DefaultFile   = "conf.yaml"
	DefaultOutput = "bucket_differences.json"
	EnvPrefix     = "STRICT_S3_DIFF"

	BackendCommand = "s5cmd"
	BackendSDK     = "sdk"
	BackendMinio   = "minio"
)

// endpointKeys must be present in each endpoint section, even when null
var endpointKeys = []string{"bucket_name", "credentials_file", "profile", "endpoint_url"}

type Config struct {
	Primary  EndpointConfig `mapstructure:"primary"`
	Mirror   EndpointConfig `mapstructure:"mirror"`
	Settings Settings       `mapstructure:"settings"`
}

type EndpointConfig struct {
	BucketName      string `mapstructure:"bucket_name" validate:"required"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Profile         string `mapstructure:"profile"`
	EndpointURL     string `mapstructure:"endpoint_url" validate:"omitempty,url"`
	Region          string `mapstructure:"region"`
}

type Settings struct {
	Backend           string   `mapstructure:"backend" validate:"oneof=s5cmd sdk minio"`
	Tool              string   `mapstructure:"tool" validate:"required"`
	Timeout           int      `mapstructure:"timeout" validate:"gt=0"`
	Output            string   `mapstructure:"output" validate:"required"`
	SizeWarningBytes  int64    `mapstructure:"size_warning_bytes" validate:"gt=0"`
	Retries           int      `mapstructure:"retries" validate:"gte=0,lte=10"`
	Exclude           []string `mapstructure:"exclude"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" validate:"gte=0"`
	LogLevel          string   `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string   `mapstructure:"log_format" validate:"oneof=console json"`
}

// Error is returned for any problem that prevents a valid Config
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("configuration %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SetDefaults registers default values and environment overrides on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("settings.backend", BackendCommand)
	v.SetDefault("settings.tool", "s5cmd")
	v.SetDefault("settings.timeout", 300)
	v.SetDefault("settings.output", DefaultOutput)
	v.SetDefault("settings.size_warning_bytes", report.DefaultSizeWarningBytes)
	v.SetDefault("settings.retries", 0)
	v.SetDefault("settings.exclude", []string{})
	v.SetDefault("settings.requests_per_second", 0)
	v.SetDefault("settings.log_level", "info")
	v.SetDefault("settings.log_format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the YAML file at path into v and returns the validated
// configuration. Values already bound to v (flags, env) take precedence
// over the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: path, Reason: "file not found", Err: err}
		}
		return nil, &Error{Path: path, Reason: "failed to read file", Err: err}
	}

	for _, section := range []string{string(bucket.RolePrimary), string(bucket.RoleMirror)} {
		if err := checkSection(v, section); err != nil {
			return nil, &Error{Path: path, Reason: err.Error()}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &Error{Path: path, Reason: "failed to decode", Err: err}
	}

	if err := Validate(cfg); err != nil {
		return nil, &Error{Path: path, Reason: "validation failed", Err: err}
	}
	return cfg, nil
}

func checkSection(v *viper.Viper, section string) error {
	raw := v.Get(section)
	if raw == nil {
		return fmt.Errorf("missing section %q", section)
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("section %q must be a mapping", section)
	}

	var missing []string
	for _, key := range endpointKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("section %q is missing keys: %s", section, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks cfg against its struct constraints
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var details strings.Builder
	for i, fe := range validationErrors {
		if i > 0 {
			details.WriteString("; ")
		}
		fmt.Fprintf(&details, "field '%s' failed on '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return errors.New(details.String())
}

func (e EndpointConfig) Endpoint() bucket.Endpoint {
	return bucket.Endpoint{
		BucketName:      e.BucketName,
		CredentialsFile: e.CredentialsFile,
		Profile:         e.Profile,
		EndpointURL:     e.EndpointURL,
		Region:          e.Region,
	}
}

func (s Settings) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
