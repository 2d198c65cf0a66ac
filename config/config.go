package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/credentials"
	"github.com/jbcurtin/astro-cloud/database"
	"github.com/jbcurtin/astro-cloud/fits"
	achttp "github.com/jbcurtin/astro-cloud/http"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ASTROCLOUD"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for astro-cloud.
type Config struct {
	Env      string          `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Index    IndexConfig     `mapstructure:"index"`
	Database database.Config `mapstructure:"database"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
}

// IsProd reports whether Env names a production deployment.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// AuthConfig selects how outgoing range requests are authenticated.
type AuthConfig struct {
	// Profile names the AWS shared config profile. Empty falls back to AWS_PROFILE.
	Profile      string `mapstructure:"profile"`
	Region       string `mapstructure:"region"`
	Service      string `mapstructure:"service" validate:"required,oneof=s3 spaces gcs azure public"`
	RequestPayer bool   `mapstructure:"request_payer"`
}

// CloudService returns the parsed service.
func (a AuthConfig) CloudService() astrocloud.CloudService {
	return astrocloud.CloudService(a.Service)
}

// PaymentSolution maps RequestPayer onto the payment variant.
func (a AuthConfig) PaymentSolution() astrocloud.PaymentSolution {
	if a.RequestPayer {
		return astrocloud.PaymentRequester
	}
	return astrocloud.PaymentOwner
}

// IndexConfig controls header walks.
type IndexConfig struct {
	ExtentMode string        `mapstructure:"extent_mode" validate:"required,oneof=reference padded"`
	Cache      bool          `mapstructure:"cache"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Mode returns the parsed extent mode.
func (i IndexConfig) Mode() fits.ExtentMode {
	mode, err := fits.ParseExtentMode(i.ExtentMode)
	if err != nil {
		return fits.ModeReference
	}
	return mode
}

// ServerConfig holds range server configuration.
type ServerConfig struct {
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Root string `mapstructure:"root" validate:"required"`
	// Access is "private" to require SigV4 signatures, "public" otherwise.
	Access  string                 `mapstructure:"access" validate:"required,oneof=public private"`
	Region  string                 `mapstructure:"region" validate:"required"`
	Service string                 `mapstructure:"service" validate:"required"`
	Keys    credentials.KeysConfig `mapstructure:"keys"`
	CORS    achttp.CORSConfig      `mapstructure:"cors"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"profile":       "auth.profile",
	"region":        "auth.region",
	"service":       "auth.service",
	"request-payer": "auth.request_payer",
	"extent-mode":   "index.extent_mode",
	"cache":         "index.cache",
	"timeout":       "index.timeout",
	"db-type":       "database.type",
	"db-dsn":        "database.dsn",
	"port":          "server.port",
	"root":          "server.root",
	"access":        "server.access",
	"keys-file":     "server.keys.file",
	"log-level":     "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("auth.profile", "")
	v.SetDefault("auth.region", "")
	v.SetDefault("auth.service", string(astrocloud.ServiceS3))
	v.SetDefault("auth.request_payer", false)

	v.SetDefault("index.extent_mode", fits.ModeReference.String())
	v.SetDefault("index.cache", false)
	v.SetDefault("index.timeout", "2m")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "astro-cloud.db")
	v.SetDefault("database.tables.headers", "fits_headers")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.root", "./data")
	v.SetDefault("server.access", "public")
	v.SetDefault("server.region", "us-east-1")
	v.SetDefault("server.service", "s3")
	v.SetDefault("server.keys.file", "")
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "HEAD"})
	v.SetDefault("server.cors.allowed_headers", []string{"Authorization", "Range", "X-Amz-Date", "X-Amz-Content-Sha256", "X-Amz-Request-Payer", "X-Amz-Security-Token"})
	v.SetDefault("server.cors.exposed_headers", []string{"Content-Range", "Content-Length", "Accept-Ranges"})

	v.SetDefault("log.level", "")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFiles[0], err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge config file %s: %w", cf, err)
			}
		}
	} else {
		v.SetConfigName("astro-cloud")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
