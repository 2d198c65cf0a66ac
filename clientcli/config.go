package clientcli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/credentials"
	"github.com/jbcurtin/astro-cloud/fits"
)

// Profile holds one named set of credentials for outgoing requests.
// Static keys are optional; AWSProfile selects a profile in the shared AWS files.
type Profile struct {
	Name         string `yaml:"name"`
	AWSProfile   string `yaml:"aws_profile,omitempty"`
	Region       string `yaml:"region,omitempty"`
	AccessKey    string `yaml:"access_key,omitempty"`
	SecretKey    string `yaml:"secret_key,omitempty"`
	SessionToken string `yaml:"session_token,omitempty"`
	Default      bool   `yaml:"default,omitempty"`
}

// Credentials returns the static values the profile carries.
func (p *Profile) Credentials() astrocloud.Credentials {
	if p == nil {
		return astrocloud.Credentials{}
	}
	return astrocloud.Credentials{
		AccessKey:    p.AccessKey,
		SecretKey:    p.SecretKey,
		SessionToken: p.SessionToken,
		Region:       p.Region,
	}
}

// ConfigFile holds the full config file structure with multiple profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// GetProfile returns the profile by name.
// If name is empty, returns the default profile.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	if name == "" {
		return c.GetDefaultProfile()
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the default profile.
// If no profile is marked as default, returns the first profile.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range c.Profiles {
		if c.Profiles[i].Default {
			return &c.Profiles[i], nil
		}
	}

	return &c.Profiles[0], nil
}

// AddProfile adds a new profile. Returns ErrProfileExists if a profile
// with the same name already exists.
func (c *ConfigFile) AddProfile(p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == p.Name {
			return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// SetDefault sets the default profile by name.
// Clears the default flag from all other profiles.
func (c *ConfigFile) SetDefault(name string) error {
	found := false
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles[i].Default = true
			found = true
		} else {
			c.Profiles[i].Default = false
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}

// DefaultName returns the name of the default profile, or "" if there are none.
func (c *ConfigFile) DefaultName() string {
	p, err := c.GetDefaultProfile()
	if err != nil {
		return ""
	}
	return p.Name
}

// ProfileNames returns a list of all profile names.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

// Save writes the config to the specified path.
// Creates the parent directory if it doesn't exist.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile loads the config file from the specified path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadOrEmpty loads path, returning an empty ConfigFile if it does not exist.
func LoadOrEmpty(path string) (*ConfigFile, error) {
	cfg, err := LoadConfigFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ConfigFile{}, nil
	}
	return cfg, err
}

// DefaultConfigPath returns the default profile file path (~/.astro-cloud/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".astro-cloud", "config.yaml")
}

// ProfileFromEnv returns the profile name from ASTROCLOUD_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv("ASTROCLOUD_PROFILE")
}

// ConfigPathFromEnv returns the profile file path from ASTROCLOUD_CLIENT_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv("ASTROCLOUD_CLIENT_CONFIG")
}

// Config holds resolved client configuration.
// This is what the Client uses after profile and credential resolution.
type Config struct {
	Service     astrocloud.CloudService
	Payment     astrocloud.PaymentSolution
	ExtentMode  fits.ExtentMode
	Credentials astrocloud.Credentials
}

// Validate checks that the service is known.
func (c *Config) Validate() error {
	if !c.Service.IsValid() {
		return fmt.Errorf("invalid service %q: %w", c.Service, astrocloud.ErrInvalidInput)
	}
	return nil
}

// ResolveCredentials layers the shared AWS files for p.AWSProfile, the
// static keys of p, the environment, and region. Later non-empty values win.
// A nil p reads the AWS_PROFILE profile.
func ResolveCredentials(ctx context.Context, p *Profile, region string, opts credentials.FileOptions) (astrocloud.Credentials, error) {
	awsProfile := ""
	if p != nil {
		awsProfile = p.AWSProfile
	}

	shared, err := credentials.Load(ctx, awsProfile, opts)
	if err != nil {
		return astrocloud.Credentials{}, fmt.Errorf("resolve credentials: %w", err)
	}

	return credentials.Merge(shared, p.Credentials(), credentials.FromEnv(), astrocloud.Credentials{Region: region}), nil
}
