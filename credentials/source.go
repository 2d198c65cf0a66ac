// Package credentials resolves signing credentials from AWS shared
// configuration files and the environment, and provides the server-side
// secret store used to verify signatures.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

// DefaultProfile is used when AWS_PROFILE is unset.
const DefaultProfile = "default"

// DefaultService is the signing service when none is configured.
const DefaultService = "s3"

// FileOptions overrides the shared files to read. Empty slices use the SDK
// defaults (~/.aws/credentials and ~/.aws/config).
type FileOptions struct {
	CredentialsFiles []string
	ConfigFiles      []string
}

// FromSharedConfig reads profile from the shared files. A missing file or
// profile yields empty credentials rather than an error.
func FromSharedConfig(ctx context.Context, profile string, opts FileOptions) (astrocloud.Credentials, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	shared, err := config.LoadSharedConfigProfile(ctx, profile, func(o *config.LoadSharedConfigOptions) {
		if len(opts.CredentialsFiles) > 0 {
			o.CredentialsFiles = opts.CredentialsFiles
		}
		if len(opts.ConfigFiles) > 0 {
			o.ConfigFiles = opts.ConfigFiles
		}
	})
	if err != nil {
		var noProfile config.SharedConfigProfileNotExistError
		if errors.As(err, &noProfile) {
			return astrocloud.Credentials{}, nil
		}
		return astrocloud.Credentials{}, fmt.Errorf("load shared config profile %s: %w", profile, err)
	}

	return astrocloud.Credentials{
		AccessKey:    shared.Credentials.AccessKeyID,
		SecretKey:    shared.Credentials.SecretAccessKey,
		SessionToken: shared.Credentials.SessionToken,
		Region:       shared.Region,
	}, nil
}

// FromEnv reads AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN
// and AWS_DEFAULT_REGION, falling back to AWS_REGION.
func FromEnv() astrocloud.Credentials {
	region := os.Getenv("AWS_DEFAULT_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return astrocloud.Credentials{
		AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken: os.Getenv("AWS_SESSION_TOKEN"),
		Region:       region,
	}
}

// ProfileFromEnv returns AWS_PROFILE or DefaultProfile.
func ProfileFromEnv() string {
	if p := os.Getenv("AWS_PROFILE"); p != "" {
		return p
	}
	return DefaultProfile
}

// Merge returns the field-wise combination of sets; later non-empty fields win.
func Merge(sets ...astrocloud.Credentials) astrocloud.Credentials {
	var out astrocloud.Credentials
	for _, c := range sets {
		if c.AccessKey != "" {
			out.AccessKey = c.AccessKey
		}
		if c.SecretKey != "" {
			out.SecretKey = c.SecretKey
		}
		if c.SessionToken != "" {
			out.SessionToken = c.SessionToken
		}
		if c.Region != "" {
			out.Region = c.Region
		}
		if c.Service != "" {
			out.Service = c.Service
		}
	}
	return out
}

// Load resolves credentials for profile: shared files first, then the
// environment, then DefaultService. Absent values stay empty; validation
// happens when a request is signed.
func Load(ctx context.Context, profile string, opts FileOptions) (astrocloud.Credentials, error) {
	if profile == "" {
		profile = ProfileFromEnv()
	}

	shared, err := FromSharedConfig(ctx, profile, opts)
	if err != nil {
		return astrocloud.Credentials{}, err
	}

	return Merge(astrocloud.Credentials{Service: DefaultService}, shared, FromEnv()), nil
}
