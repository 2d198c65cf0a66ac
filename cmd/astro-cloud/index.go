package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbcurtin/astro-cloud/clientcli"
	"github.com/jbcurtin/astro-cloud/config"
	"github.com/jbcurtin/astro-cloud/credentials"
	"github.com/jbcurtin/astro-cloud/database"
)

var indexCmd = &cobra.Command{
	Use:   "index <url>",
	Short: "List the headers of a remote FITS file",
	Long: `Walk the headers of a FITS file with HTTP range requests.

Only header blocks are fetched; data segments are skipped using the sizes
the headers declare. Credentials come from the selected astro-cloud profile,
the shared AWS files and AWS_* environment variables.

Examples:
  astro-cloud index https://bucket.s3.amazonaws.com/m31.fits
  astro-cloud index --service public https://example.org/archive/m31.fits
  astro-cloud index --request-payer --json https://bucket.s3.amazonaws.com/m31.fits
  astro-cloud index --query 'records[].header.XTENSION' s3-url`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var refresh bool

func init() {
	f := indexCmd.Flags()
	f.String("profile", "", "astro-cloud profile name (env: ASTROCLOUD_PROFILE)")
	f.String("region", "", "signing region, overrides the profile and AWS files")
	f.String("service", "", "cloud service: s3, spaces, gcs, azure, public (default: s3)")
	f.Bool("request-payer", false, "bill the request to the caller (S3 only)")
	f.String("extent-mode", "", "data extent rule: reference, padded (default: reference)")
	f.Bool("cache", false, "store and reuse complete indexes in the database")
	f.Duration("timeout", 0, "per-request timeout (default: 2m)")
	f.BoolVar(&refresh, "refresh", false, "walk again even if the index is cached")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	formatter, err := getFormatter()
	if err != nil {
		return err
	}

	profile, err := selectProfile(cfg.Auth.Profile)
	if err != nil {
		return err
	}

	creds, err := clientcli.ResolveCredentials(ctx, profile, cfg.Auth.Region, credentials.FileOptions{})
	if err != nil {
		return err
	}

	opts := []clientcli.Option{clientcli.WithLogger(slog.Default())}
	if cfg.Index.Timeout > 0 {
		opts = append(opts, clientcli.WithTimeout(cfg.Index.Timeout))
	}

	if cfg.Index.Cache {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open index cache: %w", err)
		}
		defer func() { _ = db.Close() }()
		opts = append(opts, clientcli.WithRepo(db.GetRepo()))
	}

	client, err := clientcli.New(&clientcli.Config{
		Service:     cfg.Auth.CloudService(),
		Payment:     cfg.Auth.PaymentSolution(),
		ExtentMode:  cfg.Index.Mode(),
		Credentials: creds,
	}, opts...)
	if err != nil {
		return err
	}

	index, err := client.Index(ctx, args[0], refresh)
	if err != nil {
		// Headers found before the failure are still worth showing.
		if index != nil && len(index.Records) > 0 {
			_ = formatter.FormatIndex(os.Stdout, index)
		}
		return err
	}

	return formatter.FormatIndex(os.Stdout, index)
}

// selectProfile returns the named profile, or the default one when name and
// ASTROCLOUD_PROFILE are empty. No profile file means no profile.
func selectProfile(name string) (*clientcli.Profile, error) {
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}

	file, err := clientcli.LoadOrEmpty(profilesPath())
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	if name == "" {
		if len(file.Profiles) == 0 {
			return nil, nil
		}
		return file.GetDefaultProfile()
	}

	profile, err := file.GetProfile(name)
	if errors.Is(err, clientcli.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(file.ProfileNames(), ", "))
	}
	return profile, err
}
