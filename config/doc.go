// Package config provides configuration loading and validation for astro-cloud.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right; ./astro-cloud.yaml when none is given
//  3. Environment variables (ASTROCLOUD_ prefix)
//  4. CLI flags that were explicitly set
//
// # Usage
//
//	cfg, err := config.Load([]string{"astro-cloud.yaml"}, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// Keys map to environment variables with dots replaced by underscores:
//   - auth.service → ASTROCLOUD_AUTH_SERVICE
//   - index.extent_mode → ASTROCLOUD_INDEX_EXTENT_MODE
//   - database.dsn → ASTROCLOUD_DATABASE_DSN
//
// AWS credentials are not part of Config. They come from the shared AWS files
// and AWS_* variables through the credentials package, selected by
// auth.profile.
//
// # Configuration Structure
//
//   - Auth: profile, region, cloud service and request-payer for outgoing requests
//   - Index: extent mode, cache toggle and walk timeout
//   - Database: type, DSN and table name of the header index cache
//   - Server: port, root directory, access mode, keys and CORS for the range server
//   - Log: level; Env selects the log format
package config
