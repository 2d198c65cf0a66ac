// Package clientcli is the client side of the astro-cloud command line.
//
// It resolves named profiles from ~/.astro-cloud/config.yaml, builds a
// Client that walks remote FITS headers with the right authenticator, and
// formats results as text, JSON or a JMESPath projection of the JSON.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Service:     astrocloud.ServiceS3,
//		Payment:     astrocloud.PaymentRequester,
//		Credentials: creds,
//	}, clientcli.WithRepo(db.GetRepo()))
//	if err != nil {
//		return err
//	}
//
//	index, err := client.Index(ctx, "https://bucket.s3.amazonaws.com/m31.fits", false)
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadOrEmpty(clientcli.DefaultConfigPath())
//	profile, err := configFile.GetProfile("survey")
//	creds := profile.Credentials()
//
// # Output Formatting
//
//	formatter, err := clientcli.NewFormatter(jsonOutput, quiet, "records[].offset")
//	formatter.FormatIndex(os.Stdout, index)
package clientcli
