// Package astrocloud indexes the headers of FITS files stored behind HTTP
// object services without downloading the files.
//
// A Walker issues one signed 2880-byte range request at a time, accumulates
// header blocks until an END card, parses the header and predicts from its
// declared dimensions where the next header begins. The walk ends when the
// service answers 416 Range Not Satisfiable.
//
// # Key Components
//
//   - Signer: AWS Signature V4 Authorization headers for outbound requests
//   - SignatureVerifier: the matching server-side check
//   - Authenticator: per-provider request preparation (S3, Spaces, GCS, public)
//   - Walker: the range-request loop producing an Index of HeaderRecords
//   - IndexService: a Walker fronted by an IndexRepo cache (PostgreSQL, SQLite)
//
// # Example Usage
//
//	auth, err := astrocloud.NewAuthenticator(astrocloud.ServiceS3, astrocloud.PaymentRequester, creds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	walker := astrocloud.NewWalker(auth, astrocloud.WithExtentMode(fits.ModePadded))
//	index, err := walker.Walk(ctx, "https://bucket.s3.amazonaws.com/image.fits")
//	if err != nil {
//	    // index.State is StateFailed and index.Records holds what was found
//	}
//
// See the fits package for header parsing and extent arithmetic, and the
// database packages for cache backends.
package astrocloud
