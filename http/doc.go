// Package http serves a directory of FITS files over plain HTTP range
// requests, the way an object store bucket would.
//
// GET / returns a JSON listing. GET and HEAD on any other path return the
// object, honouring Range headers: a range past the end of the object
// yields 416, which is how header walkers detect the end of a file.
//
// # Authentication
//
// Pass a RequestVerifier, usually *astrocloud.SignatureVerifier backed by a
// credentials.Store, to require AWS Signature V4 Authorization headers.
// A nil verifier serves objects publicly:
//
//	store, err := credentials.NewStore(credentials.KeysConfig{File: "keys.yaml"})
//	verifier := astrocloud.NewSignatureVerifier("us-east-1", "s3", store)
//
//	handler := http.NewHandler(&http.HandlerConfig{Verifier: verifier}, files)
//	srv := &stdhttp.Server{Addr: ":8080", Handler: handler.Router()}
//
// Failed verification is a 403 with a JSON error body. Requests carrying a
// query string are rejected with 501 when a verifier is set.
package http
