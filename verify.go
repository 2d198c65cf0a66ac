package astrocloud

import (
	"crypto/hmac"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxSkew is how far x-amz-date may drift from the verifier's clock.
const DefaultMaxSkew = 15 * time.Minute

// SecretStore looks up the secret key for an access key.
type SecretStore interface {
	// Lookup returns the secret key, or an error wrapping ErrUnauthorized if unknown.
	Lookup(accessKey string) (string, error)
}

// SignatureVerifier checks Authorization headers produced by a Signer.
type SignatureVerifier struct {
	Region  string
	Service string
	Secrets SecretStore
	MaxSkew time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewSignatureVerifier creates a verifier accepting signatures scoped to region and service.
func NewSignatureVerifier(region, service string, secrets SecretStore) *SignatureVerifier {
	return &SignatureVerifier{
		Region:  region,
		Service: service,
		Secrets: secrets,
		MaxSkew: DefaultMaxSkew,
	}
}

type authorization struct {
	accessKey     string
	dateStamp     string
	region        string
	service       string
	signedHeaders []string
	signature     string
}

// Verify checks the SigV4 Authorization header on r.
//
// The payload hash is taken from x-amz-content-sha256, so the body is not read.
// Every failure wraps ErrUnauthorized, except a query string on the request,
// which returns ErrNotImplemented.
func (v *SignatureVerifier) Verify(r *http.Request) error {
	auth, err := parseAuthorization(r.Header.Get(HeaderAuthorization))
	if err != nil {
		return err
	}

	amzDate := r.Header.Get(HeaderAmzDate)
	requestTime, err := time.Parse(DateTimeFormat, amzDate)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", HeaderAmzDate, ErrUnauthorized)
	}

	now := time.Now
	if v.Clock != nil {
		now = v.Clock
	}
	skew := now().Sub(requestTime)
	if skew < 0 {
		skew = -skew
	}
	if v.MaxSkew > 0 && skew > v.MaxSkew {
		return fmt.Errorf("request time too skewed: %w", ErrUnauthorized)
	}

	if auth.dateStamp != requestTime.Format(DateFormat) {
		return fmt.Errorf("credential date mismatch: %w", ErrUnauthorized)
	}
	if auth.region != v.Region {
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, auth.region, ErrUnauthorized)
	}
	if auth.service != v.Service {
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, auth.service, ErrUnauthorized)
	}

	payloadHash := r.Header.Get(HeaderContentSHA256)
	if payloadHash == "" {
		return fmt.Errorf("missing %s: %w", HeaderContentSHA256, ErrUnauthorized)
	}

	headers := make(map[string]string, len(auth.signedHeaders))
	for _, name := range auth.signedHeaders {
		if name == headerHost {
			headers[name] = r.Host
			continue
		}
		headers[name] = r.Header.Get(name)
	}
	if _, ok := headers[headerHost]; !ok {
		return fmt.Errorf("host is not signed: %w", ErrUnauthorized)
	}
	if _, ok := headers[HeaderAmzDate]; !ok {
		return fmt.Errorf("%s is not signed: %w", HeaderAmzDate, ErrUnauthorized)
	}

	query, err := CanonicalQueryString(r.URL)
	if err != nil {
		return err
	}

	secretKey, err := v.Secrets.Lookup(auth.accessKey)
	if err != nil {
		return err
	}

	signedHeaders, canonicalHeaders := CanonicalizeHeaders(headers)
	canonicalRequest := buildCanonicalRequest(r.Method, CanonicalURI(r.URL), query, canonicalHeaders, signedHeaders, payloadHash)
	expected := calculateSignature(secretKey, canonicalRequest, amzDate, auth.dateStamp, auth.region, auth.service)

	if !hmac.Equal([]byte(expected), []byte(auth.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

// parseAuthorization splits
// "AWS4-HMAC-SHA256 Credential=ak/date/region/service/aws4_request, SignedHeaders=a;b, Signature=hex".
func parseAuthorization(header string) (*authorization, error) {
	if header == "" {
		return nil, fmt.Errorf("missing authorization header: %w", ErrUnauthorized)
	}

	algorithm, rest, ok := strings.Cut(header, " ")
	if !ok || algorithm != SignatureAlgorithm {
		return nil, fmt.Errorf("invalid algorithm: expected %s: %w", SignatureAlgorithm, ErrUnauthorized)
	}

	fields := make(map[string]string, 3)
	for _, part := range strings.Split(rest, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("malformed authorization header: %w", ErrUnauthorized)
		}
		fields[k] = val
	}

	credential, signedHeaders, signature := fields["Credential"], fields["SignedHeaders"], fields["Signature"]
	if credential == "" || signedHeaders == "" || signature == "" {
		return nil, fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	credParts := strings.Split(credential, "/")
	if len(credParts) != 5 {
		return nil, fmt.Errorf("invalid credential format: %w", ErrUnauthorized)
	}
	if credParts[4] != scopeTerminator {
		return nil, fmt.Errorf("invalid credential terminator: expected %s: %w", scopeTerminator, ErrUnauthorized)
	}

	return &authorization{
		accessKey:     credParts[0],
		dateStamp:     credParts[1],
		region:        credParts[2],
		service:       credParts[3],
		signedHeaders: strings.Split(signedHeaders, ";"),
		signature:     signature,
	}, nil
}
