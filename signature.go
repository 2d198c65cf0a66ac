package astrocloud

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	// EmptyPayloadHash is the SHA-256 digest of an empty body.
	EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	scopeTerminator = "aws4_request"
)

// Header names set by the Signer. Canonical forms are lowercase.
const (
	HeaderAuthorization = "Authorization"
	HeaderAmzDate       = "x-amz-date"
	HeaderContentSHA256 = "x-amz-content-sha256"
	HeaderRequestPayer  = "x-amz-request-payer"
	HeaderSecurityToken = "x-amz-security-token"
	headerHost          = "host"
)

// SignedHeaders are the header values a signed request must carry.
// RequestPayer and SecurityToken are empty when not in use.
type SignedHeaders struct {
	Authorization string
	AmzDate       string
	ContentSHA256 string
	RequestPayer  string
	SecurityToken string
}

// Apply sets the signed values on h.
func (s SignedHeaders) Apply(h http.Header) {
	h.Set(HeaderAuthorization, s.Authorization)
	h.Set(HeaderAmzDate, s.AmzDate)
	h.Set(HeaderContentSHA256, s.ContentSHA256)
	if s.RequestPayer != "" {
		h.Set(HeaderRequestPayer, s.RequestPayer)
	}
	if s.SecurityToken != "" {
		h.Set(HeaderSecurityToken, s.SecurityToken)
	}
}

// Signer produces AWS Signature V4 Authorization headers.
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	creds        Credentials
	requestPayer bool
	now          func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithRequestPayer signs x-amz-request-payer: requester into every request.
func WithRequestPayer(enabled bool) SignerOption {
	return func(s *Signer) {
		s.requestPayer = enabled
	}
}

// WithClock replaces time.Now as the source of signing timestamps.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a Signer for creds. Credentials are checked when signing,
// not here, so an incomplete set still yields a Signer.
func NewSigner(creds Credentials, opts ...SignerOption) *Signer {
	s := &Signer{
		creds: creds,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign computes the headers for one request at time t.
//
// Returns ErrUnauthenticated if any credential needed for signing is absent,
// and ErrNotImplemented if rawURL carries a query string.
func (s *Signer) Sign(method, rawURL string, body []byte, t time.Time) (SignedHeaders, error) {
	if err := s.creds.Validate(); err != nil {
		return SignedHeaders{}, fmt.Errorf("sign request: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return SignedHeaders{}, fmt.Errorf("sign request: parse url: %w", ErrInvalidInput)
	}

	return s.sign(method, u, u.Host, PayloadHash(body), t)
}

// SignRequest signs req in place using a single timestamp from the Signer's clock.
// The body, if any, is read to compute its hash and left readable.
func (s *Signer) SignRequest(req *http.Request) error {
	if err := s.creds.Validate(); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	body, err := readBody(req)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	signed, err := s.sign(req.Method, req.URL, host, PayloadHash(body), s.now())
	if err != nil {
		return err
	}
	signed.Apply(req.Header)
	return nil
}

func (s *Signer) sign(method string, u *url.URL, host, payloadHash string, t time.Time) (SignedHeaders, error) {
	query, err := CanonicalQueryString(u)
	if err != nil {
		return SignedHeaders{}, fmt.Errorf("sign request: %w", err)
	}

	t = t.UTC()
	amzDate := t.Format(DateTimeFormat)
	dateStamp := t.Format(DateFormat)

	headers := map[string]string{
		headerHost:    host,
		HeaderAmzDate: amzDate,
	}
	if s.requestPayer {
		headers[HeaderRequestPayer] = "requester"
	}
	if s.creds.SessionToken != "" {
		headers[HeaderSecurityToken] = s.creds.SessionToken
	}
	signedHeaders, canonicalHeaders := CanonicalizeHeaders(headers)

	canonicalRequest := buildCanonicalRequest(method, CanonicalURI(u), query, canonicalHeaders, signedHeaders, payloadHash)
	scope := CredentialScope(dateStamp, s.creds.Region, s.creds.Service)
	signature := calculateSignature(s.creds.SecretKey, canonicalRequest, amzDate, dateStamp, s.creds.Region, s.creds.Service)

	out := SignedHeaders{
		Authorization: fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
			SignatureAlgorithm, s.creds.AccessKey, scope, signedHeaders, signature),
		AmzDate:       amzDate,
		ContentSHA256: payloadHash,
		SecurityToken: s.creds.SessionToken,
	}
	if s.requestPayer {
		out.RequestPayer = "requester"
	}
	return out, nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("get body: %w", err)
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// PayloadHash returns the lowercase hex SHA-256 digest of body. A nil body
// hashes as empty.
func PayloadHash(body []byte) string {
	return sha256Hash(body)
}

// CanonicalizeHeaders returns the signed-header list and the canonical-header
// block for headers. Names are lowercased and sorted; values are trimmed.
// The block ends with a newline.
func CanonicalizeHeaders(headers map[string]string) (signed, canonical string) {
	names := make([]string, 0, len(headers))
	values := make(map[string]string, len(headers))
	for k, v := range headers {
		name := strings.ToLower(strings.TrimSpace(k))
		names = append(names, name)
		values[name] = strings.TrimSpace(v)
	}
	sort.Strings(names)

	var result strings.Builder
	for _, name := range names {
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(values[name])
		result.WriteString("\n")
	}
	return strings.Join(names, ";"), result.String()
}

// CanonicalURI percent-encodes the decoded path of u, leaving unreserved
// characters and '/' as they are. An empty path becomes "/".
func CanonicalURI(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return uriEncode(u.Path)
}

// CanonicalQueryString returns the canonical query for u. Only the empty
// query is supported; anything else returns ErrNotImplemented.
func CanonicalQueryString(u *url.URL) (string, error) {
	if u.RawQuery == "" {
		return "", nil
	}
	return "", fmt.Errorf("query string canonicalization: %w", ErrNotImplemented)
}

// CredentialScope returns date/region/service/aws4_request.
func CredentialScope(dateStamp, region, service string) string {
	return fmt.Sprintf("%s/%s/%s/%s", dateStamp, region, service, scopeTerminator)
}

// DeriveSigningKey runs the four-stage HMAC chain starting from "AWS4"+secretKey.
func DeriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	kSigning := hmacSHA256(kService, []byte(scopeTerminator))
	return kSigning
}

func calculateSignature(secretKey, canonicalRequest, amzDate, dateStamp, region, service string) string {
	stringToSign := buildStringToSign(amzDate, CredentialScope(dateStamp, region, service), canonicalRequest)
	signingKey := DeriveSigningKey(secretKey, dateStamp, region, service)
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func buildCanonicalRequest(method, uri, query, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		uri,
		query,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
}

func buildStringToSign(amzDate, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		SignatureAlgorithm,
		amzDate,
		credentialScope,
		sha256Hash([]byte(canonicalRequest)),
	}, "\n")
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

const upperhex = "0123456789ABCDEF"

func uriEncode(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}
