package astrocloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jbcurtin/astro-cloud/fits"
)

// Credentials are the values needed to sign one request. An empty field is absent.
type Credentials struct {
	AccessKey    string `json:"access_key" yaml:"access_key,omitempty"`
	SecretKey    string `json:"-" yaml:"secret_key,omitempty"`
	SessionToken string `json:"-" yaml:"session_token,omitempty"`
	Region       string `json:"region" yaml:"region,omitempty"`
	Service      string `json:"service" yaml:"service,omitempty"`
}

// Validate returns ErrUnauthenticated naming every absent field needed for signing.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, "access key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.Service == "" {
		missing = append(missing, "service")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrUnauthenticated)
	}
	return nil
}

// HeaderRecord locates one header inside a remote file.
// Offset is the absolute position of the block holding the END card and
// Length is Offset+BlockSize, the absolute offset just past the header
// blocks. For a single-block header Offset is where the header begins.
type HeaderRecord struct {
	Offset int64        `json:"offset"`
	Length int64        `json:"length"`
	Header *fits.Header `json:"header"`
}

// End returns the absolute offset just past the header blocks.
func (r HeaderRecord) End() int64 {
	return r.Length
}

// WalkState is the state of a header walk.
type WalkState string

const (
	StateScanning WalkState = "scanning"
	StateParsed   WalkState = "parsed"
	StateDone     WalkState = "done"
	StateFailed   WalkState = "failed"
)

// Index is the ordered set of headers found in one remote file.
// An index whose State is not StateDone is partial.
type Index struct {
	URL     string         `json:"url"`
	State   WalkState      `json:"state"`
	Records []HeaderRecord `json:"records"`
}

// Complete reports whether the walk reached the end of the file.
func (i *Index) Complete() bool {
	return i != nil && i.State == StateDone
}

// IndexSummary describes one cached index.
type IndexSummary struct {
	URL       string    `json:"url"`
	Headers   int       `json:"headers"`
	CreatedAt time.Time `json:"created_at"`
}

// CloudService identifies the provider hosting a remote file.
type CloudService string

const (
	ServiceS3     CloudService = "s3"
	ServiceSpaces CloudService = "spaces"
	ServiceGCS    CloudService = "gcs"
	ServiceAzure  CloudService = "azure"
	ServicePublic CloudService = "public"
)

func (s CloudService) IsValid() bool {
	switch s {
	case ServiceS3, ServiceSpaces, ServiceGCS, ServiceAzure, ServicePublic:
		return true
	default:
		return false
	}
}

func ParseCloudService(s string) (CloudService, error) {
	service := CloudService(s)
	if !service.IsValid() {
		return "", fmt.Errorf("invalid cloud service: %s (valid services: s3, spaces, gcs, azure, public): %w", s, ErrInvalidInput)
	}
	return service, nil
}

// PaymentSolution selects who pays for transfer out of the bucket.
type PaymentSolution string

const (
	PaymentOwner     PaymentSolution = ""
	PaymentRequester PaymentSolution = "aws-request-payer"
)

func ParsePaymentSolution(s string) (PaymentSolution, error) {
	switch PaymentSolution(s) {
	case PaymentOwner, PaymentRequester:
		return PaymentSolution(s), nil
	default:
		return "", fmt.Errorf("unsupported payment solution[%s]: %w", s, ErrNotImplemented)
	}
}

// IndexRepo persists complete indexes keyed by URL.
// Implementations must be safe for concurrent use.
type IndexRepo interface {
	// Get returns the records stored for url, or ErrNotFound.
	Get(ctx context.Context, url string) ([]HeaderRecord, error)

	// Save replaces whatever is stored for url.
	Save(ctx context.Context, url string, records []HeaderRecord) error

	// Delete removes the records for url, or returns ErrNotFound.
	Delete(ctx context.Context, url string) error

	// List summarises every stored index ordered by URL.
	List(ctx context.Context) ([]IndexSummary, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"modified_at"`
}

// ObjectStorage is read-only access to objects served over range requests.
type ObjectStorage interface {
	// Open returns the object's content. The caller closes it.
	// Returns ErrNotFound if the object does not exist.
	Open(ctx context.Context, path string) (ObjectInfo, io.ReadSeekCloser, error)

	// List returns every object ordered by path.
	List(ctx context.Context) ([]ObjectInfo, error)
}

// Tables holds configurable table names for the index cache.
type Tables struct {
	Headers string `mapstructure:"headers"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Headers == "" {
		return errors.New("validate tables: headers table name cannot be empty")
	}

	if !IsValidTableName(t.Headers) {
		return fmt.Errorf("validate tables: invalid headers table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Headers)
	}

	return nil
}
