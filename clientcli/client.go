package clientcli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/credentials"
)

// DefaultTimeout bounds one range request.
const DefaultTimeout = 30 * time.Second

// Client indexes remote FITS files.
type Client struct {
	service *astrocloud.IndexService
}

type clientOptions struct {
	httpClient *http.Client
	repo       astrocloud.IndexRepo
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.httpClient.Timeout = timeout
	}
}

// WithRepo caches complete indexes in repo.
func WithRepo(repo astrocloud.IndexRepo) Option {
	return func(o *clientOptions) {
		o.repo = repo
	}
}

// WithLogger sets the logger handed to the walker.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New creates a Client. Missing credentials for a signed service surface
// from Index as astrocloud.ErrUnauthenticated, before any request is sent.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &clientOptions{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	creds := cfg.Credentials
	if creds.Service == "" {
		creds.Service = credentials.DefaultService
	}

	auth, err := astrocloud.NewAuthenticator(cfg.Service, cfg.Payment, creds)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	walker := astrocloud.NewWalker(auth,
		astrocloud.WithHTTPClient(o.httpClient),
		astrocloud.WithExtentMode(cfg.ExtentMode),
		astrocloud.WithLogger(o.logger),
	)

	service, err := astrocloud.NewIndexService(walker, o.repo)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	return &Client{service: service}, nil
}

// Index returns the header index of url. With refresh the cache is bypassed
// and overwritten.
func (c *Client) Index(ctx context.Context, url string, refresh bool) (*astrocloud.Index, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	if refresh {
		return c.service.Refresh(ctx, url)
	}
	return c.service.Load(ctx, url)
}

// Forget removes url from the cache.
func (c *Client) Forget(ctx context.Context, url string) error {
	if url == "" {
		return ErrEmptyURL
	}
	return c.service.Forget(ctx, url)
}

// Cached lists the cached indexes.
func (c *Client) Cached(ctx context.Context) ([]astrocloud.IndexSummary, error) {
	return c.service.List(ctx)
}
