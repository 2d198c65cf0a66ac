package astrocloud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jbcurtin/astro-cloud/fits"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Walker locates every header in a remote FITS file using one block-sized
// range request at a time. A Walker may be shared; each Walk owns its own
// cursor and accumulator.
type Walker struct {
	client Doer
	auth   Authenticator
	mode   fits.ExtentMode
	logger *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

func WithHTTPClient(client Doer) WalkerOption {
	return func(w *Walker) {
		w.client = client
	}
}

func WithExtentMode(mode fits.ExtentMode) WalkerOption {
	return func(w *Walker) {
		w.mode = mode
	}
}

func WithLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker that prepares each request with auth.
// A nil auth sends requests unsigned.
func NewWalker(auth Authenticator, opts ...WalkerOption) *Walker {
	if auth == nil {
		auth = AnonymousAuthenticator{}
	}
	w := &Walker{
		client: http.DefaultClient,
		auth:   auth,
		mode:   fits.ModeReference,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk fetches headers from url until the server answers 416.
//
// On failure the returned Index holds the records found so far with State
// StateFailed, alongside the error. A non-nil Index is always returned.
func (w *Walker) Walk(ctx context.Context, url string) (*Index, error) {
	index := &Index{URL: url, State: StateScanning, Records: []HeaderRecord{}}
	logger := w.logger.With("walk_id", uuid.NewString(), "url", url)

	fail := func(err error) (*Index, error) {
		index.State = StateFailed
		logger.Debug("walk failed", "headers", len(index.Records), "error", err)
		return index, err
	}

	var (
		offset      int64
		headerStart int64
		accumulated []byte
	)

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		block, status, err := w.fetchBlock(ctx, url, offset)
		if err != nil {
			return fail(err)
		}
		logger.Debug("range request", "offset", offset, "status", status)

		switch status {
		case http.StatusPartialContent:
		case http.StatusRequestedRangeNotSatisfiable:
			if len(accumulated) > 0 {
				return fail(fmt.Errorf("header at offset %d has no END card before end of file: %w", headerStart, ErrCorruptData))
			}
			index.State = StateDone
			logger.Debug("walk done", "headers", len(index.Records))
			return index, nil
		default:
			return fail(&StatusError{StatusCode: status, URL: url})
		}

		if !utf8.Valid(block) {
			return fail(fmt.Errorf("block at offset %d is not header text: %w", offset, ErrCorruptData))
		}
		accumulated = append(accumulated, block...)

		if !fits.HasEndCard(block) {
			offset += fits.BlockSize
			continue
		}

		header, err := fits.ParseHeader(string(accumulated))
		if err != nil {
			return fail(fmt.Errorf("header at offset %d: %w", headerStart, err))
		}
		record := HeaderRecord{
			Offset: offset,
			Length: offset + fits.BlockSize,
			Header: header,
		}
		index.Records = append(index.Records, record)
		index.State = StateParsed
		logger.Info("found header",
			"start", headerStart,
			"offset", record.Offset,
			"length", record.Length,
			"kind", fits.Kind(header),
		)

		next, err := fits.NextHeaderOffset(record.Offset, record.Length, header, w.mode)
		if err != nil {
			return fail(fmt.Errorf("header at offset %d: %w", headerStart, err))
		}
		if next < record.End() {
			return fail(fmt.Errorf("next header offset %d precedes end of header at %d: %w", next, record.End(), ErrCorruptData))
		}

		offset = next
		headerStart = next
		accumulated = accumulated[:0]
		index.State = StateScanning
	}
}

// fetchBlock requests [offset, offset+BlockSize-1]. The body is only read for 206.
func (w *Walker) fetchBlock(ctx context.Context, url string, offset int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create range request: %w", ErrInvalidInput)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+fits.BlockSize-1))

	if err := w.auth.Authenticate(req); err != nil {
		return nil, 0, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("range request at offset %d: %w", offset, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusPartialContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	block, err := io.ReadAll(io.LimitReader(resp.Body, fits.BlockSize))
	if err != nil {
		return nil, 0, fmt.Errorf("read range at offset %d: %w", offset, err)
	}
	return block, resp.StatusCode, nil
}
