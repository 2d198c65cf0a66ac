package astrocloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// HeaderWalker walks one remote file. *Walker satisfies it.
type HeaderWalker interface {
	Walk(ctx context.Context, url string) (*Index, error)
}

// IndexService loads header indexes, consulting a cache before walking.
// Only complete indexes are cached.
type IndexService struct {
	walker HeaderWalker
	repo   IndexRepo
}

// NewIndexService creates an IndexService. A nil repo disables caching.
func NewIndexService(walker HeaderWalker, repo IndexRepo) (*IndexService, error) {
	if walker == nil {
		return nil, fmt.Errorf("new index service: walker cannot be nil")
	}

	return &IndexService{
		walker: walker,
		repo:   repo,
	}, nil
}

// Load returns the cached index for url, or walks the file and caches the result.
//
// A failed walk is returned with its error and the partial index; nothing is stored.
func (s *IndexService) Load(ctx context.Context, url string) (*Index, error) {
	if url == "" {
		return nil, fmt.Errorf("load index: empty url: %w", ErrInvalidInput)
	}

	if s.repo != nil {
		records, err := s.repo.Get(ctx, url)
		switch {
		case err == nil:
			slog.Debug("index cache hit", "url", url, "headers", len(records))
			return &Index{URL: url, State: StateDone, Records: records}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("load index: %w", err)
		}
	}

	return s.Refresh(ctx, url)
}

// Refresh walks url regardless of the cache and stores the result if complete.
func (s *IndexService) Refresh(ctx context.Context, url string) (*Index, error) {
	if url == "" {
		return nil, fmt.Errorf("refresh index: empty url: %w", ErrInvalidInput)
	}

	index, err := s.walker.Walk(ctx, url)
	if err != nil {
		return index, fmt.Errorf("walk %s: %w", url, err)
	}

	if !index.Complete() {
		return index, fmt.Errorf("walk %s: ended in state %s: %w", url, index.State, ErrInternal)
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, url, index.Records); err != nil {
			return index, fmt.Errorf("save index: %w", err)
		}
	}

	return index, nil
}

// Forget removes the cached index for url.
func (s *IndexService) Forget(ctx context.Context, url string) error {
	if s.repo == nil {
		return fmt.Errorf("forget index: cache disabled: %w", ErrNotFound)
	}

	if err := s.repo.Delete(ctx, url); err != nil {
		return fmt.Errorf("forget index: %w", err)
	}
	return nil
}

// List summarises every cached index.
func (s *IndexService) List(ctx context.Context) ([]IndexSummary, error) {
	if s.repo == nil {
		return []IndexSummary{}, nil
	}

	summaries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return summaries, nil
}
