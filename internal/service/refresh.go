package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"flat_watcher/internal/config"
	"flat_watcher/internal/domain"
)

// RefreshService coordinates one scrape run: fetch from the source,
// upsert the batch in a single transaction, record a parse-run audit
// row, and notify the publisher about previously unseen listings.
type RefreshService struct {
	source    Source
	listings  ListingStore
	parseRuns ParseRunStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.RefreshConfig

	// Serializes refreshes: overlapping runs would be idempotent but
	// would double the scraping load on the source site.
	mu sync.Mutex
}

func NewRefreshService(
	source Source,
	listings ListingStore,
	parseRuns ParseRunStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.RefreshConfig,
) *RefreshService {
	return &RefreshService{
		source:    source,
		listings:  listings,
		parseRuns: parseRuns,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("source", source.ID()),
		config:    cfg,
	}
}

// Refresh runs one scrape and reports its outcome as a ParseRun. A
// transport failure upstream is not an error here: the run is recorded
// with the error status and control returns normally. The returned
// error is reserved for storage failures.
func (s *RefreshService) Refresh(ctx context.Context) (*domain.ParseRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.logger.Info("starting refresh",
		"source_name", s.source.Name(),
		"max_pages", s.config.MaxPages,
	)

	listings, fetchErr := s.source.FetchListings(ctx, s.config.MaxPages)
	if fetchErr != nil {
		s.logger.Warn("fetch aborted", "error", fetchErr, "collected", len(listings))
	}

	var status domain.ParseRunStatus
	switch {
	case len(listings) > 0:
		if err := s.saveBatch(ctx, listings); err != nil {
			return nil, fmt.Errorf("save listings: %w", err)
		}
		status = domain.RunSuccess
	case fetchErr != nil:
		status = domain.RunError
	default:
		status = domain.RunEmpty
	}

	if err := s.parseRuns.Append(ctx, len(listings), status); err != nil {
		return nil, fmt.Errorf("append parse run: %w", err)
	}

	run := &domain.ParseRun{
		RanAt:         time.Now().UTC(),
		ListingsFound: len(listings),
		Status:        status,
	}

	s.logger.Info("refresh completed",
		"status", run.Status,
		"listings_found", run.ListingsFound,
		"duration", time.Since(start),
	)

	return run, nil
}

// saveBatch upserts the whole batch in one transaction so readers see
// either the pre- or post-refresh state, then publishes listings whose
// URL was not stored before.
func (s *RefreshService) saveBatch(ctx context.Context, listings []domain.Listing) error {
	urls := make([]string, len(listings))
	for i := range listings {
		urls[i] = listings[i].URL
	}

	existing, err := s.listings.ExistingURLs(ctx, urls)
	if err != nil {
		return fmt.Errorf("check existing urls: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := s.listings.UpsertBatch(txCtx, listings)
		return err
	})
	if err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}

	published := 0
	for i := range listings {
		if _, seen := existing[listings[i].URL]; seen {
			continue
		}
		if err := s.publisher.PublishNew(ctx, &listings[i]); err != nil {
			s.logger.Warn("publish failed", "url", listings[i].URL, "error", err)
			continue
		}
		published++
	}

	s.logger.Debug("saved batch",
		"upserted", len(listings),
		"new", len(listings)-len(existing),
		"published", published,
	)

	return nil
}

// Prune deletes listings older than the configured retention window.
// Parse-run history is kept.
func (s *RefreshService) Prune(ctx context.Context) (int64, error) {
	if s.config.RetentionDays <= 0 {
		return 0, nil
	}

	age := time.Duration(s.config.RetentionDays) * 24 * time.Hour
	deleted, err := s.listings.PruneOlderThan(ctx, age)
	if err != nil {
		return 0, fmt.Errorf("prune listings: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("pruned stale listings", "deleted", deleted, "retention_days", s.config.RetentionDays)
	}

	return deleted, nil
}
