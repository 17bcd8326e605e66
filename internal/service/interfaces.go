package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"flat_watcher/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	FetchListings(ctx context.Context, maxPages int) ([]domain.Listing, error)
}

type ListingStore interface {
	UpsertBatch(ctx context.Context, listings []domain.Listing) (int, error)
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	All(ctx context.Context) ([]domain.Listing, error)
	SearchByPrice(ctx context.Context, minPrice, maxPrice int) ([]domain.Listing, error)
	SearchByDistrict(ctx context.Context, district string) ([]domain.Listing, error)
	SearchByKeyword(ctx context.Context, keyword string) ([]domain.Listing, error)
	SearchCombined(ctx context.Context, f domain.Filter) ([]domain.Listing, error)
	DistinctDistricts(ctx context.Context) ([]string, error)
	PriceBounds(ctx context.Context) (int, int, error)
	Count(ctx context.Context) (int, error)
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type ParseRunStore interface {
	Append(ctx context.Context, listingsFound int, status domain.ParseRunStatus) error
	Last(ctx context.Context) (*domain.ParseRun, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishNew(ctx context.Context, listing *domain.Listing) error
	Close() error
}
