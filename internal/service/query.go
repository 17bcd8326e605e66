package service

import (
	"context"
	"log/slog"
	"strings"

	"flat_watcher/internal/domain"
)

// QueryService is the read surface over the listing store. It only
// normalizes user-facing filter input; every real predicate lives in
// the store.
type QueryService struct {
	listings  ListingStore
	parseRuns ParseRunStore
	logger    *slog.Logger
}

func NewQueryService(listings ListingStore, parseRuns ParseRunStore, logger *slog.Logger) *QueryService {
	return &QueryService{
		listings:  listings,
		parseRuns: parseRuns,
		logger:    logger,
	}
}

// All returns every stored listing, most recently scraped first.
func (s *QueryService) All(ctx context.Context) ([]domain.Listing, error) {
	return s.listings.All(ctx)
}

// ByPrice returns listings in the inclusive price range, cheapest first.
func (s *QueryService) ByPrice(ctx context.Context, minPrice, maxPrice int) ([]domain.Listing, error) {
	if minPrice < 0 {
		minPrice = 0
	}
	if maxPrice < 0 {
		maxPrice = 0
	}
	return s.listings.SearchByPrice(ctx, minPrice, maxPrice)
}

// ByDistrict returns listings matching the district substring. An empty
// string is no constraint at all.
func (s *QueryService) ByDistrict(ctx context.Context, district string) ([]domain.Listing, error) {
	district = normalizeText(district)
	if district == "" {
		return s.listings.All(ctx)
	}
	return s.listings.SearchByDistrict(ctx, district)
}

// ByKeyword returns listings whose title or description matches the
// keyword substring. An empty string is no constraint at all.
func (s *QueryService) ByKeyword(ctx context.Context, keyword string) ([]domain.Listing, error) {
	keyword = normalizeText(keyword)
	if keyword == "" {
		return s.listings.All(ctx)
	}
	return s.listings.SearchByKeyword(ctx, keyword)
}

// Search normalizes the sparse filter and delegates to the store.
// Non-positive price bounds and blank text filters count as unset.
func (s *QueryService) Search(ctx context.Context, f domain.Filter) ([]domain.Listing, error) {
	normalized := domain.Filter{
		District: normalizeText(f.District),
		Keyword:  normalizeText(f.Keyword),
	}
	if f.MinPrice > 0 {
		normalized.MinPrice = f.MinPrice
	}
	if f.MaxPrice > 0 {
		normalized.MaxPrice = f.MaxPrice
	}
	return s.listings.SearchCombined(ctx, normalized)
}

// Districts returns all known district names, alphabetically.
func (s *QueryService) Districts(ctx context.Context) ([]string, error) {
	return s.listings.DistinctDistricts(ctx)
}

// PriceBounds returns the stored price range, or (0, 0) when no listing
// has a parsed price.
func (s *QueryService) PriceBounds(ctx context.Context) (int, int, error) {
	return s.listings.PriceBounds(ctx)
}

// Count returns the number of stored listings.
func (s *QueryService) Count(ctx context.Context) (int, error) {
	return s.listings.Count(ctx)
}

// LastRun returns the most recent parse run, or nil before the first
// refresh.
func (s *QueryService) LastRun(ctx context.Context) (*domain.ParseRun, error) {
	return s.parseRuns.Last(ctx)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
