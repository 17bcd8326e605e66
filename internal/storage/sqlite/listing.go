package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"flat_watcher/internal/domain"
)

const listingColumns = `id, title, price, district, address, rooms, size,
	description, url, source, available_from, image_url, scraped_at`

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

// UpsertBatch inserts each listing or, when the URL already exists,
// overwrites the stored row's fields in place. scraped_at is set here on
// every insert and update; an existing key is the common case, not an
// error. Returns the number of rows written.
func (s *ListingStore) UpsertBatch(ctx context.Context, listings []domain.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO listings (
			title, price, district, address, rooms, size, description,
			url, source, available_from, image_url, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			district = excluded.district,
			address = excluded.address,
			rooms = excluded.rooms,
			size = excluded.size,
			description = excluded.description,
			source = excluded.source,
			available_from = excluded.available_from,
			image_url = excluded.image_url,
			scraped_at = excluded.scraped_at`

	exec := GetExecutor(ctx, s.db)
	now := time.Now().UTC()
	written := 0

	for i := range listings {
		l := &listings[i]
		if _, err := exec.ExecContext(ctx, query,
			l.Title,
			l.Price,
			l.District,
			l.Address,
			l.Rooms,
			l.Size,
			l.Description,
			l.URL,
			l.Source,
			l.AvailableFrom,
			l.ImageURL,
			now,
		); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

// ExistingURLs returns which of the given URLs are already stored.
func (s *ListingStore) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	if len(urls) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT url FROM listings WHERE url IN (?)", urls)
	if err != nil {
		return nil, err
	}

	exec := GetExecutor(ctx, s.db)
	rows, err := exec.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		result[u] = struct{}{}
	}

	return result, rows.Err()
}

// All returns every stored listing, most recently scraped first.
func (s *ListingStore) All(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY scraped_at DESC, id DESC`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &listings, query)
	return listings, err
}

// SearchByPrice returns listings within the inclusive price range,
// cheapest first. Rows with an unparsed price are excluded: 0 means "not
// stated", which cannot satisfy a numeric range.
func (s *ListingStore) SearchByPrice(ctx context.Context, minPrice, maxPrice int) ([]domain.Listing, error) {
	var listings []domain.Listing
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE price > 0 AND price >= ? AND price <= ?
		ORDER BY price ASC, id DESC`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &listings, query, minPrice, maxPrice)
	return listings, err
}

// SearchByDistrict returns listings whose district or address contains
// the given substring, case-insensitively.
func (s *ListingStore) SearchByDistrict(ctx context.Context, district string) ([]domain.Listing, error) {
	var listings []domain.Listing
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE LOWER(district) LIKE ? OR LOWER(address) LIKE ?
		ORDER BY scraped_at DESC, id DESC`
	pattern := likePattern(district)
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &listings, query, pattern, pattern)
	return listings, err
}

// SearchByKeyword returns listings whose title or description contains
// the given substring, case-insensitively.
func (s *ListingStore) SearchByKeyword(ctx context.Context, keyword string) ([]domain.Listing, error) {
	var listings []domain.Listing
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE LOWER(title) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY scraped_at DESC, id DESC`
	pattern := likePattern(keyword)
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &listings, query, pattern, pattern)
	return listings, err
}

// SearchCombined ANDs all constraints set in the filter. The query is
// composed from fixed parameterized clauses, one per constraint; filter
// values only ever travel as bind parameters. With a price bound the
// result is ordered cheapest first and unpriced rows are excluded,
// otherwise most recently scraped first.
func (s *ListingStore) SearchCombined(ctx context.Context, f domain.Filter) ([]domain.Listing, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + listingColumns + ` FROM listings WHERE 1=1`)
	var args []any

	if f.MinPrice > 0 {
		sb.WriteString(" AND price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		sb.WriteString(" AND price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.HasPriceBound() {
		sb.WriteString(" AND price > 0")
	}
	if f.District != "" {
		sb.WriteString(" AND (LOWER(district) LIKE ? OR LOWER(address) LIKE ?)")
		pattern := likePattern(f.District)
		args = append(args, pattern, pattern)
	}
	if f.Keyword != "" {
		sb.WriteString(" AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := likePattern(f.Keyword)
		args = append(args, pattern, pattern)
	}

	if f.HasPriceBound() {
		sb.WriteString(" ORDER BY price ASC, id DESC")
	} else {
		sb.WriteString(" ORDER BY scraped_at DESC, id DESC")
	}

	var listings []domain.Listing
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &listings, sb.String(), args...)
	return listings, err
}

// DistinctDistricts returns all distinct district values except the
// unknown-region sentinel, alphabetically.
func (s *ListingStore) DistinctDistricts(ctx context.Context) ([]string, error) {
	var districts []string
	query := `SELECT DISTINCT district FROM listings
		WHERE district != '' AND district != ?
		ORDER BY district`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &districts, query, domain.DefaultRegion)
	return districts, err
}

// PriceBounds returns the minimum and maximum stored price over rows
// with a parsed price, or (0, 0) when there are none.
func (s *ListingStore) PriceBounds(ctx context.Context) (int, int, error) {
	var bounds struct {
		Min int `db:"min_price"`
		Max int `db:"max_price"`
	}
	query := `SELECT COALESCE(MIN(price), 0) AS min_price, COALESCE(MAX(price), 0) AS max_price
		FROM listings WHERE price > 0`
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &bounds, query); err != nil {
		return 0, 0, err
	}
	return bounds.Min, bounds.Max, nil
}

// Count returns the number of stored listings.
func (s *ListingStore) Count(ctx context.Context) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, "SELECT COUNT(*) FROM listings")
	return count, err
}

// PruneOlderThan deletes listings not seen for longer than the retention
// window. Parse-run history is never touched.
func (s *ListingStore) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM listings WHERE scraped_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
