package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"flat_watcher/internal/domain"
)

type SQLiteStoreSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB
}

func (s *SQLiteStoreSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := Open(filepath.Join(s.T().TempDir(), "test.db"))
	s.Require().NoError(err)
	s.db = db
}

func (s *SQLiteStoreSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func makeListing(url, title string, price int, district, address, description string) domain.Listing {
	return domain.Listing{
		Title:         title,
		Price:         price,
		District:      district,
		Address:       address,
		Rooms:         "2-izbový",
		Size:          "60",
		Description:   description,
		URL:           url,
		Source:        "bazos.sk",
		AvailableFrom: "Ihneď",
	}
}

// backdate rewrites a listing's scraped_at directly; only tests need to
// move a row into the past.
func (s *SQLiteStoreSuite) backdate(url string, t time.Time) {
	_, err := s.db.ExecContext(s.ctx, "UPDATE listings SET scraped_at = ? WHERE url = ?", t, url)
	s.Require().NoError(err)
}

func (s *SQLiteStoreSuite) TestUpsertBatch_InsertAndReplace() {
	store := NewListingStore(s.db)

	l := makeListing("https://reality.bazos.sk/inzerat/1/", "Byt A", 450, "Ružinov", "Ružinov, 821 01", "pekný byt")
	written, err := store.UpsertBatch(s.ctx, []domain.Listing{l})
	s.NoError(err)
	s.Equal(1, written)

	count, err := store.Count(s.ctx)
	s.NoError(err)
	s.Equal(1, count)

	// Second observation of the same URL replaces the row in place.
	l.Title = "Byt A znížená cena"
	l.Price = 420
	written, err = store.UpsertBatch(s.ctx, []domain.Listing{l})
	s.NoError(err)
	s.Equal(1, written)

	count, err = store.Count(s.ctx)
	s.NoError(err)
	s.Equal(1, count, "re-upsert must not create a duplicate")

	all, err := store.All(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal("Byt A znížená cena", all[0].Title)
	s.Equal(420, all[0].Price)
}

func (s *SQLiteStoreSuite) TestUpsertBatch_Empty() {
	store := NewListingStore(s.db)

	written, err := store.UpsertBatch(s.ctx, nil)
	s.NoError(err)
	s.Equal(0, written)
}

func (s *SQLiteStoreSuite) TestExistingURLs() {
	store := NewListingStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/1", "A", 400, "Nitra", "Nitra", "a"),
		makeListing("https://example.sk/2", "B", 500, "Trnava", "Trnava", "b"),
	})
	s.Require().NoError(err)

	existing, err := store.ExistingURLs(s.ctx, []string{
		"https://example.sk/1",
		"https://example.sk/3",
	})
	s.NoError(err)
	s.Contains(existing, "https://example.sk/1")
	s.NotContains(existing, "https://example.sk/3")

	existing, err = store.ExistingURLs(s.ctx, nil)
	s.NoError(err)
	s.Empty(existing)
}

func (s *SQLiteStoreSuite) TestAll_MostRecentFirst() {
	store := NewListingStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/old", "Old", 400, "Nitra", "Nitra", "old"),
	})
	s.Require().NoError(err)
	s.backdate("https://example.sk/old", time.Now().UTC().Add(-time.Hour))

	_, err = store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/new", "New", 500, "Trnava", "Trnava", "new"),
	})
	s.Require().NoError(err)

	all, err := store.All(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 2)
	s.Equal("New", all[0].Title)
	s.Equal("Old", all[1].Title)
}

func (s *SQLiteStoreSuite) seedSearchFixture() {
	store := NewListingStore(s.db)
	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/a", "Lacný byt s balkónom", 300, "Ružinov", "Ružinov, Bratislava", "byt s balkónom"),
		makeListing("https://example.sk/b", "Stredný byt", 550, "Petržalka", "Petržalka, Bratislava", "zariadený byt"),
		makeListing("https://example.sk/c", "Drahý byt", 1200, "Košice", "Košice", "novostavba"),
		makeListing("https://example.sk/d", "Byt bez ceny", 0, "Nitra", "Nitra", "cena dohodou"),
	})
	s.Require().NoError(err)
}

func (s *SQLiteStoreSuite) TestSearchByPrice() {
	s.seedSearchFixture()
	store := NewListingStore(s.db)

	results, err := store.SearchByPrice(s.ctx, 300, 800)
	s.NoError(err)
	s.Require().Len(results, 2)
	s.Equal(300, results[0].Price, "ascending by price")
	s.Equal(550, results[1].Price)

	for _, r := range results {
		s.Positive(r.Price, "unparsed prices cannot satisfy a range")
	}
}

func (s *SQLiteStoreSuite) TestSearchByDistrict() {
	s.seedSearchFixture()
	store := NewListingStore(s.db)

	// Matches against the address column too, case-insensitively.
	results, err := store.SearchByDistrict(s.ctx, "BRATISLAVA")
	s.NoError(err)
	s.Len(results, 2)
}

func (s *SQLiteStoreSuite) TestSearchByKeyword() {
	s.seedSearchFixture()
	store := NewListingStore(s.db)

	results, err := store.SearchByKeyword(s.ctx, "balkón")
	s.NoError(err)
	s.Require().Len(results, 1)
	s.Equal("Lacný byt s balkónom", results[0].Title)
}

func (s *SQLiteStoreSuite) TestSearchCombined_AllFiltersAnded() {
	s.seedSearchFixture()
	store := NewListingStore(s.db)

	results, err := store.SearchCombined(s.ctx, domain.Filter{
		MinPrice: 300,
		MaxPrice: 800,
		District: "bratislava",
	})
	s.NoError(err)
	s.Require().Len(results, 2)
	s.Equal(300, results[0].Price, "price bound orders ascending by price")
	s.Equal(550, results[1].Price)
}

func (s *SQLiteStoreSuite) TestSearchCombined_PriceBoundExcludesUnparsed() {
	s.seedSearchFixture()
	store := NewListingStore(s.db)

	results, err := store.SearchCombined(s.ctx, domain.Filter{MaxPrice: 5000})
	s.NoError(err)
	s.Require().Len(results, 3)
	for _, r := range results {
		s.Positive(r.Price)
	}
}

func (s *SQLiteStoreSuite) TestSearchCombined_NoFiltersOrdersByRecency() {
	store := NewListingStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/old", "Old", 400, "Nitra", "Nitra", "old"),
	})
	s.Require().NoError(err)
	s.backdate("https://example.sk/old", time.Now().UTC().Add(-time.Hour))

	_, err = store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/new", "New", 0, "Trnava", "Trnava", "new"),
	})
	s.Require().NoError(err)

	results, err := store.SearchCombined(s.ctx, domain.Filter{})
	s.NoError(err)
	s.Require().Len(results, 2)
	s.Equal("New", results[0].Title)
	s.Equal("Old", results[1].Title, "no price bound keeps unparsed rows and recency order")
}

func (s *SQLiteStoreSuite) TestDistinctDistricts() {
	store := NewListingStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/1", "A", 400, "Nitra", "Nitra", "a"),
		makeListing("https://example.sk/2", "B", 500, "Košice", "Košice", "b"),
		makeListing("https://example.sk/3", "C", 600, "Košice", "Košice", "c"),
		makeListing("https://example.sk/4", "D", 700, domain.DefaultRegion, "niekde", "d"),
	})
	s.Require().NoError(err)

	districts, err := store.DistinctDistricts(s.ctx)
	s.NoError(err)
	s.Equal([]string{"Košice", "Nitra"}, districts, "alphabetical, sentinel excluded")
}

func (s *SQLiteStoreSuite) TestPriceBounds() {
	store := NewListingStore(s.db)

	minP, maxP, err := store.PriceBounds(s.ctx)
	s.NoError(err)
	s.Equal(0, minP)
	s.Equal(0, maxP)

	_, err = store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/1", "A", 350, "Nitra", "Nitra", "a"),
		makeListing("https://example.sk/2", "B", 900, "Košice", "Košice", "b"),
		makeListing("https://example.sk/3", "C", 0, "Trnava", "Trnava", "c"),
	})
	s.Require().NoError(err)

	minP, maxP, err = store.PriceBounds(s.ctx)
	s.NoError(err)
	s.Equal(350, minP)
	s.Equal(900, maxP)
}

func (s *SQLiteStoreSuite) TestPruneOlderThan() {
	store := NewListingStore(s.db)
	runs := NewParseRunStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []domain.Listing{
		makeListing("https://example.sk/stale", "Stale", 400, "Nitra", "Nitra", "stale"),
		makeListing("https://example.sk/fresh", "Fresh", 500, "Trnava", "Trnava", "fresh"),
	})
	s.Require().NoError(err)
	s.backdate("https://example.sk/stale", time.Now().UTC().Add(-8*24*time.Hour))

	s.Require().NoError(runs.Append(s.ctx, 2, domain.RunSuccess))

	deleted, err := store.PruneOlderThan(s.ctx, 7*24*time.Hour)
	s.NoError(err)
	s.Equal(int64(1), deleted)

	all, err := store.All(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal("Fresh", all[0].Title)

	// Parse-run history is never pruned.
	last, err := runs.Last(s.ctx)
	s.NoError(err)
	s.Require().NotNil(last)
	s.Equal(2, last.ListingsFound)
}

func (s *SQLiteStoreSuite) TestParseRuns_AppendAndLast() {
	runs := NewParseRunStore(s.db)

	last, err := runs.Last(s.ctx)
	s.NoError(err)
	s.Nil(last)

	s.Require().NoError(runs.Append(s.ctx, 12, domain.RunSuccess))
	s.Require().NoError(runs.Append(s.ctx, 0, domain.RunError))

	last, err = runs.Last(s.ctx)
	s.NoError(err)
	s.Require().NotNil(last)
	s.Equal(domain.RunError, last.Status)
	s.Equal(0, last.ListingsFound)
	s.False(last.RanAt.IsZero())
}

func (s *SQLiteStoreSuite) TestUpsertBatch_InTransaction() {
	store := NewListingStore(s.db)
	tm := NewTransactionManager(s.db)

	err := tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		_, err := store.UpsertBatch(txCtx, []domain.Listing{
			makeListing("https://example.sk/tx", "Tx", 400, "Nitra", "Nitra", "tx"),
		})
		return err
	})
	s.NoError(err)

	count, err := store.Count(s.ctx)
	s.NoError(err)
	s.Equal(1, count)
}
