package domain

import "time"

// Sentinel values standing in for "could not extract".
const (
	// DefaultRegion is stored when no known locality token matched.
	DefaultRegion = "Slovensko"
	// Unspecified is stored for rooms and size that could not be parsed.
	Unspecified = "neuvedené"
)

// Listing is one normalized rental posting. The canonical URL is the
// identity key: a second observation of the same URL replaces the stored
// row instead of creating a new one.
type Listing struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Price         int       `db:"price" json:"price"` // 0 = not stated / unparsed, not free
	District      string    `db:"district" json:"district"`
	Address       string    `db:"address" json:"address"`
	Rooms         string    `db:"rooms" json:"rooms"`
	Size          string    `db:"size" json:"size"`
	Description   string    `db:"description" json:"description"`
	URL           string    `db:"url" json:"url"`
	Source        string    `db:"source" json:"source"`
	AvailableFrom string    `db:"available_from" json:"available_from"`
	ImageURL      *string   `db:"image_url" json:"image_url,omitempty"`
	ScrapedAt     time.Time `db:"scraped_at" json:"scraped_at"`
}

// Filter is a sparse set of search constraints. Zero values mean the
// constraint is unset; all supplied constraints are ANDed together.
type Filter struct {
	MinPrice int
	MaxPrice int
	District string
	Keyword  string
}

// HasPriceBound reports whether either price constraint is set. When a
// price bound is present, results are ordered by price ascending and
// rows with an unparsed price are excluded.
func (f Filter) HasPriceBound() bool {
	return f.MinPrice > 0 || f.MaxPrice > 0
}

// IsEmpty reports whether no constraint is set at all.
func (f Filter) IsEmpty() bool {
	return !f.HasPriceBound() && f.District == "" && f.Keyword == ""
}
