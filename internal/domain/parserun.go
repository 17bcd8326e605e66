package domain

import "time"

// ParseRunStatus describes the outcome of one scrape execution.
type ParseRunStatus string

const (
	// RunSuccess means the scrape produced at least one listing.
	RunSuccess ParseRunStatus = "success"
	// RunEmpty means the scrape returned normally but found nothing.
	RunEmpty ParseRunStatus = "empty"
	// RunError means the scrape was aborted by a transport failure.
	RunError ParseRunStatus = "error"
)

// ParseRun is one append-only audit record of a scrape execution.
// Rows are created once per refresh, regardless of outcome, and are
// never mutated or deleted afterwards.
type ParseRun struct {
	ID            int64          `db:"id" json:"id"`
	RanAt         time.Time      `db:"ran_at" json:"ran_at"`
	ListingsFound int            `db:"listings_found" json:"listings_found"`
	Status        ParseRunStatus `db:"status" json:"status"`
}
