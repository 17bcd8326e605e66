// Package extract provides the pure text-to-field heuristics that turn
// raw listing text into typed fields. No state, no I/O.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flat_watcher/internal/domain"
)

// Sentinel values shared with the data model, aliased for local use.
const (
	Unspecified   = domain.Unspecified
	DefaultRegion = domain.DefaultRegion

	// StudioLabel is the room label for studio apartments.
	StudioLabel = "garsónka"
)

// Plausible band for a monthly rent in EUR. Digit runs outside it are
// treated as unparsed, not as real prices.
const (
	priceMin = 100
	priceMax = 50000
)

// agencyKeywords flags postings placed by real-estate agencies: brand
// names, legal-entity suffixes and broker vocabulary. Matching is plain
// case-insensitive substring containment, which keeps the table editable
// without touching code. This is a heuristic, not a classifier; a private
// owner writing "no agencies please" can trip it and an agency that
// avoids the vocabulary can slip through. Both are accepted.
var agencyKeywords = []string{
	"real", "s.r.o", "r.k.", "remax", "century", "broker",
	"sprostredkov", "maklér", "makler", "agency", "agentúr",
	"herrys", "lexxus", "expat", "bonreality", "provízi",
	"v zastúpení", "vo výhradnom", "exkluzívne", "impulz real",
	"adomis", "foryou", "ponúkame vám", "legend.sk", "zara reality",
}

// districtTable maps locality tokens to canonical display names. It is
// scanned in order and the first hit wins, so ties between multiple
// localities in one text resolve by table position.
var districtTable = []struct {
	token string
	name  string
}{
	{"bratislava", "Bratislava"},
	{"košice", "Košice"},
	{"kosice", "Košice"},
	{"žilina", "Žilina"},
	{"prešov", "Prešov"},
	{"nitra", "Nitra"},
	{"trnava", "Trnava"},
	{"trenčín", "Trenčín"},
	{"martin", "Martin"},
	{"poprad", "Poprad"},
	{"zvolen", "Zvolen"},
	{"petržalka", "Petržalka"},
	{"ružinov", "Ružinov"},
	{"michalovce", "Michalovce"},
}

var (
	// digitsRegexp captures the first run of digits in a price block.
	digitsRegexp = regexp.MustCompile(`\d+`)
	// roomsRegexp captures "2-izb", "2 izb", "2,5-izb" and similar forms.
	roomsRegexp = regexp.MustCompile(`(\d)[,.]?5?\s*-?\s*izb`)
	// sizeRegexp captures a digit run immediately before an area unit.
	sizeRegexp = regexp.MustCompile(`(\d+)\s*m[²2]`)
)

// IsAgency reports whether the text contains any agency-indicator
// keyword, case-insensitively. The first match short-circuits.
func IsAgency(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, k := range agencyKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// Price parses the first digit run in the text as a monthly rent in EUR.
// Whitespace is stripped first so "1 200 €" parses as 1200. Values
// outside the plausible band, or text without digits, yield 0.
func Price(text string) int {
	if text == "" {
		return 0
	}
	compact := strings.Join(strings.Fields(text), "")
	m := digitsRegexp.FindString(compact)
	if m == "" {
		return 0
	}
	p, err := strconv.Atoi(m)
	if err != nil || p < priceMin || p > priceMax {
		return 0
	}
	return p
}

// Rooms normalizes the room count to one of the source site's labels:
// "garsónka" for studios, "N-izbový" otherwise, or the unspecified
// sentinel when no pattern matches.
func Rooms(text string) string {
	if text == "" {
		return Unspecified
	}
	t := strings.ToLower(text)
	if strings.Contains(t, "garsón") || strings.Contains(t, "garson") {
		return StudioLabel
	}
	if m := roomsRegexp.FindStringSubmatch(t); m != nil {
		return fmt.Sprintf("%s-izbový", m[1])
	}
	return Unspecified
}

// Size returns the floor area in square meters as text, taken from the
// first digit run preceding an area-unit marker (m² or m2).
func Size(text string) string {
	if m := sizeRegexp.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return Unspecified
}

// District returns the canonical name of the first known locality token
// found in the text, or the default region sentinel. Matching is on the
// lower-cased input with no diacritic folding; the table carries both
// accented and plain variants where the site uses both.
func District(text string) string {
	if text == "" {
		return DefaultRegion
	}
	t := strings.ToLower(text)
	for _, d := range districtTable {
		if strings.Contains(t, d.token) {
			return d.name
		}
	}
	return DefaultRegion
}
