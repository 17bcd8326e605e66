// Package bazos scrapes apartment rental listings from the bazos.sk
// classifieds site, walking paginated HTML listing pages and turning
// listing fragments into normalized domain listings.
package bazos

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"flat_watcher/internal/domain"
	"flat_watcher/internal/extract"
)

const (
	SourceID   = "bazos.sk"
	SourceName = "Bazoš Reality"

	// Listing descriptions are bounded for storage and display.
	maxDescriptionLen = 800
)

// Config holds bazos source configuration.
type Config struct {
	BaseURL   string
	PageSize  int
	Timeout   time.Duration
	PageDelay time.Duration
	UserAgent string
}

// Source implements service.Source for the bazos.sk listing pages.
type Source struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	pageDelay  time.Duration
	userAgent  string
	logger     *slog.Logger
}

// New creates a new bazos source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		userAgent: cfg.UserAgent,
		logger:    logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns the human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchListings walks up to maxPages listing pages and returns private
// (non-agency) listings in discovery order. Pagination halts on the
// first page with no listing containers and on the first page that
// contributes no new listings. A transport failure or non-200 response
// aborts the whole fetch; whatever was accumulated so far is returned
// alongside the error.
func (s *Source) FetchListings(ctx context.Context, maxPages int) ([]domain.Listing, error) {
	seen := make(map[string]struct{})
	var all []domain.Listing

	for page := 0; page < maxPages; page++ {
		pageURL := s.pageURL(page)

		doc, base, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			return all, fmt.Errorf("fetch page %d: %w", page, err)
		}

		fragments := doc.Find("div.inzeraty")
		if fragments.Length() == 0 {
			s.logger.Debug("no listing containers, stopping", "page", page)
			break
		}

		added := s.collectPage(fragments, base, seen, &all)

		s.logger.Debug("scraped page",
			"page", page,
			"fragments", fragments.Length(),
			"added", added,
			"total", len(all),
		)

		// A page full of duplicates or agency postings means the rest
		// of the pagination is stale; stop here.
		if added == 0 {
			break
		}

		if page < maxPages-1 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
	}

	return all, nil
}

// pageURL builds the URL for a page index: the base listing URL for
// page 0, the base plus a numeric offset path segment afterwards.
func (s *Source) pageURL(page int) string {
	if page == 0 {
		return s.baseURL
	}
	return fmt.Sprintf("%s%d/", s.baseURL, page*s.pageSize)
}

func (s *Source) fetchPage(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	return doc, resp.Request.URL, nil
}

// collectPage parses the listing fragments of one page, appending new
// private listings to out. Agency fragments and duplicates still enter
// the seen set so later pages do not reprocess them. Returns the number
// of listings appended.
func (s *Source) collectPage(fragments *goquery.Selection, base *url.URL, seen map[string]struct{}, out *[]domain.Listing) int {
	added := 0

	fragments.Each(func(_ int, frag *goquery.Selection) {
		link := frag.Find("h2.nadpis a").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || href == "" || title == "" {
			return
		}

		absURL := resolveURL(base, href)
		if _, dup := seen[absURL]; dup {
			return
		}

		desc := collapseSpace(frag.Find("div.popis").Text())
		locality := joinLines(frag.Find("div.inzeratylok").Text())
		fullText := title + " " + desc + " " + locality

		seen[absURL] = struct{}{}

		if extract.IsAgency(fullText) {
			return
		}

		listing := domain.Listing{
			Title:         title,
			Price:         extract.Price(frag.Find("div.inzeratycena").Text()),
			District:      extract.District(fullText),
			Address:       locality,
			Rooms:         extract.Rooms(fullText),
			Size:          extract.Size(fullText),
			Description:   truncate(desc, maxDescriptionLen),
			URL:           absURL,
			Source:        SourceID,
			AvailableFrom: "Ihneď",
		}
		if listing.Address == "" {
			listing.Address = extract.DefaultRegion
		}
		if listing.Description == "" {
			listing.Description = title
		}
		if src, ok := frag.Find("img.obrazek").First().Attr("src"); ok && src != "" {
			listing.ImageURL = &src
		}

		*out = append(*out, listing)
		added++
	})

	return added
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// collapseSpace trims the text and collapses internal whitespace runs
// to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// joinLines turns the multi-line locality block into "City, ZIP" form.
func joinLines(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
