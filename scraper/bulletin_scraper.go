// scraper/bulletin_scraper.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/gewnthar/gnss-archiver/models"
)

// Dates on the listing pages appear either as ISO dates or as "7 March 2024".
var versionDateRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}\s+[A-Za-z]+\s+\d{4}`)

var versionDateLayouts = []string{"2006-01-02", "2 January 2006", "2 Jan 2006"}

// BulletinSelectors are the two structural lookups applied to a listing page.
type BulletinSelectors struct {
	LatestDate   string
	DownloadLink string
}

// BulletinScraper finds and downloads the newest version of each IERS bulletin series.
type BulletinScraper struct {
	client    *http.Client
	pages     map[models.BulletinClass]string
	selectors BulletinSelectors
	logger    *log.Logger
}

// NewBulletinScraper builds a scraper; pages maps class letters to listing URLs.
func NewBulletinScraper(client *http.Client, pages map[string]string, selectors BulletinSelectors, logger *log.Logger) *BulletinScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	byClass := make(map[models.BulletinClass]string, len(pages))
	for k, v := range pages {
		class, err := models.ParseBulletinClass(k)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring bulletin page with unknown class", "class", k)
			}
			continue
		}
		byClass[class] = v
	}
	return &BulletinScraper{client: client, pages: byClass, selectors: selectors, logger: logger}
}

// Latest scrapes the listing page for class. Either lookup coming back empty is a hard
// failure wrapping models.ErrBulletinLookup.
func (s *BulletinScraper) Latest(ctx context.Context, class models.BulletinClass) (*models.Bulletin, error) {
	pageURL, ok := s.pages[class]
	if !ok || pageURL == "" {
		return nil, fmt.Errorf("no listing page configured for bulletin %s", class)
	}

	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	dateText := strings.TrimSpace(doc.Find(s.selectors.LatestDate).First().Text())
	if dateText == "" {
		return nil, fmt.Errorf("%w: bulletin %s: no version date at %q on %s",
			models.ErrBulletinLookup, class, s.selectors.LatestDate, pageURL)
	}

	href, exists := doc.Find(s.selectors.DownloadLink).First().Attr("href")
	href = strings.TrimSpace(href)
	if !exists || href == "" {
		return nil, fmt.Errorf("%w: bulletin %s: no download link at %q on %s",
			models.ErrBulletinLookup, class, s.selectors.DownloadLink, pageURL)
	}

	link, err := resolveLink(pageURL, href)
	if err != nil {
		return nil, fmt.Errorf("bulletin %s: %w", class, err)
	}

	b := &models.Bulletin{
		Class:       class,
		VersionText: dateText,
		URL:         link,
		FileName:    path.Base(strings.SplitN(strings.SplitN(href, "?", 2)[0], "#", 2)[0]),
	}
	if d, ok := parseVersionDate(dateText); ok {
		b.VersionDate = d
	}
	if b.FileName == "" || b.FileName == "." || b.FileName == "/" {
		b.FileName = fmt.Sprintf("bulletin%s.txt", strings.ToLower(string(class)))
	}

	if s.logger != nil {
		s.logger.Info("found latest bulletin", "class", class, "version", dateText, "url", link)
	}
	return b, nil
}

// Download saves the bulletin into destDir and returns the written path.
func (s *BulletinScraper) Download(ctx context.Context, b *models.Bulletin, destDir string) (string, error) {
	name := b.FileName
	if !b.VersionDate.IsZero() {
		name = b.VersionDate.Format("20060102") + "_" + name
	}
	dest := filepath.Join(destDir, name)
	if err := DownloadFile(ctx, s.client, b.URL, dest); err != nil {
		return "", fmt.Errorf("failed to download bulletin %s: %w", b.Class, err)
	}
	return dest, nil
}

func (s *BulletinScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}
	return doc, nil
}

func resolveLink(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid download link %s: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func parseVersionDate(text string) (time.Time, bool) {
	match := versionDateRegex.FindString(text)
	if match == "" {
		return time.Time{}, false
	}
	match = strings.Join(strings.Fields(match), " ")
	for _, layout := range versionDateLayouts {
		if d, err := time.Parse(layout, match); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
