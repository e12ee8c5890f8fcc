package soundscape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Importer scrapes an HTTP directory index of the external audio storage and
// turns audio files into catalog entries. The first path segment under the
// index root is the category folder; tags beyond the category are left empty
// for later curation.
type Importer struct {
	client *http.Client
}

// NewImporter wires an HTTP client; a nil client gets a 20s timeout default.
func NewImporter(client *http.Client) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Importer{client: client}
}

var audioExtensions = map[string]struct{}{
	".ogg":  {},
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".opus": {},
	".m4a":  {},
}

// Import fetches the index page and extracts one entry per linked audio file.
func (i *Importer) Import(ctx context.Context, indexURL string) ([]Entry, error) {
	base, err := url.Parse(strings.TrimSpace(indexURL))
	if err != nil {
		return nil, fmt.Errorf("invalid index url %s: %w", indexURL, err)
	}

	doc, err := i.fetchDocument(ctx, base.String())
	if err != nil {
		return nil, err
	}

	var entries []Entry
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		entry, ok := entryFromLink(base, href)
		if !ok {
			return
		}
		if _, dup := seen[entry.URL]; dup {
			return
		}
		seen[entry.URL] = struct{}{}
		entries = append(entries, entry)
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("no audio assets found at %s", indexURL)
	}
	return entries, nil
}

func (i *Importer) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "readscape/1.0")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return doc, nil
}

func entryFromLink(base *url.URL, href string) (Entry, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return Entry{}, false
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return Entry{}, false
	}

	ext := strings.ToLower(path.Ext(resolved.Path))
	if _, ok := audioExtensions[ext]; !ok {
		return Entry{}, false
	}

	relative := strings.TrimPrefix(resolved.Path, base.Path)
	relative = strings.Trim(relative, "/")
	segments := strings.Split(relative, "/")

	category := "uncategorized"
	if len(segments) > 1 {
		category = normalizeTag(segments[0])
	}
	fileName := segments[len(segments)-1]
	name := FriendlyName(fileName)
	if name == "" {
		return Entry{}, false
	}

	return Entry{
		Category: category,
		Name:     name,
		URL:      resolved.String(),
	}, true
}
