package pagegen

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"github.com/mwbotters/botkit/internal/comms"
	"github.com/mwbotters/botkit/internal/site"
)

// robotsAgent is the token matched against robots.txt rules.
const robotsAgent = "botkit"

// HarvestLinks fetches one rendered HTML page and yields every wiki
// article it links to. Unlike API listings this touches regular page
// HTML, so robots.txt is checked first; a missing or unparsable
// robots.txt allows the fetch.
func HarvestLinks(ctx context.Context, disp *comms.Dispatcher, s *site.Site, pageURL string) (<-chan any, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	if !robotsAllowed(ctx, disp, parsed) {
		return nil, fmt.Errorf("%s disallowed by robots.txt", pageURL)
	}

	outcome := disp.Fetch(ctx, comms.FetchParams{URL: pageURL})
	if outcome.Err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, outcome.Err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outcome.Response.Text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	titles := make([]string, 0, 64)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if title, ok := articleTitle(href); ok {
			titles = append(titles, title)
		}
	})

	return FromTitles(s, titles), nil
}

// articleTitle extracts a wiki title from an internal /wiki/ link.
// Anchors, query links and special pages are not articles.
func articleTitle(href string) (string, bool) {
	if !strings.HasPrefix(href, "/wiki/") {
		return "", false
	}
	title := strings.TrimPrefix(href, "/wiki/")
	if title == "" || strings.ContainsAny(title, "?#") {
		return "", false
	}
	if strings.Contains(title, ":") {
		// Namespaced link (Special:, File:, interwiki prefixes).
		return "", false
	}
	decoded, err := url.PathUnescape(title)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(decoded, "_", " "), true
}

func robotsAllowed(ctx context.Context, disp *comms.Dispatcher, page *url.URL) bool {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", page.Scheme, page.Host)

	outcome := disp.Fetch(ctx, comms.FetchParams{URL: robotsURL, DisableErrorHandling: true})
	if outcome.Err != nil || outcome.Response.Code != 200 {
		return true
	}

	robots, err := robotstxt.FromBytes([]byte(outcome.Response.Text))
	if err != nil {
		return true
	}
	return robots.TestAgent(page.Path, robotsAgent)
}
