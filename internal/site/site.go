package site

import (
	"fmt"
	"net/url"
	"strings"
)

// Site is one configured target wiki: a family plus a language code,
// with its own base URL and TLS policy. It satisfies comms.Endpoint.
type Site struct {
	Family string
	Code   string

	base      *url.URL
	verifyTLS bool
}

// New builds a site for a Wikimedia-style family, e.g. ("wikipedia",
// "en") -> https://en.wikipedia.org/w/.
func New(family, code string) (*Site, error) {
	if family == "" || code == "" {
		return nil, fmt.Errorf("site requires family and code, got %q/%q", family, code)
	}

	base, err := url.Parse(fmt.Sprintf("https://%s.%s.org/w/", code, family))
	if err != nil {
		return nil, fmt.Errorf("failed to build base URL: %w", err)
	}

	return &Site{Family: family, Code: code, base: base, verifyTLS: true}, nil
}

// NewWithBase builds a site around an explicit base URL, for wikis not
// following the {code}.{family}.org layout (and for tests).
func NewWithBase(family, code, baseURL string) (*Site, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &Site{Family: family, Code: code, base: base, verifyTLS: true}, nil
}

// BaseURL resolves a URI against the site's base URL. Absolute URIs
// pass through unchanged.
func (s *Site) BaseURL(uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	ref, err := url.Parse(strings.TrimPrefix(uri, "/"))
	if err != nil {
		return s.base.String() + uri
	}
	return s.base.ResolveReference(ref).String()
}

// APIEndpoint is the action API entry point.
func (s *Site) APIEndpoint() string {
	return s.BaseURL("api.php")
}

// ArticleURL returns the rendered-HTML URL for a page title.
func (s *Site) ArticleURL(title string) string {
	u := *s.base
	u.Path = "/wiki/" + strings.ReplaceAll(title, " ", "_")
	return u.String()
}

// Key identifies the site for throttling purposes.
func (s *Site) Key() string {
	return s.base.Host
}

// VerifyTLS reports whether certificate verification is required for
// this site.
func (s *Site) VerifyTLS() bool {
	return s.verifyTLS
}

// SetVerifyTLS toggles certificate verification for this site.
// Verification is on by default.
func (s *Site) SetVerifyTLS(v bool) {
	s.verifyTLS = v
}

func (s *Site) String() string {
	return s.Code + ":" + s.Family
}

// Page is a single wiki article being read or mutated.
type Page struct {
	site  *Site
	title string

	text      string
	latestRev int64
	exists    bool
	loaded    bool
}

// NewPage creates an unloaded page handle.
func NewPage(s *Site, title string) *Page {
	return &Page{site: s, title: title}
}

func (p *Page) Site() *Site   { return p.site }
func (p *Page) Title() string { return p.title }

// Exists reports whether the page was present on the wiki when last
// loaded.
func (p *Page) Exists() bool { return p.exists }

// Loaded reports whether the page content has been fetched.
func (p *Page) Loaded() bool { return p.loaded }

// Text returns the loaded wikitext.
func (p *Page) Text() string { return p.text }

// LatestRevision returns the revision id seen at load time, used for
// edit-conflict detection on save.
func (p *Page) LatestRevision() int64 { return p.latestRev }

func (p *Page) String() string {
	return fmt.Sprintf("[[%s:%s]]", p.site.Code, p.title)
}
