package comms

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

// Session is the process-wide HTTP session: one connection pool and one
// cookie jar, persisted to disk across runs. It is constructed
// explicitly at the top of main and closed on exit; nothing here runs
// at import time.
type Session struct {
	client *http.Client
	// insecure shares the jar but skips certificate verification, for
	// sites explicitly flagged as unverified.
	insecure *http.Client
	jar      *cookiejar.Jar
	jarPath  string
	log      zerolog.Logger

	mu      sync.Mutex
	origins map[string]*url.URL
}

// storedCookie is the on-disk cookie representation, one entry per
// cookie per origin.
type storedCookie struct {
	Origin  string    `json:"origin"`
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
}

// NewSession opens the session, loading any cookies persisted by a
// previous run. A missing or corrupt cookie file is tolerated with a
// warning, never fatal.
func NewSession(jarPath string, connectTimeout, readTimeout time.Duration, log zerolog.Logger) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	newClient := func(skipVerify bool) *http.Client {
		return &http.Client{
			Jar:     jar,
			Timeout: connectTimeout + readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: readTimeout,
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				TLSClientConfig:       &tls.Config{InsecureSkipVerify: skipVerify},
			},
		}
	}

	s := &Session{
		jar:      jar,
		jarPath:  jarPath,
		log:      log,
		origins:  make(map[string]*url.URL),
		client:   newClient(false),
		insecure: newClient(true),
	}

	s.loadCookies()
	return s, nil
}

// Do issues a request through the shared client and remembers the
// origin so its cookies can be persisted on Close.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.do(req, true)
}

func (s *Session) do(req *http.Request, verifyTLS bool) (*http.Response, error) {
	s.rememberOrigin(req.URL)
	if !verifyTLS {
		return s.insecure.Do(req)
	}
	return s.client.Do(req)
}

func (s *Session) rememberOrigin(u *url.URL) {
	origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	s.mu.Lock()
	s.origins[origin.String()] = origin
	s.mu.Unlock()
}

func (s *Session) loadCookies() {
	if s.jarPath == "" {
		return
	}

	data, err := os.ReadFile(s.jarPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.jarPath).Msg("could not read cookie file, starting with empty jar")
		}
		return
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		s.log.Warn().Err(err).Str("path", s.jarPath).Msg("corrupt cookie file, starting with empty jar")
		return
	}

	byOrigin := make(map[string][]*http.Cookie)
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			continue
		}
		byOrigin[c.Origin] = append(byOrigin[c.Origin], &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
			Secure:  c.Secure,
		})
	}

	for origin, cookies := range byOrigin {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		s.jar.SetCookies(u, cookies)
		s.rememberOrigin(u)
	}
}

// Close persists the cookies for every origin contacted during this
// run. Persistence is best-effort; an error is returned but callers
// typically only log it.
func (s *Session) Close() error {
	if s.jarPath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored []storedCookie
	for origin, u := range s.origins {
		for _, c := range s.jar.Cookies(u) {
			stored = append(stored, storedCookie{
				Origin: origin,
				Name:   c.Name,
				Value:  c.Value,
				Path:   c.Path,
				Secure: c.Secure,
			})
		}
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(s.jarPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}

	return nil
}
