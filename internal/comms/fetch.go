package comms

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mwbotters/botkit/internal/throttle"
	"github.com/mwbotters/botkit/internal/useragent"
)

// fakeUserAgent is sent when a caller asks to not identify as a bot,
// e.g. when mirroring a resource from a host that blocks bot agents.
const fakeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Endpoint is the slice of the site abstraction the dispatcher needs.
type Endpoint interface {
	// BaseURL resolves a relative URI against the site's base URL.
	BaseURL(uri string) string
	// Key identifies the site for throttling, typically its hostname.
	Key() string
	// VerifyTLS reports whether certificate verification is required.
	VerifyTLS() bool
}

// Response is a successful payload.
type Response struct {
	Code   int
	Header http.Header
	Text   string
}

// Outcome holds the classified error and, when a response arrived, its
// payload. A status classified as an error still carries the payload so
// callers can read headers such as Retry-After.
type Outcome struct {
	Response *Response
	Err      error
}

// FetchParams describes a single request. Built fresh per call.
type FetchParams struct {
	URL     string
	Method  string // GET or POST; empty means GET
	Params  url.Values
	Body    url.Values
	Headers map[string]string

	// UseFakeIdentity replaces the computed bot user-agent with a
	// browser one.
	UseFakeIdentity bool
	// SkipTLSVerify disables certificate verification for this request.
	// Request sets it for sites whose VerifyTLS() reports false.
	SkipTLSVerify bool
	// DisableErrorHandling skips the default classification; the raw
	// transport error or status is handed back untouched.
	DisableErrorHandling bool
}

// Dispatcher builds and issues exactly one HTTP attempt per call and
// classifies the result. Retry policy belongs to callers.
type Dispatcher struct {
	session      *Session
	ua           *useragent.Builder
	auth         *CredentialTable
	throttle     *throttle.Throttle
	extraHeaders map[string]string
	log          zerolog.Logger
}

// NewDispatcher wires the dispatcher to its collaborators. auth and
// extraHeaders may be nil.
func NewDispatcher(session *Session, ua *useragent.Builder, auth *CredentialTable, thr *throttle.Throttle, extraHeaders map[string]string, log zerolog.Logger) *Dispatcher {
	if auth == nil {
		auth = &CredentialTable{}
	}
	return &Dispatcher{
		session:      session,
		ua:           ua,
		auth:         auth,
		throttle:     thr,
		extraHeaders: extraHeaders,
		log:          log,
	}
}

// Request resolves uri against the site's base URL, waits out the
// site's throttle, issues the call and feeds any retry-after hint back
// into the throttle.
func (d *Dispatcher) Request(ctx context.Context, site Endpoint, uri string, p FetchParams) Outcome {
	p.URL = site.BaseURL(uri)
	p.SkipTLSVerify = !site.VerifyTLS()

	if d.throttle != nil {
		d.throttle.WaitBeforeRequest(site.Key())
	}

	outcome := d.Fetch(ctx, p)

	if d.throttle != nil && outcome.Response != nil {
		if after := parseRetryAfter(outcome.Response.Header.Get("Retry-After")); after > 0 {
			d.throttle.NoteResponse(site.Key(), after)
		}
	}

	return outcome
}

// Fetch issues one attempt for an absolute URL and classifies the
// result per the dispatcher contract.
func (d *Dispatcher) Fetch(ctx context.Context, p FetchParams) Outcome {
	req, err := d.buildRequest(ctx, p)
	if err != nil {
		return Outcome{Err: err}
	}

	reqID := uuid.NewString()
	d.log.Debug().
		Str("request_id", reqID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("issuing request")

	resp, err := d.session.do(req, !p.SkipTLSVerify)
	if err != nil {
		if !p.DisableErrorHandling && isCertificateError(err) {
			return Outcome{Err: &APIError{Kind: KindFatalServer, Info: "TLS certificate verification failed", Cause: err}}
		}
		return Outcome{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	result := &Response{Code: resp.StatusCode, Header: resp.Header, Text: string(body)}

	if p.DisableErrorHandling {
		return Outcome{Response: result}
	}

	switch resp.StatusCode {
	case http.StatusGatewayTimeout:
		return Outcome{Response: result, Err: &APIError{Kind: KindServerTimeout, Info: req.URL.Host}}
	case http.StatusRequestURITooLong:
		return Outcome{Response: result, Err: &APIError{Kind: KindRequestTooLong, Info: req.URL.Host}}
	case http.StatusOK, http.StatusMultiStatus:
		// Fine; 207 is a valid multi-status success.
	default:
		d.log.Warn().
			Str("request_id", reqID).
			Int("status", resp.StatusCode).
			Str("url", req.URL.String()).
			Msg("unexpected response status")
	}

	return Outcome{Response: result}
}

func (d *Dispatcher) buildRequest(ctx context.Context, p FetchParams) (*http.Request, error) {
	if p.URL == "" {
		return nil, errors.New("request URL must not be empty")
	}

	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q", p.Method)
	}

	target := p.URL
	if len(p.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + p.Params.Encode()
	}

	var body io.Reader
	if method == http.MethodPost && len(p.Body) > 0 {
		body = strings.NewReader(p.Body.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range d.extraHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	// The caller's own User-Agent always wins.
	if req.Header.Get("User-Agent") == "" {
		if p.UseFakeIdentity {
			req.Header.Set("User-Agent", fakeUserAgent)
		} else if d.ua != nil {
			req.Header.Set("User-Agent", d.ua.Build())
		}
	}

	if cred, ok := d.auth.Lookup(req.URL.Hostname()); ok {
		if cred.OAuth {
			signOAuth1(req, p.Body, cred)
		} else {
			req.SetBasicAuth(cred.Username, cred.Password)
		}
	}

	return req, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}

func isCertificateError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostname x509.HostnameError
	return errors.As(err, &hostname)
}
