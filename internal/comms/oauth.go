package comms

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// signOAuth1 sets an OAuth 1.0a HMAC-SHA1 Authorization header on req.
// MediaWiki's OAuth extension speaks owner-only 1.0a, so the signature
// covers the query string, the form body and the oauth parameters.
func signOAuth1(req *http.Request, body url.Values, cred Credential) {
	req.Header.Set("Authorization",
		oauthAuthorization(req.Method, req.URL, body, cred, uuid.NewString(), time.Now().Unix()))
}

func oauthAuthorization(method string, u *url.URL, body url.Values, cred Credential, nonce string, timestamp int64) string {
	oauth := map[string]string{
		"oauth_consumer_key":     cred.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", timestamp),
		"oauth_token":            cred.AccessToken,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = oauthSignature(method, u, body, oauth, cred)

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, rfc3986Escape(oauth[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// oauthSignature builds the RFC 5849 signature base string and signs it
// with HMAC-SHA1.
func oauthSignature(method string, u *url.URL, body url.Values, oauth map[string]string, cred Credential) string {
	params := make([][2]string, 0, len(oauth)+8)
	collect := func(values url.Values) {
		for k, list := range values {
			for _, v := range list {
				params = append(params, [2]string{rfc3986Escape(k), rfc3986Escape(v)})
			}
		}
	}
	collect(u.Query())
	collect(body)
	for k, v := range oauth {
		params = append(params, [2]string{rfc3986Escape(k), rfc3986Escape(v)})
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i][0] != params[j][0] {
			return params[i][0] < params[j][0]
		}
		return params[i][1] < params[j][1]
	})

	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = p[0] + "=" + p[1]
	}

	base := strings.ToUpper(method) +
		"&" + rfc3986Escape(oauthBaseURI(u)) +
		"&" + rfc3986Escape(strings.Join(pairs, "&"))

	key := rfc3986Escape(cred.ConsumerSecret) + "&" + rfc3986Escape(cred.AccessSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// oauthBaseURI normalizes the request URL for signing: lowercase scheme
// and host, default ports dropped, no query.
func oauthBaseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return scheme + "://" + host + u.Path
}

// rfc3986Escape percent-encodes everything outside the RFC 3986
// unreserved set. url.QueryEscape is close but uses + for spaces, which
// breaks the signature.
func rfc3986Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
