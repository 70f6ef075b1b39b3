package comms

import (
	"sort"
	"strings"
)

// Credential is either a username/password pair for basic auth or a
// 4-field OAuth 1.0a set (consumer pair plus access pair).
type Credential struct {
	Username string
	Password string

	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	OAuth          bool
}

type credEntry struct {
	pattern string
	cred    Credential
}

// CredentialTable maps hostname patterns to credentials. Patterns are
// either exact hostnames or "*."-style prefixes ("*.wikipedia.org").
type CredentialTable struct {
	entries []credEntry
}

// Add registers a credential for a hostname pattern. Entries are kept
// sorted by decreasing pattern length so the most specific wildcard is
// tried first.
func (t *CredentialTable) Add(pattern string, cred Credential) {
	t.entries = append(t.entries, credEntry{pattern: strings.ToLower(pattern), cred: cred})
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].pattern) > len(t.entries[j].pattern)
	})
}

// Lookup finds the credential for a host. Exact matches win over
// wildcard matches.
func (t *CredentialTable) Lookup(host string) (Credential, bool) {
	host = strings.ToLower(host)

	for _, e := range t.entries {
		if !strings.HasPrefix(e.pattern, "*") && e.pattern == host {
			return e.cred, true
		}
	}
	for _, e := range t.entries {
		if strings.HasPrefix(e.pattern, "*") && strings.HasSuffix(host, e.pattern[1:]) {
			return e.cred, true
		}
	}
	return Credential{}, false
}
