package useragent

import (
	"net/url"
	"strings"
	"sync"
)

// DefaultFormat is used when the configuration does not supply a
// user_agent_format of its own.
const DefaultFormat = "{script}/{version} ({script_comments}) botkit/{version} {username}"

// Info carries the identity fields substituted into the user-agent
// template. Version is a function so the lookup (which may hit the
// network for revision info) only happens when the template actually
// references it.
type Info struct {
	Script         string
	ScriptComments string
	Family         string
	Code           string
	Username       string
	Version        func() string
}

// Builder expands a user-agent template for a fixed identity.
type Builder struct {
	format string
	info   Info

	versionOnce sync.Once
	version     string
}

// NewBuilder creates a builder for the given template. An empty format
// falls back to DefaultFormat.
func NewBuilder(format string, info Info) *Builder {
	if format == "" {
		format = DefaultFormat
	}
	return &Builder{format: format, info: info}
}

// Build expands the template. Repeated calls yield identical strings;
// the lazy version field is resolved at most once.
func (b *Builder) Build() string {
	s := b.format

	if strings.Contains(s, "{version}") || strings.Contains(s, "{revision}") {
		b.versionOnce.Do(func() {
			if b.info.Version != nil {
				b.version = b.info.Version()
			}
		})
		s = strings.ReplaceAll(s, "{version}", b.version)
		s = strings.ReplaceAll(s, "{revision}", b.version)
	}

	site := ""
	if b.info.Family != "" && b.info.Code != "" {
		site = b.info.Code + "." + b.info.Family
	}

	replacer := strings.NewReplacer(
		"{script}", b.info.Script,
		"{script_comments}", b.info.ScriptComments,
		"{family}", b.info.Family,
		"{code}", b.info.Code,
		"{site}", site,
		"{username}", SanitizeUsername(b.info.Username),
	)
	s = replacer.Replace(s)

	return collapse(s)
}

// SanitizeUsername makes a username safe for a header value: spaces
// become underscores, and values containing non-ASCII characters or a
// literal percent sign are percent-encoded.
func SanitizeUsername(name string) string {
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, " ", "_")

	needsEncoding := strings.Contains(name, "%")
	for _, r := range name {
		if r > 127 {
			needsEncoding = true
			break
		}
	}
	if needsEncoding {
		name = url.QueryEscape(name)
	}
	return name
}

// collapse removes the residue left by empty optional fields: dangling
// empty parens and doubled spaces.
func collapse(s string) string {
	s = strings.ReplaceAll(s, "()", "")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	// A slash with nothing after it means the version field was empty.
	s = strings.ReplaceAll(s, "/ ", " ")
	s = strings.TrimSuffix(s, "/")
	return strings.TrimSpace(s)
}
