package site

import "testing"

func TestNewSiteBaseURL(t *testing.T) {
	s, err := New("wikipedia", "de")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := s.APIEndpoint(); got != "https://de.wikipedia.org/w/api.php" {
		t.Errorf("APIEndpoint() = %q", got)
	}
	if got := s.Key(); got != "de.wikipedia.org" {
		t.Errorf("Key() = %q", got)
	}
	if got := s.String(); got != "de:wikipedia" {
		t.Errorf("String() = %q", got)
	}
	if !s.VerifyTLS() {
		t.Error("VerifyTLS() = false by default")
	}
}

func TestSetVerifyTLS(t *testing.T) {
	s, err := New("wikipedia", "en")
	if err != nil {
		t.Fatal(err)
	}

	s.SetVerifyTLS(false)
	if s.VerifyTLS() {
		t.Error("VerifyTLS() = true after SetVerifyTLS(false)")
	}
	s.SetVerifyTLS(true)
	if !s.VerifyTLS() {
		t.Error("VerifyTLS() = false after SetVerifyTLS(true)")
	}
}

func TestNewSiteValidation(t *testing.T) {
	if _, err := New("", "en"); err == nil {
		t.Error("New() with empty family should fail")
	}
	if _, err := New("wikipedia", ""); err == nil {
		t.Error("New() with empty code should fail")
	}
}

func TestBaseURLResolution(t *testing.T) {
	s, err := New("wikipedia", "en")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"relative", "api.php", "https://en.wikipedia.org/w/api.php"},
		{"leading slash", "/api.php", "https://en.wikipedia.org/w/api.php"},
		{"absolute passthrough", "https://other.example/x", "https://other.example/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.BaseURL(tt.uri); got != tt.want {
				t.Errorf("BaseURL(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestNewWithBase(t *testing.T) {
	s, err := NewWithBase("custom", "xx", "http://wiki.example:8080/w")
	if err != nil {
		t.Fatalf("NewWithBase() error = %v", err)
	}
	if got := s.APIEndpoint(); got != "http://wiki.example:8080/w/api.php" {
		t.Errorf("APIEndpoint() = %q", got)
	}
}

func TestArticleURL(t *testing.T) {
	s, err := New("wikipedia", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ArticleURL("Main Page"); got != "https://en.wikipedia.org/wiki/Main_Page" {
		t.Errorf("ArticleURL() = %q", got)
	}
}

func TestPageString(t *testing.T) {
	s, err := New("wikipedia", "fr")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPage(s, "Accueil")
	if got := p.String(); got != "[[fr:Accueil]]" {
		t.Errorf("Page.String() = %q", got)
	}
	if p.Loaded() || p.Exists() {
		t.Error("fresh page handle reports loaded or existing")
	}
}
