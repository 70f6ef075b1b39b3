package comms

import "testing"

func TestCredentialTableLookup(t *testing.T) {
	table := &CredentialTable{}
	table.Add("*.wikipedia.org", Credential{Username: "family"})
	table.Add("de.wikipedia.org", Credential{Username: "exact"})
	table.Add("*.org", Credential{Username: "broad"})

	tests := []struct {
		name     string
		host     string
		wantUser string
		wantOK   bool
	}{
		{"exact beats wildcard", "de.wikipedia.org", "exact", true},
		{"specific wildcard beats broad", "en.wikipedia.org", "family", true},
		{"broad wildcard", "wikisource.org", "broad", true},
		{"case insensitive", "DE.Wikipedia.ORG", "exact", true},
		{"no match", "example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, ok := table.Lookup(tt.host)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.host, ok, tt.wantOK)
			}
			if cred.Username != tt.wantUser {
				t.Errorf("Lookup(%q) user = %q, want %q", tt.host, cred.Username, tt.wantUser)
			}
		})
	}
}

func TestCredentialTableEmpty(t *testing.T) {
	table := &CredentialTable{}
	if _, ok := table.Lookup("en.wikipedia.org"); ok {
		t.Error("empty table returned a credential")
	}
}
