// Package pagegen provides composable sources of work items for the
// bot run-loop. Every generator yields *site.Page values on a channel
// that closes when the source is exhausted.
package pagegen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/mwbotters/botkit/internal/comms"
	"github.com/mwbotters/botkit/internal/site"
)

// Bloom filter sized for a large batch run; 1% false positives only
// cost a skipped page.
const dedupCapacity = 1_000_000

// FromTitles yields one page per title, in order.
func FromTitles(s *site.Site, titles []string) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for _, title := range titles {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			out <- any(site.NewPage(s, title))
		}
	}()
	return out
}

// FromFile yields one page per non-empty line of a title list file.
// Lines starting with # are comments.
func FromFile(s *site.Site, path string) (<-chan any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open title file: %w", err)
	}

	out := make(chan any)
	go func() {
		defer close(out)
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			title := strings.TrimSpace(scanner.Text())
			if title == "" || strings.HasPrefix(title, "#") {
				continue
			}
			out <- any(site.NewPage(s, title))
		}
	}()
	return out, nil
}

type categoryMembersResponse struct {
	Continue struct {
		CMContinue string `json:"cmcontinue"`
	} `json:"continue"`
	Query struct {
		CategoryMembers []struct {
			Title string `json:"title"`
			NS    int    `json:"ns"`
		} `json:"categorymembers"`
	} `json:"query"`
}

// FromCategory yields the members of a category, following API
// continuation until the listing is complete or ctx is cancelled.
func FromCategory(ctx context.Context, disp *comms.Dispatcher, s *site.Site, category string) <-chan any {
	if !strings.Contains(category, ":") {
		category = "Category:" + category
	}

	out := make(chan any)
	go func() {
		defer close(out)

		cont := ""
		for {
			params := url.Values{}
			params.Set("action", "query")
			params.Set("format", "json")
			params.Set("formatversion", "2")
			params.Set("list", "categorymembers")
			params.Set("cmtitle", category)
			params.Set("cmlimit", "500")
			if cont != "" {
				params.Set("cmcontinue", cont)
			}

			outcome := disp.Request(ctx, s, "api.php", comms.FetchParams{Params: params})
			if outcome.Err != nil {
				return
			}

			var resp categoryMembersResponse
			if err := json.Unmarshal([]byte(outcome.Response.Text), &resp); err != nil {
				return
			}

			for _, member := range resp.Query.CategoryMembers {
				select {
				case out <- any(site.NewPage(s, member.Title)):
				case <-ctx.Done():
					return
				}
			}

			cont = resp.Continue.CMContinue
			if cont == "" {
				return
			}
		}
	}()
	return out
}

// Deduplicate drops items whose page title was already yielded, using a
// bloom filter so arbitrarily long runs stay in constant memory.
func Deduplicate(in <-chan any) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)

		seen := bloom.NewWithEstimates(dedupCapacity, 0.01)
		for item := range in {
			page, ok := item.(*site.Page)
			if !ok {
				out <- item
				continue
			}
			if seen.TestAndAddString(page.Title()) {
				continue
			}
			out <- item
		}
	}()
	return out
}

// NamespaceFilter keeps only pages in the main namespace, identified by
// the absence of a known namespace prefix in the title.
func NamespaceFilter(in <-chan any, excludePrefixes ...string) <-chan any {
	if len(excludePrefixes) == 0 {
		excludePrefixes = []string{"Talk:", "User:", "User talk:", "Template:", "Category:", "File:"}
	}

	out := make(chan any)
	go func() {
		defer close(out)
		for item := range in {
			page, ok := item.(*site.Page)
			if ok && hasPrefix(page.Title(), excludePrefixes) {
				continue
			}
			out <- item
		}
	}()
	return out
}

func hasPrefix(title string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(title, p) {
			return true
		}
	}
	return false
}
