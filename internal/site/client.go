package site

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mwbotters/botkit/internal/comms"
)

// Client performs page operations against a site's action API through
// the request dispatcher.
type Client struct {
	disp *comms.Dispatcher
}

// NewClient wraps a dispatcher for page-level operations.
func NewClient(disp *comms.Dispatcher) *Client {
	return &Client{disp: disp}
}

type apiErrorBody struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type queryResponse struct {
	apiErrorBody
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				RevID int64 `json:"revid"`
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
		Tokens map[string]string `json:"tokens"`
	} `json:"query"`
}

// LoadPage fetches the current text and revision of a page.
func (c *Client) LoadPage(ctx context.Context, p *Page) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("prop", "revisions")
	params.Set("rvprop", "ids|content")
	params.Set("rvslots", "main")
	params.Set("titles", p.title)

	var resp queryResponse
	if err := c.call(ctx, p.site, params, nil, &resp); err != nil {
		return fmt.Errorf("failed to load %s: %w", p, err)
	}

	if len(resp.Query.Pages) == 0 {
		return fmt.Errorf("no page data returned for %s", p)
	}

	page := resp.Query.Pages[0]
	p.loaded = true
	p.exists = !page.Missing
	if len(page.Revisions) > 0 {
		p.text = page.Revisions[0].Slots.Main.Content
		p.latestRev = page.Revisions[0].RevID
	} else {
		p.text = ""
		p.latestRev = 0
	}

	return nil
}

type editResponse struct {
	apiErrorBody
	Edit struct {
		Result   string `json:"result"`
		NewRevID int64  `json:"newrevid"`
	} `json:"edit"`
}

// SavePage writes new text to a page. API error codes are mapped onto
// the fixed save-related taxonomy so the save wrapper can classify
// them.
func (c *Client) SavePage(ctx context.Context, p *Page, newText, summary string) error {
	token, err := c.csrfToken(ctx, p.site)
	if err != nil {
		return fmt.Errorf("failed to get edit token for %s: %w", p, err)
	}

	params := url.Values{}
	params.Set("action", "edit")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	body := url.Values{}
	body.Set("title", p.title)
	body.Set("text", newText)
	body.Set("summary", summary)
	body.Set("token", token)
	if p.latestRev > 0 {
		body.Set("baserevid", fmt.Sprintf("%d", p.latestRev))
	}

	var resp editResponse
	if err := c.call(ctx, p.site, params, body, &resp); err != nil {
		return err
	}

	if resp.Edit.Result != "Success" {
		return &comms.APIError{Kind: comms.KindPageSave, Info: fmt.Sprintf("edit result %q for %s", resp.Edit.Result, p)}
	}

	p.text = newText
	p.exists = true
	if resp.Edit.NewRevID > 0 {
		p.latestRev = resp.Edit.NewRevID
	}

	return nil
}

func (c *Client) csrfToken(ctx context.Context, s *Site) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("meta", "tokens")
	params.Set("type", "csrf")

	var resp queryResponse
	if err := c.call(ctx, s, params, nil, &resp); err != nil {
		return "", err
	}

	token, ok := resp.Query.Tokens["csrftoken"]
	if !ok || token == "" {
		return "", fmt.Errorf("no csrf token in response from %s", s)
	}
	return token, nil
}

// call issues one API request and decodes the response, translating
// HTTP 5xx and API error envelopes into typed errors.
func (c *Client) call(ctx context.Context, s *Site, params, body url.Values, out interface{ apiError() *comms.APIError }) error {
	method := http.MethodGet
	if body != nil {
		method = http.MethodPost
	}

	outcome := c.disp.Request(ctx, s, "api.php", comms.FetchParams{
		Method: method,
		Params: params,
		Body:   body,
	})
	if outcome.Err != nil {
		return outcome.Err
	}

	if outcome.Response.Code >= 500 {
		return &comms.APIError{
			Kind: comms.KindServerError,
			Info: fmt.Sprintf("HTTP %d from %s", outcome.Response.Code, s.Key()),
		}
	}

	if err := json.Unmarshal([]byte(outcome.Response.Text), out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}

	if apiErr := out.apiError(); apiErr != nil {
		return apiErr
	}
	return nil
}

// apiError maps a MediaWiki error envelope onto the error taxonomy.
func (b *apiErrorBody) apiError() *comms.APIError {
	if b.Error == nil {
		return nil
	}

	kind := comms.KindPageSave
	switch b.Error.Code {
	case "editconflict":
		kind = comms.KindEditConflict
	case "spamblacklist", "abusefilter-disallowed":
		kind = comms.KindSpamBlacklist
	case "protectedpage", "protectedtitle", "cascadeprotected", "customcssjsprotected":
		kind = comms.KindPageLocked
	case "maxlag", "readonly":
		kind = comms.KindServerError
	}

	return &comms.APIError{Kind: kind, Code: b.Error.Code, Info: b.Error.Info}
}
