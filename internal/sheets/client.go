package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desicrew/annotation-monitor/internal/pkg/httpretry"
)

// Fetcher is the collaborator contract the ingestion pipeline consumes.
// Client satisfies it directly; CachedFetcher wraps it with a row cache.
type Fetcher interface {
	ListSheets(ctx context.Context, endpointURL string) ([]string, error)
	FetchRows(ctx context.Context, endpointURL, sheetName string) ([]Row, error)
}

// Client talks to a Google Apps Script spreadsheet endpoint. Each project
// endpoint answers GET with {"sheets": [...]}, GET ?sheet=NAME with a row
// array, and POST action=login for credential checks.
type Client struct {
	httpClient httpretry.HTTPDoer
}

// NewClient creates a spreadsheet endpoint client with the given timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 3),
	}
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

type sheetListResponse struct {
	Sheets []string `json:"sheets"`
}

// ListSheets returns the sheet names available under an endpoint.
func (c *Client) ListSheets(ctx context.Context, endpointURL string) ([]string, error) {
	body, err := c.get(ctx, endpointURL)
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}

	var response sheetListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing sheet list: %w", err)
	}
	return response.Sheets, nil
}

// FetchRows returns the raw rows of one sheet.
func (c *Client) FetchRows(ctx context.Context, endpointURL, sheetName string) ([]Row, error) {
	body, err := c.get(ctx, endpointURL+"?sheet="+url.QueryEscape(sheetName))
	if err != nil {
		return nil, fmt.Errorf("fetching sheet %q: %w", sheetName, err)
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parsing sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

// LoginResult is the endpoint's response to a credential check.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Login forwards a credential check to the endpoint.
func (c *Client) Login(ctx context.Context, endpointURL, username, password string) (LoginResult, error) {
	form := url.Values{}
	form.Set("action", "login")
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return LoginResult{}, fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("executing login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LoginResult{}, fmt.Errorf("reading login response: %w", err)
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return LoginResult{}, fmt.Errorf("parsing login response: %w", err)
	}
	return result, nil
}

// FilterSheets keeps the sheet names relevant to a project category.
// Hourly projects care about login sheets (but never credential sheets);
// production projects care about production and QC sheets.
func FilterSheets(category string, names []string) []string {
	var out []string
	for _, name := range names {
		low := strings.ToLower(name)
		switch category {
		case "hourly":
			if strings.Contains(low, "login") && !strings.Contains(low, "credential") {
				out = append(out, name)
			}
		case "production":
			if strings.Contains(low, "production") || strings.Contains(low, "qc") {
				out = append(out, name)
			}
		}
	}
	return out
}
