package tinyemail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/pkg/httpretry"
)

// PageSize is the listing page size; MaxPages caps a date search at
// MaxPages*PageSize campaigns. The listing is not date-ordered, so a search
// must walk pages until the last-page flag.
const (
	PageSize = 50
	MaxPages = 20
)

// APIError is a non-2xx response from the TinyEmail API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a TinyEmail API client for one brand account.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a TinyEmail client for the given account key.
func NewClient(cfg config.TinyEmailConfig, apiKey string) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// ListCampaigns fetches one page of the campaign listing.
func (c *Client) ListCampaigns(ctx context.Context, page int) (*CampaignPage, error) {
	fullURL := fmt.Sprintf("%s/campaign?page=%d&size=%d", c.baseURL, page, PageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

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
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var response campaignListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing campaign listing: %w", err)
	}

	return &response.Campaigns, nil
}
