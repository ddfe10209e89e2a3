package beehiiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ignite/newsletter-metrics/internal/config"
	"github.com/ignite/newsletter-metrics/internal/pkg/httpretry"
)

// PageSize is the post-listing page size; MaxPages caps a date search at
// MaxPages*PageSize posts. Posts come back in creation order, not publish
// order, so recent dates can sit deep in the listing for old publications.
const (
	PageSize = 100
	MaxPages = 50
)

// APIError is a non-2xx response from the Beehiiv API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a Beehiiv API client for one workspace group's key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Beehiiv client for the given workspace key.
func NewClient(cfg config.BeehiivConfig, apiKey string) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

	return body, nil
}

// ListPublications fetches the workspace publication catalog.
func (c *Client) ListPublications(ctx context.Context) ([]Publication, error) {
	body, err := c.doRequest(ctx, "/publications", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching publications: %w", err)
	}

	var response publicationsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing publications: %w", err)
	}

	return response.Data, nil
}

// ListPosts fetches one page of a publication's confirmed posts with email
// stats expanded. Pages start at 1.
func (c *Client) ListPosts(ctx context.Context, publicationID string, page int) (*PostsPage, error) {
	params := url.Values{}
	params.Set("status", "confirmed")
	params.Set("limit", strconv.Itoa(PageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("expand", "stats")

	body, err := c.doRequest(ctx, "/publications/"+publicationID+"/posts", params)
	if err != nil {
		return nil, err
	}

	var response PostsPage
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing posts: %w", err)
	}

	return &response, nil
}
