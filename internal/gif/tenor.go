// ABOUTME: Tenor GIF search client
// ABOUTME: Single-attempt search and download calls; callers own the retry policy
package gif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/harper/marcusbot/internal/fetch"
	"github.com/harper/marcusbot/internal/retry"
)

const (
	// DefaultBaseURL is the Tenor v2 API root.
	DefaultBaseURL = "https://tenor.googleapis.com/v2"
	// DefaultClientKey identifies this integration to Tenor.
	DefaultClientKey = "marcus_bot_app"
	// DefaultLimit is how many GIFs a search loads at once.
	DefaultLimit = 8
)

// ErrNoKey is returned when the client has no API key.
var ErrNoKey = errors.New("tenor API key not configured")

// Config holds Tenor client settings
type Config struct {
	BaseURL   string
	APIKey    string
	ClientKey string
	Limit     int
}

// Client searches Tenor
type Client struct {
	baseURL   string
	apiKey    string
	clientKey string
	limit     int
	fetcher   *fetch.Fetcher
}

type searchResponse struct {
	Results []struct {
		MediaFormats map[string]struct {
			URL string `json:"url"`
		} `json:"media_formats"`
	} `json:"results"`
}

// NewClient creates a Tenor client; zero config fields take defaults.
func NewClient(cfg Config, fetcher *fetch.Fetcher) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		clientKey: cfg.ClientKey,
		limit:     cfg.Limit,
		fetcher:   fetcher,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.clientKey == "" {
		c.clientKey = DefaultClientKey
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.fetcher == nil {
		c.fetcher = fetch.New(fetch.DefaultTimeout)
	}
	return c
}

// Search returns the GIF URLs for term, in Tenor's ranking order.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	if c.apiKey == "" {
		return nil, retry.NewPermanent(ErrNoKey)
	}

	q := url.Values{}
	q.Set("q", term)
	q.Set("key", c.apiKey)
	q.Set("client_key", c.clientKey)
	q.Set("limit", strconv.Itoa(c.limit))

	body, err := c.fetcher.Bytes(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("tenor search: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.NewPermanent(fmt.Errorf("decoding tenor response: %w", err))
	}

	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if g, ok := r.MediaFormats["gif"]; ok && g.URL != "" {
			urls = append(urls, g.URL)
		}
	}
	return urls, nil
}

// Download fetches the GIF bytes at gifURL.
func (c *Client) Download(ctx context.Context, gifURL string) ([]byte, error) {
	data, err := c.fetcher.Bytes(ctx, gifURL)
	if err != nil {
		return nil, fmt.Errorf("downloading gif: %w", err)
	}
	return data, nil
}
