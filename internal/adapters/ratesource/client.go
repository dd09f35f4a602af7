package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"fxrelay/internal/domain"
	"net/http"
)

// Client reads the latest snapshot from an exchange-rate API that answers
// with {"base": "...", "rates": {...}}.
type Client struct {
	http *http.Client
	url  string
}

type apiResponse struct {
	Base  string              `json:"base"`
	Rates domain.RateSnapshot `json:"rates"`
}

func (c *Client) FetchRates(ctx context.Context) (domain.RateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrFetch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", domain.ErrFetch, resp.StatusCode, resp.Status)
	}

	var body apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", domain.ErrFetch, err)
	}

	if body.Rates == nil {
		return nil, fmt.Errorf("%w: response has no rates", domain.ErrFetch)
	}

	return body.Rates, nil
}

func NewClient(httpClient *http.Client, url string) *Client {
	return &Client{http: httpClient, url: url}
}
