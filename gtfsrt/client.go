package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Client is a simple HTTP client for fetching GTFS-RT protobuf data.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new GTFS-RT HTTP client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// Fetch fetches a single GTFS-RT feed from a URL and returns raw
// protobuf bytes. Returns nil if url is empty (allows optional feeds).
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// FetchFeed fetches and decodes a GTFS-RT feed in one call.
func (c *Client) FetchFeed(ctx context.Context, url string) (*gtfsrtpb.FeedMessage, error) {
	data, err := c.Fetch(ctx, url)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeFeed(data)
}
