package manychat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/leadcenter/pkg/logging"
)

const (
	defaultTimeout = 20 * time.Second

	// minFetchInterval is enforced locally before any request goes out;
	// the upstream rejects rapid repeated directory queries anyway.
	minFetchInterval = 60 * time.Second
)

// ErrRateLimited is returned when the upstream answered 429 or the local
// minimum-interval guard refused to issue the request. Callers back off and
// retry on a later tick.
var ErrRateLimited = errors.New("manychat: rate limited")

// UpstreamError is any non-2xx or transport-level failure from the
// ManyChat API.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manychat: request failed: %v", e.Err)
	}
	return fmt.Sprintf("manychat: upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client queries the ManyChat subscriber directory.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logging.Logger

	mu        sync.Mutex
	lastFetch time.Time
}

// NewClient creates a ManyChat API client.
func NewClient(baseURL, apiToken string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiToken: apiToken,
		logger:   logger,
	}
}

// FindByCustomField returns subscribers whose custom field matches the given
// value. Zero matches is an empty slice, not an error.
func (c *Client) FindByCustomField(ctx context.Context, fieldID int, fieldValue string) ([]Subscriber, error) {
	if strings.TrimSpace(c.apiToken) == "" {
		return nil, &UpstreamError{Err: errors.New("missing api token")}
	}
	if err := c.reserveFetchSlot(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/subscriber/findByCustomField", nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	q := req.URL.Query()
	q.Set("field_id", strconv.Itoa(fieldID))
	q.Set("field_value", fieldValue)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("manychat rate limit hit", "field_id", fieldID)
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out findResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Data == nil {
		return []Subscriber{}, nil
	}
	return out.Data, nil
}

// reserveFetchSlot enforces the local minimum interval between directory
// queries. The slot is consumed only when the request is allowed to go out.
func (c *Client) reserveFetchSlot() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if !c.lastFetch.IsZero() && now.Sub(c.lastFetch) < minFetchInterval {
		return ErrRateLimited
	}
	c.lastFetch = now
	return nil
}
