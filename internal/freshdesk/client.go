// Package freshdesk is the vendor API client: ticket search with
// rate-limit backoff and contact lookup. The search endpoint caps results
// at 10 pages per query, which is why callers extract month by month.
package freshdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/helpdesk-proxy/backend/internal/models"
)

const (
	searchMaxPages       = 10
	updatedMaxPages      = 15
	defaultRetrySeconds  = 2
	defaultMinInterval   = 300 * time.Millisecond
	contactPauseInterval = 150 * time.Millisecond
)

type Client struct {
	Domain      string
	APIKey      string
	BaseURL     string // overrides https://<Domain> in tests
	HTTP        *http.Client
	MinInterval time.Duration
	Breaker     *gobreaker.CircuitBreaker
	Logger      zerolog.Logger

	mu        sync.Mutex
	lastReqAt time.Time
}

// NewBreaker builds the circuit breaker guarding vendor API calls: it opens
// after a sustained failure ratio so a flapping API does not burn the whole
// extraction window on timeouts.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

type searchResponse struct {
	Total   int                `json:"total"`
	Results []models.RawTicket `json:"results"`
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://" + c.Domain
}

// do paces requests by MinInterval, authenticates and runs the call through
// the circuit breaker. Transport failures and 5xx responses count as breaker
// failures; 4xx responses (including 429) are returned to the caller.
func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if c.MinInterval <= 0 {
		c.MinInterval = defaultMinInterval
	}

	c.mu.Lock()
	sleepFor := time.Until(c.lastReqAt.Add(c.MinInterval))
	if sleepFor > 0 {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		c.mu.Lock()
	}
	c.lastReqAt = time.Now()
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.APIKey, "x")

	call := func() (any, error) {
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("vendor API %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	}

	var result any
	if c.Breaker != nil {
		result, err = c.Breaker.Execute(call)
	} else {
		result, err = call()
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// searchPages walks the paginated search endpoint, honoring 429 Retry-After
// and stopping at the first empty page.
func (c *Client) searchPages(ctx context.Context, query string, maxPages int) ([]models.RawTicket, error) {
	var out []models.RawTicket
	for page := 1; page <= maxPages; page++ {
		endpoint := fmt.Sprintf("%s/api/v2/search/tickets?query=%s&page=%d",
			c.baseURL(), url.QueryEscape(fmt.Sprintf("%q", query)), page)

		resp, err := c.do(ctx, endpoint)
		if err != nil {
			return out, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retry := defaultRetrySeconds
			if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
				retry = v
			}
			resp.Body.Close()
			c.Logger.Warn().Int("retry_after_s", retry).Msg("vendor rate limit, backing off")
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(time.Duration(retry) * time.Second):
			}
			page--
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return out, fmt.Errorf("search page %d: status %d: %s", page, resp.StatusCode, string(body))
		}

		var decoded searchResponse
		err = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if err != nil {
			return out, fmt.Errorf("decode search page %d: %w", page, err)
		}
		if len(decoded.Results) == 0 {
			break
		}
		out = append(out, decoded.Results...)
		c.Logger.Debug().Int("page", page).Int("tickets", len(decoded.Results)).Msg("search page fetched")
	}
	return out, nil
}

// SearchCreatedBetween returns tickets created strictly after lower and
// strictly before upper.
func (c *Client) SearchCreatedBetween(ctx context.Context, lower, upper time.Time) ([]models.RawTicket, error) {
	query := fmt.Sprintf("created_at:>'%s' AND created_at:<'%s'",
		lower.UTC().Format("2006-01-02"), upper.UTC().Format("2006-01-02"))
	return c.searchPages(ctx, query, searchMaxPages)
}

// SearchUpdatedSince returns tickets updated after the given date.
func (c *Client) SearchUpdatedSince(ctx context.Context, since time.Time) ([]models.RawTicket, error) {
	query := fmt.Sprintf("updated_at:>'%s'", since.UTC().Format("2006-01-02"))
	return c.searchPages(ctx, query, updatedMaxPages)
}

// Contact fetches a requester's name and email. Callers cache the result, so
// a short pause after each call keeps the contact endpoint under its rate
// limit without a second backoff loop.
func (c *Client) Contact(ctx context.Context, requesterID int64) (models.RequesterRecord, error) {
	endpoint := fmt.Sprintf("%s/api/v2/contacts/%d", c.baseURL(), requesterID)
	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return models.RequesterRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.RequesterRecord{}, fmt.Errorf("contact %d: status %d: %s", requesterID, resp.StatusCode, string(body))
	}

	var record models.RequesterRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return models.RequesterRecord{}, fmt.Errorf("decode contact %d: %w", requesterID, err)
	}

	select {
	case <-ctx.Done():
		return record, ctx.Err()
	case <-time.After(contactPauseInterval):
	}
	return record, nil
}
