package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// Client reads channel listings from a Reddit-style JSON API. Pages are
// requested newest-first; the opaque fullname cursor drives pagination.
type Client struct {
	baseURL    string
	userAgent  string
	pageSize   int
	maxRetries int
	retryBase  time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.ContentSource = (*Client)(nil)

// NewClient wires an HTTP client; pass nil to use a 20s-timeout default.
func NewClient(cfg config.ForumConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	interval := cfg.RequestInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	retryBase := cfg.RetryBase()
	if retryBase <= 0 {
		retryBase = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		httpClient: httpClient,
		logger:     logger,
	}
}

// ValidateChannel probes the channel's about endpoint before a sync starts.
// Missing or inaccessible channels are configuration errors, not faults.
func (c *Client) ValidateChannel(ctx context.Context, channel string) error {
	endpoint := fmt.Sprintf("%s/r/%s/about.json", c.baseURL, url.PathEscape(channel))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// FetchPage returns one listing page and the cursor for the next one.
// An empty cursor requests the first page; an empty next cursor means the
// listing is exhausted.
func (c *Client) FetchPage(ctx context.Context, channel, cursor string) ([]domain.FeedbackPost, string, error) {
	endpoint, err := c.listingURL(channel, cursor)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var envelope listingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, "", domain.NewJobError(domain.ErrUpstream,
			fmt.Sprintf("channel %s returned an unreadable listing", channel),
			fmt.Errorf("decode listing: %w", err))
	}

	posts := make([]domain.FeedbackPost, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		posts = append(posts, child.Data.toPost(c.baseURL, channel))
	}

	if c.logger != nil {
		c.logger.Debug("fetched page", "channel", channel, "posts", len(posts), "next", envelope.Data.After)
	}

	return posts, envelope.Data.After, nil
}

func (c *Client) listingURL(channel, cursor string) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/r/%s/new.json", c.baseURL, url.PathEscape(channel)))
	if err != nil {
		return "", fmt.Errorf("invalid listing url for %s: %w", channel, err)
	}

	query := parsed.Query()
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("raw_json", "1")
	if cursor != "" {
		query.Set("after", cursor)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// get performs one rate-paced request, retrying rate-limit responses with
// exponential backoff before giving up. Not-found and forbidden responses
// are never retried.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("await request slot: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.NewJobError(domain.ErrTimeout, "upstream request cancelled or timed out", err)
			}
			return nil, domain.NewJobError(domain.ErrUpstream, "upstream request failed", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, domain.NewJobError(domain.ErrNotFound, "channel does not exist", nil)
		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return nil, domain.NewJobError(domain.ErrForbidden, "channel is not accessible", nil)
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			if attempt >= c.maxRetries {
				return nil, domain.NewJobError(domain.ErrRateLimited,
					fmt.Sprintf("upstream rate limit persisted after %d retries", c.maxRetries), nil)
			}
			delay := c.retryBase << attempt
			if c.logger != nil {
				c.logger.Warn("rate limited, backing off", "attempt", attempt+1, "delay", delay)
			}
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, domain.NewJobError(domain.ErrTimeout, "job cancelled during backoff", err)
			}
		default:
			status := resp.Status
			resp.Body.Close()
			return nil, domain.NewJobError(domain.ErrUpstream, fmt.Sprintf("upstream returned %s", status), nil)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type listingEnvelope struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data postPayload `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postPayload struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	SelfText     string  `json:"selftext"`
	SelfTextHTML string  `json:"selftext_html"`
	Author       string  `json:"author"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	CreatedUTC   float64 `json:"created_utc"`
	Permalink    string  `json:"permalink"`
	IsSelf       bool    `json:"is_self"`
}

func (p postPayload) toPost(baseURL, channel string) domain.FeedbackPost {
	body := strings.TrimSpace(p.SelfText)
	if body == "" && p.SelfTextHTML != "" {
		body = flattenHTML(p.SelfTextHTML)
	}
	// Link posts carry no text of their own; the collector drops them.
	if !p.IsSelf {
		body = ""
	}

	permalink := p.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = baseURL + permalink
	}

	return domain.FeedbackPost{
		ExternalID:   p.ID,
		Title:        strings.TrimSpace(p.Title),
		Body:         body,
		Author:       p.Author,
		Score:        p.Score,
		CommentCount: p.NumComments,
		CreatedAt:    time.Unix(int64(p.CreatedUTC), 0).UTC(),
		Permalink:    permalink,
		Channel:      channel,
	}
}
