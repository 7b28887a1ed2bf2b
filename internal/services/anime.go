package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"anitrack/internal/metrics"
	"anitrack/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	jikanAPIURL      = "https://api.jikan.moe/v4"
	defaultTimeout   = 30 * time.Second
	rateLimitDelay   = 1 * time.Second
	maxRetries       = 3
	retryDelay       = 2 * time.Second
	userAgent        = "anitrack/1.0"
	maxSearchResults = 25
	maxResponseSize  = 5 * 1024 * 1024
)

// errUpstreamStatus marks a non-retryable upstream response.
var errUpstreamStatus = errors.New("unexpected status from Jikan")

// Client talks to the Jikan v4 REST API. Requests are spaced by a shared
// token bucket so concurrent handlers never exceed the upstream rate limit.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	userAgent  string
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
	Logger     *logrus.Logger
}

func NewClient() *Client {
	return NewClientWithConfig(&ClientConfig{RetryDelay: retryDelay})
}

func NewClientWithConfig(config *ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BaseURL == "" {
		config.BaseURL = jikanAPIURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = rateLimitDelay
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = maxRetries
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = retryDelay
	}
	if config.UserAgent == "" {
		config.UserAgent = userAgent
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger:     config.Logger,
		limiter:    rate.NewLimiter(rate.Every(config.RateLimit), 1),
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		userAgent:  config.UserAgent,
	}
}

func (c *Client) SearchAnime(ctx context.Context, query string, limit int) ([]models.AnimeData, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalid("search query cannot be empty")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	c.logger.WithField("query", query).Info("Searching anime...")

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", "popularity")
	params.Set("sfw", "true")

	var result models.JikanSearchResponse
	if err := c.getJSON(ctx, "/anime?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) TopAnime(ctx context.Context, limit int) ([]models.AnimeData, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var result models.JikanSearchResponse
	if err := c.getJSON(ctx, "/top/anime?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) GetAnime(ctx context.Context, malID int) (*models.AnimeData, error) {
	if malID <= 0 {
		return nil, invalid("invalid anime id: %d", malID)
	}

	var result models.JikanAnimeResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/anime/%d", malID), &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// LatestEpisode returns the highest aired episode number Jikan knows of, or
// 0 when none are listed. The episode list is paginated, so the last page is
// fetched after the first reveals its index.
func (c *Client) LatestEpisode(ctx context.Context, malID int) (int, error) {
	path := fmt.Sprintf("/anime/%d/episodes", malID)

	var page models.JikanEpisodesResponse
	if err := c.getJSON(ctx, path, &page); err != nil {
		return 0, err
	}

	if last := page.Pagination.LastVisiblePage; last > 1 {
		page = models.JikanEpisodesResponse{}
		if err := c.getJSON(ctx, path+"?page="+strconv.Itoa(last), &page); err != nil {
			return 0, err
		}
	}

	latest := 0
	for _, ep := range page.Data {
		if ep.MalID > latest {
			latest = ep.MalID
		}
	}
	return latest, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.makeRequest(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode Jikan response: %w", err)
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, url string) ([]byte, error) {
	var rErr error
	m := metrics.Get()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		body, retry, err := c.do(ctx, url)
		if err == nil {
			m.JikanRequestsTotal.WithLabelValues("ok").Inc()
			c.logger.WithFields(logrus.Fields{
				"url":           url,
				"attempt":       attempt,
				"response_size": len(body),
			}).Debug("API request successful")
			return body, nil
		}

		rErr = err
		if !retry {
			m.JikanRequestsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}

		m.JikanRequestsTotal.WithLabelValues("retry").Inc()
		c.retryLogger(attempt, url, err)
		if err := c.waitForRetry(ctx, attempt); err != nil {
			return nil, err
		}
	}

	m.JikanRequestsTotal.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, rErr)
}

// do performs one request and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("anime: %w", ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("API returned status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
	}

	body, err := readRespBody(resp)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, false, nil
}

func (c *Client) retryLogger(attempt int, url string, err error) {
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"url":     url,
		"error":   err.Error(),
	}).Warn("API request failed, retrying...")
}

// readRespBody limits the response size to prevent memory issues.
func readRespBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize)
	}
	return body, nil
}

// waitForRetry backs off linearly between attempts.
func (c *Client) waitForRetry(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries-1 {
		return nil
	}

	delay := time.Duration(attempt+1) * c.retryDelay
	c.logger.WithField("delay", delay).Debug("waiting before retry")

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
