package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/screener/backend/pkg/httputil"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/redis"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	chartURL   string
	limiter    *redis.RateLimiter
}

// NewClient creates a new Naver Finance client. baseURL empty means production.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://finance.naver.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		chartURL:   "https://fchart.stock.naver.com",
	}
}

// WithRateLimiter attaches the shared Redis rate limiter. Multiple processes
// (API, scheduler, CLI) then share the per-source request budget.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.limiter = limiter
	return c
}

// wait blocks until the shared rate limiter admits one request
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, redis.NaverRateLimit); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}

// fetchHTML fetches a page body with browser-like headers
func (c *Client) fetchHTML(ctx context.Context, fullURL string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer":    c.baseURL + "/",
	})
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body failed: %w", err)
	}
	return string(body), nil
}

// InvestorRow is one day of investor net flows scraped from Naver Finance.
// Individual flow is derived: the three actor groups net to zero per session.
type InvestorRow struct {
	Code           string
	Date           time.Time
	ForeignNet     int64 // 외국인 순매수
	InstitutionNet int64 // 기관 순매수
	IndividualNet  int64 // 개인 순매수 (계산)
}
