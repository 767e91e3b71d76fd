package krx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/screener/backend/pkg/httputil"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/redis"
)

// Client handles communication with the KRX open data endpoint
// ⭐ SSOT: KRX 시장 데이터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *redis.RateLimiter
}

// NewClient creates a new KRX client. baseURL empty means production.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://data.krx.co.kr"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// WithRateLimiter attaches the shared Redis rate limiter. Multiple processes
// (API, scheduler, CLI) then share the per-source request budget.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter) *Client {
	c.limiter = limiter
	return c
}

// postForm posts a KRX generate request (bld + params) and returns the body.
// KRX serves every dataset through one endpoint, selected by the bld param.
func (c *Client) postForm(ctx context.Context, bld string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, redis.KRXRateLimit); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	params.Set("bld", bld)

	endpoint := c.baseURL + "/comm/bldAttendant/getJsonData.cmd"
	resp, err := c.httpClient.PostFormWithHeaders(ctx, endpoint, params, map[string]string{
		"Referer":    c.baseURL + "/contents/MDC/MDI/mdiLoader",
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}
	return body, nil
}

// parseNum parses KRX comma-grouped numerics ("1,234,567", "-", "")
func parseNum(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	return float64(parseNum(s))
}
