package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
)

// FetchDailyBars fetches daily OHLCV bars from the Naver chart API.
// ⭐ SSOT: 일봉 데이터 호출은 이 함수에서만
func (c *Client) FetchDailyBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, code, from.Format("20060102"), to.Format("20060102"),
	)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer":    c.baseURL + "/",
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

	bars, err := parseBarResponse(code, string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// parseBarResponse parses the chart payload: a quasi-JSON array of
// [date, open, high, low, close, volume, ...] rows with single quotes.
func parseBarResponse(code, body string) ([]contracts.DailyBar, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parseBarJSON(code, rawData), nil
	}

	// Fallback to regex parsing
	return parseBarRegex(code, body), nil
}

func parseBarJSON(code string, rawData [][]interface{}) []contracts.DailyBar {
	var bars []contracts.DailyBar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		dateStr = strings.Trim(dateStr, "\"")
		date, err := parseYYYYMMDD(dateStr)
		if err != nil {
			continue
		}

		bars = append(bars, contracts.DailyBar{
			Code:   code,
			Date:   date,
			Open:   toFloat64(row[1]),
			High:   toFloat64(row[2]),
			Low:    toFloat64(row[3]),
			Close:  toFloat64(row[4]),
			Volume: int64(toFloat64(row[5])),
		})
	}
	return bars
}

var barRowRe = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)`)

func parseBarRegex(code, body string) []contracts.DailyBar {
	matches := barRowRe.FindAllStringSubmatch(body, -1)

	var bars []contracts.DailyBar
	for _, match := range matches {
		if len(match) < 7 {
			continue
		}
		date, err := parseYYYYMMDD(match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(match[2], 64)
		high, _ := strconv.ParseFloat(match[3], 64)
		low, _ := strconv.ParseFloat(match[4], 64)
		closePrice, _ := strconv.ParseFloat(match[5], 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)

		bars = append(bars, contracts.DailyBar{
			Code:   code,
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars
}

func parseYYYYMMDD(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return time.Parse("2006-01-02", s[:4]+"-"+s[4:6]+"-"+s[6:8])
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(val, 64)
		return n
	default:
		return 0
	}
}
