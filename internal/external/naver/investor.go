package naver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FetchInvestorFlows scrapes daily investor net flows from the Naver Finance
// foreigner/institution page, paginating backwards until the range is covered.
// ⭐ SSOT: 투자자 수급 스크래핑은 이 함수에서만
func (c *Client) FetchInvestorFlows(ctx context.Context, code string, from, to time.Time) ([]InvestorRow, error) {
	var all []InvestorRow
	noDataPages := 0

	// Pages run newest-first; 150 pages ≈ 6 years of sessions.
	for page := 1; page <= 150; page++ {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		fullURL := fmt.Sprintf("%s/item/frgn.naver?code=%s&page=%d", c.baseURL, code, page)
		html, err := c.fetchHTML(ctx, fullURL)
		if err != nil {
			return nil, err
		}

		rows, lastDate, hasMore := parseInvestorHTML(html, code, from, to)
		all = append(all, rows...)

		// Past the start of the range: nothing older is needed.
		if !lastDate.IsZero() && lastDate.Before(from) {
			break
		}
		if !hasMore {
			break
		}
		if lastDate.IsZero() {
			noDataPages++
			if noDataPages >= 3 {
				break
			}
		} else {
			noDataPages = 0
		}
	}

	// Pages are newest-first; the pipeline wants date-ascending.
	reverse(all)

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(all),
	}).Debug("Fetched investor flows")
	return all, nil
}

var investorDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// parseInvestorHTML parses one foreigner/institution page.
// Column layout: 날짜 | 종가 | 대비 | 등락률 | 거래량 | 기관 | 외국인
func parseInvestorHTML(html, code string, from, to time.Time) ([]InvestorRow, time.Time, bool) {
	var rows []InvestorRow
	var lastDate time.Time

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return rows, lastDate, false
	}

	// The second type2 table is the data table.
	tables := doc.Find("table.type2")
	if tables.Length() < 2 {
		return rows, lastDate, false
	}

	tables.Eq(1).Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !investorDateRe.MatchString(dateText) {
			return
		}
		date, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}
		lastDate = date

		if date.Before(from) || date.After(to) {
			return
		}

		instNet := parseSignedNum(cells.Eq(5).Text())
		foreignNet := parseSignedNum(cells.Eq(6).Text())
		rows = append(rows, InvestorRow{
			Code:           code,
			Date:           date,
			ForeignNet:     foreignNet,
			InstitutionNet: instNet,
			IndividualNet:  -(foreignNet + instNet),
		})
	})

	hasMore := doc.Find(".pgRR").Length() > 0
	return rows, lastDate, hasMore
}

func parseSignedNum(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func reverse(rows []InvestorRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
