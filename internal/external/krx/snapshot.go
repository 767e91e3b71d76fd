package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// All-stock daily quote dataset (전종목 시세)
const bldDailyQuotes = "dbms/MDC/STAT/standard/MDCSTAT01501"

// QuoteRow is one symbol's end-of-day quote from the all-stock dataset
type QuoteRow struct {
	Code      string
	Name      string
	Market    string // KOSPI, KOSDAQ
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64
	Volume    int64
}

// dailyQuotesResponse mirrors the KRX JSON payload. Numerics arrive as
// comma-grouped strings; CMPPREVDD_PRC is the signed change vs prev close.
type dailyQuotesResponse struct {
	OutBlock []struct {
		ISUSrtCd   string `json:"ISU_SRT_CD"`      // 종목코드
		ISUAbbrv   string `json:"ISU_ABBRV"`       // 종목명
		MktNm      string `json:"MKT_NM"`          // 시장구분
		TddOpnprc  string `json:"TDD_OPNPRC"`      // 시가
		TddHgprc   string `json:"TDD_HGPRC"`       // 고가
		TddLwprc   string `json:"TDD_LWPRC"`       // 저가
		TddClsprc  string `json:"TDD_CLSPRC"`      // 종가
		CmpPrevdd  string `json:"CMPPREVDD_PRC"`   // 대비
		AccTrdvol  string `json:"ACC_TRDVOL"`      // 거래량
	} `json:"OutBlock_1"`
}

// FetchDailyQuotes fetches the whole-universe end-of-day quote table for one
// trading date. An empty result means the date was not a trading day.
// ⭐ SSOT: 전종목 시세 조회는 이 함수에서만
func (c *Client) FetchDailyQuotes(ctx context.Context, date time.Time) ([]QuoteRow, error) {
	params := url.Values{}
	params.Set("mktId", "ALL")
	params.Set("trdDd", date.Format("20060102"))
	params.Set("share", "1")
	params.Set("money", "1")
	params.Set("csvxls_isNo", "false")

	body, err := c.postForm(ctx, bldDailyQuotes, params)
	if err != nil {
		return nil, err
	}

	var payload dailyQuotesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse daily quotes failed: %w", err)
	}

	rows := make([]QuoteRow, 0, len(payload.OutBlock))
	for _, r := range payload.OutBlock {
		if r.ISUSrtCd == "" {
			continue
		}
		closePrice := parseFloat(r.TddClsprc)
		rows = append(rows, QuoteRow{
			Code:      r.ISUSrtCd,
			Name:      r.ISUAbbrv,
			Market:    normalizeMarket(r.MktNm),
			Open:      parseFloat(r.TddOpnprc),
			High:      parseFloat(r.TddHgprc),
			Low:       parseFloat(r.TddLwprc),
			Close:     closePrice,
			PrevClose: closePrice - parseFloat(r.CmpPrevdd),
			Volume:    parseNum(r.AccTrdvol),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"count": len(rows),
	}).Debug("Fetched daily quotes")
	return rows, nil
}

// normalizeMarket maps KRX market labels onto the two names the pipeline
// uses. KONEX and anything unrecognized pass through as-is.
func normalizeMarket(mkt string) string {
	switch mkt {
	case "KOSPI", "유가증권":
		return "KOSPI"
	case "KOSDAQ", "KOSDAQ GLOBAL", "코스닥":
		return "KOSDAQ"
	default:
		return mkt
	}
}
