package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Per-symbol program trading dataset (종목별 프로그램매매)
const bldProgramTrading = "dbms/MDC/STAT/standard/MDCSTAT02601"

// ProgramRow is one day of program trading net flow for a symbol
type ProgramRow struct {
	Code       string
	Date       time.Time
	ProgramNet int64 // 프로그램 순매수 (수량)
}

type programResponse struct {
	OutBlock []struct {
		TrdDd        string `json:"TRD_DD"`          // 일자 (YYYY/MM/DD)
		NetaskTrdvol string `json:"NETASK_TRDVOL"`   // 순매수 거래량
	} `json:"output"`
}

// FetchProgramTrading fetches per-day program trading net flow for one
// symbol over [from, to]. Missing days mean the symbol had no program
// activity recorded; callers treat that as zero, not an error.
// ⭐ SSOT: 프로그램매매 데이터 호출은 이 함수에서만
func (c *Client) FetchProgramTrading(ctx context.Context, code string, from, to time.Time) ([]ProgramRow, error) {
	params := url.Values{}
	params.Set("isuCd", code)
	params.Set("strtDd", from.Format("20060102"))
	params.Set("endDd", to.Format("20060102"))
	params.Set("share", "1")
	params.Set("csvxls_isNo", "false")

	body, err := c.postForm(ctx, bldProgramTrading, params)
	if err != nil {
		return nil, err
	}

	var payload programResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse program trading failed: %w", err)
	}

	rows := make([]ProgramRow, 0, len(payload.OutBlock))
	for _, r := range payload.OutBlock {
		date, err := time.Parse("2006/01/02", r.TrdDd)
		if err != nil {
			continue
		}
		rows = append(rows, ProgramRow{
			Code:       code,
			Date:       date,
			ProgramNet: parseNum(r.NetaskTrdvol),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(rows),
	}).Debug("Fetched program trading")
	return rows, nil
}
