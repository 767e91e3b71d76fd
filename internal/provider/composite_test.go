package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/external/krx"
)

func TestBuildSnapshot(t *testing.T) {
	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	quotes := []krx.QuoteRow{
		{Code: "005930", Name: "삼성전자", Market: "KOSPI", Open: 72100, Close: 73200, PrevClose: 72000, Volume: 2100000},
		{Code: "900001", Name: "신규상장", Market: "KOSDAQ", Open: 10000, Close: 10500, PrevClose: 10000, Volume: 500000},
	}
	// Three trailing sessions; the new listing only traded on one of them.
	history := []map[string]int64{
		{"005930": 1000000, "900001": 400000},
		{"005930": 2000000},
		{"005930": 3000000},
	}

	snap := buildSnapshot(date, quotes, history, 3)
	require.Equal(t, 2, snap.Len())

	assert.Equal(t, "005930", snap.Codes[0])
	assert.Equal(t, 73200.0, snap.Closes[0])
	assert.Equal(t, 72000.0, snap.PrevCloses[0])
	assert.InDelta(t, 2000000.0, snap.AvgVolumes[0], 0.001)

	// Fewer trailing samples than the window marks the symbol skippable.
	assert.Less(t, snap.AvgVolumes[1], 0.0)
}
