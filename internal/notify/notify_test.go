package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/httputil"
	"github.com/wonny/screener/backend/pkg/logger"
)

func sampleRun() (*contracts.ScreeningSummary, []contracts.ScreeningResult) {
	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	summary := &contracts.ScreeningSummary{
		RunID: "run-1", RunDate: date, Strategy: "default",
		UniverseTotal: 2400,
		Stage1:        contracts.StageCounts{Input: 2400, Passed: 180, Failed: 2200, Skipped: 20},
		Stage2:        contracts.StageCounts{Input: 180, Passed: 12, Failed: 165, Skipped: 3},
		Stage3:        contracts.StageCounts{Input: 12, Passed: 2, Failed: 10},
		FinalPassed:   2,
		Elapsed:       42 * time.Second,
	}
	results := []contracts.ScreeningResult{
		{RunDate: date, Code: "005930", Name: "삼성전자", Market: "KOSPI",
			Stage: contracts.StageSupplyDemand, PassedTags: []string{"P-1", "G-1", "S-1"}},
		{RunDate: date, Code: "035720", Name: "카카오", Market: "KOSDAQ",
			Stage: contracts.StageSupplyDemand, PassedTags: []string{"P-1", "G-2", "S-1"}},
	}
	return summary, results
}

func TestFormatMessage(t *testing.T) {
	summary, results := sampleRun()
	msg := FormatMessage(summary, results)

	assert.Contains(t, msg, "2026-08-21")
	assert.Contains(t, msg, "전체 2400 → 1차 180 → 기술 12 → 수급 2")
	assert.Contains(t, msg, "제외 23")
	assert.Contains(t, msg, "삼성전자 (005930, KOSPI)")
	assert.Contains(t, msg, "G-2")
}

func TestFormatMessageNoSurvivors(t *testing.T) {
	summary, _ := sampleRun()
	msg := FormatMessage(summary, nil)
	assert.Contains(t, msg, "통과 종목 없음")
}

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotReq sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	hc := httputil.New(logger.NewNop(), 5*time.Second).DisableRetry()
	tg := NewTelegram(hc, logger.NewNop(), "bot-token", "chat-42", srv.URL)

	summary, results := sampleRun()
	require.NoError(t, tg.Send(context.Background(), summary, results))

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "chat-42", gotReq.ChatID)
	assert.Contains(t, gotReq.Text, "삼성전자")
}

func TestTelegramSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	hc := httputil.New(logger.NewNop(), 5*time.Second).DisableRetry()
	tg := NewTelegram(hc, logger.NewNop(), "bot-token", "chat-42", srv.URL)

	summary, results := sampleRun()
	assert.Error(t, tg.Send(context.Background(), summary, results))
}

func TestConsoleSend(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	summary, results := sampleRun()
	require.NoError(t, c.Send(context.Background(), summary, results))

	out := buf.String()
	assert.Contains(t, out, "2026-08-21")
	assert.Contains(t, out, "005930")
	assert.Contains(t, out, "카카오")
	// Funnel rows for all three stages.
	assert.Contains(t, out, "1 bulk")
	assert.Contains(t, out, "3 supply/demand")
}

func TestConsoleSendNoSurvivors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	summary, _ := sampleRun()
	require.NoError(t, c.Send(context.Background(), summary, nil))
	assert.Contains(t, buf.String(), "no survivors")
}

type stubNotifier struct {
	called bool
	err    error
}

func (s *stubNotifier) Send(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	s.called = true
	return s.err
}

func TestMultiSendAttemptsAll(t *testing.T) {
	failing := &stubNotifier{err: errors.New("channel down")}
	ok := &stubNotifier{}
	m := NewMulti(failing, nil, ok)

	summary, results := sampleRun()
	err := m.Send(context.Background(), summary, results)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "channel down"))
	assert.True(t, failing.called)
	assert.True(t, ok.called)
}
