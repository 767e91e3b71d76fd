package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/httputil"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Telegram delivers the run outcome through the Telegram Bot API
// ⭐ SSOT: 텔레그램 발송은 여기서만
type Telegram struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	botToken   string
	chatID     string
}

// NewTelegram creates a telegram notifier. baseURL empty means production.
func NewTelegram(httpClient *httputil.Client, log *logger.Logger, botToken, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		botToken:   botToken,
		chatID:     chatID,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Send posts the funnel summary and the survivor list as one message
func (t *Telegram) Send(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	text := FormatMessage(summary, results)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.httpClient.PostJSON(ctx, endpoint, sendMessageRequest{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send failed: status %d", resp.StatusCode)
	}

	t.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"survivors": len(results),
	}).Info("run notification sent")
	return nil
}

// FormatMessage renders the funnel line plus one line per survivor
func FormatMessage(summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📊 %s 스크리닝 (%s)\n", summary.RunDate.Format("2006-01-02"), summary.Strategy)
	fmt.Fprintf(&sb, "전체 %d → 1차 %d → 기술 %d → 수급 %d\n",
		summary.UniverseTotal, summary.Stage1.Passed, summary.Stage2.Passed, summary.Stage3.Passed)
	if skipped := summary.Stage1.Skipped + summary.Stage2.Skipped + summary.Stage3.Skipped; skipped > 0 {
		fmt.Fprintf(&sb, "⚠️ 데이터 부족 제외 %d\n", skipped)
	}

	if len(results) == 0 {
		sb.WriteString("\n통과 종목 없음")
		return sb.String()
	}

	sb.WriteString("\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "✅ %s (%s, %s) %s\n", r.Name, r.Code, r.Market, strings.Join(r.PassedTags, " "))
	}
	return sb.String()
}

var _ contracts.Notifier = (*Telegram)(nil)
