package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app_radar/internal/domain"
)

const (
	reportTitle  = "📱 App Radar digest"
	reportFooter = "📊 Data: iTunes Search API | 🤖 app_radar"
)

type WebhookConfig struct {
	URL          string
	Timeout      time.Duration
	AnalysisURLs map[string]string
}

// Webhook posts digests to a Slack-compatible incoming webhook as Block Kit
// messages.
type Webhook struct {
	url          string
	analysisURLs map[string]string
	client       *http.Client
	logger       *slog.Logger
}

func NewWebhook(cfg WebhookConfig, logger *slog.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:          cfg.URL,
		analysisURLs: cfg.AnalysisURLs,
		client:       &http.Client{Timeout: timeout},
		logger:       logger.With("publisher", "webhook"),
	}
}

// Message is the Block Kit payload. Text is the notification fallback.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type      string       `json:"type"`
	Text      *TextObject  `json:"text,omitempty"`
	Fields    []TextObject `json:"fields,omitempty"`
	Elements  []TextObject `json:"elements,omitempty"`
	Accessory *Button      `json:"accessory,omitempty"`
}

type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Button struct {
	Type string     `json:"type"`
	Text TextObject `json:"text"`
	URL  string     `json:"url"`
}

func (w *Webhook) Name() string {
	return "webhook"
}

func (w *Webhook) Publish(ctx context.Context, report *domain.DigestReport) error {
	body, err := json.Marshal(w.BuildMessage(report))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	w.logger.Info("digest delivered",
		"ranked", len(report.Ranked),
		"status", resp.StatusCode,
	)
	return nil
}

func (w *Webhook) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// BuildMessage renders report as header, KPI fields, one card per ranked
// app, insights and a footer.
func (w *Webhook) BuildMessage(report *domain.DigestReport) Message {
	var blocks []Block
	blocks = append(blocks, headerBlocks(report)...)
	blocks = append(blocks, kpiBlocks(report.KPI)...)
	blocks = append(blocks, w.rankedBlocks(report.Ranked)...)
	blocks = append(blocks, insightBlocks(report.Insights)...)
	blocks = append(blocks,
		Block{Type: "divider"},
		Block{Type: "context", Elements: []TextObject{mrkdwn(reportFooter)}},
	)

	return Message{
		Text:   fmt.Sprintf("App Radar digest - %s", report.GeneratedAt.Format("2006-01-02")),
		Blocks: blocks,
	}
}

func headerBlocks(report *domain.DigestReport) []Block {
	return []Block{
		{Type: "header", Text: &TextObject{Type: "plain_text", Text: reportTitle, Emoji: true}},
		{Type: "context", Elements: []TextObject{mrkdwn(fmt.Sprintf(
			"🕐 Updated: %s | ✅ Collected %d/%d apps",
			report.GeneratedAt.Format("2006-01-02 15:04"), report.Succeeded, report.Total,
		))}},
		{Type: "divider"},
	}
}

func kpiBlocks(kpi domain.KPI) []Block {
	if kpi.EngagementChampion == nil {
		return nil
	}

	leader := "n/a"
	if l := kpi.SatisfactionLeader; l != nil {
		leader = fmt.Sprintf("%s (%.1f)", l.Name(), l.RatingValue())
	}

	return []Block{
		{Type: "section", Text: ptr(mrkdwn("*📊 Key metrics*"))},
		{Type: "section", Fields: []TextObject{
			mrkdwn(fmt.Sprintf("*Average rating*\n%.2f/5.0", kpi.AverageRating)),
			mrkdwn(fmt.Sprintf("*Total reviews*\n%s", FormatCount(kpi.TotalReviews))),
			mrkdwn(fmt.Sprintf("*Engagement champion*\n%s", kpi.EngagementChampion.Name())),
			mrkdwn(fmt.Sprintf("*Satisfaction leader*\n%s", leader)),
		}},
		{Type: "divider"},
	}
}

func (w *Webhook) rankedBlocks(entries []domain.DigestEntry) []Block {
	if len(entries) == 0 {
		return nil
	}

	blocks := []Block{
		{Type: "section", Text: ptr(mrkdwn(fmt.Sprintf("*🏆 TOP %d apps*", len(entries))))},
	}
	for _, e := range entries {
		app := e.Snapshot.App
		card := Block{
			Type: "section",
			Text: ptr(mrkdwn(fmt.Sprintf(
				"*%d. %s %s*\n• Rating: `%.2f` | Reviews: `%s`\n• Engagement: %s\n• Developer: %s\n• Category: %s",
				e.Rank, e.RatingEmoji, app.Name,
				e.Snapshot.RatingValue(), FormatCount(e.Snapshot.Metric.RatingCount),
				e.EngagementTag,
				orUnknown(app.Developer),
				orUnknown(app.Category),
			))),
		}
		card.Accessory = w.button(e.Snapshot)
		blocks = append(blocks, card)
	}
	return blocks
}

// button links to the configured analysis article, keyed by watch-list
// target and then by store name, falling back to the store page. Incoming
// webhooks only support URL buttons.
func (w *Webhook) button(snap domain.Snapshot) *Button {
	if u := w.analysisURL(snap); u != "" {
		return &Button{
			Type: "button",
			Text: TextObject{Type: "plain_text", Text: "📰 Analysis", Emoji: true},
			URL:  u,
		}
	}
	app := snap.App
	if app.URL == "" {
		return nil
	}
	return &Button{
		Type: "button",
		Text: TextObject{Type: "plain_text", Text: "🔗 Details", Emoji: true},
		URL:  app.URL,
	}
}

func (w *Webhook) analysisURL(snap domain.Snapshot) string {
	for _, key := range []string{snap.Target, snap.App.Name} {
		if u := w.analysisURLs[key]; key != "" && u != "" {
			return u
		}
	}
	return ""
}

func insightBlocks(insights []domain.Insight) []Block {
	if len(insights) == 0 {
		return nil
	}

	lines := make([]string, len(insights))
	for i, in := range insights {
		lines[i] = "• " + in.Text
	}

	return []Block{
		{Type: "divider"},
		{Type: "section", Text: ptr(mrkdwn("*💡 Insights*"))},
		{Type: "section", Text: ptr(mrkdwn(strings.Join(lines, "\n")))},
	}
}

// FormatCount renders large counts with an M or K suffix: 1234567 is "1.2M",
// 350000 is "350K".
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

func mrkdwn(text string) TextObject {
	return TextObject{Type: "mrkdwn", Text: text}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}
