package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobtrace/jobtrace/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier mirrors notices to a Slack channel via an Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each notice to webhookURL.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts one Block Kit message. A 429 is retried once after the
// Retry-After delay.
func (s *SlackNotifier) Notify(notice model.Notice) error {
	body, err := json.Marshal(buildPayload(notice))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		time.Sleep(retryAfter)

		status, _, err = s.post(body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Debug("slack notice sent", "title", notice.Title)
	return nil
}

func (s *SlackNotifier) post(body []byte) (int, time.Duration, error) {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	wait := model.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	if wait <= 0 {
		wait = time.Second
	}
	return resp.StatusCode, wait, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(n model.Notice) slackPayload {
	icon := ":bookmark:"
	if n.Level == model.NoticeDestructive {
		icon = ":warning:"
	}

	blocks := []slackBlock{
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: icon + " *" + n.Title + "*"},
		},
	}
	if n.Description != "" {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "plain_text", Text: n.Description}},
		})
	}
	return slackPayload{Blocks: blocks}
}
