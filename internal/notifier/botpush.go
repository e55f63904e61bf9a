package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leadwatch/leadwatch/internal/domain"
)

// BotPushSender forwards a lead event to an internal bot-dispatcher HTTP
// endpoint, grounded on the upstream's httpx POST to
// /api/internal/telegram/send-notification in
// _examples/original_source/backend/app/services/notification_service.py —
// the worker has no direct bot connection of its own, so it hands the push
// off to whichever process owns the live bot session.
type BotPushSender struct {
	url         string
	token       string
	frontendURL string
	http        *http.Client
}

func NewBotPushSender(url, token, frontendURL string) *BotPushSender {
	return &BotPushSender{url: url, token: token, frontendURL: frontendURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// botPushPayload mirrors spec.md §6's internal bot-push contract exactly.
// chat_id travels as a JSON number: Telegram chat IDs are numeric even
// though domain.User stores them as a string (it also has to hold
// not-yet-numeric placeholder values before a user links their bot account).
type botPushPayload struct {
	ChatID         int64   `json:"chat_id"`
	LeadID         string  `json:"lead_id"`
	RuleName       string  `json:"rule_name"`
	SourceTitle    string  `json:"source_title"`
	MessagePreview string  `json:"message_preview"`
	LeadURL        string  `json:"lead_url"`
	Score          float64 `json:"score"`
	MessageLink    string  `json:"message_link"`
}

func (s *BotPushSender) SendNewLead(ctx context.Context, user *domain.User, ev NewLeadEvent) error {
	chatID, err := strconv.ParseInt(user.BotChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("notifier: user %s has non-numeric bot chat id %q: %w", user.ID, user.BotChatID, err)
	}
	return s.post(ctx, botPushPayload{
		ChatID:         chatID,
		LeadID:         ev.Lead.ID.String(),
		RuleName:       ev.RuleName,
		SourceTitle:    orUnknown(ev.ChannelTitle),
		MessagePreview: truncate(ev.MessagePreview, 500),
		LeadURL:        s.leadURL(ev.Lead.ID.String()),
		Score:          ev.Lead.Score,
		MessageLink:    messageLink(ev.ChannelHandle, ev.MessageExternalID),
	})
}

func (s *BotPushSender) leadURL(leadID string) string {
	if s.frontendURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/dashboard/leads?lead_id=%s", strings.TrimRight(s.frontendURL, "/"), leadID)
}

// messageLink builds a public t.me deep link when the source channel has a
// handle; private channels (no handle) have no stable public URL, so the
// bot dispatcher falls back to showing the preview text alone.
func messageLink(channelHandle string, externalID int64) string {
	if channelHandle == "" || externalID == 0 {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", channelHandle, externalID)
}

func (s *BotPushSender) post(ctx context.Context, payload botPushPayload) error {
	if s.url == "" {
		return fmt.Errorf("notifier: bot dispatcher url not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notifier: marshal bot push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notifier: build bot push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: bot push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier: bot dispatcher returned status %d", resp.StatusCode)
	}
	return nil
}
