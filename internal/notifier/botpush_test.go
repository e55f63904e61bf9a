package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/leadwatch/leadwatch/internal/domain"
)

func TestBotPushSender_SendNewLeadPostsExpectedPayload(t *testing.T) {
	var received botPushPayload
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewBotPushSender(srv.URL, "secret-token", "https://app.example.com")
	user := &domain.User{ID: uuid.New(), BotChatID: "123456789"}
	lead := &domain.Lead{ID: uuid.New(), Score: 0.82}
	ev := NewLeadEvent{
		Lead:              lead,
		RuleName:          "hiring intent",
		ChannelTitle:      "#general",
		ChannelHandle:     "somechannel",
		MessagePreview:    "looking for a contractor",
		MessageExternalID: 42,
	}

	if err := sender.SendNewLead(t.Context(), user, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if received.ChatID != 123456789 {
		t.Fatalf("expected chat_id 123456789, got %d", received.ChatID)
	}
	if received.LeadID != lead.ID.String() {
		t.Fatalf("expected lead_id %s, got %s", lead.ID, received.LeadID)
	}
	if received.LeadURL != "https://app.example.com/dashboard/leads?lead_id="+lead.ID.String() {
		t.Fatalf("unexpected lead_url: %q", received.LeadURL)
	}
	if received.MessageLink != "https://t.me/somechannel/42" {
		t.Fatalf("unexpected message_link: %q", received.MessageLink)
	}
	if received.Score != 0.82 {
		t.Fatalf("unexpected score: %v", received.Score)
	}
}

func TestBotPushSender_SendNewLeadRejectsNonNumericChatID(t *testing.T) {
	sender := NewBotPushSender("http://unused.invalid", "", "")
	user := &domain.User{ID: uuid.New(), BotChatID: "not-a-number"}
	ev := NewLeadEvent{Lead: &domain.Lead{ID: uuid.New()}, RuleName: "r"}

	if err := sender.SendNewLead(t.Context(), user, ev); err == nil {
		t.Fatal("expected an error for a non-numeric bot chat id")
	}
}

func TestMessageLink_EmptyWithoutHandleOrExternalID(t *testing.T) {
	if got := messageLink("", 42); got != "" {
		t.Fatalf("expected empty link without a handle, got %q", got)
	}
	if got := messageLink("somechannel", 0); got != "" {
		t.Fatalf("expected empty link without an external id, got %q", got)
	}
}

func TestBotPushSender_PostFailsWithoutURL(t *testing.T) {
	sender := NewBotPushSender("", "", "")
	user := &domain.User{ID: uuid.New(), BotChatID: "1"}
	ev := NewLeadEvent{Lead: &domain.Lead{ID: uuid.New()}, RuleName: "r"}

	if err := sender.SendNewLead(t.Context(), user, ev); err == nil {
		t.Fatal("expected an error when no bot dispatcher url is configured")
	}
}
