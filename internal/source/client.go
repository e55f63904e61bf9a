// Package source defines Component C1: the chat-platform client the
// collector pulls new messages through, grounded on
// _examples/original_source/backend/app/services/telegram_service.py.
//
// The upstream talks to Telegram as a logged-in user (Telethon/MTProto) so
// it can join arbitrary dialogs on demand. The example pack's Telegram
// dependency (github.com/mymmrac/telego) is a Bot-API client instead, so
// this port authenticates as a bot added to the channels it watches rather
// than as a user browsing its own dialog list; see DESIGN.md.
package source

import (
	"context"
	"errors"

	"github.com/leadwatch/leadwatch/internal/domain"
)

// ErrAuthFailed is a permanent authentication failure: the platform
// rejected the stored credential outright (revoked/invalid token, banned
// account). Callers should mark the credential needs-reauth rather than
// retry it next tick (spec.md §4.1, §4.4, §7).
var ErrAuthFailed = errors.New("source: credential authentication rejected")

// Dialog describes one chat the credential can see, surfaced to tenant
// onboarding so a user can pick which channels to subscribe to.
type Dialog struct {
	ExternalID int64
	Title      string
	Handle     string
	Kind       domain.ChannelKind
}

// AuthChallenge is the opaque in-progress state between Authenticate and
// Confirm (spec.md §4.1 credential onboarding).
type AuthChallenge struct {
	Phone string
	Token string // provider-specific continuation token (e.g. phone_code_hash)
}

// Client is the platform-specific source adapter.
type Client interface {
	// Authenticate begins onboarding a new credential and returns a
	// challenge to complete with Confirm.
	Authenticate(ctx context.Context, phone string) (AuthChallenge, error)
	// Confirm completes onboarding, returning an encryptable session blob
	// to persist as domain.ChatCredential.SessionEncrypted.
	Confirm(ctx context.Context, challenge AuthChallenge, code string) ([]byte, error)
	// ListDialogs enumerates channels/groups/chats visible to a credential.
	ListDialogs(ctx context.Context, sessionEncrypted []byte) ([]Dialog, error)
	// FetchNew returns messages from a channel with external_id strictly
	// greater than afterExternalID, oldest first, capped at limit
	// (spec.md §4.4 step 2).
	FetchNew(ctx context.Context, sessionEncrypted []byte, channel *domain.Channel, afterExternalID int64, limit int) ([]domain.Message, error)
}
