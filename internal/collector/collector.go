// Package collector implements Component C4: the global message collector.
// One channel is fetched exactly once per tick regardless of how many
// tenants subscribe to it (spec.md §4.4), grounded on
// _examples/original_source/backend/app/services/global_message_collector.py.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadwatch/leadwatch/internal/crypto"
	"github.com/leadwatch/leadwatch/internal/domain"
	"github.com/leadwatch/leadwatch/internal/source"
	"github.com/leadwatch/leadwatch/internal/stepoutcome"
	"github.com/leadwatch/leadwatch/internal/store"
	"github.com/leadwatch/leadwatch/internal/telemetry"
)

var tracer = telemetry.Tracer("collector")

const fetchLimit = 100

// Stats summarizes one collection pass, mirroring the upstream's
// channels_processed/messages_collected/errors dict.
type Stats struct {
	ChannelsProcessed int
	MessagesCollected int
	Errors            []ChannelError
}

type ChannelError struct {
	ChannelID string
	Err       string
}

// Collector pulls new messages for every active channel, independent of
// tenant count.
type Collector struct {
	store  *store.Store
	client source.Client
	box    *crypto.Box
	logger *slog.Logger
}

func New(st *store.Store, client source.Client, box *crypto.Box, logger *slog.Logger) *Collector {
	return &Collector{store: st, client: client, box: box, logger: logger}
}

// Run processes every active channel once.
func (c *Collector) Run(ctx context.Context) Stats {
	ctx, span := tracer.Start(ctx, "collector.run")
	defer span.End()

	var stats Stats

	channels, err := c.store.Channels.ListActiveChannels(ctx)
	if err != nil {
		stats.Errors = append(stats.Errors, ChannelError{Err: "list active channels: " + err.Error()})
		return stats
	}
	c.logger.Info("collector: found active channels", "count", len(channels))

	cred, err := c.anyActiveCredential(ctx)
	if err != nil {
		stats.Errors = append(stats.Errors, ChannelError{Err: err.Error()})
		return stats
	}

	for i := range channels {
		ch := &channels[i]
		collected, outcome := c.collectChannel(ctx, cred, ch)
		switch outcome.Kind {
		case stepoutcome.OK, stepoutcome.SkipAdvance:
			stats.ChannelsProcessed++
			stats.MessagesCollected += collected
		default:
			errStr := ""
			if outcome.Err != nil {
				errStr = outcome.Err.Error()
			}
			stats.Errors = append(stats.Errors, ChannelError{ChannelID: ch.ID.String(), Err: errStr})
		}
	}

	c.logger.Info("collector: pass complete",
		"channels_processed", stats.ChannelsProcessed,
		"messages_collected", stats.MessagesCollected,
		"errors", len(stats.Errors))
	return stats
}

// collectChannel fetches and stores new messages for one channel. Any
// single channel's failure never stops the others (spec.md §4.4).
func (c *Collector) collectChannel(ctx context.Context, cred *domain.ChatCredential, ch *domain.Channel) (int, stepoutcome.Outcome) {
	watermark, err := c.store.Channels.ChannelWatermark(ctx, ch.ID)
	if err != nil {
		return 0, stepoutcome.Retain(err)
	}

	session, err := c.box.Decrypt(cred.SessionEncrypted)
	if err != nil {
		return 0, stepoutcome.FatalErr(fmt.Errorf("decrypt credential session: %w", err))
	}

	messages, err := c.client.FetchNew(ctx, []byte(session), ch, watermark, fetchLimit)
	if err != nil {
		if errors.Is(err, source.ErrAuthFailed) {
			c.logger.Error("collector: credential rejected, marking needs-reauth", "credential_id", cred.ID, "error", err)
			if markErr := c.store.Credentials.MarkCredentialStatus(ctx, cred.ID, domain.CredentialNeedsReauth); markErr != nil {
				c.logger.Error("collector: mark credential status failed", "credential_id", cred.ID, "error", markErr)
			}
			return 0, stepoutcome.Advance()
		}
		c.logger.Error("collector: fetch failed", "channel_id", ch.ID, "error", err)
		return 0, stepoutcome.Retain(err)
	}

	collected := 0
	for i := range messages {
		msg := messages[i]
		msg.ChannelID = ch.ID
		if err := c.store.Messages.InsertMessage(ctx, &msg); err != nil {
			var conflict *store.ErrConflict
			if errors.As(err, &conflict) {
				// Already collected in a prior tick — normal, not an error.
				continue
			}
			c.logger.Error("collector: insert message failed", "channel_id", ch.ID, "external_id", msg.ExternalID, "error", err)
			continue
		}
		collected++
	}

	if err := c.store.Channels.TouchCollectedAt(ctx, ch.ID, time.Now()); err != nil {
		return collected, stepoutcome.Retain(err)
	}
	return collected, stepoutcome.Ok()
}

func (c *Collector) anyActiveCredential(ctx context.Context) (*domain.ChatCredential, error) {
	creds, err := c.store.Credentials.ListActiveCredentials(ctx)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, errNoActiveCredentials
	}
	return &creds[0], nil
}

var errNoActiveCredentials = errors.New("collector: no active telegram credentials available")
