package bluesky

import (
	"context"
	"fmt"
	"log/slog"

	"ExecOrdersMonitor/internal/config"
	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

// Announcer posts one announcement per order, ever. It checks the announce
// ledger before posting so that retried items do not spam followers, and
// records the post URI right after a successful publish.
type Announcer struct {
	client   *Client
	ledger   ports.AnnounceLedger
	template string
	hashtags []string
	logger   *slog.Logger
}

var _ ports.AnnounceSink = (*Announcer)(nil)

// NewAnnouncer builds the announce sink.
func NewAnnouncer(client *Client, ledger ports.AnnounceLedger, cfg config.AnnounceConfig, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		client:   client,
		ledger:   ledger,
		template: cfg.Template,
		hashtags: cfg.Hashtags,
		logger:   logger,
	}
}

// Announce posts about an order unless the ledger shows it was announced on
// an earlier run, in which case the prior post URI is returned as-is.
func (a *Announcer) Announce(ctx context.Context, order domain.Order, primaryURL string) (string, error) {
	fp := order.Fingerprint()

	uri, done, err := a.ledger.Announced(ctx, fp)
	if err != nil {
		return "", fmt.Errorf("read announce ledger: %w", err)
	}
	if done {
		a.logger.Debug("already announced", "order", order.ID, "uri", uri)
		return uri, nil
	}

	text := BuildPost(a.template, a.hashtags, order, primaryURL)

	uri, err = a.client.Post(ctx, text)
	if err != nil {
		return "", err
	}

	// The post is live; losing this write risks a duplicate announcement
	// on the next run, so surface it as a stage failure.
	if err := a.ledger.MarkAnnounced(ctx, fp, uri); err != nil {
		return "", fmt.Errorf("record announcement for %s: %w", fp, err)
	}

	a.logger.Info("announced", "order", order.ID, "uri", uri)
	return uri, nil
}
