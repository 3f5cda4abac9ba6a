package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"netwin-backend/utils"

	"github.com/nats-io/nats.go"
)

const (
	EventTournamentJoined    = "tournament.joined"
	EventTournamentStatus    = "tournament.status_changed"
	EventTournamentCancelled = "tournament.cancelled"
	EventResultSubmitted     = "tournament.result_submitted"
	EventDepositRequested    = "wallet.deposit_requested"
	EventWithdrawalRequested = "wallet.withdrawal_requested"
	EventWalletReviewed      = "wallet.reviewed"
	EventKYCSubmitted        = "kyc.submitted"
)

// EventPublisher fans domain events out to other consumers. Publishing is
// always best-effort: callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("netwin-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				utils.Log.Warnw("[EVENTS] NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			utils.Log.Infow("[EVENTS] NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"event":       event,
		"occurred_at": time.Now().UTC(),
		"data":        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event, err)
	}
	return p.conn.Publish(p.prefix+"."+event, data)
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

func publish(ctx context.Context, events EventPublisher, event string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event, payload); err != nil {
		utils.Log.Warnw("[EVENTS] publish failed", "event", event, "error", err)
	}
}
