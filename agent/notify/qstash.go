package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Voice-Tools/pkg/qstash"
)

var ErrNoDestination = errors.New("no destination configured")

// Config routes each record kind to a QStash destination. An empty destination disables that kind.
type Config struct {
	Enabled            bool   `split_words:"true" default:"false"`
	OrdersDestination  string `split_words:"true"`
	LeadsDestination   string `split_words:"true"`
	DeduplicationScope string `split_words:"true" default:"chative-voice-tools"`
}

type qstashClient interface {
	Publish(ctx context.Context, destination string, payload any, headers map[string]string) (qstashx.PublishResponse, error)
}

type QStashPublisher struct {
	client       qstashClient
	destinations map[contractx.RecordKind]string
	dedupScope   string
}

var _ contractx.Publisher = (*QStashPublisher)(nil)

func NewQStashPublisher(client *qstashx.Client, cfg Config) (*QStashPublisher, error) {
	if client == nil {
		return nil, errors.New("qstash client is nil")
	}
	return newPublisher(client, cfg), nil
}

func newPublisher(client qstashClient, cfg Config) *QStashPublisher {
	return &QStashPublisher{
		client: client,
		destinations: map[contractx.RecordKind]string{
			contractx.KindOrders: strings.TrimSpace(cfg.OrdersDestination),
			contractx.KindLeads:  strings.TrimSpace(cfg.LeadsDestination),
		},
		dedupScope: strings.TrimSpace(cfg.DeduplicationScope),
	}
}

func (p *QStashPublisher) Publish(ctx context.Context, kind contractx.RecordKind, payload any) error {
	dest := p.destinations[kind]
	if dest == "" {
		log.Debug().Str("kind", string(kind)).Msg("notify: no destination, skipping")
		return fmt.Errorf("%w: %s", ErrNoDestination, kind)
	}

	headers := map[string]string{
		"Upstash-Forward-X-Record-Kind": string(kind),
	}
	if id := recordID(payload); id != "" && p.dedupScope != "" {
		headers["Upstash-Deduplication-Id"] = p.dedupScope + "-" + string(kind) + "-" + id
	}

	resp, err := p.client.Publish(ctx, dest, payload, headers)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}

	log.Info().
		Str("kind", string(kind)).
		Str("destination", dest).
		Str("message_id", resp.MessageID).
		Msg("notify: record published")
	return nil
}

type identified interface {
	RecordID() string
}

func recordID(payload any) string {
	if v, ok := payload.(identified); ok {
		return v.RecordID()
	}
	return ""
}
