package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	assistantx "github.com/tanpawarit/Chative-Voice-Tools/agent/agents/assistant"
	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	leadx "github.com/tanpawarit/Chative-Voice-Tools/agent/lead"
	llmx "github.com/tanpawarit/Chative-Voice-Tools/agent/llm"
	notifyx "github.com/tanpawarit/Chative-Voice-Tools/agent/notify"
	orderx "github.com/tanpawarit/Chative-Voice-Tools/agent/order"
	promptx "github.com/tanpawarit/Chative-Voice-Tools/agent/prompt"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Tools/agent/tool"
	configx "github.com/tanpawarit/Chative-Voice-Tools/pkg/config"
	_ "github.com/tanpawarit/Chative-Voice-Tools/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/Chative-Voice-Tools/pkg/qstash"
)

const quitCommand = "/quit"

type AppConfig struct {
	Variant       string        `default:"shop"`
	SessionID     string        `split_words:"true" default:"local"`
	DataDir       string        `split_words:"true" default:"./data"`
	StoreName     string        `split_words:"true" default:"Jacferdi Studios"`
	Currency      string        `default:"INR"`
	StrictSizes   bool          `split_words:"true" default:"true"`
	ToolTimeout   time.Duration `split_words:"true" default:"5s"`
	RecordBackend string        `split_words:"true" default:"file"`
	MaxToolRounds int           `split_words:"true" default:"5"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("voice tools exited")
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	appCfg := configx.MustNew[AppConfig]("APP")
	variant := contractx.Variant(strings.ToLower(strings.TrimSpace(appCfg.Variant)))
	if !variant.Valid() {
		return fmt.Errorf("%w: %q", statex.ErrInvalidVariant, appCfg.Variant)
	}

	backend, closeBackend, err := newBackend(ctx, appCfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := recordx.NewStore(backend)
	if err != nil {
		return err
	}

	publisher := newPublisher()

	orderOpts := []orderx.Option{orderx.WithCurrency(appCfg.Currency)}
	leadOpts := []leadx.LedgerOption{}
	if publisher != nil {
		orderOpts = append(orderOpts, orderx.WithPublisher(publisher))
		leadOpts = append(leadOpts, leadx.WithPublisher(publisher))
	}

	orders, err := orderx.NewLedger(ctx, store, orderOpts...)
	if err != nil {
		return err
	}
	leads, err := leadx.NewLedger(ctx, store, leadOpts...)
	if err != nil {
		return err
	}

	registry, err := statex.NewRegistry(statex.Deps{
		Store:       store,
		Catalog:     catalogx.New(catalogx.DefaultItems()),
		Content:     catalogx.NewContent(catalogx.DefaultTopics()),
		Orders:      orders,
		Leads:       leads,
		StoreName:   appCfg.StoreName,
		StrictSizes: appCfg.StrictSizes,
	})
	if err != nil {
		return err
	}

	// A single local session keeps the plain cart document.
	session, err := registry.Open(ctx, variant, statex.WithSessionID(appCfg.SessionID), statex.WithCartScope(""))
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(context.WithoutCancel(ctx), session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("close session failed")
		}
	}()

	tools, gateway, err := toolx.BuildForSession(session, toolx.WithTimeout(appCfg.ToolTimeout))
	if err != nil {
		return err
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		return err
	}
	routerCfg := llmCfg.OpenRouterFor(variant)
	chatModel, err := routerCfg.New(ctx)
	if err != nil {
		return err
	}

	assistant, err := assistantx.New(ctx, chatModel, tools, gateway, assistantx.Config{
		SystemPrompt:  promptx.LoadPromptSet().For(variant, appCfg.StoreName),
		MaxToolRounds: appCfg.MaxToolRounds,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("variant", string(variant)).
		Str("session_id", session.ID).
		Str("model", routerCfg.Model).
		Str("backend", appCfg.RecordBackend).
		Msg("session ready")

	return repl(ctx, in, out, assistant)
}

func repl(ctx context.Context, in io.Reader, out io.Writer, assistant *assistantx.Assistant) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == quitCommand:
			return nil
		case line == "":
			fmt.Fprint(out, "> ")
			continue
		}

		reply, err := assistant.HandleTurn(ctx, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			reply = "Sorry, something went wrong on my end. Could you say that again?"
		}
		fmt.Fprintf(out, "%s\n> ", reply)
	}
	return scanner.Err()
}

func newBackend(ctx context.Context, appCfg *AppConfig) (recordx.Backend, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(appCfg.RecordBackend)) {
	case "", "file":
		b, err := recordx.NewFileBackend(appCfg.DataDir)
		return b, noop, err
	case "upstash":
		cfg := configx.MustNew[recordx.UpstashRedisConfig]("UPSTASH_REDIS")
		b, err := recordx.NewUpstashBackend(*cfg)
		return b, noop, err
	case "postgres":
		cfg := configx.MustNew[recordx.PostgresConfig]("POSTGRES")
		b, err := recordx.NewPostgresBackend(ctx, *cfg)
		if err != nil {
			return nil, noop, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("close postgres backend failed")
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown record backend %q", appCfg.RecordBackend)
	}
}

// newPublisher returns nil unless NOTIFY_ENABLED is set.
func newPublisher() contractx.Publisher {
	notifyCfg := configx.MustNew[notifyx.Config]("NOTIFY")
	if !notifyCfg.Enabled {
		return nil
	}
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	publisher, err := notifyx.NewQStashPublisher(qstashx.MustNew(*qstashCfg), *notifyCfg)
	if err != nil {
		log.Warn().Err(err).Msg("notifications disabled")
		return nil
	}
	return publisher
}
