package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `split_words:"true" default:"voice-tools"`
	Caller       bool   `split_words:"true" default:"true"`

	// Output defaults to stdout for JSON and stderr for the console writer,
	// so REPL replies on stdout stay clean when pretty logs are on.
	Output io.Writer `ignored:"true"`
}

var DefaultConfig = &Config{
	Service: "voice-tools",
	Caller:  true,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func New(opts ...Config) zerolog.Logger {
	conf := safe(opts...)

	var logger zerolog.Logger
	if conf.PrettyFormat {
		out := conf.Output
		if out == nil {
			out = os.Stderr
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		out := conf.Output
		if out == nil {
			out = os.Stdout
		}
		logger = zerolog.New(out).With().Timestamp().Logger()
	}

	if conf.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := logger.With()
	if svc := strings.TrimSpace(conf.Service); svc != "" {
		ctx = ctx.Str("service", svc)
	}
	if conf.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Stack().Logger()
}

func Init(opts ...Config) {
	log.Logger = New(opts...)
}
