package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
)

const (
	DefaultTimeout   = 5 * time.Second
	apologyNarration = "Sorry, something went wrong on my end. Could you say that again?"
)

var defaultNarration = map[contractx.ErrorCode]string{
	contractx.CodeNotFound:         "I couldn't find that. Could you check the name and try again?",
	contractx.CodeEmptyCart:        "Your cart is empty. What would you like to add first?",
	contractx.CodeInvalidMode:      "I can help you learn, quiz you, or have you teach it back. Which would you like?",
	contractx.CodeInvalidArgument:  "I didn't quite catch that. Could you say it another way?",
	contractx.CodeNoTopicSelected:  "Let's pick a topic first. Which one would you like to study?",
	contractx.CodeAlreadyFinalized: "Your details are already saved.",
	contractx.CodeUnknownTool:      "Sorry, I can't do that here.",
}

type Option func(*Gateway)

// WithTimeout bounds every tool call attempt. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

type compiledTool struct {
	def    definition
	schema *jsonschema.Schema
}

// Gateway routes tool calls to one session. It validates arguments against the
// tool's declared schema, maps domain failures to codes and narration, and retries
// a transient failure once.
type Gateway struct {
	session *statex.Session
	timeout time.Duration
	tools   map[string]compiledTool
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(s *statex.Session, opts ...Option) (*Gateway, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}

	g := &Gateway{session: s, timeout: DefaultTimeout, tools: map[string]compiledTool{}}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	defs := definitionsFor(s.Variant)
	if len(defs) == 0 {
		return nil, fmt.Errorf("no tools for variant %q", s.Variant)
	}
	for _, d := range defs {
		compiled, err := compileParams(d.name, d.params)
		if err != nil {
			return nil, err
		}
		g.tools[d.name] = compiledTool{def: d, schema: compiled}
	}
	return g, nil
}

// Execute never returns a Go error for domain failures; those are reported in the result.
func (g *Gateway) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	if g == nil {
		return contractx.ToolResult{}, errors.New("nil gateway")
	}

	name := strings.TrimSpace(req.Tool)
	logger := log.With().Str("session_id", g.session.ID).Str("tool", name).Logger()

	tool, ok := g.tools[name]
	if !ok {
		err := fmt.Errorf("%w: %q is not available for %s", contractx.ErrUnknownTool, name, g.session.Variant)
		return failure(name, outcome{}, err), nil
	}

	args, err := normalizeArgs(req.Args)
	if err != nil {
		return failure(name, outcome{}, fmt.Errorf("%w: %v", contractx.ErrInvalidArgument, err)), nil
	}
	if err := tool.schema.Validate(args); err != nil {
		logger.Debug().Err(err).Msg("tool arguments rejected")
		return failure(name, outcome{}, fmt.Errorf("%w: %s", contractx.ErrInvalidArgument, schemaMessage(err))), nil
	}

	var out outcome
	for attempt := 1; attempt <= 2; attempt++ {
		out, err = g.run(ctx, tool.def, args)
		if !errors.Is(err, contractx.ErrTransient) || ctx.Err() != nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("transient tool failure")
	}

	if err != nil {
		code := contractx.CodeOf(err)
		if code == contractx.CodeInternal {
			logger.Error().Err(err).Msg("tool failed")
		} else {
			logger.Info().Err(err).Str("code", string(code)).Msg("tool call rejected")
		}
		return failure(name, out, err), nil
	}

	logger.Debug().Msg("tool executed")
	return contractx.ToolResult{
		Tool:      name,
		OK:        true,
		Result:    out.Result,
		Narration: out.Narration,
	}, nil
}

func (g *Gateway) run(ctx context.Context, def definition, args map[string]any) (outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := def.run(callCtx, g.session, args)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, contractx.ErrTransient) {
		err = fmt.Errorf("%w: %v", contractx.ErrTransient, err)
	}
	return out, err
}

func failure(tool string, out outcome, err error) contractx.ToolResult {
	code := contractx.CodeOf(err)
	res := contractx.ToolResult{
		Tool:   tool,
		Code:   code,
		Result: out.Result,
	}

	if !contractx.Recoverable(err) {
		res.Error = "internal error"
		if code == contractx.CodeTransient {
			res.Error = "temporarily unavailable"
		}
		res.Narration = apologyNarration
		res.Result = nil
		return res
	}

	res.Error = err.Error()
	res.Narration = out.Narration
	if res.Narration == "" {
		res.Narration = defaultNarration[code]
	}
	return res
}

func schemaMessage(err error) string {
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		leaf := verr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if loc == "" {
			return leaf.Message
		}
		return loc + ": " + leaf.Message
	}
	return err.Error()
}
