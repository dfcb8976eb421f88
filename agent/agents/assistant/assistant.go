package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

const DefaultMaxToolRounds = 5

var (
	ErrEmptyTurn         = errors.New("turn text is empty")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrTooManyToolRounds = errors.New("too many tool rounds")
)

type Config struct {
	SystemPrompt  string
	MaxToolRounds int
}

type TurnInput struct {
	Text string
}

type TurnOutput struct {
	Reply       string
	ToolResults []contractx.ToolResult
}

type turnState struct {
	text    string
	reply   string
	results []contractx.ToolResult
}

// Assistant drives one session's dialogue: it sends the conversation to a
// tool-calling model, runs the tool calls it asks for through the gateway and
// feeds the results back until the model answers in plain text.
type Assistant struct {
	gateway       contractx.ToolGateway
	modelRunner   compose.Runnable[[]*schema.Message, *schema.Message]
	turnRunner    compose.Runnable[TurnInput, TurnOutput]
	systemPrompt  string
	maxToolRounds int

	mu      sync.Mutex
	history []*schema.Message
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
	gateway contractx.ToolGateway,
	cfg Config,
) (*Assistant, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if gateway == nil {
		return nil, errors.New("tool gateway is required")
	}

	bound, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", ErrModelInvoke, err)
	}
	modelRunner, err := compileModelGraph(ctx, bound)
	if err != nil {
		return nil, err
	}

	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}

	a := &Assistant{
		gateway:       gateway,
		modelRunner:   modelRunner,
		systemPrompt:  strings.TrimSpace(cfg.SystemPrompt),
		maxToolRounds: rounds,
	}

	turnRunner, err := a.compileTurnGraph(ctx)
	if err != nil {
		return nil, err
	}
	a.turnRunner = turnRunner
	return a, nil
}

// HandleTurn answers one user utterance. Turns are serialized per Assistant.
func (a *Assistant) HandleTurn(ctx context.Context, text string) (string, error) {
	out, err := a.turnRunner.Invoke(ctx, TurnInput{Text: text})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// History returns the conversation so far, excluding the system prompt.
func (a *Assistant) History() []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*schema.Message(nil), a.history...)
}

func validateTurn(in TurnInput) (*turnState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyTurn
	}
	return &turnState{text: text}, nil
}

func (a *Assistant) runToolLoop(ctx context.Context, st *turnState) (*turnState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	turn := []*schema.Message{schema.UserMessage(st.text)}
	// committed is the prefix of turn whose tool calls have all been answered.
	// Tools may have changed state, so that prefix is kept even if the turn fails.
	committed := 0
	fail := func(err error) (*turnState, error) {
		if committed > 0 {
			a.history = append(a.history, turn[:committed]...)
		}
		return nil, err
	}

	for round := 0; ; round++ {
		reply, err := a.modelRunner.Invoke(ctx, a.messages(turn))
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrModelInvoke, err))
		}

		if len(reply.ToolCalls) == 0 {
			turn = append(turn, reply)
			st.reply = strings.TrimSpace(reply.Content)
			break
		}
		if round >= a.maxToolRounds {
			return fail(fmt.Errorf("%w: model still calling tools after %d rounds", ErrTooManyToolRounds, a.maxToolRounds))
		}
		turn = append(turn, reply)

		for _, call := range reply.ToolCalls {
			res := a.execute(ctx, call)
			st.results = append(st.results, res)

			payload, err := json.Marshal(res)
			if err != nil {
				payload = []byte(fmt.Sprintf(`{"tool":%q,"ok":false,"code":%q}`, call.Function.Name, contractx.CodeInternal))
			}
			turn = append(turn, schema.ToolMessage(string(payload), call.ID))
		}
		committed = len(turn)
	}

	a.history = append(a.history, turn...)
	return st, nil
}

func (a *Assistant) execute(ctx context.Context, call schema.ToolCall) contractx.ToolResult {
	name := call.Function.Name
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.ToolResult{
				Tool:  name,
				Code:  contractx.CodeInvalidArgument,
				Error: fmt.Sprintf("arguments are not a JSON object: %v", err),
			}
		}
	}

	res, err := a.gateway.Execute(ctx, contractx.ToolRequest{Tool: name, Args: args})
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("tool gateway failed")
		return contractx.ToolResult{
			Tool:      name,
			Code:      contractx.CodeInternal,
			Error:     "internal error",
			Narration: "Sorry, something went wrong on my end. Could you say that again?",
		}
	}
	return res
}

func (a *Assistant) messages(turn []*schema.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(a.history)+len(turn)+1)
	if a.systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(a.systemPrompt))
	}
	msgs = append(msgs, a.history...)
	return append(msgs, turn...)
}

// finalizeReply falls back to the last tool narration when the model ends a
// tool round without saying anything.
func finalizeReply(st *turnState) (TurnOutput, error) {
	reply := st.reply
	if reply == "" {
		for i := len(st.results) - 1; i >= 0; i-- {
			if n := strings.TrimSpace(st.results[i].Narration); n != "" {
				reply = n
				break
			}
		}
	}
	if reply == "" {
		return TurnOutput{}, fmt.Errorf("%w: model returned an empty reply", ErrModelInvoke)
	}
	return TurnOutput{Reply: reply, ToolResults: st.results}, nil
}
