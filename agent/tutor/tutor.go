package tutor

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

type Mode string

const (
	ModeLearn     Mode = "learn"
	ModeQuiz      Mode = "quiz"
	ModeTeachBack Mode = "teach_back"
)

var modes = []Mode{ModeLearn, ModeQuiz, ModeTeachBack}

// Modes lists the accepted modes in display order.
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ParseMode accepts the three mode names, ignoring case and surrounding space.
func ParseMode(raw string) (Mode, error) {
	want := cases.Fold().String(strings.TrimSpace(raw))
	for _, m := range modes {
		if string(m) == want {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (allowed: learn, quiz, teach_back)", contractx.ErrInvalidMode, raw)
}

// UnknownTopicError lists every valid topic id in catalog order.
type UnknownTopicError struct {
	Requested string
	Available []string
}

func (e *UnknownTopicError) Error() string {
	return fmt.Sprintf("topic %q not found (available: %s)", e.Requested, strings.Join(e.Available, ", "))
}

func (e *UnknownTopicError) Unwrap() error {
	return contractx.ErrNotFound
}

// State is a read-only view of the machine. Topic is nil until a topic is selected.
type State struct {
	TopicID string                 `json:"topic_id,omitempty"`
	Topic   *catalogx.TopicContent `json:"topic,omitempty"`
	Mode    Mode                   `json:"mode"`
}

// Instruction is what the dialogue driver should say for the active mode.
type Instruction struct {
	Mode       Mode   `json:"mode"`
	TopicID    string `json:"topic_id"`
	TopicTitle string `json:"topic_title"`
	Kind       string `json:"kind"`
	Text       string `json:"text"`
}

const (
	KindSummary  = "summary"
	KindQuestion = "question"
	KindExplain  = "explain_prompt"
)

// Machine tracks one session's topic and mode. The topic and its content change together.
type Machine struct {
	content *catalogx.ContentCatalog

	mu    sync.Mutex
	topic *catalogx.TopicContent
	mode  Mode
}

func New(content *catalogx.ContentCatalog) (*Machine, error) {
	if content == nil {
		return nil, errors.New("content catalog is required")
	}
	return &Machine{content: content, mode: ModeLearn}, nil
}

func (m *Machine) SelectTopic(topicID string) (catalogx.TopicContent, error) {
	topic, ok := m.content.Lookup(topicID)
	if !ok {
		return catalogx.TopicContent{}, &UnknownTopicError{Requested: topicID, Available: m.content.IDs()}
	}

	m.mu.Lock()
	m.topic = &topic
	m.mu.Unlock()
	return topic, nil
}

// SetMode switches the mode and returns the matching instruction. On any failure
// the state is left unchanged.
func (m *Machine) SetMode(raw string) (Instruction, error) {
	mode, err := ParseMode(raw)
	if err != nil {
		return Instruction{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.topic == nil {
		return Instruction{}, fmt.Errorf("%w: pick one of %s first", contractx.ErrNoTopicSelected, strings.Join(m.content.IDs(), ", "))
	}
	m.mode = mode
	return instructionFor(mode, *m.topic), nil
}

func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{Mode: m.mode}
	if m.topic != nil {
		topic := *m.topic
		s.TopicID = topic.ID
		s.Topic = &topic
	}
	return s
}

func instructionFor(mode Mode, topic catalogx.TopicContent) Instruction {
	in := Instruction{Mode: mode, TopicID: topic.ID, TopicTitle: topic.Title}
	switch mode {
	case ModeQuiz:
		in.Kind = KindQuestion
		in.Text = topic.SampleQuestion
	case ModeTeachBack:
		in.Kind = KindExplain
		in.Text = fmt.Sprintf("Now it's your turn. Explain %s back to me in your own words, as if you were teaching a friend.", topic.Title)
	default:
		in.Kind = KindSummary
		in.Text = topic.Summary
	}
	return in
}

// ScoringInstruction asks the language model to grade a teach-back. No score is computed here.
type ScoringInstruction struct {
	Explanation string   `json:"explanation"`
	Rubric      []string `json:"rubric"`
	Instruction string   `json:"instruction"`
}

var rubric = []string{
	"accuracy: are the stated facts correct",
	"completeness: are the key ideas of the topic covered",
	"clarity: could a beginner follow the explanation",
}

// EvaluateSubmission does not read or change any Machine.
func EvaluateSubmission(explanation string) (ScoringInstruction, error) {
	text := strings.TrimSpace(explanation)
	if text == "" {
		return ScoringInstruction{}, fmt.Errorf("%w: explanation is empty", contractx.ErrInvalidArgument)
	}
	return ScoringInstruction{
		Explanation: text,
		Rubric:      append([]string(nil), rubric...),
		Instruction: "Score the learner's explanation from 1 to 10 against the rubric, name one thing they got right, and give one concrete suggestion to improve.",
	}, nil
}
