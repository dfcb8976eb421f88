package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	statex "github.com/tanpawarit/Chative-Voice-Tools/agent/state"
	tutorx "github.com/tanpawarit/Chative-Voice-Tools/agent/tutor"
)

type selectTopicArgs struct {
	TopicID string `mapstructure:"topic_id"`
}

type setModeArgs struct {
	Mode string `mapstructure:"mode"`
}

type evaluateArgs struct {
	Explanation string `mapstructure:"user_explanation"`
}

type TopicSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type TopicList struct {
	Topics []TopicSummary `json:"topics"`
}

type TopicSelected struct {
	TopicID string `json:"topic_id"`
	Title   string `json:"title"`
}

type TopicMissing struct {
	Requested string   `json:"requested"`
	Available []string `json:"available"`
}

func tutorDefinitions() []definition {
	modes := make([]string, 0, len(tutorx.Modes()))
	for _, m := range tutorx.Modes() {
		modes = append(modes, string(m))
	}

	return []definition{
		{
			name: ToolListTopics,
			desc: "List the topics available to study.",
			run:  listTopics,
		},
		{
			name: ToolSelectTopic,
			desc: "Choose the topic to study.",
			params: map[string]*schema.ParameterInfo{
				"topic_id": {Type: schema.String, Desc: "Topic id, e.g. phishing", Required: true},
			},
			run: selectTopic,
		},
		{
			name: ToolSetLearningMode,
			desc: "Switch between learning, being quizzed and teaching the topic back.",
			params: map[string]*schema.ParameterInfo{
				"mode": {Type: schema.String, Desc: "learn, quiz or teach_back", Enum: modes, Required: true},
			},
			run: setLearningMode,
		},
		{
			name: ToolEvaluateTeach,
			desc: "Get grading instructions for the user's teach-back explanation.",
			params: map[string]*schema.ParameterInfo{
				"user_explanation": {Type: schema.String, Desc: "The user's explanation, verbatim", Required: true},
			},
			run: evaluateTeaching,
		},
		{
			name: ToolGetTutorState,
			desc: "Get the current topic and mode.",
			run:  getTutorState,
		},
	}
}

func listTopics(_ context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	topics := s.Content.Topics()
	out := TopicList{Topics: make([]TopicSummary, len(topics))}
	titles := make([]string, len(topics))
	for i, t := range topics {
		out.Topics[i] = TopicSummary{ID: t.ID, Title: t.Title}
		titles[i] = t.Title
	}
	return outcome{
		Result:    out,
		Narration: fmt.Sprintf("We can study %s. Which would you like?", strings.Join(titles, ", ")),
	}, nil
}

func selectTopic(_ context.Context, s *statex.Session, args map[string]any) (outcome, error) {
	var in selectTopicArgs
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}

	topic, err := s.Tutor.SelectTopic(in.TopicID)
	if err != nil {
		var unknown *tutorx.UnknownTopicError
		if errors.As(err, &unknown) {
			return outcome{
				Result:    TopicMissing{Requested: unknown.Requested, Available: unknown.Available},
				Narration: fmt.Sprintf("I don't have a topic called %s. Available topics are: %s.", unknown.Requested, strings.Join(unknown.Available, ", ")),
			}, err
		}
		return outcome{}, err
	}
	return outcome{
		Result:    TopicSelected{TopicID: topic.ID, Title: topic.Title},
		Narration: fmt.Sprintf("Great, let's study %s. Would you like to learn, take a quiz, or teach it back to me?", topic.Title),
	}, nil
}

func setLearningMode(_ context.Context, s *statex.Session, args map[string]any) (outcome, error) {
	var in setModeArgs
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}

	instruction, err := s.Tutor.SetMode(in.Mode)
	if err != nil {
		return outcome{}, err
	}
	return outcome{Result: instruction, Narration: instruction.Text}, nil
}

func evaluateTeaching(_ context.Context, _ *statex.Session, args map[string]any) (outcome, error) {
	var in evaluateArgs
	if err := decodeArgs(args, &in); err != nil {
		return outcome{}, err
	}

	scoring, err := tutorx.EvaluateSubmission(in.Explanation)
	if err != nil {
		return outcome{}, err
	}
	return outcome{Result: scoring, Narration: scoring.Instruction}, nil
}

func getTutorState(_ context.Context, s *statex.Session, _ map[string]any) (outcome, error) {
	state := s.Tutor.Snapshot()
	if state.Topic == nil {
		return outcome{Result: state, Narration: "We haven't picked a topic yet."}, nil
	}
	return outcome{
		Result:    state,
		Narration: fmt.Sprintf("We're on %s in %s mode.", topicTitle(state.Topic), state.Mode),
	}, nil
}

func topicTitle(t *catalogx.TopicContent) string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}
