package tutor

import (
	"errors"
	"reflect"
	"testing"

	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := New(catalogx.NewContent(catalogx.DefaultTopics()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	got := newMachine(t).Snapshot()
	if got.Mode != ModeLearn || got.Topic != nil || got.TopicID != "" {
		t.Fatalf("Snapshot() = %+v, want learn with no topic", got)
	}
}

func TestSelectTopicIgnoresCase(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	topic, err := m.SelectTopic("PHISHING")
	if err != nil {
		t.Fatalf("SelectTopic() error = %v", err)
	}
	if topic.ID != "phishing" {
		t.Fatalf("SelectTopic() id = %q, want phishing", topic.ID)
	}

	s := m.Snapshot()
	if s.TopicID != "phishing" || s.Topic == nil || s.Topic.ID != s.TopicID {
		t.Fatalf("Snapshot() = %+v, topic and content out of sync", s)
	}
}

func TestSelectUnknownTopicListsAvailable(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	if _, err := m.SelectTopic("mfa"); err != nil {
		t.Fatalf("SelectTopic(mfa) error = %v", err)
	}

	_, err := m.SelectTopic("ransomware")
	var unknown *UnknownTopicError
	if !errors.As(err, &unknown) {
		t.Fatalf("SelectTopic() error = %v, want *UnknownTopicError", err)
	}
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("SelectTopic() error = %v, want ErrNotFound", err)
	}
	if want := []string{"phishing", "passwords", "mfa"}; !reflect.DeepEqual(unknown.Available, want) {
		t.Fatalf("Available = %v, want %v", unknown.Available, want)
	}
	if got := m.Snapshot().TopicID; got != "mfa" {
		t.Fatalf("TopicID after failed select = %q, want mfa", got)
	}
}

func TestSetModeWithoutTopic(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	_, err := m.SetMode("quiz")
	if !errors.Is(err, contractx.ErrNoTopicSelected) {
		t.Fatalf("SetMode() error = %v, want ErrNoTopicSelected", err)
	}
	if got := m.Snapshot().Mode; got != ModeLearn {
		t.Fatalf("Mode = %q, want learn", got)
	}
}

func TestSetModeInstructions(t *testing.T) {
	t.Parallel()

	topics := catalogx.DefaultTopics()
	cases := []struct {
		raw      string
		mode     Mode
		kind     string
		wantText string
	}{
		{"learn", ModeLearn, KindSummary, topics[1].Summary},
		{"QUIZ", ModeQuiz, KindQuestion, topics[1].SampleQuestion},
		{" teach_back ", ModeTeachBack, KindExplain, "Now it's your turn. Explain Password Hygiene back to me in your own words, as if you were teaching a friend."},
	}

	for _, tc := range cases {
		m := newMachine(t)
		if _, err := m.SelectTopic("passwords"); err != nil {
			t.Fatalf("SelectTopic() error = %v", err)
		}
		in, err := m.SetMode(tc.raw)
		if err != nil {
			t.Fatalf("SetMode(%q) error = %v", tc.raw, err)
		}
		if in.Mode != tc.mode || in.Kind != tc.kind || in.Text != tc.wantText || in.TopicID != "passwords" {
			t.Fatalf("SetMode(%q) = %+v", tc.raw, in)
		}
		if got := m.Snapshot().Mode; got != tc.mode {
			t.Fatalf("Mode = %q, want %q", got, tc.mode)
		}
	}
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	m := newMachine(t)
	if _, err := m.SelectTopic("phishing"); err != nil {
		t.Fatalf("SelectTopic() error = %v", err)
	}
	if _, err := m.SetMode("quiz"); err != nil {
		t.Fatalf("SetMode(quiz) error = %v", err)
	}

	_, err := m.SetMode("lecture")
	if !errors.Is(err, contractx.ErrInvalidMode) {
		t.Fatalf("SetMode(lecture) error = %v, want ErrInvalidMode", err)
	}
	if got := m.Snapshot().Mode; got != ModeQuiz {
		t.Fatalf("Mode = %q, want quiz", got)
	}
}

func TestEvaluateSubmission(t *testing.T) {
	t.Parallel()

	if _, err := EvaluateSubmission("   "); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("EvaluateSubmission(blank) error = %v, want ErrInvalidArgument", err)
	}

	got, err := EvaluateSubmission(" Phishing tricks you into trusting a fake sender. ")
	if err != nil {
		t.Fatalf("EvaluateSubmission() error = %v", err)
	}
	if got.Explanation != "Phishing tricks you into trusting a fake sender." || len(got.Rubric) != 3 || got.Instruction == "" {
		t.Fatalf("EvaluateSubmission() = %+v", got)
	}
}
