package catalog

import "strings"

type TopicContent struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SampleQuestion string `json:"sample_question"`
}

// ContentCatalog holds the tutor topics in fixed declaration order.
type ContentCatalog struct {
	topics []TopicContent
}

func NewContent(topics []TopicContent) *ContentCatalog {
	return &ContentCatalog{topics: append([]TopicContent(nil), topics...)}
}

// Lookup matches id case-insensitively against topic identifiers.
func (c *ContentCatalog) Lookup(id string) (TopicContent, bool) {
	want := fold(strings.TrimSpace(id))
	if want == "" {
		return TopicContent{}, false
	}
	for _, t := range c.topics {
		if fold(t.ID) == want {
			return t, true
		}
	}
	return TopicContent{}, false
}

func (c *ContentCatalog) IDs() []string {
	ids := make([]string, len(c.topics))
	for i, t := range c.topics {
		ids[i] = t.ID
	}
	return ids
}

func (c *ContentCatalog) Topics() []TopicContent {
	return append([]TopicContent(nil), c.topics...)
}
