package types

import "strings"

// Separators are fixed for encoding the prompt and decoding the output of
// the LLM.
const (
	LabelSeparator     = "\n"
	LabelSpanSeparator = "->"
	SpanSeparator      = ", "
)

// SpanMap groups entity span texts by label, keeping labels in
// first-occurrence order and spans in token order within each label.
type SpanMap struct {
	labels []string
	spans  map[string][]string
}

func NewSpanMap() *SpanMap {
	return &SpanMap{spans: make(map[string][]string)}
}

func (m *SpanMap) Add(label, text string) {
	if _, ok := m.spans[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.spans[label] = append(m.spans[label], text)
}

// Labels returns the label names in first-occurrence order.
func (m *SpanMap) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m *SpanMap) Spans(label string) []string {
	return m.spans[label]
}

func (m *SpanMap) Len() int { return len(m.labels) }

// Render produces one "LABEL -> text1, text2" line per label. Labels with
// no spans never appear because Add is the only way to introduce one.
func (m *SpanMap) Render() string {
	lines := make([]string, 0, len(m.labels))
	for _, label := range m.labels {
		lines = append(lines, label+" "+LabelSpanSeparator+" "+strings.Join(m.spans[label], SpanSeparator))
	}
	return strings.Join(lines, LabelSeparator)
}
