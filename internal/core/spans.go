package core

import (
	"fmt"
	"log/slog"
	"strings"

	"promptforge/internal/core/types"
	"promptforge/pkg/api"
)

// EncodeSpans converts a BIO-tagged token sequence into a SpanMap grouping
// span texts by entity type. A B-X tag opens a span, immediately following
// I-X tags extend it, and any other tag closes it. An I-X with no open span
// of type X also opens a new span, which tolerates the slightly malformed
// tag sequences LLM-labeled data tends to contain.
//
// The returned label list is the universe of entity types present, prefix
// stripped, in first-occurrence order.
func EncodeSpans(tokens, tags []string) (*types.SpanMap, []string, error) {
	if len(tokens) != len(tags) {
		return nil, nil, fmt.Errorf("token/tag count mismatch: %d vs %d", len(tokens), len(tags))
	}

	spans := types.NewSpanMap()

	var current []string
	currentType := ""

	flush := func() {
		if currentType != "" {
			spans.Add(currentType, strings.Join(current, " "))
		}
		current = nil
		currentType = ""
	}

	for i, tag := range tags {
		switch {
		case strings.HasPrefix(tag, "B-"):
			flush()
			currentType = tag[2:]
			current = []string{tokens[i]}
		case strings.HasPrefix(tag, "I-") && tag[2:] == currentType:
			current = append(current, tokens[i])
		case strings.HasPrefix(tag, "I-"):
			flush()
			currentType = tag[2:]
			current = []string{tokens[i]}
		default:
			flush()
		}
	}
	flush()

	return spans, spans.Labels(), nil
}

// DecodeSpans parses model output of the form "LABEL -> text1, text2" (one
// label per line) back into a BIO tag sequence over the original tokens.
//
// Each declared span text is searched for as a contiguous token run whose
// whitespace-joined surface form equals the span text (case-insensitive).
// A uniquely located span is tagged B-/I-; a span with no match is dropped
// and reported as SpanNotFound; a span matching more than once is dropped
// entirely and reported as AmbiguousSpan, since a wrong assignment corrupts
// training data more than an omission does.
func DecodeSpans(response string, tokens []string) ([]string, []api.Issue) {
	spans, issues := parseSpanLines(response)
	tags, assignIssues := assignSpans(spans, tokens)
	return tags, append(issues, assignIssues...)
}

// DecodeSpanMap is the structured-input variant of DecodeSpans.
func DecodeSpanMap(m *types.SpanMap, tokens []string) ([]string, []api.Issue) {
	var spans []spanDecl
	for _, label := range m.Labels() {
		for _, text := range m.Spans(label) {
			spans = append(spans, spanDecl{label: label, text: text})
		}
	}
	return assignSpans(spans, tokens)
}

type spanDecl struct {
	label string
	text  string
}

func parseSpanLines(response string) ([]spanDecl, []api.Issue) {
	var spans []spanDecl
	var issues []api.Issue

	for _, line := range strings.Split(response, types.LabelSeparator) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, rest, found := strings.Cut(line, types.LabelSpanSeparator)
		if !found {
			slog.Warn("skipping malformed span line", "line", line)
			issues = append(issues, api.Issue{Kind: api.MalformedSpanLine, Text: line})
			continue
		}
		label = strings.TrimSpace(label)
		for _, text := range strings.Split(rest, types.SpanSeparator) {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			spans = append(spans, spanDecl{label: label, text: text})
		}
	}

	return spans, issues
}

func assignSpans(spans []spanDecl, tokens []string) ([]string, []api.Issue) {
	tags := make([]string, len(tokens))
	for i := range tags {
		tags[i] = "O"
	}

	var issues []api.Issue

	for _, span := range spans {
		matches := findTokenRuns(tokens, span.text)

		switch len(matches) {
		case 1:
			start, end := matches[0][0], matches[0][1]
			if !allOutside(tags, start, end) {
				issues = append(issues, api.Issue{
					Kind:   api.AmbiguousSpan,
					Label:  span.label,
					Text:   span.text,
					Detail: "overlaps a previously assigned span",
				})
				continue
			}
			tags[start] = "B-" + span.label
			for i := start + 1; i < end; i++ {
				tags[i] = "I-" + span.label
			}
		case 0:
			slog.Warn("span text not found in tokens", "label", span.label, "text", span.text)
			issues = append(issues, api.Issue{Kind: api.SpanNotFound, Label: span.label, Text: span.text})
		default:
			slog.Warn("span text matches multiple token runs", "label", span.label, "text", span.text, "matches", len(matches))
			issues = append(issues, api.Issue{
				Kind:   api.AmbiguousSpan,
				Label:  span.label,
				Text:   span.text,
				Detail: fmt.Sprintf("%d occurrences", len(matches)),
			})
		}
	}

	return tags, issues
}

// findTokenRuns returns the [start, end) bounds of every contiguous token
// run whose joined surface form equals text, ignoring case. Quadratic in
// the worst case, which is fine at sentence scale.
func findTokenRuns(tokens []string, text string) [][2]int {
	want := strings.ToLower(strings.TrimSpace(text))
	if want == "" {
		return nil
	}

	var matches [][2]int
	for start := range tokens {
		joined := ""
		for end := start; end < len(tokens); end++ {
			if end == start {
				joined = strings.ToLower(tokens[end])
			} else {
				joined += " " + strings.ToLower(tokens[end])
			}
			if len(joined) > len(want) {
				break
			}
			if joined == want {
				matches = append(matches, [2]int{start, end + 1})
				break
			}
		}
	}
	return matches
}

func allOutside(tags []string, start, end int) bool {
	for i := start; i < end; i++ {
		if tags[i] != "O" {
			return false
		}
	}
	return true
}
