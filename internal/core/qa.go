package core

import (
	"log/slog"
	"strings"

	"promptforge/internal/core/types"
	"promptforge/pkg/api"
)

// AnswerSpan is a located extractive-QA answer. Start is the byte offset of
// the answer within its context, or -1 when the answer could not be
// resolved to a unique position.
type AnswerSpan struct {
	Start int
	Text  string
}

// LocateAnswer searches context for answer. Zero occurrences yield
// AnswerNotFound and more than one yield AnswerAmbiguous; in both cases the
// answer text is kept but the offset is rejected (-1) rather than guessing,
// so downstream training data never carries a wrong position.
func LocateAnswer(context, answer string) (AnswerSpan, []api.Issue) {
	start := strings.Index(context, answer)
	if start < 0 || answer == "" {
		slog.Warn("answer not found in context", "answer", answer)
		return AnswerSpan{Start: -1, Text: answer}, []api.Issue{{Kind: api.AnswerNotFound, Text: answer}}
	}

	if second := strings.Index(context[start+1:], answer); second >= 0 {
		slog.Warn("context contains the answer more than once", "answer", answer)
		return AnswerSpan{Start: -1, Text: answer}, []api.Issue{{Kind: api.AnswerAmbiguous, Text: answer}}
	}

	return AnswerSpan{Start: start, Text: answer}, nil
}

// FlattenAnswers reshapes SQuAD-style nested answers into flat strings,
// keeping the first answer as ground truth for fewshot rendering. Records
// without answers get an empty string.
func FlattenAnswers(ds *types.Dataset, answersColumn string) *types.Dataset {
	out := make([]types.Record, 0, len(ds.Records))
	for _, record := range ds.Records {
		flattened := record.Clone()
		if a, ok := record[answersColumn].(types.Answer); ok && len(a.Text) > 0 {
			flattened[answersColumn] = types.Scalar(a.Text[0])
		} else if _, ok := record[answersColumn].(types.Scalar); !ok {
			flattened[answersColumn] = types.Scalar("")
		}
		out = append(out, flattened)
	}
	return ds.WithRecords(out)
}

// NestAnswers is the inverse reshape: flat answer strings become nested
// answer objects with computed start offsets. Unresolved answers keep their
// text with start -1 and are reported per record.
func NestAnswers(ds *types.Dataset, answersColumn, contextColumn string) (*types.Dataset, []api.Issue) {
	var issues []api.Issue
	out := make([]types.Record, 0, len(ds.Records))

	for i, record := range ds.Records {
		nested := record.Clone()
		answer := ""
		if v, ok := record[answersColumn]; ok {
			answer = v.Render()
		}
		context := ""
		if v, ok := record[contextColumn]; ok {
			context = v.Render()
		}

		span, recordIssues := LocateAnswer(context, answer)
		for _, issue := range recordIssues {
			issue.Record = i
			issues = append(issues, issue)
		}

		nested[answersColumn] = types.Answer{Text: []string{span.Text}, Start: []int{span.Start}}
		out = append(out, nested)
	}

	return ds.WithRecords(out), issues
}
