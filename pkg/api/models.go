package api

import (
	"github.com/google/uuid"
)

// IssueKind identifies a record-local, non-fatal problem encountered while
// converting labels or parsing a model response. Issues are collected and
// reported; they never abort a generation run.
type IssueKind string

const (
	UnknownLabelID       IssueKind = "unknown_label_id"
	SpanNotFound         IssueKind = "span_not_found"
	AmbiguousSpan        IssueKind = "ambiguous_span"
	MalformedSpanLine    IssueKind = "malformed_span_line"
	ClassUnderflow       IssueKind = "class_underflow"
	InsufficientPoolSize IssueKind = "insufficient_pool_size"
	AnswerNotFound       IssueKind = "answer_not_found"
	AnswerAmbiguous      IssueKind = "answer_ambiguous"
)

// Record indexes into the input dataset unless Pool is set, in which case
// it indexes into the fewshot pool the issue was raised for.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Record int       `json:"record,omitempty"`
	Pool   bool      `json:"pool,omitempty"`
	Label  string    `json:"label,omitempty"`
	Text   string    `json:"text,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// GenerationReport summarizes a single generation run: how many prompt calls
// were issued and every issue that degraded an individual record.
type GenerationReport struct {
	RunId        uuid.UUID `json:"run_id"`
	PromptCalls  int       `json:"prompt_calls"`
	Records      int       `json:"records"`
	LabelOptions []string  `json:"label_options,omitempty"`
	Issues       []Issue   `json:"issues,omitempty"`
}
