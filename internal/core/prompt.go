package core

import (
	"fmt"
	"strings"

	"promptforge/internal/core/types"
)

// optionsPlaceholder is the slot inside a task description that gets filled
// with the comma-joined label options.
const optionsPlaceholder = "{}"

// PromptTemplate renders records into flat prompt text. It is immutable
// once constructed: the task description, target column, fewshot-input
// columns, and default label options are fixed, and identical render
// arguments always produce byte-identical output.
type PromptTemplate struct {
	taskDescription string
	target          string
	fewshotColumns  []string
	labelOptions    []string
}

func NewPromptTemplate(taskDescription, target string, fewshotColumns, labelOptions []string) (*PromptTemplate, error) {
	if target == "" {
		return nil, fmt.Errorf("target column must not be empty")
	}
	for _, col := range fewshotColumns {
		if col == target {
			return nil, fmt.Errorf("target column '%s' must not be listed as a fewshot example column", target)
		}
	}
	if strings.Count(taskDescription, optionsPlaceholder) > 1 {
		return nil, fmt.Errorf("task description contains more than one '%s' placeholder", optionsPlaceholder)
	}

	return &PromptTemplate{
		taskDescription: taskDescription,
		target:          target,
		fewshotColumns:  append([]string(nil), fewshotColumns...),
		labelOptions:    append([]string(nil), labelOptions...),
	}, nil
}

func (t *PromptTemplate) Target() string { return t.target }

func (t *PromptTemplate) FewshotColumns() []string {
	return append([]string(nil), t.fewshotColumns...)
}

// Render produces the prompt text for one record. labelOptions override the
// template's own options, letting callers swap in an expanded set without
// rebuilding the template. With a nil example the target field is left
// empty: that is the generation slot the LLM completes.
func (t *PromptTemplate) Render(labelOptions []string, example types.Record) string {
	if labelOptions == nil {
		labelOptions = t.labelOptions
	}

	var b strings.Builder

	description := t.taskDescription
	if len(labelOptions) > 0 {
		description = strings.Replace(description, optionsPlaceholder, strings.Join(labelOptions, ", "), 1)
	}
	if description != "" {
		b.WriteString(description)
		b.WriteString("\n\n")
	}

	for _, col := range t.fewshotColumns {
		b.WriteString(col)
		b.WriteString(": ")
		if example != nil {
			if v, ok := example[col]; ok {
				b.WriteString(v.Render())
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(t.target)
	b.WriteString(": ")
	if example != nil {
		if v, ok := example[t.target]; ok {
			b.WriteString(v.Render())
		}
	}

	return b.String()
}

// String returns the inference template: the structural skeleton with a
// literal {} placeholder and an empty target field, shown before any data
// is bound. The empty non-nil slice suppresses the fallback to the
// template's own options so the placeholder stays unsubstituted.
func (t *PromptTemplate) String() string {
	return t.Render([]string{}, nil)
}
