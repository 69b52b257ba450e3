package types

import (
	"strconv"
	"strings"
)

// Value is the field type stored in a Record. Dataset columns hold
// heterogeneous data (plain strings, label ids, pre-split token lists,
// grouped entity spans, QA answers), so each variant knows how to render
// itself into the flat text used inside a prompt.
type Value interface {
	Render() string
}

type Scalar string

func (s Scalar) Render() string { return string(s) }

type Int int

func (i Int) Render() string { return strconv.Itoa(int(i)) }

// TokenList holds pre-split tokens; rendering joins them back into the
// surface sentence.
type TokenList []string

func (t TokenList) Render() string { return strings.Join(t, " ") }

// IntList holds per-token label ids before they are mapped to names.
type IntList []int

func (l IntList) Render() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

// Answer is a SQuAD-style answer: parallel lists of answer texts and their
// character start offsets within the context.
type Answer struct {
	Text  []string `json:"text"`
	Start []int    `json:"start"`
}

func (a Answer) Render() string {
	if len(a.Text) == 0 {
		return ""
	}
	return a.Text[0]
}
