package gen

import (
	"strings"
	"sync"
	"testing"

	"promptforge/internal/core"
	"promptforge/internal/core/types"
	"promptforge/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu       sync.Mutex
	response string
	prompts  []string
}

func (f *fakeLLM) Generate(systemPrompt, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

func classificationInput() *types.Dataset {
	return &types.Dataset{
		Columns:  []string{"text"},
		Features: map[string]map[int]string{"label": {0: "neg", 1: "pos"}},
		Records: []types.Record{
			{"text": types.Scalar("what a film")},
			{"text": types.Scalar("terrible acting")},
			{"text": types.Scalar("never again")},
		},
	}
}

func classificationPool() *types.Dataset {
	return &types.Dataset{
		Columns:  []string{"text", "label"},
		Features: map[string]map[int]string{"label": {0: "neg", 1: "pos"}},
		Records: []types.Record{
			{"text": types.Scalar("loved it"), "label": types.Int(1)},
			{"text": types.Scalar("brilliant"), "label": types.Int(1)},
			{"text": types.Scalar("awful"), "label": types.Int(0)},
		},
	}
}

func TestGenerateClassification(t *testing.T) {
	llm := &fakeLLM{response: "pos"}
	generator := NewGenerator(llm, Options{
		Task:                         TaskClassification,
		GenerateDataForColumn:        "label",
		FewshotExampleColumns:        []string{"text"},
		FewshotExamplesPerClass:      1,
		FewshotLabelSamplingStrategy: core.StrategyStratified,
		FewshotSamplingColumn:        "label",
		MaxPromptCalls:               2,
		ReturnLabelOptions:           true,
		Seed:                         7,
	})

	out, report, err := generator.Generate(classificationInput(), classificationPool())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PromptCalls)
	assert.Equal(t, []string{"neg", "pos"}, report.LabelOptions)
	require.Len(t, out.Records, 2)
	for _, record := range out.Records {
		assert.Equal(t, types.Scalar("pos"), record["label"])
	}

	require.Len(t, llm.prompts, 2)
	for _, prompt := range llm.prompts {
		// label options filled into the task description
		assert.Contains(t, prompt, "neg, pos")
		// one fewshot per class, labels rendered as names
		assert.Contains(t, prompt, "label: neg")
		assert.Contains(t, prompt, "label: pos")
		// the row being completed ends with the empty generation slot
		assert.True(t, strings.HasSuffix(prompt, "label: "))
	}
}

func TestGenerateTokenLabeling(t *testing.T) {
	input := &types.Dataset{
		Columns: []string{"tokens"},
		Records: []types.Record{
			{"tokens": types.TokenList{"EU", "rejects", "German", "call"}},
		},
	}
	pool := &types.Dataset{
		Columns: []string{"tokens", "entities"},
		Records: []types.Record{
			{
				"tokens":   types.TokenList{"BBC", "reported", "it"},
				"entities": types.TokenList{"B-ORG", "O", "O"},
			},
		},
	}

	llm := &fakeLLM{response: "ORG -> EU\nMISC -> German"}
	generator := NewGenerator(llm, Options{
		Task:                    TaskTokenLabeling,
		GenerateDataForColumn:   "entities",
		FewshotExampleColumns:   []string{"tokens"},
		FewshotExamplesPerClass: 1,
		MaxPromptCalls:          5,
		Seed:                    1,
	})

	out, report, err := generator.Generate(input, pool)
	require.NoError(t, err)
	require.Empty(t, report.Issues)

	require.Len(t, out.Records, 1)
	assert.Equal(t, types.TokenList{"B-ORG", "O", "B-MISC", "O"}, out.Records[0]["entities"])

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "tokens: BBC reported it")
	assert.Contains(t, llm.prompts[0], "entities: ORG -> BBC")
}

func TestGenerateTokenLabelingDerivesLabelOptions(t *testing.T) {
	// the pool carries textual BIO tags and no label options or feature
	// schema are configured; the entity types observed while encoding the
	// pool must fill the task description's placeholder
	input := &types.Dataset{
		Columns: []string{"tokens"},
		Records: []types.Record{
			{"tokens": types.TokenList{"EU", "rejects", "German", "call"}},
		},
	}
	pool := &types.Dataset{
		Columns: []string{"tokens", "entities"},
		Records: []types.Record{
			{
				"tokens":   types.TokenList{"EU", "backs", "German", "plan"},
				"entities": types.TokenList{"B-ORG", "O", "B-MISC", "O"},
			},
		},
	}

	llm := &fakeLLM{response: "ORG -> EU"}
	generator := NewGenerator(llm, Options{
		Task:                    TaskTokenLabeling,
		GenerateDataForColumn:   "entities",
		FewshotExampleColumns:   []string{"tokens"},
		FewshotExamplesPerClass: 1,
		MaxPromptCalls:          1,
		ReturnLabelOptions:      true,
	})

	_, report, err := generator.Generate(input, pool)
	require.NoError(t, err)

	assert.Equal(t, []string{"ORG", "MISC"}, report.LabelOptions)

	require.Len(t, llm.prompts, 1)
	assert.NotContains(t, llm.prompts[0], "{}")
	assert.Contains(t, llm.prompts[0], "ORG, MISC")
}

func TestGeneratePoolIssuesFlagged(t *testing.T) {
	pool := &types.Dataset{
		Columns: []string{"text", "label"},
		Records: []types.Record{
			{"text": types.Scalar("unmapped"), "label": types.Int(5)},
			{"text": types.Scalar("loved it"), "label": types.Int(1)},
		},
	}

	generator := NewGenerator(&fakeLLM{response: "pos"}, Options{
		Task:                    TaskClassification,
		GenerateDataForColumn:   "label",
		FewshotExampleColumns:   []string{"text"},
		FewshotExamplesPerClass: 1,
		MaxPromptCalls:          1,
	})

	_, report, err := generator.Generate(classificationInput(), pool)
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, api.UnknownLabelID, report.Issues[0].Kind)
	// the index refers to the fewshot pool, not the input dataset
	assert.True(t, report.Issues[0].Pool)
	assert.Equal(t, 0, report.Issues[0].Record)
}

func TestGenerateTokenLabelingAmbiguousSpan(t *testing.T) {
	input := &types.Dataset{
		Columns: []string{"tokens"},
		Records: []types.Record{
			{"tokens": types.TokenList{"EU", "rejects", "EU"}},
		},
	}

	llm := &fakeLLM{response: "ORG -> EU"}
	generator := NewGenerator(llm, Options{
		Task:                  TaskTokenLabeling,
		GenerateDataForColumn: "entities",
		FewshotExampleColumns: []string{"tokens"},
		MaxPromptCalls:        1,
	})

	out, report, err := generator.Generate(input, nil)
	require.NoError(t, err)

	assert.Equal(t, types.TokenList{"O", "O", "O"}, out.Records[0]["entities"])
	require.Len(t, report.Issues, 1)
	assert.Equal(t, api.AmbiguousSpan, report.Issues[0].Kind)
}

func TestGenerateQuestionAnswering(t *testing.T) {
	input := &types.Dataset{
		Columns: []string{"context", "question"},
		Records: []types.Record{
			{
				"context":  types.Scalar("the cat sat on the mat"),
				"question": types.Scalar("what did the cat do?"),
			},
			{
				"context":  types.Scalar("the cat sat on the cat mat"),
				"question": types.Scalar("who sat?"),
			},
		},
	}

	llm := &fakeLLM{response: "sat"}
	generator := NewGenerator(llm, Options{
		Task:                  TaskQuestionAnswering,
		GenerateDataForColumn: "answers",
		FewshotExampleColumns: []string{"context", "question"},
		MaxPromptCalls:        10,
	})

	out, report, err := generator.Generate(input, nil)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)

	assert.Equal(t, types.Answer{Text: []string{"sat"}, Start: []int{8}}, out.Records[0]["answers"])
	require.Empty(t, report.Issues)

	assert.True(t, out.HasColumn("answers"))
}

func TestGenerateHonorsMaxPromptCalls(t *testing.T) {
	llm := &fakeLLM{response: "pos"}
	generator := NewGenerator(llm, Options{
		Task:                  TaskClassification,
		GenerateDataForColumn: "label",
		FewshotExampleColumns: []string{"text"},
		MaxPromptCalls:        1,
	})

	out, report, err := generator.Generate(classificationInput(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.PromptCalls)
	assert.Len(t, out.Records, 1)
	assert.Len(t, llm.prompts, 1)
}

func TestGenerateRejectsUnlabeledPool(t *testing.T) {
	pool := &types.Dataset{
		Columns: []string{"text"},
		Records: []types.Record{{"text": types.Scalar("no label here")}},
	}
	generator := NewGenerator(&fakeLLM{response: "pos"}, Options{
		Task:                  TaskClassification,
		GenerateDataForColumn: "label",
		FewshotExampleColumns: []string{"text"},
		MaxPromptCalls:        1,
	})

	_, _, err := generator.Generate(classificationInput(), pool)
	require.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	input := classificationInput()

	tests := []struct {
		name string
		opts Options
	}{
		{"missing target", Options{FewshotExampleColumns: []string{"text"}, MaxPromptCalls: 1}},
		{"no call budget", Options{GenerateDataForColumn: "label", FewshotExampleColumns: []string{"text"}}},
		{"target listed as fewshot column", Options{GenerateDataForColumn: "text", FewshotExampleColumns: []string{"text"}, MaxPromptCalls: 1}},
		{"stratified without column", Options{
			GenerateDataForColumn:        "label",
			FewshotExampleColumns:        []string{"text"},
			FewshotLabelSamplingStrategy: core.StrategyStratified,
			MaxPromptCalls:               1,
		}},
		{"unknown fewshot column", Options{GenerateDataForColumn: "label", FewshotExampleColumns: []string{"missing"}, MaxPromptCalls: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.opts.Validate(input))
		})
	}
}
