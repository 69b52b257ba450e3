package gen

import (
	"fmt"
	"log/slog"
	"strings"

	"promptforge/internal/core"
	"promptforge/internal/core/types"
	"promptforge/internal/core/utils"
	"promptforge/pkg/api"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

const maxConcurrentLLMCalls = 5

type TaskType string

const (
	TaskClassification    TaskType = "classification"
	TaskTokenLabeling     TaskType = "token_labeling"
	TaskQuestionAnswering TaskType = "question_answering"
	TaskGeneration        TaskType = "generation"
)

// Options is the configuration surface of a generation run.
type Options struct {
	Task            TaskType
	TaskDescription string // optional, defaults per task shape; may contain one {} slot

	GenerateDataForColumn string
	FewshotExampleColumns []string

	// LabelOptions overrides the label set derived from the dataset schema.
	// ExpandedLabelMapping replaces the dataset's id2label table entirely,
	// e.g. to swap compact tags for human-readable names.
	LabelOptions         []string
	ExpandedLabelMapping map[int]string

	FewshotExamplesPerClass      int
	FewshotLabelSamplingStrategy core.SamplingStrategy
	FewshotSamplingColumn        string

	MaxPromptCalls     int
	ReturnLabelOptions bool
	Seed               int64
}

// Validate rejects structurally invalid configurations before any LLM call
// is made, since they would invalidate every subsequent record.
func (o *Options) Validate(input *types.Dataset) error {
	if o.GenerateDataForColumn == "" {
		return fmt.Errorf("generate_data_for_column must be set")
	}
	if o.MaxPromptCalls <= 0 {
		return fmt.Errorf("max_prompt_calls must be positive, got %d", o.MaxPromptCalls)
	}
	for _, col := range o.FewshotExampleColumns {
		if col == o.GenerateDataForColumn {
			return fmt.Errorf("target column '%s' must not be listed in fewshot_example_columns", col)
		}
	}
	if o.FewshotLabelSamplingStrategy == core.StrategyStratified && o.FewshotSamplingColumn == "" {
		return fmt.Errorf("fewshot_label_sampling_strategy 'stratified' requires fewshot_sampling_column")
	}
	if len(o.FewshotExampleColumns) == 0 {
		return fmt.Errorf("at least one fewshot_example_column must be set")
	}
	for _, col := range o.FewshotExampleColumns {
		if !input.HasColumn(col) {
			return fmt.Errorf("fewshot_example_column '%s' not present in input dataset", col)
		}
	}
	return nil
}

type Generator struct {
	llm  LLM
	opts Options
}

func NewGenerator(llm LLM, opts Options) *Generator {
	return &Generator{llm: llm, opts: opts}
}

// Generate labels up to max_prompt_calls input records: for each record it
// samples fewshot examples from the pool, renders the prompt, obtains a raw
// completion, and parses it back into the dataset's native label
// representation. All per-record failures degrade that record only; the
// returned report collects them.
func (g *Generator) Generate(input, pool *types.Dataset) (*types.Dataset, *api.GenerationReport, error) {
	opts := g.opts

	if err := opts.Validate(input); err != nil {
		return nil, nil, err
	}

	report := &api.GenerationReport{RunId: uuid.New()}

	id2label := opts.ExpandedLabelMapping
	if id2label == nil {
		id2label = input.Features[opts.GenerateDataForColumn]
		if id2label == nil && pool != nil {
			id2label = pool.Features[opts.GenerateDataForColumn]
		}
	}

	fewshotPool, poolLabels, err := g.prepareFewshotPool(pool, id2label, report)
	if err != nil {
		return nil, nil, err
	}

	labelOptions := opts.LabelOptions
	if labelOptions == nil && id2label != nil {
		labelOptions = core.LabelOptions(id2label)
	}
	if labelOptions == nil {
		// fall back to the label universe observed in the fewshot pool so
		// the task description's {} slot never reaches the LLM unfilled
		labelOptions = poolLabels
	}
	if opts.ReturnLabelOptions {
		report.LabelOptions = labelOptions
	}

	taskDescription := opts.TaskDescription
	if taskDescription == "" {
		taskDescription = DefaultTaskDescription(opts.Task)
	}

	template, err := core.NewPromptTemplate(taskDescription, opts.GenerateDataForColumn, opts.FewshotExampleColumns, labelOptions)
	if err != nil {
		return nil, nil, err
	}

	n := min(opts.MaxPromptCalls, len(input.Records))
	prompts := make([]string, 0, n)
	indices := make([]int, 0, n)

	for i := 0; i < n; i++ {
		fewshots, sampleIssues, err := g.sampleFewshots(fewshotPool, opts.Seed+int64(i))
		if err != nil {
			return nil, nil, err
		}
		for _, issue := range sampleIssues {
			issue.Record = i
			report.Issues = append(report.Issues, issue)
		}

		prompts = append(prompts, buildPrompt(template, labelOptions, fewshots, input.Records[i]))
		indices = append(indices, i)
	}

	slog.Info("issuing prompt calls", "run_id", report.RunId, "calls", len(prompts), "task", opts.Task)

	bar := progressbar.NewOptions(len(prompts),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	system := SystemPrompt(opts.GenerateDataForColumn)
	responses := utils.MapConcurrent(prompts, maxConcurrentLLMCalls, func(prompt string) (string, error) {
		res, err := g.llm.Generate(system, prompt)
		_ = bar.Add(1)
		return res, err
	})
	report.PromptCalls = len(prompts)

	out := make([]types.Record, 0, len(responses))
	for j, res := range responses {
		i := indices[j]
		if res.Err != nil {
			slog.Error("llm call failed, skipping record", "record", i, "error", res.Err)
			continue
		}
		record, ok := g.parseResponse(input.Records[i], res.Value, i, report)
		if ok {
			out = append(out, record)
		}
	}

	report.Records = len(out)
	slog.Info("generation finished", "run_id", report.RunId, "records", report.Records, "issues", len(report.Issues))

	outputDS := input.WithRecords(out)
	if !outputDS.HasColumn(opts.GenerateDataForColumn) {
		outputDS.Columns = append(append([]string(nil), outputDS.Columns...), opts.GenerateDataForColumn)
	}
	return outputDS, report, nil
}

// prepareFewshotPool converts pool labels into the textual representation
// shown in prompts: class ids become names, BIO tag sequences become span
// maps, nested QA answers become flat strings. The second return value is
// the label universe observed while converting, used as the fallback label
// options when neither the configuration nor the schema provides one.
func (g *Generator) prepareFewshotPool(pool *types.Dataset, id2label map[int]string, report *api.GenerationReport) (*types.Dataset, []string, error) {
	if pool == nil || len(pool.Records) == 0 {
		return nil, nil, nil
	}
	target := g.opts.GenerateDataForColumn
	if !pool.HasColumn(target) {
		return nil, nil, fmt.Errorf("target column '%s' not present in fewshot pool", target)
	}

	switch g.opts.Task {
	case TaskClassification:
		if id2label == nil {
			// labels are already textual
			return pool, nil, nil
		}
		converted, options, issues, err := core.LabelsToText(pool, target, id2label)
		if err != nil {
			return nil, nil, err
		}
		report.Issues = append(report.Issues, markPoolIssues(issues)...)
		return converted, options, nil

	case TaskTokenLabeling:
		var poolLabels []string
		seen := make(map[string]struct{})
		out := make([]types.Record, 0, len(pool.Records))
		tokenColumn := g.opts.FewshotExampleColumns[0]
		for i, record := range pool.Records {
			tags, issues := tagStrings(record[target], id2label, i)
			report.Issues = append(report.Issues, markPoolIssues(issues)...)
			if tags == nil {
				continue
			}
			tokens := tokensOf(record[tokenColumn])
			spans, labels, err := core.EncodeSpans(tokens, tags)
			if err != nil {
				slog.Warn("skipping fewshot pool record", "record", i, "error", err)
				continue
			}
			for _, label := range labels {
				if _, dup := seen[label]; !dup {
					seen[label] = struct{}{}
					poolLabels = append(poolLabels, label)
				}
			}
			converted := record.Clone()
			converted[target] = spans
			out = append(out, converted)
		}
		return pool.WithRecords(out), poolLabels, nil

	case TaskQuestionAnswering:
		return core.FlattenAnswers(pool, target), nil, nil

	default:
		return pool, nil, nil
	}
}

// markPoolIssues flags issues whose record index refers to the fewshot pool
// rather than the input dataset.
func markPoolIssues(issues []api.Issue) []api.Issue {
	for i := range issues {
		issues[i].Pool = true
	}
	return issues
}

func (g *Generator) sampleFewshots(pool *types.Dataset, seed int64) ([]types.Record, []api.Issue, error) {
	if pool == nil || g.opts.FewshotExamplesPerClass <= 0 {
		return nil, nil, nil
	}
	if g.opts.FewshotLabelSamplingStrategy == core.StrategyStratified {
		return core.SampleStratified(pool.Records, g.opts.FewshotExamplesPerClass, g.opts.FewshotSamplingColumn, seed)
	}
	sample, issues := core.SampleFewshots(pool.Records, g.opts.FewshotExamplesPerClass, seed)
	return sample, issues, nil
}

// parseResponse converts a raw completion back into the target column's
// native representation. A false return drops the record.
func (g *Generator) parseResponse(record types.Record, response string, index int, report *api.GenerationReport) (types.Record, bool) {
	response = strings.TrimSpace(response)
	out := record.Clone()

	switch g.opts.Task {
	case TaskTokenLabeling:
		tokens := tokensOf(record[g.opts.FewshotExampleColumns[0]])
		tags, issues := core.DecodeSpans(response, tokens)
		for _, issue := range issues {
			issue.Record = index
			report.Issues = append(report.Issues, issue)
		}
		out[g.opts.GenerateDataForColumn] = types.TokenList(tags)

	case TaskQuestionAnswering:
		context := ""
		if v, ok := record[g.opts.FewshotExampleColumns[0]]; ok {
			context = v.Render()
		}
		span, issues := core.LocateAnswer(context, response)
		for _, issue := range issues {
			issue.Record = index
			report.Issues = append(report.Issues, issue)
		}
		out[g.opts.GenerateDataForColumn] = types.Answer{Text: []string{span.Text}, Start: []int{span.Start}}

	default:
		out[g.opts.GenerateDataForColumn] = types.Scalar(response)
	}

	return out, true
}

// buildPrompt joins the rendered fewshot examples and the inference slot of
// the row being completed into the final prompt text.
func buildPrompt(template *core.PromptTemplate, labelOptions []string, fewshots []types.Record, inference types.Record) string {
	parts := make([]string, 0, len(fewshots)+1)
	for _, fs := range fewshots {
		parts = append(parts, template.Render(labelOptions, fs))
	}
	// the row being completed never shows its target value, the field is
	// left empty as the generation slot
	row := inference.Clone()
	delete(row, template.Target())
	parts = append(parts, template.Render(labelOptions, row))
	return strings.Join(parts, "\n\n")
}

func tokensOf(v types.Value) []string {
	switch t := v.(type) {
	case types.TokenList:
		return t
	case types.Scalar:
		return strings.Fields(string(t))
	default:
		return nil
	}
}

// tagStrings maps a tag column value to BIO tag names, translating ids via
// id2label when necessary. Unknown ids degrade the whole record.
func tagStrings(v types.Value, id2label map[int]string, index int) ([]string, []api.Issue) {
	switch t := v.(type) {
	case types.TokenList:
		return t, nil
	case types.IntList:
		tags := make([]string, len(t))
		for i, id := range t {
			name, ok := id2label[id]
			if !ok {
				return nil, []api.Issue{{
					Kind:   api.UnknownLabelID,
					Record: index,
					Detail: fmt.Sprintf("id %d has no entry in the label mapping", id),
				}}
			}
			tags[i] = name
		}
		return tags, nil
	default:
		return nil, nil
	}
}
