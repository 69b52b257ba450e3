package config

import (
	"os"
	"path/filepath"
	"testing"

	"promptforge/internal/core"
	"promptforge/internal/gen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskYAML = `
task: classification
task_description: "Classify movie reviews into one of the following classes: {}."
generate_data_for_column: label
fewshot_example_columns:
  - text
fewshot_examples_per_class: 2
fewshot_label_sampling_strategy: stratified
fewshot_sampling_column: label
max_prompt_calls: 25
return_label_options: true
features:
  label:
    - neg
    - pos
`

func TestLoadTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskYAML), 0644))

	task, err := LoadTask(path)
	require.NoError(t, err)

	opts := task.Options(42)
	assert.Equal(t, gen.TaskClassification, opts.Task)
	assert.Equal(t, "label", opts.GenerateDataForColumn)
	assert.Equal(t, []string{"text"}, opts.FewshotExampleColumns)
	assert.Equal(t, core.StrategyStratified, opts.FewshotLabelSamplingStrategy)
	assert.Equal(t, 25, opts.MaxPromptCalls)
	assert.Equal(t, int64(42), opts.Seed)
	assert.True(t, opts.ReturnLabelOptions)

	features := task.FeatureSchema()
	assert.Equal(t, map[int]string{0: "neg", 1: "pos"}, features["label"])
}

func TestLoadTaskMissingFile(t *testing.T) {
	_, err := LoadTask(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestTaskOptionsDefaultStrategy(t *testing.T) {
	task := &Task{}
	assert.Equal(t, core.StrategyNone, task.Options(0).FewshotLabelSamplingStrategy)
}
