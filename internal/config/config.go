package config

import (
	"fmt"
	"log/slog"
	"os"

	"promptforge/internal/core"
	"promptforge/internal/gen"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Model       string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	EndpointURL string  `env:"LLM_ENDPOINT_URL" envDefault:""`
	APIKey      string  `env:"LLM_API_KEY" envDefault:""`
	Seed        int64   `env:"SEED" envDefault:"42"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, continuing with environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment config: %w", err)
	}
	return &cfg, nil
}

// Task is the YAML description of a generation task, mirroring the options
// of gen.Options plus the optional per-column label name schema.
type Task struct {
	Task            string `yaml:"task"`
	TaskDescription string `yaml:"task_description"`

	GenerateDataForColumn string   `yaml:"generate_data_for_column"`
	FewshotExampleColumns []string `yaml:"fewshot_example_columns"`

	LabelOptions         []string       `yaml:"label_options"`
	ExpandedLabelMapping map[int]string `yaml:"expanded_label_mapping"`

	FewshotExamplesPerClass      int    `yaml:"fewshot_examples_per_class"`
	FewshotLabelSamplingStrategy string `yaml:"fewshot_label_sampling_strategy"`
	FewshotSamplingColumn        string `yaml:"fewshot_sampling_column"`

	MaxPromptCalls     int  `yaml:"max_prompt_calls"`
	ReturnLabelOptions bool `yaml:"return_label_options"`

	// Features declares label names per categorical column, index = id.
	Features map[string][]string `yaml:"features"`
}

func LoadTask(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading task file '%s': %w", path, err)
	}

	var task Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("error parsing task file '%s': %w", path, err)
	}
	return &task, nil
}

// Options converts the YAML task into generator options.
func (t *Task) Options(seed int64) gen.Options {
	strategy := core.SamplingStrategy(t.FewshotLabelSamplingStrategy)
	if strategy == "" {
		strategy = core.StrategyNone
	}
	return gen.Options{
		Task:                         gen.TaskType(t.Task),
		TaskDescription:              t.TaskDescription,
		GenerateDataForColumn:        t.GenerateDataForColumn,
		FewshotExampleColumns:        t.FewshotExampleColumns,
		LabelOptions:                 t.LabelOptions,
		ExpandedLabelMapping:         t.ExpandedLabelMapping,
		FewshotExamplesPerClass:      t.FewshotExamplesPerClass,
		FewshotLabelSamplingStrategy: strategy,
		FewshotSamplingColumn:        t.FewshotSamplingColumn,
		MaxPromptCalls:               t.MaxPromptCalls,
		ReturnLabelOptions:           t.ReturnLabelOptions,
		Seed:                         seed,
	}
}

// FeatureSchema converts the declared label name lists into id2label maps.
func (t *Task) FeatureSchema() map[string]map[int]string {
	if len(t.Features) == 0 {
		return nil
	}
	features := make(map[string]map[int]string, len(t.Features))
	for column, names := range t.Features {
		id2label := make(map[int]string, len(names))
		for id, name := range names {
			id2label[id] = name
		}
		features[column] = id2label
	}
	return features
}
