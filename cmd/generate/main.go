package main

import (
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"promptforge/internal/config"
	"promptforge/internal/core/types"
	"promptforge/internal/dataset"
	"promptforge/internal/gen"
)

func main() {
	taskPath := flag.String("task", "task.yaml", "path to the YAML task description")
	inputPath := flag.String("input", "", "JSONL file with the records to label")
	poolPath := flag.String("pool", "", "JSONL file with labeled fewshot examples (optional)")
	outputPath := flag.String("output", "generated.jsonl", "JSONL file for the labeled records")
	reportPath := flag.String("report", "report.json", "JSON file for the generation report")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input flag")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	task, err := config.LoadTask(*taskPath)
	if err != nil {
		log.Fatalf("Failed to load task: %v", err)
	}

	features := task.FeatureSchema()

	input, err := dataset.ReadJSONLFile(*inputPath, features)
	if err != nil {
		log.Fatalf("Failed to load input dataset: %v", err)
	}

	var pool *types.Dataset
	if *poolPath != "" {
		pool, err = dataset.ReadJSONLFile(*poolPath, features)
		if err != nil {
			log.Fatalf("Failed to load fewshot pool: %v", err)
		}
	}

	var llm gen.LLM
	if cfg.EndpointURL != "" {
		slog.Info("using OpenAI-compatible endpoint", "url", cfg.EndpointURL, "model", cfg.Model)
		llm = gen.NewEndpoint(cfg.EndpointURL, cfg.APIKey, cfg.Model, cfg.Temperature)
	} else {
		slog.Info("using OpenAI", "model", cfg.Model)
		llm = gen.NewOpenAI(cfg.Model, cfg.Temperature)
	}

	generator := gen.NewGenerator(llm, task.Options(cfg.Seed))

	labeled, report, err := generator.Generate(input, pool)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	if err := dataset.WriteJSONLFile(*outputPath, labeled); err != nil {
		log.Fatalf("Failed to write output dataset: %v", err)
	}

	reportFile, err := os.Create(*reportPath)
	if err != nil {
		log.Fatalf("Failed to create report file: %v", err)
	}
	defer reportFile.Close()

	encoder := json.NewEncoder(reportFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	slog.Info("done", "records", labeled.Len(), "output", *outputPath, "report", *reportPath)
}
