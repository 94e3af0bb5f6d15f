package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antoniostano/duecall/internal/analysis"
	"github.com/antoniostano/duecall/internal/config"
	"github.com/antoniostano/duecall/internal/llm"
	"github.com/antoniostano/duecall/internal/transcript"
)

type options struct {
	file    string
	all     bool
	summary bool
	save    bool
	timeout time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "analyze a single transcript (path or filename in the transcripts dir)")
	flag.BoolVar(&opts.all, "all", false, "analyze every stored transcript")
	flag.BoolVar(&opts.summary, "summary", false, "print the aggregate prediction summary")
	flag.BoolVar(&opts.save, "save", true, "save predictions next to their transcripts")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	if opts.file == "" && !opts.all && !opts.summary {
		fmt.Fprintln(os.Stderr, "usage: duecall-analyze -file <transcript> | -all | -summary")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var completer llm.Completer
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		completer = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, float32(cfg.OpenAITemperature))
	} else {
		log.Printf("OPENAI_API_KEY not set; using the scripted mock model")
		completer = llm.NewMock()
	}

	transcripts := transcript.NewStore(cfg.TranscriptsDir)
	predictions := analysis.NewPredictionStore(cfg.PredictionsDir)
	analyzer := analysis.NewAnalyzer(completer, transcripts, predictions)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	switch {
	case opts.summary:
		sum, err := predictions.Summarize()
		if err != nil {
			log.Fatalf("summary failed: %v", err)
		}
		printJSON(sum)

	case opts.all:
		results, err := analyzer.BatchAnalyze(ctx)
		if err != nil {
			log.Fatalf("batch analysis failed: %v", err)
		}
		failed := 0
		for _, rec := range results {
			if rec.Failed() {
				failed++
				log.Printf("analysis failed for %s: %s", rec.SourceFile, rec.Error)
			}
		}
		printJSON(results)
		log.Printf("analyzed %d transcripts, %d failed", len(results)-failed, failed)

	default:
		path := opts.file
		if filepath.Dir(path) == "." {
			path = filepath.Join(cfg.TranscriptsDir, path)
		}
		rec, err := analyzer.AnalyzeFile(ctx, path, opts.save)
		if err != nil {
			log.Fatalf("analysis failed: %v", err)
		}
		printJSON(rec)
		if opts.save {
			log.Printf("prediction saved to %s", analyzer.PredictionPath(path))
		}
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(data))
}
