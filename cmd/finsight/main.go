// Command finsight runs one analysis from the command line and prints the
// resulting report. Data providers are the deterministic built-in stubs;
// the model endpoint comes from configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/indicator"
	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/orchestrator"
	"github.com/finsight-ai/finsight/pkg/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "finsight:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to YAML configuration (optional)")
		symbol     = flag.String("symbol", "", "symbol to analyze (required)")
		market     = flag.String("market", "", "market of the symbol")
		skillName  = flag.String("skill", orchestrator.SkillDeepAnalysis, "analysis skill: deep_analysis or broad_overview")
		prompt     = flag.String("prompt", "", "optional focus instruction")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *symbol == "" {
		flag.Usage()
		return fmt.Errorf("-symbol is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	client, err := llm.NewClient(llm.Options{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	registry, err := tools.NewCatalog(tools.NewStubProviders().AsProviders(), indicator.NewEngine())
	if err != nil {
		return fmt.Errorf("build tool catalog: %w", err)
	}

	orch, err := orchestrator.New(cfg, registry, client)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orch.Analyze(ctx, orchestrator.AnalysisRequest{
		Symbol: *symbol,
		Market: *market,
		Skill:  *skillName,
		Prompt: *prompt,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Report.Markdown)
	fmt.Println()
	fmt.Printf("Confidence: %d/100\n", result.Confidence)
	if len(result.Report.DataSources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(result.Report.DataSources, ", "))
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}
