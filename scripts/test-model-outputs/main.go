// test-model-outputs checks mapping suggestion parsing across multiple models.
// It asks each model to map the fixture customers pair and reports what
// survived column matching, confidence parsing and expression screening.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/llm"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

const (
	sourceTable = "sales.customers"
	targetTable = "analytics.dim_customer"
)

// Model defines a model endpoint to test
type Model struct {
	Name     string
	Endpoint string
	Model    string
	APIKey   string
}

type TestResult struct {
	Success     bool
	Error       string
	Suggestions []models.FieldMapping
	Discarded   int
	DurationMs  int64
}

func main() {
	endpoint := flag.String("endpoint", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	modelList := flag.String("models", os.Getenv("LLM_MODEL"), "Comma-separated model names")
	timeout := flag.Duration("timeout", 120*time.Second, "Timeout for each model call")
	flag.Parse()

	if *endpoint == "" || *modelList == "" {
		fmt.Fprintln(os.Stderr, "usage: test-model-outputs -endpoint URL -models m1,m2")
		os.Exit(2)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := logConfig.Build()
	defer logger.Sync()

	var targets []Model
	for _, name := range strings.Split(*modelList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		targets = append(targets, Model{Name: name, Endpoint: *endpoint, Model: name, APIKey: os.Getenv("LLM_API_KEY")})
	}

	ctx := context.Background()
	req, err := fixtureRequest(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build fixture request: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("Mapping Suggestion Format Test")
	fmt.Printf("Pair: %s -> %s\n", sourceTable, targetTable)
	fmt.Println(strings.Repeat("=", 80))

	results := make(map[string]TestResult, len(targets))
	for _, model := range targets {
		fmt.Printf("\n%s\nTesting: %s\n%s\n", strings.Repeat("-", 80), model.Name, strings.Repeat("-", 80))
		result := testModel(ctx, model, req, logger, *timeout)
		results[model.Name] = result
		printResult(result)
	}

	fmt.Printf("\n%s\nSUMMARY\n%s\n\n", strings.Repeat("=", 80), strings.Repeat("=", 80))
	allPassed := true
	for _, model := range targets {
		result := results[model.Name]
		status := "✓ PASS"
		if !result.Success {
			status = "✗ FAIL"
			allPassed = false
		}
		fmt.Printf("%s: %s (%d suggestions, %dms)\n", status, model.Name, len(result.Suggestions), result.DurationMs)
		if result.Error != "" {
			fmt.Printf("  Error: %s\n", result.Error)
		}
	}

	if !allPassed {
		fmt.Println("\nSome models failed.")
		os.Exit(1)
	}
	fmt.Println("\nAll models passed!")
}

func fixtureRequest(ctx context.Context, logger *zap.Logger) (services.SuggestionRequest, error) {
	graph, err := services.NewFixtureLineageProvider(logger).Discover(ctx, models.UploadState{})
	if err != nil {
		return services.SuggestionRequest{}, err
	}
	src, okSrc := services.FindTable(graph, sourceTable)
	tgt, okTgt := services.FindTable(graph, targetTable)
	if !okSrc || !okTgt {
		return services.SuggestionRequest{}, fmt.Errorf("fixture graph is missing %s or %s", sourceTable, targetTable)
	}
	return services.SuggestionRequest{SourceTable: sourceTable, TargetTable: targetTable, Source: &src, Target: &tgt}, nil
}

func testModel(ctx context.Context, model Model, req services.SuggestionRequest, logger *zap.Logger, timeout time.Duration) TestResult {
	result := TestResult{}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := llm.NewClient(&llm.Config{
		Endpoint: model.Endpoint,
		Model:    model.Model,
		APIKey:   model.APIKey,
	}, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create client: %v", err)
		return result
	}

	suggestions, err := services.NewLLMSuggestionProvider(client, logger).Suggest(ctx, req)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Suggestions = suggestions

	for _, fm := range suggestions {
		if strings.HasPrefix(fm.Notes, "suggested expression discarded") {
			result.Discarded++
		}
	}
	result.Success = len(suggestions) > 0
	if !result.Success {
		result.Error = "no usable suggestions"
	}
	return result
}

func printResult(result TestResult) {
	for _, fm := range result.Suggestions {
		fmt.Printf("  %-16s -> %-16s %-10s %3d%%  %s\n",
			fm.SourceColumn, fm.TargetColumn, fm.Transformation, fm.Confidence, truncateString(fm.Expression, 40))
	}
	if result.Discarded > 0 {
		fmt.Printf("  %d expression(s) discarded by screening\n", result.Discarded)
	}
	if result.Success {
		fmt.Println("Status: ✓ PASS")
		return
	}
	fmt.Println("Status: ✗ FAIL")
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
