package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/llm"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

// buildProviders returns the fixture providers, with the suggestion provider
// swapped for an LLM-backed one when the "llm" or "anthropic" provider is
// configured.
func buildProviders(cfg *config.Config, logger *zap.Logger) (tracker.Providers, error) {
	providers, err := tracker.FixtureProviders(services.NewSimulator(cfg.Simulation), logger)
	if err != nil {
		return tracker.Providers{}, fmt.Errorf("failed to load fixture providers: %w", err)
	}

	llmCfg := &llm.Config{
		Endpoint: cfg.Suggestions.LLMBaseURL,
		Model:    cfg.Suggestions.LLMModel,
		APIKey:   cfg.Suggestions.LLMAPIKey,
	}

	var client llm.LLMClient
	switch cfg.Suggestions.Provider {
	case config.SuggestionProviderLLM:
		client, err = llm.NewClient(llmCfg, logger)
	case config.SuggestionProviderAnthropic:
		client, err = llm.NewAnthropicClient(llmCfg, logger)
	default:
		return providers, nil
	}
	if err != nil {
		return tracker.Providers{}, fmt.Errorf("failed to create %s client: %w", cfg.Suggestions.Provider, err)
	}

	providers.Suggestions = services.NewLLMSuggestionProvider(client, logger)
	logger.Info("Using LLM suggestion provider",
		zap.String("provider", cfg.Suggestions.Provider),
		zap.String("endpoint", cfg.Suggestions.LLMBaseURL),
		zap.String("model", client.GetModel()))

	return providers, nil
}
