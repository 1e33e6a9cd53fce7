package main

import (
	"context"
	"fmt"

	"github.com/mhalter/tabletalk"
	"github.com/mhalter/tabletalk/bedrock"
	"github.com/mhalter/tabletalk/config"
	"github.com/mhalter/tabletalk/gemini"
)

// resolveProvider selects the model provider. With an explicit -provider
// flag the matching key is required; otherwise the provider is detected
// from whichever API key is set in the environment.
func resolveProvider(ctx context.Context, providerFlag, apiKeyFlag, model string, cfg config.Config) (tabletalk.Provider, error) {
	bedrockKey := cfg.BedrockAPIKey
	geminiKey := cfg.GeminiAPIKey

	switch providerFlag {
	case "bedrock":
		if apiKeyFlag != "" {
			bedrockKey = apiKeyFlag
		}
		if bedrockKey == "" {
			return nil, fmt.Errorf("bedrock selected but no API key found: set TABLETALK_BEDROCK_API_KEY or AWS_BEARER_TOKEN_BEDROCK, or pass -api-key")
		}
		return newBedrock(bedrockKey, model, cfg), nil
	case "gemini":
		if apiKeyFlag != "" {
			geminiKey = apiKeyFlag
		}
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini selected but no API key found: set TABLETALK_GEMINI_API_KEY or GEMINI_API_KEY, or pass -api-key")
		}
		return newGemini(ctx, geminiKey, model)
	case "":
		switch {
		case bedrockKey != "" && geminiKey != "":
			return nil, fmt.Errorf("multiple API keys found in environment: use the -provider flag to choose one")
		case bedrockKey != "":
			return newBedrock(bedrockKey, model, cfg), nil
		case geminiKey != "":
			return newGemini(ctx, geminiKey, model)
		default:
			return nil, fmt.Errorf("no API key found: set TABLETALK_BEDROCK_API_KEY, AWS_BEARER_TOKEN_BEDROCK, TABLETALK_GEMINI_API_KEY, or GEMINI_API_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown provider %q: valid values are bedrock, gemini", providerFlag)
	}
}

func newBedrock(key, model string, cfg config.Config) *bedrock.Client {
	opts := []bedrock.Option{}
	if model != "" {
		opts = append(opts, bedrock.WithModel(model))
	} else if cfg.Model != "" {
		opts = append(opts, bedrock.WithModel(cfg.Model))
	}
	if cfg.InferenceProfile != "" {
		opts = append(opts, bedrock.WithInferenceProfile(cfg.InferenceProfile))
	}
	return bedrock.New(key, opts...)
}

func newGemini(ctx context.Context, key, model string) (*gemini.Client, error) {
	opts := []gemini.Option{}
	if model != "" {
		opts = append(opts, gemini.WithModel(model))
	}
	client, err := gemini.New(ctx, key, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}
