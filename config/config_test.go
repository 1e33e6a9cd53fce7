package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TABLETALK_HOST", "")
	t.Setenv("TABLETALK_PORT", "")
	t.Setenv("TABLETALK_MODEL", "")

	cfg := Load()
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("expected default host 127.0.0.1, got=%q", cfg.Host)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got=%q", cfg.Port)
	}
	if cfg.Model != "" {
		t.Fatalf("expected empty model default, got=%q", cfg.Model)
	}
	if cfg.SessionDir == "" {
		t.Fatalf("expected a session dir default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TABLETALK_HOST", "0.0.0.0")
	t.Setenv("TABLETALK_PORT", "9000")
	t.Setenv("TABLETALK_MCP_SERVER", "stdio://dynamo-mcp")
	t.Setenv("TABLETALK_INFERENCE_PROFILE", "us.anthropic.claude-3-5-sonnet-20240620-v1:0")

	cfg := Load()
	if cfg.Host != "0.0.0.0" || cfg.Port != "9000" {
		t.Fatalf("expected overridden host/port, got=%q/%q", cfg.Host, cfg.Port)
	}
	if cfg.MCPServer != "stdio://dynamo-mcp" {
		t.Fatalf("expected MCP server spec, got=%q", cfg.MCPServer)
	}
	if cfg.InferenceProfile == "" {
		t.Fatalf("expected inference profile to be set")
	}
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("TABLETALK_BEDROCK_API_KEY", "")
	t.Setenv("AWS_BEARER_TOKEN_BEDROCK", "token-from-aws-env")

	cfg := Load()
	if cfg.BedrockAPIKey != "token-from-aws-env" {
		t.Fatalf("expected fallback env var to apply, got=%q", cfg.BedrockAPIKey)
	}

	t.Setenv("TABLETALK_BEDROCK_API_KEY", "primary")
	cfg = Load()
	if cfg.BedrockAPIKey != "primary" {
		t.Fatalf("expected primary env var to win, got=%q", cfg.BedrockAPIKey)
	}
}
