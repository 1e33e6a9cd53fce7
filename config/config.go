// Package config loads runtime configuration from TABLETALK_* environment
// variables, with sensible defaults for local use.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Host             string
	Port             string
	BedrockAPIKey    string
	GeminiAPIKey     string
	Model            string
	InferenceProfile string
	MCPServer        string
	SessionDir       string
	SystemPrompt     string
}

func Load() Config {
	host := os.Getenv("TABLETALK_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("TABLETALK_PORT")
	if port == "" {
		port = "8080"
	}
	sessionDir := os.Getenv("TABLETALK_SESSION_DIR")
	if sessionDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			sessionDir = filepath.Join(home, ".tabletalk", "sessions")
		} else {
			sessionDir = ".tabletalk"
		}
	}
	return Config{
		Host:             host,
		Port:             port,
		BedrockAPIKey:    firstEnv("TABLETALK_BEDROCK_API_KEY", "AWS_BEARER_TOKEN_BEDROCK"),
		GeminiAPIKey:     firstEnv("TABLETALK_GEMINI_API_KEY", "GEMINI_API_KEY"),
		Model:            strings.TrimSpace(os.Getenv("TABLETALK_MODEL")),
		InferenceProfile: strings.TrimSpace(os.Getenv("TABLETALK_INFERENCE_PROFILE")),
		MCPServer:        strings.TrimSpace(os.Getenv("TABLETALK_MCP_SERVER")),
		SessionDir:       sessionDir,
		SystemPrompt:     os.Getenv("TABLETALK_SYSTEM_PROMPT"),
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
