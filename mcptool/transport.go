package mcptool

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	stdioScheme = "stdio://"
	sseScheme   = "sse://"
)

func buildTransport(ctx context.Context, spec string) (mcpsdk.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("mcptool: transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioScheme):
		return stdioTransport(ctx, spec[len(stdioScheme):])
	case strings.HasPrefix(lowered, sseScheme):
		endpoint, err := normalizeHTTPURL("https://" + spec[len(sseScheme):])
		if err != nil {
			return nil, fmt.Errorf("mcptool: invalid SSE endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http+sse://"), strings.HasPrefix(lowered, "https+sse://"):
		endpoint, err := normalizeHTTPURL(strings.Replace(spec, "+sse", "", 1))
		if err != nil {
			return nil, fmt.Errorf("mcptool: invalid SSE endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		endpoint, err := normalizeHTTPURL(spec)
		if err != nil {
			return nil, fmt.Errorf("mcptool: invalid HTTP endpoint: %w", err)
		}
		return &mcpsdk.StreamableClientTransport{Endpoint: endpoint}, nil
	}

	// No scheme: treat the spec as a stdio command line.
	return stdioTransport(ctx, spec)
}

func stdioTransport(ctx context.Context, cmdSpec string) (mcpsdk.Transport, error) {
	parts := strings.Fields(strings.TrimSpace(cmdSpec))
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcptool: stdio command is empty")
	}
	command := exec.CommandContext(ctx, parts[0], parts[1:]...)
	return &mcpsdk.CommandTransport{Command: command}, nil
}

func normalizeHTTPURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}
