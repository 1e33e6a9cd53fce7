// Command tabletalk is a natural-language front end for a table store.
//
// Usage:
//
//	AWS_BEARER_TOKEN_BEDROCK=... tabletalk [flags]
//	GEMINI_API_KEY=...           tabletalk [flags]
//
// Flags:
//
//	-provider string  Provider: bedrock, gemini (auto-detected from env vars if omitted)
//	-model string     Model ID (default: provider default)
//	-api-key string   API key (overrides provider's env var)
//	-mcp string       MCP transport spec (default: TABLETALK_MCP_SERVER, or the builtin store)
//	-session string   Path to session file to resume
//	-serve            Run the HTTP server instead of the TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/mhalter/tabletalk"
	"github.com/mhalter/tabletalk/agent"
	"github.com/mhalter/tabletalk/config"
	"github.com/mhalter/tabletalk/dynamostore"
	"github.com/mhalter/tabletalk/httpapi"
	tjson "github.com/mhalter/tabletalk/json"
	"github.com/mhalter/tabletalk/mcptool"
	"github.com/mhalter/tabletalk/tui"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultSystemPrompt = "You are an assistant for a table store. " +
	"Use the available tools to answer questions about tables and their items. " +
	"Prefer query over scan when the partition key is known."

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tabletalk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		providerFlag = flag.String("provider", "", "Provider: bedrock, gemini (auto-detected from env vars if omitted)")
		model        = flag.String("model", "", "Model ID (provider-specific)")
		apiKey       = flag.String("api-key", "", "API key (overrides provider's env var)")
		mcpSpec      = flag.String("mcp", "", "MCP transport spec (overrides TABLETALK_MCP_SERVER)")
		sessionPath  = flag.String("session", "", "Path to session file to resume")
		serve        = flag.Bool("serve", false, "Run the HTTP server instead of the TUI")
	)
	flag.Parse()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider, err := resolveProvider(ctx, *providerFlag, *apiKey, *model, cfg)
	if err != nil {
		return err
	}

	executor, err := resolveExecutor(ctx, *mcpSpec, cfg)
	if err != nil {
		return err
	}
	defer executor.Close()

	catalog, err := executor.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch tool catalog: %w", err)
	}

	conv, err := loadOrCreateConversation(*sessionPath, cfg)
	if err != nil {
		return err
	}

	// The TUI swaps the per-turn event callback in and out; the HTTP server
	// never sets one.
	var handlerMu sync.Mutex
	var onEvent func(tabletalk.Event)
	runner := agent.New(provider, executor,
		agent.WithModel(*model),
		agent.WithSystemPrompt(conv.SystemPrompt),
		agent.WithConversation(conv),
		agent.WithEventHandler(func(e tabletalk.Event) {
			handlerMu.Lock()
			h := onEvent
			handlerMu.Unlock()
			if h != nil {
				h(e)
			}
		}),
	)
	runner.LoadCatalog(catalog)

	if *serve {
		return serveHTTP(ctx, runner, cfg)
	}

	agentFn := func(turnCtx context.Context, userText string, emit func(tabletalk.Event)) (string, error) {
		handlerMu.Lock()
		onEvent = emit
		handlerMu.Unlock()
		defer func() {
			handlerMu.Lock()
			onEvent = nil
			handlerMu.Unlock()
		}()
		return runner.RunTurn(turnCtx, userText, agent.Stateful)
	}

	if err := tui.Run(ctx, tui.New(agentFn, tabletalk.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	return saveConversation(*sessionPath, conv, cfg)
}

func serveHTTP(ctx context.Context, runner *agent.Runner, cfg config.Config) error {
	api := httpapi.New(runner)
	api.SetReady(true)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// resolveExecutor connects to the configured MCP server, or starts the
// builtin in-memory store when no server is configured.
func resolveExecutor(ctx context.Context, mcpFlag string, cfg config.Config) (*mcptool.Client, error) {
	spec := mcpFlag
	if spec == "" {
		spec = cfg.MCPServer
	}
	if spec != "" {
		return mcptool.New(spec), nil
	}

	server := dynamostore.NewServer(dynamostore.NewStore())
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ready := make(chan error, 1)
	go func() {
		session, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			ready <- err
			return
		}
		ready <- nil
		<-ctx.Done()
		_ = session.Close()
	}()
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("builtin store: %w", err)
	}
	return mcptool.New("builtin", mcptool.WithTransport(clientTransport)), nil
}

func loadOrCreateConversation(sessionPath string, cfg config.Config) (*tabletalk.Conversation, error) {
	if sessionPath != "" {
		conv, err := tjson.Load(sessionPath)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		return conv, nil
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return tabletalk.NewConversation(fmt.Sprintf("%d", time.Now().UnixNano()), prompt), nil
}

func saveConversation(sessionPath string, conv *tabletalk.Conversation, cfg config.Config) error {
	if sessionPath != "" {
		if err := tjson.Save(sessionPath, conv); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	}
	if conv.Len() == 0 {
		return nil
	}
	savePath := filepath.Join(cfg.SessionDir, conv.ID+".json")
	if err := tjson.Save(savePath, conv); err != nil {
		return fmt.Errorf("auto-save session: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Session saved to %s\n", savePath)
	return nil
}
