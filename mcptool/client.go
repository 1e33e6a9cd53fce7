package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mhalter/tabletalk"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Interface compliance check.
var _ tabletalk.ToolExecutor = (*Client)(nil)

// Client is an MCP-backed tool executor. It connects lazily and caches the
// session for the lifetime of the client.
type Client struct {
	impl       *mcpsdk.Client
	spec       string
	transport  mcpsdk.Transport
	once       sync.Once
	session    *mcpsdk.ClientSession
	connectErr error
}

// Option configures a [Client].
type Option func(*Client)

// WithTransport bypasses spec parsing and connects over the given
// transport. Useful for testing with in-memory transports.
func WithTransport(t mcpsdk.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// New creates a [Client] for the given transport spec.
func New(spec string, opts ...Option) *Client {
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "tabletalk", Version: "dev"}, nil)
	c := &Client{impl: impl, spec: spec}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) connect(ctx context.Context) error {
	c.once.Do(func() {
		transport := c.transport
		if transport == nil {
			var err error
			transport, err = buildTransport(ctx, c.spec)
			if err != nil {
				c.connectErr = err
				return
			}
		}
		session, err := c.impl.Connect(ctx, transport, nil)
		if err != nil {
			c.connectErr = fmt.Errorf("mcptool: connect: %w", err)
			return
		}
		c.session = session
	})
	return c.connectErr
}

// Catalog fetches the server's tool list.
func (c *Client) Catalog(ctx context.Context) ([]tabletalk.Tool, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	var tools []tabletalk.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcptool: list tools: %w", err)
		}
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcptool: tool %s schema: %w", tool.Name, err)
		}
		tools = append(tools, tabletalk.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

// Execute calls the named tool and converts the result. Protocol-level tool
// failures surface as ToolResult.IsError, not as a Go error.
func (c *Client) Execute(ctx context.Context, name string, args json.RawMessage) (*tabletalk.ToolResult, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	result, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcptool: call %s: %w", name, err)
	}
	return convertResult(result), nil
}

// Close shuts down the underlying session, if any.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func convertResult(result *mcpsdk.CallToolResult) *tabletalk.ToolResult {
	if result == nil {
		return &tabletalk.ToolResult{}
	}
	var blocks []tabletalk.ContentBlock
	for _, content := range result.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			blocks = append(blocks, tabletalk.TextBlock{Text: tc.Text})
		}
	}
	return &tabletalk.ToolResult{Content: blocks, IsError: result.IsError}
}
