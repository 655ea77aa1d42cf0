// Package tools exposes the gateway's three operations (chat, web search and
// weather lookup) as named, schema-described MCP tools. Each tool validates
// nothing itself: input handling lives in the services, and every outcome is
// returned as structured content so protocol callers get the same shapes the
// webhook frontend sees.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
	"github.com/dileep-u-k/chatbot-gateway/internal/chat"
	"github.com/dileep-u-k/chatbot-gateway/internal/search"
	"github.com/dileep-u-k/chatbot-gateway/internal/weather"
)

// ServerName identifies this MCP server to connecting clients.
const ServerName = "chatbot-gateway"

// defaultNumResults is used when a search_web call omits num_results.
const defaultNumResults = 5

type chatInput struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

type searchInput struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

type weatherInput struct {
	City  string `json:"city"`
	Units string `json:"units,omitempty"`
}

// NewServer assembles the MCP server with all three tools registered.
func NewServer(version string, chatSvc *chat.Service, searchSvc *search.Service, weatherSvc *weather.Service) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "chat",
		Description: "Chat with the AI assistant",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"message": {
					Type:        "string",
					Description: "Your message to the AI",
				},
				"context": {
					Type:        "string",
					Description: "Optional conversation context",
				},
			},
			Required: []string{"message"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in chatInput) (*mcp.CallToolResult, api.ChatResult, error) {
		return nil, chatSvc.Process(ctx, in.Message, in.Context), nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_web",
		Description: "Search the web (no API key required)",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Search query",
				},
				"num_results": {
					Type:        "integer",
					Description: "Number of results to return (1-10)",
				},
			},
			Required: []string{"query"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, api.SearchOutcome, error) {
		if in.NumResults == 0 {
			in.NumResults = defaultNumResults
		}
		return nil, searchSvc.Search(ctx, in.Query, in.NumResults), nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_weather",
		Description: "Get current weather for a city",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"city": {
					Type:        "string",
					Description: "City name",
				},
				"units": {
					Type:        "string",
					Description: `Temperature units ("metric" or "imperial")`,
				},
			},
			Required: []string{"city"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in weatherInput) (*mcp.CallToolResult, api.WeatherOutcome, error) {
		return nil, weatherSvc.Lookup(ctx, in.City, in.Units), nil
	})

	return srv
}

// Run serves MCP over stdio until ctx is cancelled or the peer disconnects.
func Run(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}
