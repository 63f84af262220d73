// Package mcpserver exposes the assistant as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"demandcast/internal/adapter/source"
	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

// Answerer answers one free-text forecast question.
type Answerer interface {
	Answer(ctx context.Context, query string) []domain.Outcome
}

// DetailsProvider looks up everything stored about one item.
type DetailsProvider interface {
	Details(ctx context.Context, id string) (*source.Details, error)
}

// Server wraps the assistant and registers its tools on an MCP server.
type Server struct {
	assistant Answerer
	resolver  port.Resolver
	details   DetailsProvider
	server    *server.MCPServer
	log       *zap.SugaredLogger
}

// New creates the MCP server. details may be nil, in which case the
// get_inventory_details tool is not offered.
func New(assistant Answerer, resolver port.Resolver, details DetailsProvider, version string, log *zap.SugaredLogger) *Server {
	s := &Server{
		assistant: assistant,
		resolver:  resolver,
		details:   details,
		log:       logger.OrNop(log),
	}

	s.server = server.NewMCPServer(
		"demandcast",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	predictTool := mcp.NewTool("predict_demand",
		mcp.WithDescription("Forecast daily consumption and stock for the inventory items named in a question, "+
			"e.g. \"forecast nitrile gloves for 2 weeks\". Returns one entry per item per day, or error entries."),
		mcp.WithString("Input",
			mcp.Required(),
			mcp.Description("Free-text question naming an item (name or Inventory ID) and optionally a period"),
		),
	)
	s.server.AddTool(predictTool, s.handlePredictDemand)

	resolveTool := mcp.NewTool("resolve_inventory",
		mcp.WithDescription("Find the inventory IDs a product name or ID refers to, with the matching method used"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Product name, partial name or Inventory ID"),
		),
	)
	s.server.AddTool(resolveTool, s.handleResolve)

	if s.details != nil {
		detailsTool := mcp.NewTool("get_inventory_details",
			mcp.WithDescription("Fetch master data, recent daily stock, consumption, finance, department mapping and vendor for one Inventory ID"),
			mcp.WithString("inventory_id",
				mcp.Required(),
				mcp.Description("Inventory ID, case and spacing are ignored"),
			),
		)
		s.server.AddTool(detailsTool, s.handleDetails)
	}
}

func (s *Server) handlePredictDemand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("Input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.assistant.Answer(ctx, input))
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	matches, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		s.log.Warnw("Resolve failed", logger.FieldQuery, query, logger.FieldError, err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve: %v", err)), nil
	}
	return jsonResult(matches)
}

func (s *Server) handleDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("inventory_id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("Inventory_ID is required"), nil
	}

	d, err := s.details.Details(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No data found for inventory ID %s", domain.NormalizeID(id))), nil
	}
	if err != nil {
		s.log.Warnw("Details lookup failed", logger.FieldItemID, id, logger.FieldError, err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch details: %v", err)), nil
	}
	return jsonResult(d)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio serves tools over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}

// ServeSSE serves tools over server-sent events on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	var opts []server.SSEOption
	if baseURL != "" {
		opts = append(opts, server.WithBaseURL(baseURL))
	}
	sse := server.NewSSEServer(s.server, opts...)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("MCP server listening", logger.FieldTransport, "sse", logger.FieldAddress, addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return sse.Shutdown(context.Background())
	}
}
