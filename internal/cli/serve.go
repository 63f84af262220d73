package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"demandcast/internal/logger"
	"demandcast/internal/transport/httpapi"
	"demandcast/internal/transport/mcpserver"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant as MCP tools or an HTTP API",
	Long: `Serve predict_demand, resolve_inventory and (with the postgres catalog)
get_inventory_details.

Transports:
  stdio  MCP over stdin/stdout, for local agent integrations
  sse    MCP over server-sent events on --addr
  http   JSON API on --addr (POST /api/v1/forecast, GET /api/v1/resolve)

Examples:
  demandcast serve --transport stdio
  demandcast serve --transport sse --addr :8000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "stdio, sse or http (default from config)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	transport := cfg.Server.Transport
	if serveTransport != "" {
		transport = serveTransport
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, GetRootDir(), buildOptions{predictor: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.syncIndex(ctx); err != nil {
		return err
	}

	var details mcpserver.DetailsProvider
	if a.postgres != nil {
		details = a.postgres
	}

	switch transport {
	case "stdio":
		return mcpserver.New(a.assistant, a.resolver, details, Version, logger.Named("mcp")).ServeStdio()
	case "sse":
		return mcpserver.New(a.assistant, a.resolver, details, Version, logger.Named("mcp")).ServeSSE(ctx, addr, cfg.Server.BaseURL)
	case "http":
		gin.SetMode(gin.ReleaseMode)
		router := httpapi.NewRouter(a.assistant, a.resolver, details, logger.Named("http"))
		return httpapi.Serve(ctx, addr, router, logger.Named("http"))
	default:
		return errors.Newf("unknown transport %q", transport)
	}
}
