package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the generate_document, get_run and
// classify_text tools registered.
func NewServer(runs RunService) *mcp.Server {
	svc := NewDocumentService(runs)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "bizdoc",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_document",
		Description: "Generate an SAP design document from a business process description. Runs a director, four specialists, a consistency reviewer and a supplementary author; returns markdown plus any quality warnings. Set async to get a run id instead.",
	}, svc.GenerateDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Get the status, progress lines and (once complete) the document of a generation run.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_text",
		Description: "Rank the SAP modules that match a business process description by keyword score.",
	}, svc.ClassifyText)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP at addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
