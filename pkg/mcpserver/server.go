// Package mcpserver exposes the Chronicle store to external agents over
// the Model Context Protocol's line-delimited JSON-over-stdio transport:
// one resource per item, and four search/listing tools.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/bojanni/Chronicle/internal/store"
)

// Server bridges MCP requests to a store.Storer. All handlers are
// synchronous; the transport itself serialises request handling (§5).
type Server struct {
	store store.Storer
	log   *zap.Logger
}

// New constructs a Server over s.
func New(s store.Storer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: s, log: log}
}

// Register wires every resource and tool onto the given MCP server
// instance. Resources are synced dynamically at list_resources time
// rather than registered once, since items are created and deleted
// independently of server startup.
func (srv *Server) Register(s *mcp.Server) {
	s.AddResources(&mcp.ResourceTemplate{
		URITemplate: "chronicle://chats/{id}",
		Name:        "chronicle-chat",
		Description: "A single archived chat or note rendered as markdown.",
		MIMEType:    "text/markdown",
	}, srv.handleReadResource)

	srv.registerTools(s)
}

// Options builds the mcp.ServerOptions this Server requires at
// mcp.NewServer construction time. list_resources can't be served from a
// static registry the way tools are, since the item set changes
// independently of server startup, so it is wired in here as a
// ListResourcesHandler rather than through Register.
func (srv *Server) Options() *mcp.ServerOptions {
	return &mcp.ServerOptions{
		ListResourcesHandler: srv.listResourcesHandler,
	}
}

// listResourcesHandler adapts ListResources to the request/result shape
// the MCP stdio dispatcher calls for resources/list, the same
// Request-in/Result-out convention handleReadResource follows.
func (srv *Server) listResourcesHandler(ctx context.Context, req *mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	resources, err := srv.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return &mcp.ListResourcesResult{Resources: resources}, nil
}

// ListResources implements the list_resources method: one entry per
// item, newest first (§4.5).
func (srv *Server) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	items, err := srv.store.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	out := make([]*mcp.Resource, 0, len(items))
	for _, it := range items {
		out = append(out, &mcp.Resource{
			URI:         resourceURI(it.ID),
			Name:        it.Title,
			Description: it.Summary,
			MIMEType:    "text/markdown",
		})
	}
	return out, nil
}

func resourceURI(id string) string {
	return "chronicle://chats/" + id
}
