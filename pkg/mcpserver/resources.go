package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bojanni/Chronicle/internal/store"
)

const resourceURIPrefix = "chronicle://chats/"

// parseResourceID extracts <id> from a chronicle://chats/<id> URI.
func parseResourceID(uri string) (string, error) {
	if !strings.HasPrefix(uri, resourceURIPrefix) {
		return "", fmt.Errorf("unrecognized resource URI: %s", uri)
	}
	id := strings.TrimPrefix(uri, resourceURIPrefix)
	if id == "" {
		return "", fmt.Errorf("resource URI missing id: %s", uri)
	}
	return id, nil
}

// handleReadResource implements read_resource: parses the id, loads the
// item, and renders the markdown document described in spec §4.5.
func (srv *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id, err := parseResourceID(req.Params.URI)
	if err != nil {
		return nil, err
	}

	item, err := srv.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("chat %s not found", id)
		}
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     renderMarkdown(item),
			},
		},
	}, nil
}

func renderMarkdown(item *store.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", item.Title)
	fmt.Fprintf(&b, "**Date:** %s\n", formatDate(item.CreatedAt))
	fmt.Fprintf(&b, "**Source:** %s\n", item.Source)
	fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(item.Tags, ", "))
	fmt.Fprintf(&b, "**Memory Type:** %s\n", memoryTypeLabel(item))
	fmt.Fprintf(&b, "**Salience:** %s\n\n", salienceLabel(item))
	fmt.Fprintf(&b, "## Summary\n%s\n\n", item.Summary)
	fmt.Fprintf(&b, "## Transcript\n%s\n", item.Content)

	return b.String()
}

func formatDate(ms int64) string {
	return time.UnixMilli(ms).Local().Format("January 2, 2006 3:04 PM")
}

func memoryTypeLabel(item *store.Item) string {
	if item.MemoryType == "" {
		return ""
	}
	return string(item.MemoryType)
}

func salienceLabel(item *store.Item) string {
	if item.Salience == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", item.Salience)
}
