package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bojanni/Chronicle/internal/similarity"
	"github.com/bojanni/Chronicle/internal/store"
	"github.com/bojanni/Chronicle/pkg/pool"
	"github.com/bojanni/Chronicle/pkg/response"
)

func (srv *Server) registerTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_archive",
		Description: "Keyword search across titles, summaries, and tags. Returns up to 10 matches ordered by recency.",
	}, srv.handleSearchArchive)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Vector nearest-neighbour search using a target item's embedding. Returns items ordered by descending similarity score, excluding the target.",
	}, srv.handleSemanticSearch)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_recent_chats",
		Description: "Lists the most recently created items.",
	}, srv.handleListRecentChats)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_tags",
		Description: "Lists every distinct tag across the archive, sorted ascending.",
	}, srv.handleListTags)
}

// --- search_archive ------------------------------------------------------

type SearchArchiveInput struct {
	Query       string   `json:"query" jsonschema:"the keyword or phrase to search for"`
	MemoryType  string   `json:"memory_type,omitempty" jsonschema:"optional memory type filter: episodic, semantic, procedural, emotional, or default"`
	MinSalience *float64 `json:"min_salience,omitempty" jsonschema:"optional minimum salience filter in [0,1]"`
}

func (srv *Server) handleSearchArchive(ctx context.Context, _ *mcp.CallToolRequest, input SearchArchiveInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), nil, nil
	}

	filters := store.Filters{
		MemoryType:  store.MemoryType(input.MemoryType),
		MinSalience: input.MinSalience,
	}

	items, err := srv.store.KeywordSearch(ctx, input.Query, filters)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	return jsonResult(response.FromItems(items))
}

// --- semantic_search -------------------------------------------------------

type SemanticSearchInput struct {
	TargetID    string   `json:"targetId" jsonschema:"id of the item whose embedding seeds the search"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	MemoryType  string   `json:"memory_type,omitempty" jsonschema:"optional memory type filter"`
	MinSalience *float64 `json:"min_salience,omitempty" jsonschema:"optional minimum salience filter"`
}

func (srv *Server) handleSemanticSearch(ctx context.Context, _ *mcp.CallToolRequest, input SemanticSearchInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	target, err := srv.store.GetItem(ctx, input.TargetID)
	if err != nil || target == nil || len(target.Embedding) == 0 {
		return errorResult("Target chat not found or has no vector data."), nil, nil
	}

	filters := store.Filters{
		MemoryType:  store.MemoryType(input.MemoryType),
		MinSalience: input.MinSalience,
		ExcludeID:   target.ID,
	}

	neighbors, err := srv.store.VectorKNN(ctx, target.Embedding, limit, filters)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	scored := make([]response.ScoredItem, 0, len(neighbors))
	for _, it := range neighbors {
		score := similarity.Cosine(target.Embedding, it.Embedding)
		scored = append(scored, response.ScoredItem{Item: it, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})

	return jsonResult(response.FromScoredItems(scored))
}

// --- list_recent_chats -----------------------------------------------------

type ListRecentChatsInput struct {
	Count int `json:"count,omitempty" jsonschema:"number of items to return, default 5, clamped to at least 1"`
}

func (srv *Server) handleListRecentChats(ctx context.Context, _ *mcp.CallToolRequest, input ListRecentChatsInput) (*mcp.CallToolResult, any, error) {
	count := input.Count
	if count == 0 {
		count = 5
	} else if count < 1 {
		count = 1
	}

	items, err := srv.store.ListRecent(ctx, count)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	return jsonResult(response.FromItems(items))
}

// --- list_tags ---------------------------------------------------------------

type ListTagsInput struct{}

func (srv *Server) handleListTags(ctx context.Context, _ *mcp.CallToolRequest, _ ListTagsInput) (*mcp.CallToolResult, any, error) {
	tags, err := srv.store.ListTags(ctx)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(strings.Join(tags, ", "), false), nil, nil
}

// --- shared response helpers -----------------------------------------------

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return textResult(msg, true)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return errorResult(fmt.Sprintf("failed to serialize result: %v", err)), nil, nil
	}
	// Encode appends a trailing newline; tool text results don't want one.
	return textResult(strings.TrimRight(buf.String(), "\n"), false), nil, nil
}
