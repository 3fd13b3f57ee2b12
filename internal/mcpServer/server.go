// Package mcpServer exposes the knowledge base to MCP clients as a search tool.
package mcpServer

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	Version  = "1.0.0"
	ToolName = "search_knowledge_base"
)

var ErrMissingSearcher = errors.New("mcp server requires a knowledge base searcher")

// Searcher is the part of the knowledge base the tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, threshold float64, topK int) ([]commonModels.SimilarityResult, error)
	Defaults() config.SearchSettings
}

type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the error message or question to look up"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default from server settings)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity, exclusive (default from server settings)"`
}

type SearchOutput struct {
	Results []commonModels.SimilarityResult `json:"results"`
	Count   int                             `json:"count"`
}

type Server struct {
	searcher Searcher
	server   *mcp.Server
	logger   *logger_i.Logger
}

func NewServer(searcher Searcher) (*Server, error) {
	if searcher == nil {
		return nil, ErrMissingSearcher
	}
	s := &Server{
		searcher: searcher,
		server:   mcp.NewServer(&mcp.Implementation{Name: "flowfix", Version: Version}, nil),
		logger:   logger_i.NewLogger("mcp_server"),
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: "Search the internal knowledge base for document chunks similar to an error message",
	}, s.handleSearch)
	return s, nil
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	defaults := s.searcher.Defaults()
	topK := input.TopK
	if topK <= 0 {
		topK = defaults.TopK
	}
	threshold := defaults.SimilarityThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	results, err := s.searcher.Search(ctx, input.Query, threshold, topK)
	if err != nil {
		s.logger.With("traceId", config.TraceId(ctx)).Warn("Knowledge base search failed", "error", err)
		return nil, SearchOutput{}, err
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}
