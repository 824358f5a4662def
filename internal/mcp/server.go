package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mpgirro/hemin/internal/catalog"
	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/index"
	"github.com/mpgirro/hemin/internal/logging"
	"github.com/mpgirro/hemin/pkg/version"
)

const (
	// DefaultPageSize is used when a search call gives no size.
	DefaultPageSize = 10

	// MaxPageSize caps the size argument of a search call.
	MaxPageSize = 50

	serverName = "hemin"
)

// Server bridges MCP clients with the podcast index.
type Server struct {
	mcp     *mcp.Server
	engine  *index.Engine
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCatalog enables the episodes tool.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// NewServer creates an MCP server over engine.
func NewServer(engine *index.Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("index engine is required")
	}

	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return serverName, version.Version
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	tools := []ToolInfo{
		{
			Name:        "search",
			Description: "Full-text search over podcast shows and episodes. Matches titles, descriptions, show notes, chapter marks and show websites. Results are paged; page starts at 1.",
		},
		{
			Name:        "lookup",
			Description: "Fetch a single show or episode by its exo, the external identifier returned by search.",
		},
	}
	if s.catalog != nil {
		tools = append(tools, ToolInfo{
			Name:        "episodes",
			Description: "List the episodes of a show, newest first, by the show's exo.",
		})
	}
	return tools
}

// CallTool invokes a tool by name with loosely typed arguments and returns
// its markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "search":
		in := SearchInput{Query: stringArg(args, "query"), Page: intArg(args, "page"), Size: intArg(args, "size")}
		out, err := s.search(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatSearchResults(in.Query, out), nil
	case "lookup":
		in := LookupInput{Exo: stringArg(args, "exo")}
		out, err := s.lookup(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatLookup(in.Exo, out), nil
	case "episodes":
		if s.catalog == nil {
			return "", NewMethodNotFoundError(name)
		}
		in := EpisodesInput{Exo: stringArg(args, "exo")}
		out, err := s.episodes(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatEpisodes(in.Exo, out), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	for _, t := range s.ListTools() {
		tool := &mcp.Tool{Name: t.Name, Description: t.Description}
		switch t.Name {
		case "search":
			mcp.AddTool(s.mcp, tool, s.mcpSearchHandler)
		case "lookup":
			mcp.AddTool(s.mcp, tool, s.mcpLookupHandler)
		case "episodes":
			mcp.AddTool(s.mcp, tool, s.mcpEpisodesHandler)
		}
		s.logger.Debug("mcp_tool_registered", slog.String("name", t.Name))
	}
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.search(ctx, in)
	return nil, out, err
}

func (s *Server) mcpLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, in LookupInput) (
	*mcp.CallToolResult,
	LookupOutput,
	error,
) {
	out, err := s.lookup(ctx, in)
	return nil, out, err
}

func (s *Server) mcpEpisodesHandler(ctx context.Context, _ *mcp.CallToolRequest, in EpisodesInput) (
	*mcp.CallToolResult,
	EpisodesOutput,
	error,
) {
	out, err := s.episodes(ctx, in)
	return nil, out, err
}

func (s *Server) search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	page := in.Page
	if page == 0 {
		page = 1
	}
	size := clamp(in.Size, DefaultPageSize, MaxPageSize)

	start := time.Now()
	requestID := uuid.NewString()[:8]
	s.logger.Debug("mcp_search_started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("page", page),
		slog.Int("size", size))

	res, err := s.engine.Search(ctx, in.Query, page, size)
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	out := SearchOutput{
		CurrentPage: res.CurrentPage,
		MaxPage:     res.MaxPage,
		TotalHits:   res.TotalHits,
		Results:     make([]ResultOutput, 0, len(res.Results)),
	}
	for _, d := range res.Results {
		out.Results = append(out.Results, toResultOutput(d))
	}

	s.logger.Info("mcp_search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("hits", out.TotalHits))
	return out, nil
}

func (s *Server) lookup(ctx context.Context, in LookupInput) (LookupOutput, error) {
	if strings.TrimSpace(in.Exo) == "" {
		return LookupOutput{}, NewInvalidParamsError("exo parameter is required")
	}
	doc, err := s.engine.FindByExternalID(ctx, in.Exo)
	if err != nil {
		return LookupOutput{}, MapError(err)
	}
	if doc == nil {
		return LookupOutput{}, nil
	}
	r := toResultOutput(doc)
	return LookupOutput{Found: true, Document: &r}, nil
}

func (s *Server) episodes(ctx context.Context, in EpisodesInput) (EpisodesOutput, error) {
	if strings.TrimSpace(in.Exo) == "" {
		return EpisodesOutput{}, NewInvalidParamsError("exo parameter is required")
	}
	show, err := s.catalog.ShowByExo(ctx, in.Exo)
	if err != nil {
		return EpisodesOutput{}, MapError(err)
	}
	if show == nil {
		return EpisodesOutput{Episodes: []ResultOutput{}}, nil
	}
	eps, err := s.catalog.EpisodesByShow(ctx, in.Exo)
	if err != nil {
		return EpisodesOutput{}, MapError(err)
	}

	out := EpisodesOutput{
		Found:    true,
		Show:     show.Title,
		Episodes: make([]ResultOutput, 0, len(eps)),
	}
	for _, ep := range eps {
		out.Episodes = append(out.Episodes, toResultOutput(document.ProjectEpisode(*ep)))
	}
	return out, nil
}

func clamp(v, def, max int) int {
	switch {
	case v <= 0:
		return def
	case v > max:
		return max
	default:
		return v
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg accepts JSON numbers, which decode as float64, and plain ints.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
