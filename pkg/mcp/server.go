package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/graphcalc/internal/service"
	"github.com/rendis/graphcalc/internal/session"
)

// ServerDeps holds the dependencies for creating a GraphcalcServer.
type ServerDeps struct {
	Sessions *session.Manager
	Parser   *service.Parser
	Query    *service.Query
	Logger   *slog.Logger
	Version  string
}

// GraphcalcServer wraps an MCP server with graphcalc tool handlers.
type GraphcalcServer struct {
	sessions  *session.Manager
	parser    *service.Parser
	query     *service.Query
	owners    *SessionRegistry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewGraphcalcServer creates a new GraphcalcServer with all tools registered.
// Resolver sessions opened by an MCP client are closed when that client
// disconnects, and the ownership record goes away with any session the
// manager closes or evicts.
func NewGraphcalcServer(deps ServerDeps) *GraphcalcServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &GraphcalcServer{
		sessions: deps.Sessions,
		parser:   deps.Parser,
		query:    deps.Query,
		owners:   NewSessionRegistry(),
		logger:   logger,
	}

	if s.sessions != nil {
		s.sessions.OnRemove(s.owners.Forget)
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, cs server.ClientSession) {
		s.release(ctx, cs.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"graphcalc",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("Graphcalc resolves user-defined variables and functions inside LaTeX equations. Open a session with graphcalc.session, add rewrite rules with graphcalc.rule, define and evaluate statements with graphcalc.execute, expand calls with graphcalc.resolve, produce a parsed equation with graphcalc.parse, list stored graphs or equations with graphcalc.query, and draw how definitions depend on each other with graphcalc.diagram."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *GraphcalcServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *GraphcalcServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *GraphcalcServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: sessionTool(), Handler: s.handleSession},
		{Tool: ruleTool(), Handler: s.handleRule},
		{Tool: executeTool(), Handler: s.handleExecute},
		{Tool: resolveTool(), Handler: s.handleResolve},
		{Tool: parseTool(), Handler: s.handleParse},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func sessionTool() mcp.Tool {
	return mcp.NewTool("graphcalc.session",
		mcp.WithDescription("Open, inspect, list or close resolver sessions"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("create", "get", "list", "close"),
			mcp.Description("Session operation to perform"),
		),
		mcp.WithString("session_id", mcp.Description("Target session (required for get and close)")),
	)
}

func ruleTool() mcp.Tool {
	return mcp.NewTool("graphcalc.rule",
		mcp.WithDescription("Add a regex substitution rule applied to every statement of a session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("RE2 regular expression")),
		mcp.WithString("replacement", mcp.Description("Replacement text, may reference groups as ${1}")),
	)
}

func executeTool() mcp.Tool {
	return mcp.NewTool("graphcalc.execute",
		mcp.WithDescription("Execute statements in a session: assignments, function definitions, calls or bare expressions"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("expression", mcp.Description("A single statement")),
		mcp.WithArray("expressions", mcp.WithStringItems(), mcp.Description("Statements executed in order; each gets its own result")),
	)
}

func resolveTool() mcp.Tool {
	return mcp.NewTool("graphcalc.resolve",
		mcp.WithDescription("Expand every user-defined call and variable in an expression"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Expression or equation to resolve")),
	)
}

func parseTool() mcp.Tool {
	return mcp.NewTool("graphcalc.parse",
		mcp.WithDescription("Resolve and simplify a LaTeX equation into its parsed form"),
		mcp.WithString("equation", mcp.Required(), mcp.Description("LaTeX equation, e.g. y = \\frac{x}{2}")),
		mcp.WithString("session_id", mcp.Description("Session whose definitions apply (default: a throw-away session)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("graphcalc.query",
		mcp.WithDescription("Query stored graphs or equations"),
		mcp.WithString("resource", mcp.Required(),
			mcp.Enum("graphs", "equations"),
			mcp.Description("Type of resource to query"),
		),
		mcp.WithString("graph_id", mcp.Description("Graph whose equations are listed (required for equations)")),
		mcp.WithString("owner", mcp.Description("Only graphs of this owner")),
		mcp.WithString("where", mcp.Description("CEL boolean filter over each record, e.g. equation.line_width > 2")),
		mcp.WithString("select", mcp.Description("jq projection applied to the filtered records")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of graphs")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("graphcalc.diagram",
		mcp.WithDescription("Generate a diagram of how a session's definitions use each other. Returns ASCII art, Mermaid flowchart syntax, or a base64-encoded PNG image"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
	)
}
