package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/graphcalc/internal/diagram"
	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/session"
	"github.com/rendis/graphcalc/internal/store"
	"github.com/rendis/graphcalc/pkg/schema"
)

// sessionInfo is the tool view of a resolver session.
type sessionInfo struct {
	SessionID   string         `json:"session_id"`
	Rules       []session.Rule `json:"rules"`
	Definitions []string       `json:"definitions"`
}

// handleSession creates, inspects, lists or closes resolver sessions.
func (s *GraphcalcServer) handleSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}

	switch action {
	case "create":
		id, createErr := s.sessions.Create(ctx)
		if createErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("session create failed: %v", createErr)), nil
		}
		s.captureOwner(ctx, id)
		return s.describe(ctx, id)
	case "list":
		return marshalResult(map[string]any{"sessions": s.sessions.IDs()})
	case "get", "close":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown session action: %s", action)), nil
	}

	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError(fmt.Sprintf("session_id is required for %s", action)), nil
	}
	if action == "get" {
		return s.describe(ctx, id)
	}
	if closeErr := s.sessions.Close(ctx, id); closeErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session close failed: %v", closeErr)), nil
	}
	s.owners.Forget(id)
	return marshalResult(map[string]any{"session_id": id, "closed": true})
}

// handleRule adds a substitution rule to a session.
func (s *GraphcalcServer) handleRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError("pattern is required"), nil
	}
	replacement := req.GetString("replacement", "")

	ctx = logging.WithSessionID(ctx, id)
	var res schema.Result
	withErr := s.sessions.With(ctx, id, func(sess *resolver.Session) error {
		res = s.sessions.Resolver().AddSubRule(ctx, sess, pattern, replacement)
		return nil
	})
	if withErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rule failed: %v", withErr)), nil
	}
	if !res.OK {
		return mcp.NewToolResultError(fmt.Sprintf("rule rejected: %v", res.Err)), nil
	}
	return marshalResult(res)
}

// handleExecute runs one statement, or a batch in order. A batch reports
// per-statement failures inside its results instead of failing the call.
func (s *GraphcalcServer) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	batch := req.GetStringSlice("expressions", nil)
	single := req.GetString("expression", "")
	if batch == nil && single == "" {
		return mcp.NewToolResultError("expression or expressions is required"), nil
	}

	ctx = logging.WithSessionID(ctx, id)
	var results []schema.Result
	withErr := s.sessions.With(ctx, id, func(sess *resolver.Session) error {
		if batch != nil {
			results = s.sessions.Resolver().ExecuteAll(ctx, sess, batch)
			return nil
		}
		results = []schema.Result{s.sessions.Resolver().Execute(ctx, sess, single)}
		return nil
	})
	if withErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", withErr)), nil
	}

	if batch != nil {
		return marshalResult(map[string]any{"results": results})
	}
	if !results[0].OK {
		return mcp.NewToolResultError(fmt.Sprintf("execute failed: %v", results[0].Err)), nil
	}
	return marshalResult(results[0])
}

// handleResolve fully expands an expression in a session.
func (s *GraphcalcServer) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}

	ctx = logging.WithSessionID(ctx, id)
	var res schema.Result
	withErr := s.sessions.With(ctx, id, func(sess *resolver.Session) error {
		res = s.sessions.Resolver().ForceResolve(ctx, sess, expr)
		return nil
	})
	if withErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", withErr)), nil
	}
	if !res.OK {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", res.Err)), nil
	}
	return marshalResult(res)
}

// handleParse produces the parsed form of an equation.
func (s *GraphcalcServer) handleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	equation, err := req.RequireString("equation")
	if err != nil {
		return mcp.NewToolResultError("equation is required"), nil
	}

	out, parseErr := s.parser.ParseEquation(ctx, req.GetString("session_id", ""), equation)
	if parseErr != nil {
		if ge, ok := schema.AsError(parseErr); ok {
			return mcp.NewToolResultError(ge.Message), nil
		}
		return mcp.NewToolResultError(parseErr.Error()), nil
	}
	return marshalResult(out)
}

// handleQuery lists graphs or equations with optional CEL filtering and jq projection.
func (s *GraphcalcServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	where := req.GetString("where", "")
	selectExpr := req.GetString("select", "")

	var (
		out      any
		queryErr error
	)
	switch resource {
	case "graphs":
		filter := store.GraphFilter{
			Owner: req.GetString("owner", ""),
			Limit: req.GetInt("limit", 50),
		}
		out, queryErr = s.query.Graphs(ctx, filter, where, selectExpr)
	case "equations":
		graphID := req.GetString("graph_id", "")
		if graphID == "" {
			return mcp.NewToolResultError("equation query requires graph_id"), nil
		}
		out, queryErr = s.query.Equations(logging.WithGraphID(ctx, graphID), graphID, where, selectExpr)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type: %s", resource)), nil
	}
	if queryErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", queryErr)), nil
	}
	return marshalResult(map[string]any{resource: out})
}

// handleDiagram renders the dependency graph of a session's definitions.
func (s *GraphcalcServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	ctx = logging.WithSessionID(ctx, id)
	var model *diagram.DiagramModel
	withErr := s.sessions.With(ctx, id, func(sess *resolver.Session) error {
		model = diagram.Build(sess, s.sessions.Resolver().IsExternal)
		return nil
	})
	if withErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", withErr)), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model, diagram.ImagePNG)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

// --- Internal helpers ---

func (s *GraphcalcServer) describe(ctx context.Context, id string) (*mcp.CallToolResult, error) {
	var info sessionInfo
	err := s.sessions.With(ctx, id, func(sess *resolver.Session) error {
		rules := sess.Rules()
		info = sessionInfo{
			SessionID:   sess.ID(),
			Rules:       make([]session.Rule, len(rules)),
			Definitions: sess.Definitions(),
		}
		for i, r := range rules {
			info.Rules[i] = session.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
		}
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", err)), nil
	}
	return marshalResult(info)
}

// captureOwner maps a new resolver session to the calling MCP client.
func (s *GraphcalcServer) captureOwner(ctx context.Context, sessionID string) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		s.owners.Register(cs.SessionID(), sessionID)
	}
}

// release closes every resolver session a disconnected client left open.
func (s *GraphcalcServer) release(ctx context.Context, clientID string) {
	for _, id := range s.owners.Release(clientID) {
		err := s.sessions.Close(ctx, id)
		if err != nil && schema.CodeOf(err) != schema.ErrCodeNotFound {
			s.logger.Warn("failed to close session of disconnected client",
				slog.String("session_id", id), slog.String("error", err.Error()))
			continue
		}
		s.logger.Debug("closed session of disconnected client", slog.String("session_id", id), slog.String("client", clientID))
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
