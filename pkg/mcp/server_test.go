package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphcalcServer(t *testing.T) {
	s := NewGraphcalcServer(ServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.owners)
	assert.Same(t, s.mcpServer, s.MCPServer())
}

func TestToolRegistration(t *testing.T) {
	s := NewGraphcalcServer(ServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 7)

	expectedTools := []string{
		"graphcalc.session",
		"graphcalc.rule",
		"graphcalc.execute",
		"graphcalc.resolve",
		"graphcalc.parse",
		"graphcalc.query",
		"graphcalc.diagram",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"session", "graphcalc.session", "Open, inspect, list or close resolver sessions"},
		{"rule", "graphcalc.rule", "Add a regex substitution rule applied to every statement of a session"},
		{"resolve", "graphcalc.resolve", "Expand every user-defined call and variable in an expression"},
		{"parse", "graphcalc.parse", "Resolve and simplify a LaTeX equation into its parsed form"},
		{"query", "graphcalc.query", "Query stored graphs or equations"},
	}

	s := NewGraphcalcServer(ServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}

func TestQueryToolRequiresResource(t *testing.T) {
	tool := queryTool()
	assert.Contains(t, tool.InputSchema.Required, "resource")
	assert.Contains(t, tool.InputSchema.Properties, "where")
	assert.Contains(t, tool.InputSchema.Properties, "select")
}
