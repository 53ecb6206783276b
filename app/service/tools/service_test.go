package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"kgmemory/app/service/memory"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	memorySvc, err := memory.NewService(filepath.Join(t.TempDir(), "memory.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = memorySvc.Shutdown() })

	return NewService(memorySvc, "memory-server", "test")
}

func findTool(t *testing.T, s *Service, name string) server.ServerTool {
	t.Helper()

	for _, tool := range s.Tools() {
		if tool.Tool.Name == name {
			return tool
		}
	}

	t.Fatalf("tool %s is not registered", name)
	return server.ServerTool{}
}

// call runs the named tool and returns the text payload and error flag.
func call(t *testing.T, s *Service, name string, args map[string]any) (string, bool) {
	t.Helper()

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	if args != nil {
		request.Params.Arguments = args
	}

	result, err := findTool(t, s, name).Handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content type %T", result.Content[0])

	return text.Text, result.IsError
}

func TestTools_Registered(t *testing.T) {
	s := newTestService(t)

	names := make([]string, 0)
	for _, tool := range s.Tools() {
		names = append(names, tool.Tool.Name)
	}

	assert.ElementsMatch(t, []string{
		"create_entities", "create_relations", "add_observations",
		"delete_entities", "delete_observations", "delete_relations",
		"read_graph", "search_nodes", "open_nodes",
	}, names)
	assert.NotNil(t, s.Server())
}

func TestTools_CreateAndRead(t *testing.T) {
	s := newTestService(t)

	entities := []any{
		map[string]any{"name": "P", "entityType": "Project", "observations": []any{"x"}},
	}

	text, isErr := call(t, s, "create_entities", map[string]any{"entities": entities})
	require.False(t, isErr, text)

	var created []memory.Entity
	require.NoError(t, json.Unmarshal([]byte(text), &created))
	require.Len(t, created, 1)
	assert.Equal(t, "P", created[0].Name)

	text, isErr = call(t, s, "create_entities", map[string]any{"entities": entities})
	require.False(t, isErr, text)
	assert.Equal(t, "[]", text)

	text, isErr = call(t, s, "read_graph", nil)
	require.False(t, isErr, text)

	var graph memory.KnowledgeGraph
	require.NoError(t, json.Unmarshal([]byte(text), &graph))
	require.Len(t, graph.Entities, 1)
	assert.Equal(t, []string{"x"}, graph.Entities[0].Observations)
	assert.Contains(t, text, "\n  \"entities\"")
}

func TestTools_DeleteMessages(t *testing.T) {
	s := newTestService(t)

	text, isErr := call(t, s, "delete_entities", map[string]any{"entityNames": []any{"nope"}})
	assert.False(t, isErr)
	assert.Equal(t, "Entities deleted successfully", text)

	text, isErr = call(t, s, "delete_observations", map[string]any{"deletions": []any{
		map[string]any{"entityName": "nope", "observations": []any{"a"}},
	}})
	assert.False(t, isErr)
	assert.Equal(t, "Observations deleted successfully", text)

	text, isErr = call(t, s, "delete_relations", map[string]any{"relations": []any{
		map[string]any{"from": "a", "to": "b", "relationType": "c"},
	}})
	assert.False(t, isErr)
	assert.Equal(t, "Relations deleted successfully", text)
}

func TestTools_AddObservationsMissingEntity(t *testing.T) {
	s := newTestService(t)

	text, isErr := call(t, s, "add_observations", map[string]any{"observations": []any{
		map[string]any{"entityName": "Ghost", "contents": []any{"boo"}},
	}})
	assert.True(t, isErr)
	assert.Equal(t, "Entity with name Ghost not found", text)
}

func TestTools_MissingArguments(t *testing.T) {
	s := newTestService(t)

	text, isErr := call(t, s, "search_nodes", nil)
	assert.True(t, isErr)
	assert.Equal(t, "No arguments provided for tool: search_nodes", text)
}

func TestTools_SchemaViolation(t *testing.T) {
	s := newTestService(t)

	text, isErr := call(t, s, "create_entities", map[string]any{"entities": []any{
		map[string]any{"name": "P"},
	}})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid arguments")

	text, isErr = call(t, s, "search_nodes", map[string]any{"query": 42})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid arguments")

	graph, err := s.memorySvc.ReadGraph()
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
}

func TestTools_SearchAndOpen(t *testing.T) {
	s := newTestService(t)

	_, err := s.memorySvc.CreateEntities([]memory.Entity{
		{Name: "Alice", EntityType: "person"},
		{Name: "Bob", EntityType: "person"},
	})
	require.NoError(t, err)
	_, err = s.memorySvc.CreateRelations([]memory.Relation{{From: "Alice", To: "Bob", RelationType: "knows"}})
	require.NoError(t, err)

	text, isErr := call(t, s, "search_nodes", map[string]any{"query": "ALI"})
	require.False(t, isErr, text)

	var graph memory.KnowledgeGraph
	require.NoError(t, json.Unmarshal([]byte(text), &graph))
	assert.Len(t, graph.Entities, 1)
	assert.Empty(t, graph.Relations)
	assert.Contains(t, text, `"relations": []`)

	text, isErr = call(t, s, "open_nodes", map[string]any{"names": []any{"Alice", "Bob"}})
	require.False(t, isErr, text)

	graph = memory.KnowledgeGraph{}
	require.NoError(t, json.Unmarshal([]byte(text), &graph))
	assert.Len(t, graph.Entities, 2)
	assert.Len(t, graph.Relations, 1)
}
