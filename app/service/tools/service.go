package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"kgmemory/app/config"
	"kgmemory/app/service/memory"
	"kgmemory/app/service/schema"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

// Service exposes the memory operations as MCP tools.
type Service struct {
	memorySvc *memory.Service
	validator *schema.Validator
	server    *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(do.MustInvoke[*memory.Service](di), cfg.Server.Name, cfg.Server.Version), nil
}

func NewService(memorySvc *memory.Service, name, version string) *Service {
	s := &Service{
		memorySvc: memorySvc,
		validator: schema.NewValidator(),
	}

	s.server = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.server.AddTools(s.Tools()...)

	return s
}

func (s *Service) Server() *server.MCPServer {
	return s.server
}

func (s *Service) Tools() []server.ServerTool {
	return []server.ServerTool{
		bind(s, createEntitiesTool, s.createEntities),
		bind(s, createRelationsTool, s.createRelations),
		bind(s, addObservationsTool, s.addObservations),
		bind(s, deleteEntitiesTool, s.deleteEntities),
		bind(s, deleteObservationsTool, s.deleteObservations),
		bind(s, deleteRelationsTool, s.deleteRelations),
		bind(s, readGraphTool, s.readGraph),
		bind(s, searchNodesTool, s.searchNodes),
		bind(s, openNodesTool, s.openNodes),
	}
}

// bind decodes and validates the arguments of a call against the tool's
// input schema before handing them to call. A string result is sent as is,
// anything else as indented JSON.
func bind[T any](s *Service, tool mcp.Tool, call func(args T) (any, error)) server.ServerTool {
	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arguments := request.GetArguments()
		if arguments == nil {
			if len(tool.InputSchema.Required) > 0 {
				return mcp.NewToolResultError(fmt.Sprintf("No arguments provided for tool: %s", tool.Name)), nil
			}
			arguments = map[string]any{}
		}

		raw, err := json.Marshal(arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		if err = s.validator.Validate(tool.InputSchema, raw); err != nil {
			slog.WarnContext(ctx, "Rejected tool call", "tool", tool.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		var args T
		if err = json.Unmarshal(raw, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := call(args)
		if err != nil {
			slog.WarnContext(ctx, "Tool call failed", "tool", tool.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		if text, ok := result.(string); ok {
			return mcp.NewToolResultText(text), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s result: %w", tool.Name, err)
		}

		return mcp.NewToolResultText(string(data)), nil
	}

	return server.ServerTool{
		Tool:    tool,
		Handler: handler,
	}
}

type createEntitiesArgs struct {
	Entities []memory.Entity `json:"entities"`
}

type createRelationsArgs struct {
	Relations []memory.Relation `json:"relations"`
}

type addObservationsArgs struct {
	Observations []memory.ObservationAddition `json:"observations"`
}

type deleteEntitiesArgs struct {
	EntityNames []string `json:"entityNames"`
}

type deleteObservationsArgs struct {
	Deletions []memory.ObservationDeletion `json:"deletions"`
}

type deleteRelationsArgs struct {
	Relations []memory.Relation `json:"relations"`
}

type searchNodesArgs struct {
	Query string `json:"query"`
}

type openNodesArgs struct {
	Names []string `json:"names"`
}

func (s *Service) createEntities(args createEntitiesArgs) (any, error) {
	return s.memorySvc.CreateEntities(args.Entities)
}

func (s *Service) createRelations(args createRelationsArgs) (any, error) {
	return s.memorySvc.CreateRelations(args.Relations)
}

func (s *Service) addObservations(args addObservationsArgs) (any, error) {
	return s.memorySvc.AddObservations(args.Observations)
}

func (s *Service) deleteEntities(args deleteEntitiesArgs) (any, error) {
	if err := s.memorySvc.DeleteEntities(args.EntityNames); err != nil {
		return nil, err
	}

	return "Entities deleted successfully", nil
}

func (s *Service) deleteObservations(args deleteObservationsArgs) (any, error) {
	if err := s.memorySvc.DeleteObservations(args.Deletions); err != nil {
		return nil, err
	}

	return "Observations deleted successfully", nil
}

func (s *Service) deleteRelations(args deleteRelationsArgs) (any, error) {
	if err := s.memorySvc.DeleteRelations(args.Relations); err != nil {
		return nil, err
	}

	return "Relations deleted successfully", nil
}

func (s *Service) readGraph(struct{}) (any, error) {
	return s.memorySvc.ReadGraph()
}

func (s *Service) searchNodes(args searchNodesArgs) (any, error) {
	return s.memorySvc.SearchNodes(args.Query)
}

func (s *Service) openNodes(args openNodesArgs) (any, error) {
	return s.memorySvc.OpenNodes(args.Names)
}
