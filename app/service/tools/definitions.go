package tools

import "github.com/mark3labs/mcp-go/mcp"

var entitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":       map[string]any{"type": "string", "description": "The name of the entity"},
		"entityType": map[string]any{"type": "string", "description": "The type of the entity"},
		"observations": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "An array of observation contents associated with the entity",
		},
	},
	"required":             []string{"name", "entityType", "observations"},
	"additionalProperties": false,
}

var relationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"from":         map[string]any{"type": "string", "description": "The name of the entity where the relation starts"},
		"to":           map[string]any{"type": "string", "description": "The name of the entity where the relation ends"},
		"relationType": map[string]any{"type": "string", "description": "The type of the relation"},
	},
	"required":             []string{"from", "to", "relationType"},
	"additionalProperties": false,
}

var observationAdditionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"entityName": map[string]any{"type": "string", "description": "The name of the entity to add the observations to"},
		"contents": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "An array of observation contents to add",
		},
	},
	"required":             []string{"entityName", "contents"},
	"additionalProperties": false,
}

var observationDeletionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"entityName": map[string]any{"type": "string", "description": "The name of the entity containing the observations"},
		"observations": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "An array of observations to delete",
		},
	},
	"required":             []string{"entityName", "observations"},
	"additionalProperties": false,
}

var stringItems = map[string]any{"type": "string"}

var (
	createEntitiesTool = mcp.NewTool("create_entities",
		mcp.WithDescription("Create multiple new entities in the knowledge graph"),
		mcp.WithArray("entities", mcp.Required(), mcp.Items(entitySchema)),
	)

	createRelationsTool = mcp.NewTool("create_relations",
		mcp.WithDescription("Create multiple new relations between entities in the knowledge graph. Relations should be in active voice"),
		mcp.WithArray("relations", mcp.Required(), mcp.Items(relationSchema)),
	)

	addObservationsTool = mcp.NewTool("add_observations",
		mcp.WithDescription("Add new observations to existing entities in the knowledge graph"),
		mcp.WithArray("observations", mcp.Required(), mcp.Items(observationAdditionSchema)),
	)

	deleteEntitiesTool = mcp.NewTool("delete_entities",
		mcp.WithDescription("Delete multiple entities and their associated relations from the knowledge graph"),
		mcp.WithArray("entityNames", mcp.Required(),
			mcp.Description("An array of entity names to delete"),
			mcp.Items(stringItems),
		),
	)

	deleteObservationsTool = mcp.NewTool("delete_observations",
		mcp.WithDescription("Delete specific observations from entities in the knowledge graph"),
		mcp.WithArray("deletions", mcp.Required(), mcp.Items(observationDeletionSchema)),
	)

	deleteRelationsTool = mcp.NewTool("delete_relations",
		mcp.WithDescription("Delete multiple relations from the knowledge graph"),
		mcp.WithArray("relations", mcp.Required(),
			mcp.Description("An array of relations to delete"),
			mcp.Items(relationSchema),
		),
	)

	readGraphTool = mcp.NewTool("read_graph",
		mcp.WithDescription("Read the entire knowledge graph"),
	)

	searchNodesTool = mcp.NewTool("search_nodes",
		mcp.WithDescription("Search for nodes in the knowledge graph based on a query"),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("The search query to match against entity names, types, and observation content"),
		),
	)

	openNodesTool = mcp.NewTool("open_nodes",
		mcp.WithDescription("Open specific nodes in the knowledge graph by their names"),
		mcp.WithArray("names", mcp.Required(),
			mcp.Description("An array of entity names to retrieve"),
			mcp.Items(stringItems),
		),
	)
)
