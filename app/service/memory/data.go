package memory

type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

func (r *Relation) same(other *Relation) bool {
	return r.From == other.From && r.To == other.To && r.RelationType == other.RelationType
}

type KnowledgeGraph struct {
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}

func emptyGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		Entities:  []*Entity{},
		Relations: []*Relation{},
	}
}

func (g *KnowledgeGraph) findEntity(name string) *Entity {
	for _, e := range g.Entities {
		if e.Name == name {
			return e
		}
	}

	return nil
}

type ObservationAddition struct {
	EntityName string   `json:"entityName"`
	Contents   []string `json:"contents"`
}

type ObservationResult struct {
	EntityName        string   `json:"entityName"`
	AddedObservations []string `json:"addedObservations"`
}

type ObservationDeletion struct {
	EntityName   string   `json:"entityName"`
	Observations []string `json:"observations"`
}

const (
	recordTypeEntity   = "entity"
	recordTypeRelation = "relation"
)

type entityLine struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

type relationLine struct {
	Type         string `json:"type"`
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

type jsonLineItem struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	RelationType string   `json:"relationType"`
}
