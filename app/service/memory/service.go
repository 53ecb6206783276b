package memory

import (
	"kgmemory/app/config"
	"kgmemory/app/service/queue"
	"log/slog"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Service implements the graph operations. Each call loads the file,
// transforms the graph and, for mutations, writes it back, all inside one
// slot of the service's own queue.
type Service struct {
	store *Store
	queue *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Memory.FilePath)
}

func NewService(path string) (*Service, error) {
	store, err := NewStore(path)
	if err != nil {
		return nil, err
	}

	slog.Info("Memory store ready", "path", path)

	return &Service{
		store: store,
		queue: queue.NewSerializer(),
	}, nil
}

func (s *Service) Path() string {
	return s.store.Path()
}

// CreateEntities appends entities whose names are not taken yet and returns
// only those. Existing names are skipped without an error.
func (s *Service) CreateEntities(entities []Entity) ([]*Entity, error) {
	return queue.Exclusive(s.queue, func() ([]*Entity, error) {
		graph, err := s.store.Load()
		if err != nil {
			return nil, err
		}

		added := make([]*Entity, 0, len(entities))
		for _, e := range entities {
			if graph.findEntity(e.Name) != nil {
				continue
			}

			entity := &Entity{
				Name:         e.Name,
				EntityType:   e.EntityType,
				Observations: appendMissing([]string{}, e.Observations),
			}
			graph.Entities = append(graph.Entities, entity)
			added = append(added, entity)
		}

		if err = s.store.Save(graph); err != nil {
			return nil, err
		}

		slog.Info("Created entities",
			"requested", len(entities),
			"added", len(added),
		)

		return added, nil
	})
}

// CreateRelations appends relations whose (from, to, relationType) triple is new.
func (s *Service) CreateRelations(relations []Relation) ([]*Relation, error) {
	return queue.Exclusive(s.queue, func() ([]*Relation, error) {
		graph, err := s.store.Load()
		if err != nil {
			return nil, err
		}

		added := make([]*Relation, 0, len(relations))
		for _, r := range relations {
			exists := pie.Any(graph.Relations, func(existing *Relation) bool {
				return existing.same(&r)
			})
			if exists {
				continue
			}

			relation := &Relation{
				From:         r.From,
				To:           r.To,
				RelationType: r.RelationType,
			}
			graph.Relations = append(graph.Relations, relation)
			added = append(added, relation)
		}

		if err = s.store.Save(graph); err != nil {
			return nil, err
		}

		slog.Info("Created relations",
			"requested", len(relations),
			"added", len(added),
		)

		return added, nil
	})
}

// AddObservations processes items in order and stops at the first entity
// that does not exist. Nothing is saved in that case, so observations
// appended for earlier items are lost with the in-memory graph.
func (s *Service) AddObservations(additions []ObservationAddition) ([]ObservationResult, error) {
	return queue.Exclusive(s.queue, func() ([]ObservationResult, error) {
		graph, err := s.store.Load()
		if err != nil {
			return nil, err
		}

		results := make([]ObservationResult, 0, len(additions))
		for _, a := range additions {
			entity := graph.findEntity(a.EntityName)
			if entity == nil {
				return nil, &NotFoundError{EntityName: a.EntityName}
			}

			before := len(entity.Observations)
			entity.Observations = appendMissing(entity.Observations, a.Contents)

			added := make([]string, 0, len(entity.Observations)-before)
			added = append(added, entity.Observations[before:]...)

			results = append(results, ObservationResult{
				EntityName:        a.EntityName,
				AddedObservations: added,
			})
		}

		if err = s.store.Save(graph); err != nil {
			return nil, err
		}

		slog.Info("Added observations", "entities", len(additions))

		return results, nil
	})
}

// DeleteEntities removes the named entities and every relation that
// mentions one of them on either end.
func (s *Service) DeleteEntities(names []string) error {
	_, err := queue.Exclusive(s.queue, func() (struct{}, error) {
		graph, err := s.store.Load()
		if err != nil {
			return struct{}{}, err
		}

		entities := pie.Filter(graph.Entities, func(e *Entity) bool {
			return !pie.Contains(names, e.Name)
		})
		relations := pie.Filter(graph.Relations, func(r *Relation) bool {
			return !pie.Contains(names, r.From) && !pie.Contains(names, r.To)
		})

		removedEntities := len(graph.Entities) - len(entities)
		removedRelations := len(graph.Relations) - len(relations)

		graph.Entities = entities
		graph.Relations = relations

		if err = s.store.Save(graph); err != nil {
			return struct{}{}, err
		}

		slog.Info("Deleted entities",
			"names", names,
			"entities_removed", removedEntities,
			"relations_removed", removedRelations,
		)

		return struct{}{}, nil
	})

	return err
}

// DeleteObservations silently skips deletions that name a missing entity.
func (s *Service) DeleteObservations(deletions []ObservationDeletion) error {
	_, err := queue.Exclusive(s.queue, func() (struct{}, error) {
		graph, err := s.store.Load()
		if err != nil {
			return struct{}{}, err
		}

		totalDeleted := 0
		for _, d := range deletions {
			entity := graph.findEntity(d.EntityName)
			if entity == nil {
				continue
			}

			kept := nonNil(pie.Filter(entity.Observations, func(o string) bool {
				return !pie.Contains(d.Observations, o)
			}))
			totalDeleted += len(entity.Observations) - len(kept)
			entity.Observations = kept
		}

		if err = s.store.Save(graph); err != nil {
			return struct{}{}, err
		}

		slog.Info("Deleted observations", "deleted", totalDeleted)

		return struct{}{}, nil
	})

	return err
}

func (s *Service) DeleteRelations(relations []Relation) error {
	_, err := queue.Exclusive(s.queue, func() (struct{}, error) {
		graph, err := s.store.Load()
		if err != nil {
			return struct{}{}, err
		}

		kept := pie.Filter(graph.Relations, func(r *Relation) bool {
			return !pie.Any(relations, func(del Relation) bool {
				return r.same(&del)
			})
		})
		removed := len(graph.Relations) - len(kept)
		graph.Relations = kept

		if err = s.store.Save(graph); err != nil {
			return struct{}{}, err
		}

		slog.Info("Deleted relations", "deleted", removed)

		return struct{}{}, nil
	})

	return err
}

func (s *Service) ReadGraph() (*KnowledgeGraph, error) {
	return queue.Exclusive(s.queue, s.store.Load)
}

// SearchNodes keeps entities whose name, type or any observation contains
// query, ignoring case, plus the relations between them.
func (s *Service) SearchNodes(query string) (*KnowledgeGraph, error) {
	return queue.Exclusive(s.queue, func() (*KnowledgeGraph, error) {
		graph, err := s.store.Load()
		if err != nil {
			return nil, err
		}

		needle := strings.ToLower(query)
		matches := func(text string) bool {
			return strings.Contains(strings.ToLower(text), needle)
		}

		entities := pie.Filter(graph.Entities, func(e *Entity) bool {
			return matches(e.Name) || matches(e.EntityType) || pie.Any(e.Observations, matches)
		})

		result := inducedSubgraph(graph, entities)

		slog.Info("Search completed",
			"query", query,
			"entities_count", len(result.Entities),
			"relations_count", len(result.Relations),
		)

		return result, nil
	})
}

// OpenNodes returns the entities with exactly the given names and the
// relations between them.
func (s *Service) OpenNodes(names []string) (*KnowledgeGraph, error) {
	return queue.Exclusive(s.queue, func() (*KnowledgeGraph, error) {
		graph, err := s.store.Load()
		if err != nil {
			return nil, err
		}

		entities := pie.Filter(graph.Entities, func(e *Entity) bool {
			return pie.Contains(names, e.Name)
		})

		return inducedSubgraph(graph, entities), nil
	})
}

func (s *Service) Shutdown() error {
	slog.Info("Waiting for pending memory operations", "pending", s.queue.Pending())

	return s.queue.Shutdown()
}

func inducedSubgraph(graph *KnowledgeGraph, entities []*Entity) *KnowledgeGraph {
	kept := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		kept[e.Name] = struct{}{}
	}

	relations := pie.Filter(graph.Relations, func(r *Relation) bool {
		_, fromOK := kept[r.From]
		_, toOK := kept[r.To]
		return fromOK && toOK
	})

	result := emptyGraph()
	result.Entities = append(result.Entities, entities...)
	result.Relations = append(result.Relations, relations...)

	return result
}

// appendMissing appends the values not already in dst, keeping first-seen order.
func appendMissing(dst []string, values []string) []string {
	for _, v := range values {
		if !pie.Contains(dst, v) {
			dst = append(dst, v)
		}
	}

	return dst
}
