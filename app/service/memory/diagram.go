package memory

import (
	"fmt"
	"kgmemory/app/service/queue"
	"regexp"
	"strings"
)

const defaultRelationLabel = "relates"

var nodeIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Mermaid renders the graph as a mermaid flowchart. Node ids are entity
// names with everything outside [A-Za-z0-9_] removed; two names that
// reduce to the same id end up as one node.
func Mermaid(graph *KnowledgeGraph) string {
	var builder strings.Builder

	builder.WriteString("graph TD\n")

	for _, e := range graph.Entities {
		builder.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeID(e.Name), e.Name))
	}

	for _, r := range graph.Relations {
		label := r.RelationType
		if label == "" {
			label = defaultRelationLabel
		}
		builder.WriteString(fmt.Sprintf("    %s -- %s --> %s\n", nodeID(r.From), label, nodeID(r.To)))
	}

	return builder.String()
}

func nodeID(name string) string {
	return nodeIDSanitizer.ReplaceAllString(name, "")
}

// Visualize renders the current graph without modifying it.
func (s *Service) Visualize() (string, error) {
	return queue.Exclusive(s.queue, func() (string, error) {
		graph, err := s.store.Load()
		if err != nil {
			return "", err
		}

		return Mermaid(graph), nil
	})
}
