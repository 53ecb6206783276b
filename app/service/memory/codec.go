package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

func encodeGraph(graph *KnowledgeGraph) ([]byte, error) {
	var buf bytes.Buffer

	for _, e := range graph.Entities {
		data, err := json.Marshal(entityLine{
			Type:         recordTypeEntity,
			Name:         e.Name,
			EntityType:   e.EntityType,
			Observations: nonNil(e.Observations),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entity %q: %w", e.Name, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	for _, r := range graph.Relations {
		data, err := json.Marshal(relationLine{
			Type:         recordTypeRelation,
			From:         r.From,
			To:           r.To,
			RelationType: r.RelationType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal relation %s->%s: %w", r.From, r.To, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if buf.Len() == 0 {
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func decodeGraph(data []byte) (*KnowledgeGraph, error) {
	graph := emptyGraph()

	content := string(data)
	if strings.TrimSpace(content) == "" {
		return graph, nil
	}

	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var item jsonLineItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, &DecodeError{Line: i + 1, Err: err}
		}

		switch item.Type {
		case recordTypeEntity:
			graph.Entities = append(graph.Entities, &Entity{
				Name:         item.Name,
				EntityType:   item.EntityType,
				Observations: nonNil(item.Observations),
			})
		case recordTypeRelation:
			graph.Relations = append(graph.Relations, &Relation{
				From:         item.From,
				To:           item.To,
				RelationType: item.RelationType,
			})
		default:
			slog.Debug("Skipping record of unknown type", "line", i+1, "type", item.Type)
		}
	}

	return graph, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}

	return ss
}
