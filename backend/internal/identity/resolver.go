package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// DefaultLabel is used when an extracted entity carries no type.
const DefaultLabel = "Entity"

// Resolve derives a stable identifier from an entity's type and name.
// Equal (type, normalized name) pairs always yield the same id, so repeated
// mentions of the same entity across documents collapse to one graph node.
// The name is trimmed and case-folded before hashing; the type is taken
// verbatim and also becomes the id prefix to keep ids readable.
func Resolve(entityType, name string) string {
	if entityType == "" {
		entityType = DefaultLabel
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	sum := sha256.Sum256([]byte(entityType + ":" + normalized))
	return entityType + "_" + hex.EncodeToString(sum[:])[:12]
}

// Entity is one extracted entity before it becomes a graph node.
type Entity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// DedupeEntities assigns stable ids to a batch of extracted entities and
// collapses duplicates by resolved id, keeping the first-seen record.
// The returned ids are content-derived, so duplicates across separate
// batches merge in the graph store as well.
func DedupeEntities(entities []Entity) []Entity {
	seen := make(map[string]bool, len(entities))
	unique := make([]Entity, 0, len(entities))
	log := logger.Get()

	for _, e := range entities {
		if e.Type == "" {
			e.Type = DefaultLabel
		}
		stableID := Resolve(e.Type, e.Name)
		if seen[stableID] {
			log.Debug("Merged duplicate entity in batch",
				zap.String("id", stableID),
				zap.String("name", e.Name),
			)
			continue
		}
		seen[stableID] = true
		e.ID = stableID
		unique = append(unique, e)
	}

	return unique
}

// RemapRelationships rewrites relationship endpoints from extraction-local
// ids to the stable ids produced for the same batch.
func RemapRelationships(entities []Entity, rels []Relationship) []Relationship {
	// Map the extractor's transient ids (e1, e2, ...) to stable ids.
	idMap := make(map[string]string, len(entities))
	for i := range entities {
		e := entities[i]
		t := e.Type
		if t == "" {
			t = DefaultLabel
		}
		idMap[e.ID] = Resolve(t, e.Name)
	}

	out := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		from, okFrom := idMap[r.FromID]
		to, okTo := idMap[r.ToID]
		if !okFrom || !okTo {
			// Endpoint never appeared in the entity list; drop the edge.
			continue
		}
		r.FromID = from
		r.ToID = to
		out = append(out, r)
	}
	return out
}

// Relationship is one extracted relationship between two entities.
type Relationship struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
}
