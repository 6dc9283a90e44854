package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	apperrors "smart-employee/backend/pkg/errors"
	"go.uber.org/zap"
)

// fuzzyResultLimit bounds the cost of the approximate-match pass
const fuzzyResultLimit = 10

// Search performs a single CONTAINS pass over the scoped subgraph: nodes by
// name or id, relationships by type. This is the cheap lookup path; the
// conversational retrieval path uses SearchComprehensive.
func (r *Repository) Search(ctx context.Context, scope Scope, term string) (*Graph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		graph := &Graph{Nodes: []Node{}, Relationships: []Relationship{}}

		nodeResult, err := tx.Run(ctx, `
			MATCH (n {user_id: $user_id, subgraph_id: $subgraph_id})
			WHERE toLower(n.name) CONTAINS toLower($term) OR toLower(n.id) CONTAINS toLower($term)
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name
		`, scope.params(map[string]any{"term": term}))
		if err != nil {
			return nil, err
		}
		for nodeResult.Next(ctx) {
			record := nodeResult.Record()
			graph.Nodes = append(graph.Nodes, Node{
				ID:    getString(record, "id", ""),
				Label: getString(record, "label", defaultNodeLabel),
				Name:  getString(record, "name", ""),
			})
		}
		if err := nodeResult.Err(); err != nil {
			return nil, err
		}

		relResult, err := tx.Run(ctx, `
			MATCH (a {user_id: $user_id, subgraph_id: $subgraph_id})-[r]->(b {user_id: $user_id, subgraph_id: $subgraph_id})
			WHERE toLower(type(r)) CONTAINS toLower($term)
			RETURN a.id AS from_id, a.name AS from_name, type(r) AS type, b.id AS to_id, b.name AS to_name
		`, scope.params(map[string]any{"term": term}))
		if err != nil {
			return nil, err
		}
		for relResult.Next(ctx) {
			record := relResult.Record()
			graph.Relationships = append(graph.Relationships, Relationship{
				From:     getString(record, "from_id", ""),
				FromName: getString(record, "from_name", ""),
				To:       getString(record, "to_id", ""),
				ToName:   getString(record, "to_name", ""),
				Type:     getString(record, "type", ""),
			})
		}
		if err := relResult.Err(); err != nil {
			return nil, err
		}

		return graph, nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("search", err)
	}

	return result.(*Graph), nil
}

// SearchComprehensive runs the ordered search strategies (exact, partial,
// label, fuzzy, relational expansion) over the given subgraphs and merges
// results with first-assignment-wins precedence: a node classified by an
// earlier strategy is never downgraded by a later one. Relationship types
// are matched exact-then-partial independently of node matching.
func (r *Repository) SearchComprehensive(ctx context.Context, userID int64, subgraphIDs []int64, term string) (*SearchResult, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		m := newResultMerger()
		params := map[string]any{
			"user_id":      userID,
			"subgraph_ids": subgraphIDs,
			"term":         term,
		}

		// Strategy 1: exact name or id equality
		if err := r.collectNodes(ctx, tx, m, MatchExact, `
			MATCH (n)
			WHERE n.user_id = $user_id AND n.subgraph_id IN $subgraph_ids
			  AND (toLower(n.name) = toLower($term) OR toLower(n.id) = toLower($term))
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name, n.subgraph_id AS subgraph_id
		`, params); err != nil {
			return nil, err
		}

		// Strategy 2: substring containment; the merger drops exact-matched nodes
		if err := r.collectNodes(ctx, tx, m, MatchPartial, `
			MATCH (n)
			WHERE n.user_id = $user_id AND n.subgraph_id IN $subgraph_ids
			  AND (toLower(n.name) CONTAINS toLower($term) OR toLower(n.id) CONTAINS toLower($term))
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name, n.subgraph_id AS subgraph_id
		`, params); err != nil {
			return nil, err
		}

		// Strategy 3: label containment
		if err := r.collectNodes(ctx, tx, m, MatchLabel, `
			MATCH (n)
			WHERE n.user_id = $user_id AND n.subgraph_id IN $subgraph_ids
			  AND toLower(labels(n)[0]) CONTAINS toLower($term)
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name, n.subgraph_id AS subgraph_id
		`, params); err != nil {
			return nil, err
		}

		// Strategy 4: cheap approximate match on a short term prefix
		fuzzyParams := map[string]any{
			"user_id":      userID,
			"subgraph_ids": subgraphIDs,
			"prefix":       FuzzyPrefix(term),
			"limit":        fuzzyResultLimit,
		}
		if err := r.collectNodes(ctx, tx, m, MatchFuzzy, `
			MATCH (n)
			WHERE n.user_id = $user_id AND n.subgraph_id IN $subgraph_ids
			  AND (toLower(n.name) STARTS WITH $prefix OR toLower(n.name) CONTAINS $prefix)
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name, n.subgraph_id AS subgraph_id
			LIMIT $limit
		`, fuzzyParams); err != nil {
			return nil, err
		}

		// Relationship-type matching: exact then partial
		if err := r.collectRelationships(ctx, tx, m, MatchExact, `
			MATCH (a)-[r]->(b)
			WHERE a.user_id = $user_id AND a.subgraph_id IN $subgraph_ids
			  AND b.user_id = $user_id AND b.subgraph_id = a.subgraph_id
			  AND toLower(type(r)) = toLower($term)
			RETURN a.id AS from_id, a.name AS from_name, type(r) AS type,
			       b.id AS to_id, b.name AS to_name, a.subgraph_id AS subgraph_id
		`, params); err != nil {
			return nil, err
		}
		if err := r.collectRelationships(ctx, tx, m, MatchPartial, `
			MATCH (a)-[r]->(b)
			WHERE a.user_id = $user_id AND a.subgraph_id IN $subgraph_ids
			  AND b.user_id = $user_id AND b.subgraph_id = a.subgraph_id
			  AND toLower(type(r)) CONTAINS toLower($term)
			RETURN a.id AS from_id, a.name AS from_name, type(r) AS type,
			       b.id AS to_id, b.name AS to_name, a.subgraph_id AS subgraph_id
		`, params); err != nil {
			return nil, err
		}

		// Strategy 5: relational expansion around every matched node
		for _, sg := range subgraphIDs {
			ids := m.matchedNodeIDs(sg)
			if len(ids) == 0 {
				continue
			}
			expandResult, err := tx.Run(ctx, `
				MATCH (a)-[r]->(b)
				WHERE a.user_id = $user_id AND a.subgraph_id = $subgraph_id
				  AND b.user_id = $user_id AND b.subgraph_id = $subgraph_id
				  AND (a.id IN $ids OR b.id IN $ids)
				RETURN a.id AS from_id, a.name AS from_name, labels(a)[0] AS from_label,
				       b.id AS to_id, b.name AS to_name, labels(b)[0] AS to_label,
				       type(r) AS type
			`, map[string]any{
				"user_id":     userID,
				"subgraph_id": sg,
				"ids":         ids,
			})
			if err != nil {
				return nil, err
			}
			for expandResult.Next(ctx) {
				record := expandResult.Record()
				m.addNode(NodeMatch{
					Node: Node{
						ID:    getString(record, "from_id", ""),
						Label: getString(record, "from_label", defaultNodeLabel),
						Name:  getString(record, "from_name", ""),
					},
					SubgraphID: sg,
					MatchType:  MatchRelated,
				})
				m.addNode(NodeMatch{
					Node: Node{
						ID:    getString(record, "to_id", ""),
						Label: getString(record, "to_label", defaultNodeLabel),
						Name:  getString(record, "to_name", ""),
					},
					SubgraphID: sg,
					MatchType:  MatchRelated,
				})
				m.addRelationship(RelationshipMatch{
					Relationship: Relationship{
						From:     getString(record, "from_id", ""),
						FromName: getString(record, "from_name", ""),
						To:       getString(record, "to_id", ""),
						ToName:   getString(record, "to_name", ""),
						Type:     getString(record, "type", ""),
					},
					SubgraphID: sg,
					MatchType:  MatchRelated,
				})
			}
			if err := expandResult.Err(); err != nil {
				return nil, err
			}
		}

		return m.result(), nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("comprehensive search", err)
	}

	result := out.(*SearchResult)
	r.logger.Debug("Comprehensive search completed",
		zap.Int64("user_id", userID),
		zap.String("term", term),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("relationships", len(result.Relationships)),
	)
	return result, nil
}

func (r *Repository) collectNodes(ctx context.Context, tx neo4j.ManagedTransaction, m *resultMerger, matchType MatchType, query string, params map[string]any) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	for result.Next(ctx) {
		record := result.Record()
		m.addNode(NodeMatch{
			Node: Node{
				ID:    getString(record, "id", ""),
				Label: getString(record, "label", defaultNodeLabel),
				Name:  getString(record, "name", ""),
			},
			SubgraphID: getInt64(record, "subgraph_id", 0),
			MatchType:  matchType,
		})
	}
	return result.Err()
}

func (r *Repository) collectRelationships(ctx context.Context, tx neo4j.ManagedTransaction, m *resultMerger, matchType MatchType, query string, params map[string]any) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	for result.Next(ctx) {
		record := result.Record()
		m.addRelationship(RelationshipMatch{
			Relationship: Relationship{
				From:     getString(record, "from_id", ""),
				FromName: getString(record, "from_name", ""),
				To:       getString(record, "to_id", ""),
				ToName:   getString(record, "to_name", ""),
				Type:     getString(record, "type", ""),
			},
			SubgraphID: getInt64(record, "subgraph_id", 0),
			MatchType:  matchType,
		})
	}
	return result.Err()
}

// FuzzyPrefix returns the case-folded short prefix used by the fuzzy pass.
// Rune-aware so multi-byte names truncate cleanly.
func FuzzyPrefix(term string) string {
	folded := strings.ToLower(strings.TrimSpace(term))
	runes := []rune(folded)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

// resultMerger accumulates strategy results with first-assignment-wins
// de-duplication, keyed by (id, subgraph) for nodes and
// (from, to, type, subgraph) for relationships.
type resultMerger struct {
	nodeKeys map[nodeKey]bool
	relKeys  map[relKey]bool
	nodes    []NodeMatch
	rels     []RelationshipMatch
}

type nodeKey struct {
	id         string
	subgraphID int64
}

type relKey struct {
	from       string
	to         string
	relType    string
	subgraphID int64
}

func newResultMerger() *resultMerger {
	return &resultMerger{
		nodeKeys: make(map[nodeKey]bool),
		relKeys:  make(map[relKey]bool),
		nodes:    []NodeMatch{},
		rels:     []RelationshipMatch{},
	}
}

// addNode records a node match unless an earlier strategy already claimed it
func (m *resultMerger) addNode(n NodeMatch) bool {
	key := nodeKey{id: n.ID, subgraphID: n.SubgraphID}
	if m.nodeKeys[key] {
		return false
	}
	m.nodeKeys[key] = true
	m.nodes = append(m.nodes, n)
	return true
}

// addRelationship records an edge match unless already claimed
func (m *resultMerger) addRelationship(r RelationshipMatch) bool {
	key := relKey{from: r.From, to: r.To, relType: r.Type, subgraphID: r.SubgraphID}
	if m.relKeys[key] {
		return false
	}
	m.relKeys[key] = true
	m.rels = append(m.rels, r)
	return true
}

// matchedNodeIDs returns the ids of nodes matched so far in one subgraph
func (m *resultMerger) matchedNodeIDs(subgraphID int64) []string {
	ids := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		if n.SubgraphID == subgraphID {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// result returns the merged matches sorted by match precedence
func (m *resultMerger) result() *SearchResult {
	sort.SliceStable(m.nodes, func(i, j int) bool {
		return m.nodes[i].MatchType.Rank() < m.nodes[j].MatchType.Rank()
	})
	sort.SliceStable(m.rels, func(i, j int) bool {
		return m.rels[i].MatchType.Rank() < m.rels[j].MatchType.Rank()
	})
	return &SearchResult{Nodes: m.nodes, Relationships: m.rels}
}
