package graph

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	apperrors "smart-employee/backend/pkg/errors"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// labelPattern constrains node labels and relationship types before they are
// interpolated into Cypher. Labels cannot be bound as query parameters, so
// anything outside this set is replaced with a safe default.
var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

const (
	defaultNodeLabel = "Entity"
	defaultRelType   = "RELATED_TO"
)

// Repository handles all Neo4j operations, scoped by (user, subgraph)
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// VerifyConnectivity checks that the graph store is reachable
func (r *Repository) VerifyConnectivity(ctx context.Context) error {
	if err := r.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewGraphConnectionFailed(r.driver.Target().Host, err)
	}
	return nil
}

// safeLabel returns the label if it passes the allow-list, else the fallback
func safeLabel(label, fallback string) string {
	if labelPattern.MatchString(label) {
		return label
	}
	return fallback
}

// UpsertGraph merges nodes and relationships into the scoped subgraph.
// With incremental=false the scope is cleared first. Nodes merge by
// (label, id, user_id, subgraph_id); relationships merge by type between
// already-existing scoped endpoints and never create nodes implicitly.
// The whole batch runs inside a single write transaction, so a mid-batch
// failure applies nothing.
func (r *Repository) UpsertGraph(ctx context.Context, scope Scope, nodes []Node, rels []Relationship, incremental bool) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if !incremental {
			_, err := tx.Run(ctx,
				"MATCH (n {user_id: $user_id, subgraph_id: $subgraph_id}) DETACH DELETE n",
				scope.params(nil),
			)
			if err != nil {
				return nil, err
			}
		}

		for _, node := range nodes {
			label := safeLabel(node.Label, defaultNodeLabel)
			name := node.Name
			if name == "" {
				name = node.ID
			}
			query := fmt.Sprintf(`
				MERGE (n:%s {id: $id, user_id: $user_id, subgraph_id: $subgraph_id})
				ON CREATE SET n.name = $name, n.created_at = timestamp()
				ON MATCH SET n.name = $name, n.updated_at = timestamp()
			`, label)
			_, err := tx.Run(ctx, query, scope.params(map[string]any{
				"id":   node.ID,
				"name": name,
			}))
			if err != nil {
				return nil, err
			}
		}

		for _, rel := range rels {
			relType := safeLabel(rel.Type, defaultRelType)
			query := fmt.Sprintf(`
				MATCH (a {id: $from_id, user_id: $user_id, subgraph_id: $subgraph_id})
				MATCH (b {id: $to_id, user_id: $user_id, subgraph_id: $subgraph_id})
				MERGE (a)-[r:%s]->(b)
				ON CREATE SET r.created_at = timestamp()
				ON MATCH SET r.updated_at = timestamp()
			`, relType)
			_, err := tx.Run(ctx, query, scope.params(map[string]any{
				"from_id": rel.From,
				"to_id":   rel.To,
			}))
			if err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return apperrors.NewGraphQueryFailed("upsert graph", err)
	}

	r.logger.Info("Knowledge graph updated",
		zap.Int64("user_id", scope.UserID),
		zap.Int64("subgraph_id", scope.SubgraphID),
		zap.Int("nodes", len(nodes)),
		zap.Int("relationships", len(rels)),
		zap.Bool("incremental", incremental),
	)
	return nil
}

// GetGraph retrieves the full scoped graph
func (r *Repository) GetGraph(ctx context.Context, scope Scope) (*Graph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		graph := &Graph{Nodes: []Node{}, Relationships: []Relationship{}}

		nodeResult, err := tx.Run(ctx, `
			MATCH (n {user_id: $user_id, subgraph_id: $subgraph_id})
			RETURN n.id AS id, labels(n)[0] AS label, n.name AS name
		`, scope.params(nil))
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
			RETURN a.id AS from, type(r) AS type, b.id AS to
		`, scope.params(nil))
		if err != nil {
			return nil, err
		}
		for relResult.Next(ctx) {
			record := relResult.Record()
			graph.Relationships = append(graph.Relationships, Relationship{
				From: getString(record, "from", ""),
				To:   getString(record, "to", ""),
				Type: getString(record, "type", ""),
			})
		}
		if err := relResult.Err(); err != nil {
			return nil, err
		}

		return graph, nil
	})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("get graph", err)
	}

	return result.(*Graph), nil
}

// DeleteSubgraph detach-deletes all scoped nodes and returns how many were removed
func (r *Repository) DeleteSubgraph(ctx context.Context, scope Scope) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n {user_id: $user_id, subgraph_id: $subgraph_id})
			DETACH DELETE n
			RETURN count(n) AS deleted
		`, scope.params(nil))
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64(record, "deleted", 0), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete subgraph", err)
	}

	count := deleted.(int64)
	r.logger.Info("Subgraph deleted from graph store",
		zap.Int64("user_id", scope.UserID),
		zap.Int64("subgraph_id", scope.SubgraphID),
		zap.Int64("deleted", count),
	)
	return count, nil
}

// DeleteNode removes a single scoped node and its incident edges
func (r *Repository) DeleteNode(ctx context.Context, scope Scope, nodeID string) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n {id: $id, user_id: $user_id, subgraph_id: $subgraph_id})
			DETACH DELETE n
			RETURN count(n) AS deleted
		`, scope.params(map[string]any{"id": nodeID}))
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64(record, "deleted", 0), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete node", err)
	}
	return deleted.(int64), nil
}

// DeleteRelationship removes a single typed edge between two scoped nodes
func (r *Repository) DeleteRelationship(ctx context.Context, scope Scope, from, to, relType string) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	safeType := safeLabel(relType, defaultRelType)
	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (a {id: $from_id, user_id: $user_id, subgraph_id: $subgraph_id})
			      -[r:%s]->
			      (b {id: $to_id, user_id: $user_id, subgraph_id: $subgraph_id})
			DELETE r
			RETURN count(r) AS deleted
		`, safeType)
		result, err := tx.Run(ctx, query, scope.params(map[string]any{
			"from_id": from,
			"to_id":   to,
		}))
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64(record, "deleted", 0), nil
	})
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("delete relationship", err)
	}
	return deleted.(int64), nil
}

// UndoOperation reverses a recorded write by deleting its relationships and
// then its nodes. Items already gone are skipped without failing the call.
func (r *Repository) UndoOperation(ctx context.Context, scope Scope, nodes []Node, rels []Relationship) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, rel := range rels {
			relType := safeLabel(rel.Type, defaultRelType)
			query := fmt.Sprintf(`
				MATCH (a {id: $from_id, user_id: $user_id, subgraph_id: $subgraph_id})
				      -[r:%s]->
				      (b {id: $to_id, user_id: $user_id, subgraph_id: $subgraph_id})
				DELETE r
			`, relType)
			_, err := tx.Run(ctx, query, scope.params(map[string]any{
				"from_id": rel.From,
				"to_id":   rel.To,
			}))
			if err != nil {
				return nil, err
			}
		}

		for _, node := range nodes {
			_, err := tx.Run(ctx, `
				MATCH (n {id: $id, user_id: $user_id, subgraph_id: $subgraph_id})
				DETACH DELETE n
			`, scope.params(map[string]any{"id": node.ID}))
			if err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return apperrors.NewGraphQueryFailed("undo operation", err)
	}

	r.logger.Info("Operation undone in graph store",
		zap.Int64("user_id", scope.UserID),
		zap.Int64("subgraph_id", scope.SubgraphID),
		zap.Int("nodes_removed", len(nodes)),
		zap.Int("relationships_removed", len(rels)),
	)
	return nil
}

// params merges the scope keys into a query parameter map
func (s Scope) params(extra map[string]any) map[string]any {
	p := map[string]any{
		"user_id":     s.UserID,
		"subgraph_id": s.SubgraphID,
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}
