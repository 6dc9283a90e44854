package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	apperrors "smart-employee/backend/pkg/errors"
	"go.uber.org/zap"
)

// OperationAdd is the only operation kind produced by current write paths
const OperationAdd = "ADD"

// Operation is one immutable entry in a subgraph's operation log
type Operation struct {
	ID                string    `db:"id" json:"id"`
	SubgraphID        int64     `db:"subgraph_id" json:"subgraph_id"`
	OperationType     string    `db:"operation_type" json:"operation_type"`
	NodesData         string    `db:"nodes_data" json:"nodes_data"`
	RelationshipsData string    `db:"relationships_data" json:"relationships_data"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// RecordOperation appends an entry to a subgraph's operation log
func (s *Store) RecordOperation(subgraphID int64, opType, nodesJSON, relsJSON string) (*Operation, error) {
	op := &Operation{
		ID:                uuid.New().String(),
		SubgraphID:        subgraphID,
		OperationType:     opType,
		NodesData:         nodesJSON,
		RelationshipsData: relsJSON,
		CreatedAt:         now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO knowledge_graph_operations (id, subgraph_id, operation_type, nodes_data, relationships_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.ID, op.SubgraphID, op.OperationType, op.NodesData, op.RelationshipsData, op.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("record operation", err)
	}

	s.logger.Debug("Operation recorded",
		zap.String("operation_id", op.ID),
		zap.Int64("subgraph_id", subgraphID),
		zap.String("type", opType),
	)
	return op, nil
}

// LatestOperation returns the most recently created entry for a subgraph.
// The rowid tiebreaker keeps ordering total when timestamps collide.
// Returns ErrNoOperations when the log is empty.
func (s *Store) LatestOperation(subgraphID int64) (*Operation, error) {
	var op Operation
	err := s.db.Get(&op,
		`SELECT id, subgraph_id, operation_type, nodes_data, relationships_data, created_at
		 FROM knowledge_graph_operations
		 WHERE subgraph_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		subgraphID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNoOperations
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("latest operation", err)
	}
	return &op, nil
}

// DeleteOperation removes a consumed log entry
func (s *Store) DeleteOperation(id string) error {
	_, err := s.db.Exec(`DELETE FROM knowledge_graph_operations WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStoreQueryFailed("delete operation", err)
	}
	return nil
}
