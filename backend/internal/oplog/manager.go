package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/store"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// Manager records incremental graph writes as reversible units and rolls
// back the most recent one on demand. Undo follows stack discipline: each
// call consumes exactly the newest entry, and only ADD-kind entries are
// produced today.
type Manager struct {
	store  *store.Store
	graph  *graph.Repository
	logger *zap.Logger

	// Per-subgraph serialization: the "most recent operation" contract
	// assumes record/undo never interleave for one subgraph.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewManager creates a new operation log manager
func NewManager(st *store.Store, repo *graph.Repository) *Manager {
	return &Manager{
		store:  st,
		graph:  repo,
		logger: logger.Get(),
	}
}

func (m *Manager) subgraphLock(subgraphID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks == nil {
		m.locks = make(map[int64]*sync.Mutex)
	}
	lock, ok := m.locks[subgraphID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[subgraphID] = lock
	}
	return lock
}

// Record appends an ADD entry holding the serialized node and relationship
// sets of one incremental write
func (m *Manager) Record(subgraphID int64, nodes []graph.Node, rels []graph.Relationship) (*store.Operation, error) {
	lock := m.subgraphLock(subgraphID)
	lock.Lock()
	defer lock.Unlock()

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("serialize nodes: %w", err)
	}
	relsJSON, err := json.Marshal(rels)
	if err != nil {
		return nil, fmt.Errorf("serialize relationships: %w", err)
	}

	return m.store.RecordOperation(subgraphID, store.OperationAdd, string(nodesJSON), string(relsJSON))
}

// UndoLast rolls back the most recent operation for a subgraph: the recorded
// nodes and relationships are removed from the graph store and the log entry
// is deleted. Returns errors.ErrNoOperations when the log is empty.
func (m *Manager) UndoLast(ctx context.Context, subgraphID int64) error {
	lock := m.subgraphLock(subgraphID)
	lock.Lock()
	defer lock.Unlock()

	op, err := m.store.LatestOperation(subgraphID)
	if err != nil {
		return err
	}

	var nodes []graph.Node
	if err := json.Unmarshal([]byte(op.NodesData), &nodes); err != nil {
		return fmt.Errorf("deserialize nodes for operation %s: %w", op.ID, err)
	}
	var rels []graph.Relationship
	if err := json.Unmarshal([]byte(op.RelationshipsData), &rels); err != nil {
		return fmt.Errorf("deserialize relationships for operation %s: %w", op.ID, err)
	}

	// The log entry only knows its subgraph; the owning user comes from there
	subgraph, err := m.store.GetSubgraph(subgraphID)
	if err != nil {
		return err
	}
	scope := graph.Scope{UserID: subgraph.UserID, SubgraphID: subgraphID}

	if op.OperationType == store.OperationAdd {
		if err := m.graph.UndoOperation(ctx, scope, nodes, rels); err != nil {
			return err
		}
	}

	if err := m.store.DeleteOperation(op.ID); err != nil {
		return err
	}

	m.logger.Info("Operation undone",
		zap.String("operation_id", op.ID),
		zap.Int64("subgraph_id", subgraphID),
		zap.Int("nodes", len(nodes)),
		zap.Int("relationships", len(rels)),
	)
	return nil
}
