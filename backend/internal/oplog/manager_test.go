package oplog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"smart-employee/backend/internal/graph"
	"smart-employee/backend/internal/store"
	apperrors "smart-employee/backend/pkg/errors"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecord_SerializesPayload(t *testing.T) {
	st := newTestStore(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	sg, err := st.CreateSubgraph(e.ID, "图谱", "")
	require.NoError(t, err)

	m := NewManager(st, nil)
	nodes := []graph.Node{{ID: "Person_abc", Label: "Person", Name: "张三"}}
	rels := []graph.Relationship{{From: "Person_abc", To: "Company_def", Type: "WORKS_AT"}}

	op, err := m.Record(sg.ID, nodes, rels)
	require.NoError(t, err)
	assert.Equal(t, store.OperationAdd, op.OperationType)

	var gotNodes []graph.Node
	require.NoError(t, json.Unmarshal([]byte(op.NodesData), &gotNodes))
	require.Len(t, gotNodes, 1)
	assert.Equal(t, "Person_abc", gotNodes[0].ID)

	var gotRels []graph.Relationship
	require.NoError(t, json.Unmarshal([]byte(op.RelationshipsData), &gotRels))
	require.Len(t, gotRels, 1)
	assert.Equal(t, "WORKS_AT", gotRels[0].Type)
}

func TestUndoLast_EmptyLog(t *testing.T) {
	st := newTestStore(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	sg, err := st.CreateSubgraph(e.ID, "图谱", "")
	require.NoError(t, err)

	m := NewManager(st, nil)
	err = m.UndoLast(context.Background(), sg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNoOperations)
}

func TestUndoLast_MalformedPayload(t *testing.T) {
	st := newTestStore(t)
	e, err := st.CreateEmployee("张三", "", "")
	require.NoError(t, err)
	sg, err := st.CreateSubgraph(e.ID, "图谱", "")
	require.NoError(t, err)
	_, err = st.RecordOperation(sg.ID, store.OperationAdd, "not-json", "[]")
	require.NoError(t, err)

	m := NewManager(st, nil)
	err = m.UndoLast(context.Background(), sg.ID)
	assert.Error(t, err)

	// A failed undo must not consume the entry
	_, err = st.LatestOperation(sg.ID)
	assert.NoError(t, err)
}
