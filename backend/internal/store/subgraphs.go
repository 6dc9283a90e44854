package store

import (
	"database/sql"
	"errors"
	"time"

	apperrors "smart-employee/backend/pkg/errors"
	"go.uber.org/zap"
)

// DefaultSubgraphName is used when an upload arrives without a subgraph
const DefaultSubgraphName = "默认知识图谱"

// Subgraph is a named, user-owned partition of the knowledge graph
type Subgraph struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateSubgraph inserts a new subgraph for a user
func (s *Store) CreateSubgraph(userID int64, name, description string) (*Subgraph, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO knowledge_subgraphs (user_id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, description, ts,
	)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("create subgraph", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("create subgraph", err)
	}

	s.logger.Info("Subgraph created",
		zap.Int64("subgraph_id", id),
		zap.Int64("user_id", userID),
		zap.String("name", name),
	)
	return &Subgraph{ID: id, UserID: userID, Name: name, Description: description, CreatedAt: ts}, nil
}

// GetSubgraph fetches one subgraph by id
func (s *Store) GetSubgraph(id int64) (*Subgraph, error) {
	var sg Subgraph
	err := s.db.Get(&sg, `SELECT * FROM knowledge_subgraphs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSubgraphNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("get subgraph", err)
	}
	return &sg, nil
}

// ListSubgraphs returns all subgraphs owned by a user
func (s *Store) ListSubgraphs(userID int64) ([]Subgraph, error) {
	subgraphs := []Subgraph{}
	err := s.db.Select(&subgraphs,
		`SELECT * FROM knowledge_subgraphs WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("list subgraphs", err)
	}
	return subgraphs, nil
}

// UpdateSubgraph updates a subgraph's name and/or description
func (s *Store) UpdateSubgraph(id int64, name, description *string) (*Subgraph, error) {
	sg, err := s.GetSubgraph(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		sg.Name = *name
	}
	if description != nil {
		sg.Description = *description
	}
	_, err = s.db.Exec(
		`UPDATE knowledge_subgraphs SET name = ?, description = ? WHERE id = ?`,
		sg.Name, sg.Description, id,
	)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("update subgraph", err)
	}
	return sg, nil
}

// DeleteSubgraph removes a subgraph record; its operation log cascades
func (s *Store) DeleteSubgraph(id int64) error {
	res, err := s.db.Exec(`DELETE FROM knowledge_subgraphs WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStoreQueryFailed("delete subgraph", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewSubgraphNotFound(id)
	}
	return nil
}

// GetOrCreateDefaultSubgraph returns the user's default subgraph, creating it
// on first upload
func (s *Store) GetOrCreateDefaultSubgraph(userID int64) (*Subgraph, error) {
	var sg Subgraph
	err := s.db.Get(&sg,
		`SELECT * FROM knowledge_subgraphs WHERE user_id = ? AND name = ?`,
		userID, DefaultSubgraphName)
	if err == nil {
		return &sg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewStoreQueryFailed("get default subgraph", err)
	}
	return s.CreateSubgraph(userID, DefaultSubgraphName, "自动创建的默认知识图谱")
}
