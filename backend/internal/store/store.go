package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"smart-employee/backend/pkg/logger"
	"go.uber.org/zap"
)

// Store is the relational metadata store: employees, personas, subgraphs,
// the operation log and the logic-test question bank. The graph itself
// lives in Neo4j; this store only holds keyed records around it.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New opens (and if needed creates) the sqlite database at path
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Foreign keys drive the subgraph -> operations cascade; WAL for concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	s := &Store{
		db:     db,
		logger: logger.Get(),
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS smart_employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		role TEXT,
		domain TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employee_personas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE,
		logic_test_score TEXT,
		base_logic_type TEXT,
		extracted_positive_logic TEXT,
		extracted_tone_style TEXT,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES smart_employees(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS knowledge_subgraphs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES smart_employees(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS knowledge_graph_operations (
		id TEXT PRIMARY KEY,
		subgraph_id INTEGER NOT NULL,
		operation_type TEXT NOT NULL,
		nodes_data TEXT,
		relationships_data TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (subgraph_id) REFERENCES knowledge_subgraphs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		dimension TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// now returns the wall-clock timestamp used for all record creation times
func now() time.Time {
	return time.Now().UTC()
}
