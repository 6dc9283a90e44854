package store

import (
	"database/sql"
	"errors"
	"time"

	apperrors "smart-employee/backend/pkg/errors"
	"go.uber.org/zap"
)

// Employee is a smart-employee user record
type Employee struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	Domain    string    `db:"domain" json:"domain"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Persona holds the analysed profile attached to one employee
type Persona struct {
	ID                     int64     `db:"id" json:"id"`
	UserID                 int64     `db:"user_id" json:"user_id"`
	LogicTestScore         *string   `db:"logic_test_score" json:"logic_test_score,omitempty"`
	BaseLogicType          *string   `db:"base_logic_type" json:"base_logic_type,omitempty"`
	ExtractedPositiveLogic *string   `db:"extracted_positive_logic" json:"extracted_positive_logic,omitempty"`
	ExtractedToneStyle     *string   `db:"extracted_tone_style" json:"extracted_tone_style,omitempty"`
	Name                   string    `db:"name" json:"name"`
	Description            string    `db:"description" json:"description"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// CreateEmployee inserts a new employee and an empty persona record for them
func (s *Store) CreateEmployee(name, role, domain string) (*Employee, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO smart_employees (name, role, domain, created_at) VALUES (?, ?, ?, ?)`,
		name, role, domain, ts,
	)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("create employee", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("create employee", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO employee_personas (user_id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, name+"的画像", "待分析", ts, ts,
	)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("init persona", err)
	}

	s.logger.Info("Employee created", zap.Int64("user_id", id), zap.String("name", name))
	return &Employee{ID: id, Name: name, Role: role, Domain: domain, CreatedAt: ts}, nil
}

// GetEmployee fetches one employee by id
func (s *Store) GetEmployee(id int64) (*Employee, error) {
	var e Employee
	err := s.db.Get(&e, `SELECT * FROM smart_employees WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewUserNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("get employee", err)
	}
	return &e, nil
}

// ListEmployees returns all employees
func (s *Store) ListEmployees() ([]Employee, error) {
	employees := []Employee{}
	if err := s.db.Select(&employees, `SELECT * FROM smart_employees ORDER BY id`); err != nil {
		return nil, apperrors.NewStoreQueryFailed("list employees", err)
	}
	return employees, nil
}

// DeleteEmployee removes an employee; persona, subgraphs and operations cascade
func (s *Store) DeleteEmployee(id int64) error {
	res, err := s.db.Exec(`DELETE FROM smart_employees WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStoreQueryFailed("delete employee", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewUserNotFound(id)
	}
	return nil
}

// GetPersona fetches the persona attached to a user
func (s *Store) GetPersona(userID int64) (*Persona, error) {
	var p Persona
	err := s.db.Get(&p, `SELECT * FROM employee_personas WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewPersonaNotFound(userID)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("get persona", err)
	}
	return &p, nil
}

// UpdatePersonaAnalysis stores the document-derived tone and logic descriptors
func (s *Store) UpdatePersonaAnalysis(userID int64, tone, logic string) error {
	res, err := s.db.Exec(
		`UPDATE employee_personas
		 SET extracted_tone_style = ?, extracted_positive_logic = ?, updated_at = ?
		 WHERE user_id = ?`,
		tone, logic, now(), userID,
	)
	if err != nil {
		return apperrors.NewStoreQueryFailed("update persona analysis", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewPersonaNotFound(userID)
	}
	return nil
}

// SaveLogicTest stores the raw answers JSON and the derived logic type
func (s *Store) SaveLogicTest(userID int64, answersJSON, logicType string) error {
	res, err := s.db.Exec(
		`UPDATE employee_personas
		 SET logic_test_score = ?, base_logic_type = ?, updated_at = ?
		 WHERE user_id = ?`,
		answersJSON, logicType, now(), userID,
	)
	if err != nil {
		return apperrors.NewStoreQueryFailed("save logic test", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewPersonaNotFound(userID)
	}
	return nil
}
