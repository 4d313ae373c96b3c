// Package store is the SQLite-backed configuration store for agent records
// and the skill table used to resolve skill ids to catalog folder names.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Agent is one stored agent configuration.
type Agent struct {
	ID                 string
	Name               string
	SkillIDs           []string
	AllowAllSkills     bool
	AllowedDirectories []string
	WorkingDirectory   string // optional workspace override
}

// Skill is one catalog entry: the id used by agent records and the folder
// name under the skill catalog root.
type Skill struct {
	ID   string
	Name string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// WAL mode for better concurrency
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store wal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		skill_ids TEXT NOT NULL DEFAULT '[]',
		allow_all_skills INTEGER NOT NULL DEFAULT 0,
		allowed_directories TEXT NOT NULL DEFAULT '[]',
		working_directory TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`)
	return err
}

// PutAgent inserts or replaces an agent record.
func (s *Store) PutAgent(a Agent) error {
	skillIDs, err := json.Marshal(a.SkillIDs)
	if err != nil {
		return fmt.Errorf("encode skill_ids: %w", err)
	}
	dirs, err := json.Marshal(a.AllowedDirectories)
	if err != nil {
		return fmt.Errorf("encode allowed_directories: %w", err)
	}

	_, err = s.db.Exec(`
	INSERT OR REPLACE INTO agents (id, name, skill_ids, allow_all_skills, allowed_directories, working_directory)
	VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(skillIDs), boolToInt(a.AllowAllSkills), string(dirs), a.WorkingDirectory)
	if err != nil {
		return fmt.Errorf("put agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent fetches one agent record by id.
func (s *Store) GetAgent(id string) (Agent, error) {
	row := s.db.QueryRow(`
	SELECT id, name, skill_ids, allow_all_skills, allowed_directories, working_directory
	FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// ListAgents returns all agent records.
func (s *Store) ListAgents() ([]Agent, error) {
	rows, err := s.db.Query(`
	SELECT id, name, skill_ids, allow_all_skills, allowed_directories, working_directory
	FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent record. Missing records are not an error.
func (s *Store) DeleteAgent(id string) error {
	_, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	return err
}

// PutSkill inserts or replaces a skill record.
func (s *Store) PutSkill(sk Skill) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO skills (id, name) VALUES (?, ?)`, sk.ID, sk.Name)
	if err != nil {
		return fmt.Errorf("put skill %s: %w", sk.ID, err)
	}
	return nil
}

// SkillName resolves a skill id to its catalog folder name.
func (s *Store) SkillName(id string) (string, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM skills WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("skill %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve skill %s: %w", id, err)
	}
	return name, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var (
		a        Agent
		skillIDs string
		dirs     string
		allowAll int
	)
	err := row.Scan(&a.ID, &a.Name, &skillIDs, &allowAll, &dirs, &a.WorkingDirectory)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, fmt.Errorf("agent: %w", ErrNotFound)
	}
	if err != nil {
		return Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	if err := json.Unmarshal([]byte(skillIDs), &a.SkillIDs); err != nil {
		return Agent{}, fmt.Errorf("decode skill_ids for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(dirs), &a.AllowedDirectories); err != nil {
		return Agent{}, fmt.Errorf("decode allowed_directories for %s: %w", a.ID, err)
	}
	a.AllowAllSkills = allowAll != 0
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
