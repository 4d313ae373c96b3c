// Package audit persists every policy deny to an append-only JSON journal
// for security monitoring. Recording is one-way: journal failures are
// logged, never propagated back into the evaluation path.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one denied tool invocation.
type Record struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Tool      string    `json:"tool"`
	Parameter string    `json:"parameter"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is an append-only deny journal backed by a single JSON file.
type Log struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	records []Record
}

// New creates or opens the journal in the given directory.
func New(dir string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	l := &Log{dir: dir, logger: logger.With("component", "audit")}
	if err := l.load(); err != nil {
		return nil, fmt.Errorf("load audit journal: %w", err)
	}
	return l, nil
}

// RecordDeny appends a deny record. It satisfies security.Recorder.
func (l *Log) RecordDeny(agentID, tool, parameter, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, Record{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Tool:      tool,
		Parameter: parameter,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if err := l.persist(); err != nil {
		l.logger.Error("failed to persist audit record", "error", err)
	}
}

// Records returns a snapshot of all records.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// ForAgent returns the records for one agent.
func (l *Log) ForAgent(agentID string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Log) path() string {
	return filepath.Join(l.dir, "audit.json")
}

func (l *Log) persist() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path(), data, 0o640)
}

func (l *Log) load() error {
	data, err := os.ReadFile(l.path())
	if err != nil {
		if os.IsNotExist(err) {
			l.records = nil
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &l.records)
}
