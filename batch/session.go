package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"
)

// SessionEntry is one command's record in a session log.
type SessionEntry struct {
	Command    string    `json:"command"`
	Status     string    `json:"status"` // "pass" or "fail"
	ForwardMs  *float64  `json:"forward_ms,omitempty"`
	BackwardMs *float64  `json:"backward_ms,omitempty"`
	F2Ms       *float64  `json:"f2_ms,omitempty"`
	F4Ms       *float64  `json:"f4_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is a JSON log of a batch run, rewritten after every entry so a
// crashed run keeps its finished rows. A nil Session discards entries.
type Session struct {
	ID string

	mu      sync.Mutex
	entries []SessionEntry
	file    string
}

// NewSession creates dir if needed and starts a log named after name,
// the start time and a unique session ID.
func NewSession(dir, name string) (*Session, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	id := xid.New().String()
	timestamp := time.Now().Format("20060102_150405")
	s := &Session{
		ID:   id,
		file: filepath.Join(dir, fmt.Sprintf("%s_%s_%s.json", name, timestamp, id)),
	}
	return s, s.flush()
}

// Path returns the log file.
func (s *Session) Path() string {
	if s == nil {
		return ""
	}
	return s.file
}

// Record appends the outcome of one command. err marks the entry failed.
func (s *Session) Record(row Row, err error) error {
	if s == nil {
		return nil
	}
	e := SessionEntry{
		Command:    row.Command,
		Status:     "pass",
		ForwardMs:  row.Forward,
		BackwardMs: row.Backward,
		F2Ms:       row.F2,
		F4Ms:       row.F4,
		Timestamp:  time.Now(),
	}
	if err != nil {
		e.Status = "fail"
		e.Error = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.flush()
}

// Entries returns a copy of the recorded entries.
func (s *Session) Entries() []SessionEntry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SessionEntry(nil), s.entries...)
}

func (s *Session) flush() error {
	entries := s.entries
	if entries == nil {
		entries = []SessionEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return os.WriteFile(s.file, data, 0644)
}
