package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusExhausted   = "exhausted"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// RunInfo describes the most recent orchestrator run. It exists for
// `ralph status` and humans; the loop never reads it back.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Agent     string    `json:"agent"`
	Root      string    `json:"root"`
	StartedAt time.Time `json:"started_at"`
	Iteration int       `json:"iteration"`
	Status    string    `json:"status"` // running, completed, exhausted, interrupted, failed
}

// NewRunInfo starts a fresh run record with a random run ID.
func NewRunInfo(agent, root string) *RunInfo {
	return &RunInfo{
		RunID:     uuid.NewString(),
		Agent:     agent,
		Root:      root,
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
	}
}

func (s *Store) runInfoPath() string {
	return filepath.Join(s.Dir, "run.json")
}

// LoadRunInfo reads run.json. Returns nil, nil if no run was ever recorded.
func (s *Store) LoadRunInfo() (*RunInfo, error) {
	data, err := os.ReadFile(s.runInfoPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveRunInfo writes run.json.
func (s *Store) SaveRunInfo(info *RunInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return overwrite(s.runInfoPath(), string(data)+"\n")
}
