package adw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kotadb/internal/kerrors"
)

// Manifest run statuses (§6: automation/.data/manifest.json).
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ManifestEntry is one issue's row in the run manifest.
type ManifestEntry struct {
	IssueNumber  int        `json:"issueNumber"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	WorktreePath string     `json:"worktreePath,omitempty"`
	Branch       string     `json:"branch,omitempty"`
	CurrentPhase string     `json:"currentPhase,omitempty"`
	PRURL        string     `json:"prUrl,omitempty"`
	CostUsd      float64    `json:"costUsd,omitempty"`
	DurationMs   int64      `json:"durationMs,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Manifest tracks every issue attempted by a batch or single-issue run,
// persisted to a single JSON array file (§6), written atomically the same
// way Checkpoint is (write .tmp, rename).
type Manifest struct {
	mu   sync.Mutex
	path string
}

// NewManifest builds a Manifest backed by path, creating its parent
// directory if needed.
func NewManifest(path string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create manifest dir: %v", kerrors.ErrFatal, err)
	}
	return &Manifest{path: path}, nil
}

// Load reads every entry currently in the manifest file. A missing file is
// an empty manifest, not an error.
func (m *Manifest) Load() ([]ManifestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *Manifest) loadLocked() ([]ManifestEntry, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return entries, nil
}

// Upsert replaces the entry for entry.IssueNumber (or appends if new) and
// persists the manifest.
func (m *Manifest) Upsert(entry ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.loadLocked()
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].IssueNumber == entry.IssueNumber {
			entries[i] = entry
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, entry)
	}

	return m.saveLocked(entries)
}

func (m *Manifest) saveLocked(entries []ManifestEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest tmp file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}
	return nil
}

// RecordStart writes a "running" entry for issueNumber, replacing any
// existing entry for that issue.
func (m *Manifest) RecordStart(issueNumber int, worktreePath, branch string) error {
	return m.Upsert(ManifestEntry{
		IssueNumber:  issueNumber,
		Status:       StatusRunning,
		StartedAt:    time.Now(),
		WorktreePath: worktreePath,
		Branch:       branch,
	})
}

// RecordResult updates an issue's entry to a terminal status from a
// completed or failed orchestrator Run.
func (m *Manifest) RecordResult(res *Result, runErr error) error {
	now := time.Now()
	entry := ManifestEntry{
		IssueNumber: res.IssueNumber,
		CompletedAt: &now,
		PRURL:       res.PRURL,
		CostUsd:     res.CostUsd,
		DurationMs:  res.DurationMs,
	}
	if res.Succeeded {
		entry.Status = StatusCompleted
	} else {
		entry.Status = StatusFailed
		entry.CurrentPhase = res.FailedPhase
		if runErr != nil {
			entry.ErrorMessage = runErr.Error()
		}
	}
	return m.mergeUpsert(entry)
}

// mergeUpsert preserves StartedAt/WorktreePath/Branch from any existing
// entry for the same issue while applying the terminal fields in entry.
func (m *Manifest) mergeUpsert(entry ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.loadLocked()
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].IssueNumber == entry.IssueNumber {
			entries[i].Status = entry.Status
			entries[i].CompletedAt = entry.CompletedAt
			entries[i].PRURL = entry.PRURL
			entries[i].CostUsd = entry.CostUsd
			entries[i].DurationMs = entry.DurationMs
			entries[i].CurrentPhase = entry.CurrentPhase
			entries[i].ErrorMessage = entry.ErrorMessage
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, entry)
	}

	return m.saveLocked(entries)
}
