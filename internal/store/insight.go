package store

import (
	"fmt"

	"github.com/google/uuid"
)

// Insight types, per §3's Data Model.
const (
	InsightDiscovery  = "discovery"
	InsightFailure    = "failure"
	InsightWorkaround = "workaround"
)

// Insight is a freestanding observation recorded during a session.
type Insight struct {
	ID          string
	SessionID   string
	Content     string
	InsightType string
	RelatedFile string
}

// InsertInsight inserts a single Insight row.
func (s *Store) InsertInsight(i Insight) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		"INSERT INTO insights (id, session_id, content, insight_type, related_file) VALUES (?, ?, ?, ?, ?)",
		i.ID, nullableString(i.SessionID), i.Content, i.InsightType, nullableString(i.RelatedFile),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert insight: %w", err)
	}
	return i.ID, nil
}
