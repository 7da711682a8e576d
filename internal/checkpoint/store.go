// Package checkpoint persists the resumable session state of a run.
//
// Each session writes two artifacts into the data directory: a transient
// checkpoint file ("checkpoint_<id>.json") holding the full session state,
// deleted on completion, and a results file ("results_<id>.json") holding
// just the results mapping, retained as the durable record of outcome.
package checkpoint

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rgoodwin/essayradar/internal/observability"
	"github.com/rgoodwin/essayradar/internal/schemas"
	"github.com/rgoodwin/essayradar/internal/types"
)

//go:embed checkpoint.schema.json
var checkpointSchema string

const (
	checkpointPrefix = "checkpoint_"
	resultsPrefix    = "results_"
	fileExt          = ".json"

	// sessionIDLayout derives a filesystem-safe identifier from the
	// session's creation time.
	sessionIDLayout = "20060102-150405"
)

// Stats summarizes session progress.
type Stats struct {
	Processed  int
	Total      int
	Remaining  int
	Percentage string
	HasResults bool
}

// Store owns one SessionState per run. All mutation goes through its
// operations; it is driven by a single goroutine (the batch runner's
// coordinating loop), so no locking is needed.
type Store struct {
	dir          string
	sink         observability.Sink
	state        *types.SessionState
	processedSet map[string]struct{}
	now          func() time.Time
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string, sink observability.Sink) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Store{
		dir:          dir,
		sink:         sink,
		processedSet: make(map[string]struct{}),
		now:          time.Now,
	}, nil
}

// Create starts a new empty session. An empty id derives one from the
// current time.
func (s *Store) Create(id string) *types.SessionState {
	now := s.now()
	if id == "" {
		id = now.UTC().Format(sessionIDLayout)
	}
	s.state = types.NewSessionState(id, now)
	s.processedSet = make(map[string]struct{})
	s.emit(observability.CategoryInfo, "session created", map[string]any{"session": id})
	return s.state
}

// Load reads a previously persisted session. It never fails: a missing,
// unreadable or structurally invalid checkpoint logs the reason and returns
// a fresh empty session under the same identifier.
func (s *Store) Load(id string) *types.SessionState {
	data, err := os.ReadFile(s.checkpointPath(id))
	if err != nil {
		s.emit(observability.CategoryInfo, "no checkpoint found, starting fresh", map[string]any{
			"session": id, "error": err.Error(),
		})
		return s.Create(id)
	}

	if err := schemas.ValidateJSONString(checkpointSchema, string(data)); err != nil {
		s.emit(observability.CategoryWarn, "checkpoint failed schema validation, starting fresh", map[string]any{
			"session": id, "error": err.Error(),
		})
		return s.Create(id)
	}

	var state types.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		s.emit(observability.CategoryWarn, "checkpoint unreadable, starting fresh", map[string]any{
			"session": id, "error": err.Error(),
		})
		return s.Create(id)
	}

	s.state = &state
	s.processedSet = make(map[string]struct{}, len(state.Processed))
	for _, key := range state.Processed {
		s.processedSet[key] = struct{}{}
	}
	s.emit(observability.CategoryInfo, "resuming session", map[string]any{
		"session": id, "processed": state.ProcessedCount, "total": state.Total,
	})
	return s.state
}

// Session returns the state the store currently owns, or nil before
// Create/Load.
func (s *Store) Session() *types.SessionState {
	return s.state
}

// ListSessions enumerates the identifiers of all persisted checkpoints in
// the data directory, sorted ascending (chronological for derived IDs).
func (s *Store) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, checkpointPrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, checkpointPrefix), fileExt)
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Latest returns the most recent resumable session identifier.
func (s *Store) Latest() (string, bool) {
	ids, err := s.ListSessions()
	if err != nil || len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

// Seed attaches the full essay list to the session and persists
// immediately.
func (s *Store) Seed(essays []types.Essay) {
	s.state.Essays = essays
	s.state.Total = len(essays)
	s.state.UpdatedAt = s.now()
	s.persist()
}

// RecordProcessed appends the essay to the processed set, stores its result
// with derived stats, and persists both artifacts before returning. Once
// this call returns, the result survives process termination (up to a
// logged write failure, which leaves the in-memory state authoritative
// until the next successful write).
func (s *Store) RecordProcessed(essay types.Essay, hits types.MatchResult) {
	key := essay.Key()
	if _, done := s.processedSet[key]; done {
		s.emit(observability.CategoryWarn, "essay already processed, ignoring", map[string]any{"essay": key})
		return
	}

	now := s.now()
	s.state.Results[key] = types.NewEssayResult(essay, hits, now)
	s.state.Processed = append(s.state.Processed, key)
	s.processedSet[key] = struct{}{}
	s.state.ProcessedCount++
	s.state.UpdatedAt = now

	s.persist()
	s.persistResults()
}

// Remaining returns the essays not yet processed, preserving original list
// order.
func (s *Store) Remaining() []types.Essay {
	remaining := make([]types.Essay, 0, s.state.Total-len(s.processedSet))
	for _, essay := range s.state.Essays {
		if _, done := s.processedSet[essay.Key()]; !done {
			remaining = append(remaining, essay)
		}
	}
	return remaining
}

// IsComplete reports whether every essay has been processed.
func (s *Store) IsComplete() bool {
	return s.state.Total > 0 && len(s.processedSet) >= s.state.Total
}

// Complete marks the session finished, persists the results artifact and
// deletes the transient checkpoint file. The results file remains as the
// durable record.
func (s *Store) Complete() {
	s.state.Completed = true
	s.state.UpdatedAt = s.now()
	s.persistResults()

	if err := os.Remove(s.checkpointPath(s.state.ID)); err != nil && !os.IsNotExist(err) {
		s.emit(observability.CategoryWarn, "failed to remove checkpoint file", map[string]any{
			"session": s.state.ID, "error": err.Error(),
		})
	}
	s.emit(observability.CategoryInfo, "session completed", map[string]any{
		"session": s.state.ID, "processed": s.state.ProcessedCount,
	})
}

// Stats reports current progress.
func (s *Store) Stats() Stats {
	processed := len(s.processedSet)
	total := s.state.Total
	percentage := "0.0"
	if total > 0 {
		percentage = fmt.Sprintf("%.1f", float64(processed)/float64(total)*100)
	}
	return Stats{
		Processed:  processed,
		Total:      total,
		Remaining:  total - processed,
		Percentage: percentage,
		HasResults: len(s.state.Results) > 0,
	}
}

// ResultsPath returns the durable results artifact path for a session.
func (s *Store) ResultsPath(id string) string {
	return filepath.Join(s.dir, resultsPrefix+id+fileExt)
}

func (s *Store) checkpointPath(id string) string {
	return filepath.Join(s.dir, checkpointPrefix+id+fileExt)
}

// persist writes the full session state to the checkpoint file. Failures
// are logged, never fatal: in-memory state remains the record until the
// next successful write.
func (s *Store) persist() {
	if err := writeJSON(s.checkpointPath(s.state.ID), s.state); err != nil {
		s.emit(observability.CategoryWarn, "failed to persist checkpoint", map[string]any{
			"session": s.state.ID, "error": err.Error(),
		})
	}
}

// persistResults writes just the results mapping to the companion artifact.
func (s *Store) persistResults() {
	if err := writeJSON(s.ResultsPath(s.state.ID), s.state.Results); err != nil {
		s.emit(observability.CategoryWarn, "failed to persist results", map[string]any{
			"session": s.state.ID, "error": err.Error(),
		})
	}
}

// writeJSON writes v as indented JSON via a temp file and rename, so a
// crash mid-write never leaves a truncated artifact behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

func (s *Store) emit(category, message string, fields map[string]any) {
	s.sink.Emit(observability.Event{
		Step:     "checkpoint",
		Category: category,
		Message:  message,
		Fields:   fields,
	})
}
