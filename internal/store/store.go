// Package store provides the Run Store: durable per-run persistence to
// local disk, one YAML record per Run, with startup reconciliation and
// legacy record migration.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coderun-dev/fleet/internal/logger"
	"github.com/coderun-dev/fleet/internal/model"
)

// maxHistoryEntries bounds worker Logs/Activity on every save (spec §4.4).
const maxHistoryEntries = 100

// Store persists Run records under one YAML file per run inside dir.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

// Save atomically persists run under its id. Worker Logs and Activity
// are truncated to the most recent maxHistoryEntries entries in the
// persisted copy; the in-memory run is left untouched.
func (s *Store) Save(run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := run.Snapshot()
	for _, w := range snap.Workers {
		w.TruncateHistory(maxHistoryEntries)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	tmp := s.path(run.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}
	if err := os.Rename(tmp, s.path(run.ID)); err != nil {
		return fmt.Errorf("failed to finalize run %s: %w", run.ID, err)
	}
	return nil
}

// LoadAll reads every stored Run record, migrating legacy shapes and
// reconciling any in-flight state left over from an unclean shutdown.
// Unreadable records are skipped with an error-level log rather than
// failing the whole load.
func (s *Store) LoadAll() ([]*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var runs []*model.Run
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		full := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			logger.WithField("file", full).WithField("error", err.Error()).Error("failed to read run record")
			continue
		}

		run, err := decode(data)
		if err != nil {
			logger.WithField("file", full).WithField("error", err.Error()).Error("failed to decode run record")
			continue
		}

		reconcile(run)
		run.ReindexSeq()
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

// decode unmarshals one record, upgrading the legacy "cycles" shape
// in-memory when present (spec §6). The migrated shape is never
// written back verbatim; the next Save writes the current Run shape.
func decode(data []byte) (*model.Run, error) {
	var probe map[string]interface{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if _, hasCycles := probe["cycles"]; hasCycles {
		if _, hasTasks := probe["tasks"]; !hasTasks {
			return migrateLegacy(data)
		}
	}

	var run model.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

type legacyPlan struct {
	Analysis string       `yaml:"analysis"`
	Tasks    []model.Task `yaml:"tasks"`
}

type legacyCycle struct {
	Plan           legacyPlan `yaml:"plan"`
	Judgement      string     `yaml:"judgement"`
	ShouldContinue bool       `yaml:"shouldContinue"`
	CompletedAt    *time.Time `yaml:"completedAt"`
}

type legacyRecord struct {
	ID         string        `yaml:"id"`
	Goal       string        `yaml:"goal"`
	TargetDir  string        `yaml:"target_dir"`
	MaxWorkers int           `yaml:"max_workers"`
	CreatedAt  time.Time     `yaml:"created_at"`
	Workers    []*model.Worker `yaml:"workers"`
	Cycles     []legacyCycle `yaml:"cycles"`
}

// migrateLegacy upgrades a superseded "cycles"-shaped record: task
// lists concatenate across cycles, analysis comes from the first
// non-empty cycle plan, and each cycle synthesizes one Judgement.
func migrateLegacy(data []byte) (*model.Run, error) {
	var rec legacyRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	run := &model.Run{
		ID:         rec.ID,
		Goal:       rec.Goal,
		TargetDir:  rec.TargetDir,
		Status:     model.RunIdle,
		MaxWorkers: model.ClampMaxWorkers(rec.MaxWorkers),
		CreatedAt:  rec.CreatedAt,
		Workers:    rec.Workers,
	}

	now := time.Now()
	for i, cycle := range rec.Cycles {
		for ti := range cycle.Plan.Tasks {
			run.Tasks = append(run.Tasks, &cycle.Plan.Tasks[ti])
		}
		if run.Analysis == "" && cycle.Plan.Analysis != "" {
			run.Analysis = cycle.Plan.Analysis
		}

		ts := now
		if cycle.CompletedAt != nil {
			ts = *cycle.CompletedAt
		}
		run.Judgements = append(run.Judgements, &model.Judgement{
			ID:           fmt.Sprintf("%s-legacy-judgement-%d", rec.ID, i),
			Assessment:   cycle.Judgement,
			GoalComplete: !cycle.ShouldContinue,
			Timestamp:    ts,
		})
	}

	if run.Tasks == nil {
		run.Tasks = []*model.Task{}
	}
	if run.Judgements == nil {
		run.Judgements = []*model.Judgement{}
	}
	if run.Workers == nil {
		run.Workers = []*model.Worker{}
	}

	return run, nil
}

// reconcile forces any in-flight state left by an unclean shutdown back
// to a consistent resting state (spec §4.4).
func reconcile(run *model.Run) {
	switch run.Status {
	case model.RunPlanning, model.RunExecuting, model.RunJudging:
		run.Status = model.RunPaused
	}

	now := time.Now()
	for _, w := range run.Workers {
		if w.Status == model.WorkerRunning {
			w.Finish(model.WorkerFailed, now)
		}
	}
	for _, t := range run.Tasks {
		if t.Status == model.TaskInProgress {
			t.Revert()
		}
	}
}
