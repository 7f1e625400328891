package job

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/certforge/certforge/internal/fsutil"
	"github.com/certforge/certforge/internal/logging"
)

// ErrNotFound is returned for job ids with no persisted record.
var ErrNotFound = errors.New("job not found")

const (
	statusFile = "status.json"
	errorsFile = "errors.json"
	lockFile   = ".lock"
)

// Store persists jobs under a root directory, one subdirectory per job.
// All mutations run under an in-process mutex plus a file lock on the
// root. The mutex serializes goroutines sharing one Store and the file
// lock serializes separate processes, so every write sees the latest
// committed state.
type Store struct {
	root   string
	mu     sync.Mutex
	lock   *flock.Flock
	logger *slog.Logger
}

// NewStore opens (creating if needed) a job store rooted at dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("job store root must not be empty")
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create job store root: %w", err)
	}
	return &Store{
		root:   dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		logger: logging.WithComponent(logger, "jobstore"),
	}, nil
}

// Create registers a new queued job for totalItems rows and persists it
// before returning.
func (s *Store) Create(totalItems int, metadata map[string]string) (*Job, error) {
	if totalItems < 0 {
		return nil, fmt.Errorf("total items must not be negative, got %d", totalItems)
	}
	now := time.Now().UTC()
	j := &Job{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
		TotalItems: totalItems,
	}
	if len(metadata) > 0 {
		j.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			j.Metadata[k] = v
		}
	}

	if err := s.lockStore(); err != nil {
		return nil, err
	}
	defer s.unlockStore()

	if err := fsutil.EnsureDir(s.jobDir(j.ID)); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	if err := fsutil.WriteJSONAtomic(s.errorsPath(j.ID), []Failure{}); err != nil {
		return nil, fmt.Errorf("failed to persist job errors: %w", err)
	}
	if err := fsutil.WriteJSONAtomic(s.statusPath(j.ID), j); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.logger.Info("job created",
		logging.String("job_id", j.ID),
		logging.Int("total_items", totalItems))
	return j, nil
}

// UpdateProgress records one row outcome: processed is incremented along
// with either the success or the failure counter, a failure appends to
// the error log, and the status is recomputed once every row is
// accounted for. The updated record is returned.
func (s *Store) UpdateProgress(jobID string, success bool, reason, itemID string) (*Job, error) {
	if err := s.lockStore(); err != nil {
		return nil, err
	}
	defer s.unlockStore()

	j, err := s.readJob(jobID)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, j.Status)
	}

	now := time.Now().UTC()
	// First progress on a queued job implies processing has begun.
	if j.Status == StatusQueued {
		j.Status = StatusProcessing
	}
	j.ProcessedItems++
	if success {
		j.SuccessfulItems++
	} else {
		j.FailedItems++
		failures, err := s.readFailures(jobID)
		if err != nil {
			return nil, err
		}
		failures = append(failures, Failure{ItemID: itemID, Reason: reason, Timestamp: now})
		// The error log is committed before the counters so a recorded
		// failure is never missing its entry after a crash.
		if err := fsutil.WriteJSONAtomic(s.errorsPath(jobID), failures); err != nil {
			return nil, fmt.Errorf("failed to persist job errors: %w", err)
		}
	}
	if j.ProcessedItems >= j.TotalItems {
		if j.FailedItems > 0 {
			j.Status = StatusCompletedWithErrors
		} else {
			j.Status = StatusCompleted
		}
	}
	j.UpdatedAt = now

	if err := fsutil.WriteJSONAtomic(s.statusPath(jobID), j); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	return j, nil
}

// SetStatus advances a job's status. Backward transitions and departures
// from a terminal state are rejected.
func (s *Store) SetStatus(jobID string, to Status) (*Job, error) {
	return s.mutate(jobID, func(j *Job) error {
		if err := advance(j.Status, to); err != nil {
			return err
		}
		j.Status = to
		return nil
	})
}

// Fail marks a job failed for a pipeline-level reason, leaving the row
// counters untouched. The reason is appended to the error log with an
// empty item id so it is visible through Errors.
func (s *Store) Fail(jobID, reason string) (*Job, error) {
	if err := s.lockStore(); err != nil {
		return nil, err
	}
	defer s.unlockStore()

	j, err := s.readJob(jobID)
	if err != nil {
		return nil, err
	}
	if err := advance(j.Status, StatusFailed); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	failures, err := s.readFailures(jobID)
	if err != nil {
		return nil, err
	}
	failures = append(failures, Failure{Reason: reason, Timestamp: now})
	if err := fsutil.WriteJSONAtomic(s.errorsPath(jobID), failures); err != nil {
		return nil, fmt.Errorf("failed to persist job errors: %w", err)
	}
	j.Status = StatusFailed
	j.UpdatedAt = now
	if err := fsutil.WriteJSONAtomic(s.statusPath(jobID), j); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	s.logger.Warn("job failed",
		logging.String("job_id", jobID),
		logging.String("reason", reason))
	return j, nil
}

// SetOutputDir records where a job's certificates were written.
func (s *Store) SetOutputDir(jobID, dir string) (*Job, error) {
	return s.mutate(jobID, func(j *Job) error {
		j.OutputDir = dir
		return nil
	})
}

// SetArchive records the bundled archive produced for a job.
func (s *Store) SetArchive(jobID, path string) (*Job, error) {
	return s.mutate(jobID, func(j *Job) error {
		j.Archive = path
		return nil
	})
}

// Get returns the last durably committed record for a job.
func (s *Store) Get(jobID string) (*Job, error) {
	if err := s.validateID(jobID); err != nil {
		return nil, err
	}
	return s.readJob(jobID)
}

// Errors returns a job's recorded row failures in occurrence order.
func (s *Store) Errors(jobID string) ([]Failure, error) {
	if err := s.validateID(jobID); err != nil {
		return nil, err
	}
	if _, err := s.readJob(jobID); err != nil {
		return nil, err
	}
	return s.readFailures(jobID)
}

// List returns every stored job, newest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]*Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read job store: %w", err)
	}
	var jobs []*Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Foreign directories under the root are not jobs.
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		j, err := s.readJob(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable job",
				logging.String("job_id", entry.Name()),
				logging.Error(err))
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

func (s *Store) mutate(jobID string, fn func(*Job) error) (*Job, error) {
	if err := s.lockStore(); err != nil {
		return nil, err
	}
	defer s.unlockStore()

	j, err := s.readJob(jobID)
	if err != nil {
		return nil, err
	}
	if err := fn(j); err != nil {
		return nil, err
	}
	j.UpdatedAt = time.Now().UTC()
	if err := fsutil.WriteJSONAtomic(s.statusPath(jobID), j); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	return j, nil
}

func (s *Store) lockStore() error {
	s.mu.Lock()
	if err := s.lock.Lock(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to lock job store: %w", err)
	}
	return nil
}

func (s *Store) unlockStore() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to unlock job store", logging.Error(err))
	}
	s.mu.Unlock()
}

func (s *Store) readJob(jobID string) (*Job, error) {
	if err := s.validateID(jobID); err != nil {
		return nil, err
	}
	var j Job
	if err := fsutil.ReadJSON(s.statusPath(jobID), &j); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}
	return &j, nil
}

func (s *Store) readFailures(jobID string) ([]Failure, error) {
	var failures []Failure
	if err := fsutil.ReadJSON(s.errorsPath(jobID), &failures); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read job errors: %w", err)
	}
	return failures, nil
}

// validateID rejects ids that are not UUIDs. Since the store only ever
// issues UUIDs, anything else is both unknown and a path traversal risk.
func (s *Store) validateID(jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return nil
}

func (s *Store) jobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *Store) statusPath(jobID string) string {
	return filepath.Join(s.jobDir(jobID), statusFile)
}

func (s *Store) errorsPath(jobID string) string {
	return filepath.Join(s.jobDir(jobID), errorsFile)
}
