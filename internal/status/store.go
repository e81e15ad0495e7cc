package status

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/fsutil"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// FileName is the status document inside the jobs directory.
const FileName = "_jobstatus.json"

// Store is the durable status map. Every mutation rewrites the whole
// document atomically (temp file + rename). Access is serialized with a
// process-local lock; the engine is single-process by design, so no
// cross-process locking is attempted.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Entry
	running map[string]int
	log     *zap.Logger
}

// Open loads (or initializes) the status store for a jobs directory.
func Open(jobsDir string, log *zap.Logger) (*Store, error) {
	s := &Store{
		path:    filepath.Join(jobsDir, FileName),
		entries: make(map[string]*Entry),
		running: make(map[string]int),
		log:     log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the status file location.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read status file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}

	raw := map[string]*Entry{}
	if err := fsutil.ReadJSON(s.path, &raw); err != nil {
		return fmt.Errorf("parse status file: %w", err)
	}
	for id, e := range raw {
		e.ID = id
		s.entries[id] = e
	}
	s.log.Debug("loaded job status entries", zap.Int("count", len(s.entries)))
	return nil
}

// save persists the whole document. Callers hold the write lock.
func (s *Store) save() error {
	doc := make(map[string]*Entry, len(s.entries))
	for id, e := range s.entries {
		doc[id] = e
	}
	if err := fsutil.WriteJSON(s.path, doc); err != nil {
		return fmt.Errorf("write status file %s: %w", s.path, err)
	}
	return nil
}

// SyncWithJobs creates Created entries for newly discovered ids and
// leaves existing entries untouched.
func (s *Store) SyncWithJobs(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := s.entries[id]; !ok {
			s.log.Info("discovered new job", zap.String("job", id))
			s.entries[id] = NewEntry(id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}

func (s *Store) get(id string) (*Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, &wserr.JobNotFound{ID: id}
	}
	return e, nil
}

// Get returns a copy of the entry for id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.get(id)
	if err != nil {
		return Entry{}, err
	}
	return *e, nil
}

// UpdateStatus moves a job to status and persists.
func (s *Store) UpdateStatus(id string, st JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.update(st)
	return s.save()
}

// UpdateStatusesBatch applies several transitions in one write.
func (s *Store) UpdateStatusesBatch(updates map[string]JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range updates {
		if e, ok := s.entries[id]; ok {
			e.update(st)
		}
	}
	return s.save()
}

// SetFailed marks a job failed with an error message.
func (s *Store) SetFailed(id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.setFailed(msg)
	return s.save()
}

// SetPartial marks a job partially completed with its edit state.
func (s *Store) SetPartial(id string, state PartialEditState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.setPartial(state)
	return s.save()
}

// ClearPartialState removes the partial state after a successful retry.
func (s *Store) ClearPartialState(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.PartialState = nil
	return s.save()
}

// SetOutputs records the files a job produced.
func (s *Store) SetOutputs(id string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.OutputPaths = append([]string(nil), paths...)
	return s.save()
}

// SetRetryAttempted records that the verification-driven retry ran.
func (s *Store) SetRetryAttempted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.RetryAttempted = true
	return s.save()
}

// ResetJob moves a job back to Created, clearing error, outputs, retry
// and partial state while preserving created_at.
func (s *Store) ResetJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return err
	}
	e.update(Created)
	e.Error = ""
	e.OutputPaths = nil
	e.RetryAttempted = false
	e.PartialState = nil
	return s.save()
}

// Prune drops entries whose id is not in keep. Used by explicit cleanup,
// never by discovery.
func (s *Store) Prune(keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	changed := false
	for id := range s.entries {
		if !keepSet[id] {
			s.log.Warn("pruning status entry without job file", zap.String("job", id))
			delete(s.entries, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}

// Remove deletes a single entry (archive path).
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return &wserr.JobNotFound{ID: id}
	}
	delete(s.entries, id)
	return s.save()
}

func (s *Store) filtered(pred func(*Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if pred(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetReadyJobs returns entries in the Created state.
func (s *Store) GetReadyJobs() []Entry {
	return s.filtered(func(e *Entry) bool { return e.Status.IsReady() })
}

// GetStuckJobs returns entries in intermediate or Partial states.
func (s *Store) GetStuckJobs() []Entry {
	return s.filtered(func(e *Entry) bool { return e.Status.IsStuck() })
}

// GetPartialJobs returns entries in the Partial state.
func (s *Store) GetPartialJobs() []Entry {
	return s.filtered(func(e *Entry) bool { return e.Status.IsPartial() })
}

// AllEntries returns every entry sorted by id.
func (s *Store) AllEntries() []Entry {
	return s.filtered(func(*Entry) bool { return true })
}

// GetSummary aggregates counts across all entries.
func (s *Store) GetSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for id, e := range s.entries {
		switch e.Status {
		case Created:
			sum.Created++
		case PendingTest:
			sum.PendingTest++
		case PendingWork:
			sum.PendingWork++
		case PendingVerification:
			sum.PendingVerification++
		case PendingTestRun:
			sum.PendingTestRun++
		case Pass:
			sum.Passed++
		case Fail:
			sum.Failed++
			sum.Failures = append(sum.Failures, id)
		case Partial:
			sum.Partial++
		}
	}
	sum.Total = len(s.entries)
	sort.Strings(sum.Failures)
	return sum
}

// RegisterRunning records the PID executing a job. The registry is
// in-memory only; PIDs are meaningless across restarts.
func (s *Store) RegisterRunning(id string, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = pid
	if e, ok := s.entries[id]; ok {
		e.RunningPID = pid
	}
}

// ClearRunning removes a job from the running registry.
func (s *Store) ClearRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
	if e, ok := s.entries[id]; ok {
		e.RunningPID = 0
	}
}

// RunningJobs returns a snapshot of the running registry.
func (s *Store) RunningJobs() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.running))
	for id, pid := range s.running {
		out[id] = pid
	}
	return out
}
