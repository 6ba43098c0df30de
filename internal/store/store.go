package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitialVersionComment is the comment attached to version 0 of every dataset.
const InitialVersionComment = "Initial version"

// NoVersionCheck disables the optimistic version check on Update.
const NoVersionCheck = -1

// Snapshot is one immutable tabular payload: stable column names plus
// row-major string cells.
type Snapshot struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Columns: append([]string(nil), s.Columns...)}
	if s.Rows != nil {
		out.Rows = make([][]string, len(s.Rows))
		for i, row := range s.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

func (s Snapshot) validate() error {
	if len(s.Columns) == 0 && len(s.Rows) > 0 {
		return &ValidationError{Message: "snapshot has rows but no columns"}
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return &ValidationError{Message: fmt.Sprintf("row %d has %d cells, expected %d", i, len(row), len(s.Columns))}
		}
	}
	return nil
}

// Version is one timestamped snapshot plus a human comment describing the change.
type Version struct {
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Comment   string    `json:"comment"`
}

// Dataset is one versioned tabular collection. Versions is append-only;
// Current always equals the payload of the latest version.
type Dataset struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt time.Time         `json:"modified_at"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata"`
	Current    Snapshot          `json:"current"`
	Versions   []Version         `json:"versions"`
}

func (d *Dataset) clone() *Dataset {
	out := &Dataset{
		ID:         d.ID,
		CreatedAt:  d.CreatedAt,
		ModifiedAt: d.ModifiedAt,
		Source:     d.Source,
		Metadata:   make(map[string]string, len(d.Metadata)),
		Current:    d.Current.Clone(),
		Versions:   make([]Version, len(d.Versions)),
	}
	for k, v := range d.Metadata {
		out.Metadata[k] = v
	}
	for i, ver := range d.Versions {
		out.Versions[i] = Version{Timestamp: ver.Timestamp, Snapshot: ver.Snapshot.Clone(), Comment: ver.Comment}
	}
	return out
}

// Store owns all datasets and serializes the full state to a single JSON
// artifact after every mutation. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	order    []string // creation order of dataset ids
	path     string
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for load/persist diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open loads the store from the artifact under dataDir, creating the
// directory if needed. A missing, unreadable, or malformed artifact
// degrades to an empty store rather than failing startup.
func Open(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
	}

	s := &Store{
		datasets: make(map[string]*Dataset),
		path:     filepath.Join(dataDir, "db.json"),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load()
	return s, nil
}

// load reads the artifact into memory. Any failure leaves the store empty.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read store artifact, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	if err := validateArtifact(data); err != nil {
		s.logger.Warn("store artifact failed schema validation, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("failed to parse store artifact, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	for _, ds := range file.Datasets {
		d := ds
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}
		s.datasets[d.ID] = &d
		s.order = append(s.order, d.ID)
	}
	// Artifact order is creation order, but re-sort defensively in case a
	// hand-edited file scrambled it.
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.datasets[s.order[i]].CreatedAt.Before(s.datasets[s.order[j]].CreatedAt)
	})
}

// artifactFile is the on-disk layout of the durable artifact.
type artifactFile struct {
	Datasets []Dataset `json:"datasets"`
}

// persist writes the full store state to the artifact atomically.
// Callers must hold the write lock. The staged dataset (if any) is
// included in place of the committed one so that in-memory state only
// changes after the durable write succeeds.
func (s *Store) persist(staged *Dataset) error {
	file := artifactFile{Datasets: make([]Dataset, 0, len(s.order)+1)}
	seenStaged := false
	for _, id := range s.order {
		if staged != nil && id == staged.ID {
			file.Datasets = append(file.Datasets, *staged)
			seenStaged = true
			continue
		}
		file.Datasets = append(file.Datasets, *s.datasets[id])
	}
	if staged != nil && !seenStaged {
		file.Datasets = append(file.Datasets, *staged)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return &PersistError{Message: "failed to marshal store state", Cause: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &PersistError{Message: "failed to write store artifact", Cause: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Message: "failed to replace store artifact", Cause: err}
	}
	return nil
}

// Create adds a new dataset with one initial version and returns its id.
// Empty snapshots are allowed; only malformed snapshots are rejected.
func (s *Store) Create(snapshot Snapshot, source string, metadata map[string]string) (string, error) {
	if err := snapshot.validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if metadata == nil {
		metadata = make(map[string]string)
	}
	d := &Dataset{
		ID:         uuid.NewString(),
		CreatedAt:  ts,
		ModifiedAt: ts,
		Source:     source,
		Metadata:   metadata,
		Current:    snapshot.Clone(),
		Versions: []Version{{
			Timestamp: ts,
			Snapshot:  snapshot.Clone(),
			Comment:   InitialVersionComment,
		}},
	}

	if err := s.persist(d); err != nil {
		return "", err
	}

	s.datasets[d.ID] = d
	s.order = append(s.order, d.ID)
	return d.ID, nil
}

// Update appends a new version and replaces the current snapshot.
// expectedVersions is the history length the caller last observed; pass
// NoVersionCheck to skip the optimistic check. A mismatch fails with
// ConflictError and appends nothing.
func (s *Store) Update(id string, snapshot Snapshot, comment string, expectedVersions int) error {
	if err := snapshot.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, snapshot, comment, expectedVersions)
}

func (s *Store) updateLocked(id string, snapshot Snapshot, comment string, expectedVersions int) error {
	d, ok := s.datasets[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if expectedVersions != NoVersionCheck && expectedVersions != len(d.Versions) {
		return &ConflictError{ID: id, Expected: expectedVersions, Actual: len(d.Versions)}
	}

	ts := s.now()
	staged := d.clone()
	staged.Versions = append(staged.Versions, Version{
		Timestamp: ts,
		Snapshot:  snapshot.Clone(),
		Comment:   comment,
	})
	staged.Current = snapshot.Clone()
	staged.ModifiedAt = ts

	if err := s.persist(staged); err != nil {
		return err
	}

	s.datasets[id] = staged
	return nil
}

// Get returns the current snapshot of a dataset.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[id]
	if !ok {
		return Snapshot{}, &NotFoundError{ID: id}
	}
	return d.Current.Clone(), nil
}

// GetMetadata returns a copy of the dataset's metadata.
func (s *Store) GetMetadata(id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	out := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out, nil
}

// History returns the full append-only version history of a dataset.
func (s *Store) History(id string) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	out := make([]Version, len(d.Versions))
	for i, v := range d.Versions {
		out[i] = Version{Timestamp: v.Timestamp, Snapshot: v.Snapshot.Clone(), Comment: v.Comment}
	}
	return out, nil
}

// QueryByMetadata returns ids of datasets whose metadata is a superset of
// the predicate (equality on every supplied key), in creation order. The
// most recent matching dataset is the last element.
func (s *Store) QueryByMetadata(predicate map[string]string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.order {
		d := s.datasets[id]
		match := true
		for k, v := range predicate {
			if d.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			ids = append(ids, id)
		}
	}
	return ids
}

// Restore re-applies a historical version as a new version. History is
// never truncated; the restore appends.
func (s *Store) Restore(id string, versionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.datasets[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if versionIndex < 0 || versionIndex >= len(d.Versions) {
		return &VersionRangeError{ID: id, Index: versionIndex, Count: len(d.Versions)}
	}

	snapshot := d.Versions[versionIndex].Snapshot.Clone()
	comment := fmt.Sprintf("Restored to version %d", versionIndex)
	return s.updateLocked(id, snapshot, comment, NoVersionCheck)
}

// Len returns the number of datasets in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}
