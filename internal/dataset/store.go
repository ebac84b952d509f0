package dataset

import (
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrDatasetNotFound indicates the requested dataset id is not registered.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is a stored upload record. The table itself is not kept in
// memory; analyses re-read the stored file.
type Dataset struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	Rows         int       `json:"rows"`
	Columns      int       `json:"columns"`
	MissingCells int       `json:"missing_cells"`
	Latin1       bool      `json:"latin1,omitempty"`
	Fingerprint  string    `json:"fingerprint"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Store is an in-memory registry of uploaded datasets keyed by id.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewStore creates an empty dataset store
func NewStore() *Store {
	return &Store{datasets: make(map[string]*Dataset)}
}

// Put registers a dataset record
func (s *Store) Put(d *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[d.ID] = d
}

// Get returns the dataset with the given id
func (s *Store) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return d, nil
}

// List returns all datasets, newest first
func (s *Store) List() []*Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})
	return list
}

// Delete removes a dataset record and returns it. The caller is
// responsible for removing the stored file.
func (s *Store) Delete(id string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.datasets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	delete(s.datasets, id)
	return d, nil
}

// Count returns the number of registered datasets
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// Fingerprint returns the BLAKE2b-256 hex digest of the file bytes.
// Used to recognize identical uploads in listings and logs.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
