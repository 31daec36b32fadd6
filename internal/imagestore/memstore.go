package imagestore

import (
	"fmt"
	"path"
	"sync"
)

// MemStore is an in-memory Store used in tests and as a stand-in when no
// durable image directory is configured.
type MemStore struct {
	mu        sync.Mutex
	active    map[string]string // hash -> name
	data      map[string][]byte // name -> bytes
	tombstone map[string]bool
	baseURL   string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore(baseURL string) *MemStore {
	return &MemStore{
		active:    make(map[string]string),
		data:      make(map[string][]byte),
		tombstone: make(map[string]bool),
		baseURL:   baseURL,
	}
}

func (s *MemStore) Exists(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[hash]
	return ok, nil
}

func (s *MemStore) Tombstoned(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tombstone[hash], nil
}

func (s *MemStore) Put(hash, name string, data []byte) (*Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tombstone[hash] {
		return nil, fmt.Errorf("hash %s is tombstoned", hash)
	}
	if existing, ok := s.active[hash]; ok {
		return &Ref{Hash: hash, Name: existing, URL: s.url(existing)}, nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.active[hash] = name
	s.data[name] = buf
	return &Ref{Hash: hash, Name: name, URL: s.url(name)}, nil
}

func (s *MemStore) MoveToTombstone(url string) error {
	name := path.Base(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, active := range s.active {
		if active == name {
			delete(s.active, hash)
			delete(s.data, name)
			s.tombstone[hash] = true
			return nil
		}
	}
	return ErrNotFound
}

// Len reports the number of images in the active set.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *MemStore) url(name string) string {
	if s.baseURL == "" {
		return name
	}
	return s.baseURL + "/" + name
}
