package imagestore

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const dirPerm = 0o750

// FSStore keeps active images in one directory and tombstoned images in
// another. Both hash indexes are built by scanning the directories at open
// time, so the store survives restarts without a separate index file.
type FSStore struct {
	activeDir    string
	tombstoneDir string
	baseURL      string
	logger       *slog.Logger

	mu        sync.Mutex
	active    map[string]string // hash -> file name
	tombstone map[string]bool
}

// NewFSStore opens (creating if needed) a filesystem-backed store. baseURL
// is prepended to file names when building refs handed to callers.
func NewFSStore(activeDir, tombstoneDir, baseURL string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{activeDir, tombstoneDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create image directory %s: %w", dir, err)
		}
	}

	s := &FSStore{
		activeDir:    activeDir,
		tombstoneDir: tombstoneDir,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger,
		active:       make(map[string]string),
		tombstone:    make(map[string]bool),
	}

	if err := s.rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// rescan rebuilds both hash indexes from disk.
func (s *FSStore) rescan() error {
	active, err := hashDir(s.activeDir)
	if err != nil {
		return fmt.Errorf("scan active images: %w", err)
	}
	tombstoned, err := hashDir(s.tombstoneDir)
	if err != nil {
		return fmt.Errorf("scan tombstoned images: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	s.tombstone = make(map[string]bool, len(tombstoned))
	for hash := range tombstoned {
		s.tombstone[hash] = true
	}
	return nil
}

func hashDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	hashes := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".jpg" && ext != ".png" {
			continue
		}
		hash, err := hashFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			// An unreadable file should not take the whole store down.
			continue
		}
		hashes[hash] = entry.Name()
	}
	return hashes, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Exists reports whether hash is in the active set.
func (s *FSStore) Exists(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[hash]
	return ok, nil
}

// Tombstoned reports whether hash is in the tombstone set.
func (s *FSStore) Tombstoned(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tombstone[hash], nil
}

// Put writes data under name in the active directory. The write goes through
// a temp file and an atomic rename; the hash index update happens under the
// same lock as the duplicate check so concurrent runs cannot double-write.
func (s *FSStore) Put(hash, name string, data []byte) (*Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tombstone[hash] {
		return nil, fmt.Errorf("hash %s is tombstoned", hash)
	}
	if existing, ok := s.active[hash]; ok {
		return &Ref{Hash: hash, Name: existing, URL: s.urlFor(existing)}, nil
	}

	target := filepath.Join(s.activeDir, name)
	tmp, err := os.CreateTemp(s.activeDir, ".put-*")
	if err != nil {
		return nil, fmt.Errorf("create temp image file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("close temp image file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("rename image into place: %w", err)
	}

	s.active[hash] = name
	s.logger.Debug("image stored", "hash", hash, "name", name)
	return &Ref{Hash: hash, Name: name, URL: s.urlFor(name)}, nil
}

// MoveToTombstone renames the backing file for url out of the active
// directory into the tombstone directory. A url whose file is no longer in
// the active directory yields ErrNotFound with no side effects.
func (s *FSStore) MoveToTombstone(url string) error {
	name := path.Base(url)
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("invalid image url: %q", url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := filepath.Join(s.activeDir, name)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("stat image %s: %w", name, err)
	}

	dst := filepath.Join(s.tombstoneDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move image to tombstone: %w", err)
	}

	for hash, active := range s.active {
		if active == name {
			delete(s.active, hash)
			s.tombstone[hash] = true
			break
		}
	}
	s.logger.Info("image tombstoned", "name", name)
	return nil
}

func (s *FSStore) urlFor(name string) string {
	if s.baseURL == "" {
		return name
	}
	return s.baseURL + "/" + name
}
