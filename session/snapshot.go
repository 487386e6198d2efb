package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Snapshot holds open trades in memory and rewrites the whole set to a
// YAML file after every mutation.
type Snapshot struct {
	mu     sync.Mutex
	path   string
	trades map[string]OpenTrade
}

var _ Register = (*Snapshot)(nil)

type snapshotFile struct {
	Sessions map[string]OpenTrade `yaml:"sessions"`
}

// OpenSnapshot loads path if it exists. A missing file is an empty register;
// an unreadable or corrupt one is an error.
func OpenSnapshot(path string) (*Snapshot, error) {
	s := &Snapshot{path: path, trades: map[string]OpenTrade{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}

	var sf snapshotFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse session snapshot %s: %w", path, err)
	}
	for id, t := range sf.Sessions {
		t.SessionID = id
		s.trades[id] = t
	}
	return s, nil
}

func (s *Snapshot) Get(sessionID string) (OpenTrade, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[sessionID]
	if !ok {
		return OpenTrade{}, false, nil
	}
	return t.Clone(), true, nil
}

func (s *Snapshot) Put(t OpenTrade) error {
	if t.SessionID == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked()
	next[t.SessionID] = t.Clone()
	return s.commitLocked(next)
}

func (s *Snapshot) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[sessionID]; !ok {
		return nil
	}
	next := s.copyLocked()
	delete(next, sessionID)
	return s.commitLocked(next)
}

func (s *Snapshot) All() ([]OpenTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OpenTrade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *Snapshot) Close() error { return nil }

func (s *Snapshot) copyLocked() map[string]OpenTrade {
	next := make(map[string]OpenTrade, len(s.trades)+1)
	for k, v := range s.trades {
		next[k] = v
	}
	return next
}

// commitLocked persists next and only then makes it the live state, so a
// failed write leaves memory and disk in agreement.
func (s *Snapshot) commitLocked(next map[string]OpenTrade) error {
	data, err := yaml.Marshal(snapshotFile{Sessions: next})
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write session snapshot: %w", err)
	}
	s.trades = next
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
