package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Pebble stores one key per session, so a mutation rewrites only that session.
type Pebble struct {
	mu sync.Mutex
	db *pebble.DB
}

var _ Register = (*Pebble)(nil)

// keys: sess:<session id>
const prefixSession = "sess:"

func sessionKey(id string) []byte {
	return []byte(prefixSession + id)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Get(sessionID string) (OpenTrade, bool, error) {
	val, closer, err := p.db.Get(sessionKey(sessionID))
	if errors.Is(err, pebble.ErrNotFound) {
		return OpenTrade{}, false, nil
	}
	if err != nil {
		return OpenTrade{}, false, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	defer closer.Close()

	var t OpenTrade
	if err := json.Unmarshal(val, &t); err != nil {
		return OpenTrade{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return t, true, nil
}

func (p *Pebble) Put(t OpenTrade) error {
	if t.SessionID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", t.SessionID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.Set(sessionKey(t.SessionID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save session %s: %w", t.SessionID, err)
	}
	return nil
}

func (p *Pebble) Delete(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.Delete(sessionKey(sessionID), pebble.Sync); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (p *Pebble) All() ([]OpenTrade, error) {
	prefix := []byte(prefixSession)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []OpenTrade
	for iter.First(); iter.Valid(); iter.Next() {
		var t OpenTrade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", iter.Key(), err)
		}
		out = append(out, t)
	}
	return out, iter.Error()
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
