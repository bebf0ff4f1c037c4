package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrInvalidNetworkID is returned for negative network ids.
var ErrInvalidNetworkID = errors.New("invalid network id")

// State is the persisted coordinator state.
type State struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	// DeviceName is the user-chosen P2P device name.
	DeviceName string `json:"device_name,omitempty"`

	// Groups lists persistent groups that can be reinvoked.
	Groups []PersistentGroup `json:"groups,omitempty"`
}

// PersistentGroup ties a peer address to a supplicant network id.
type PersistentGroup struct {
	PeerAddress string    `json:"peer_address"`
	NetworkID   int       `json:"network_id"`
	NetworkName string    `json:"network_name,omitempty"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// Store persists State as a JSON file. The state is cached after the
// first load.
type Store struct {
	mu     sync.Mutex
	path   string
	cached *State
	now    func() time.Time
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state from disk. It returns nil, nil if the file does
// not exist.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil || st == nil {
		return nil, err
	}
	cp := *st
	cp.Groups = append([]PersistentGroup(nil), st.Groups...)
	return &cp, nil
}

func (s *Store) readLocked() (*State, error) {
	if s.cached != nil {
		return s.cached, nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	s.cached = st
	return st, nil
}

// Save writes state to disk.
func (s *Store) Save(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(state)
}

func (s *Store) writeLocked(state *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = s.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	// Readers never see a partially written file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.cached = state
	return nil
}

func (s *Store) mutate(fn func(*State) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil {
		return err
	}
	next := &State{}
	if st != nil {
		*next = *st
		next.Groups = append([]PersistentGroup(nil), st.Groups...)
	}
	if !fn(next) {
		return nil
	}
	return s.writeLocked(next)
}

// DeviceName returns the saved device name, or "" when none is stored.
func (s *Store) DeviceName() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil || st == nil {
		return "", err
	}
	return st.DeviceName, nil
}

// SetDeviceName saves name.
func (s *Store) SetDeviceName(name string) error {
	return s.mutate(func(st *State) bool {
		if st.DeviceName == name {
			return false
		}
		st.DeviceName = name
		return true
	})
}

// NetworkFor returns the persistent network id for a peer.
func (s *Store) NetworkFor(addr string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil || st == nil {
		return -1, false
	}
	addr = strings.ToLower(addr)
	for _, g := range st.Groups {
		if g.PeerAddress == addr {
			return g.NetworkID, true
		}
	}
	return -1, false
}

// RememberGroup records that addr can be reinvoked with networkID,
// replacing an older entry for the same peer.
func (s *Store) RememberGroup(addr string, networkID int, name string) error {
	if networkID < 0 {
		return ErrInvalidNetworkID
	}
	addr = strings.ToLower(addr)
	now := s.now()
	return s.mutate(func(st *State) bool {
		kept := st.Groups[:0]
		for _, g := range st.Groups {
			if g.PeerAddress != addr {
				kept = append(kept, g)
			}
		}
		kept = append(kept, PersistentGroup{
			PeerAddress: addr,
			NetworkID:   networkID,
			NetworkName: name,
			LastUsedAt:  now,
		})
		sort.Slice(kept, func(i, j int) bool { return kept[i].PeerAddress < kept[j].PeerAddress })
		st.Groups = kept
		return true
	})
}

// ForgetNetwork removes every entry using networkID.
func (s *Store) ForgetNetwork(networkID int) error {
	return s.mutate(func(st *State) bool {
		kept := st.Groups[:0]
		for _, g := range st.Groups {
			if g.NetworkID != networkID {
				kept = append(kept, g)
			}
		}
		if len(kept) == len(st.Groups) {
			return false
		}
		st.Groups = kept
		return true
	})
}

// Clear removes the state file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
