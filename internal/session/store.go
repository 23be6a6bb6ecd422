package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docflow/internal/model"
)

// State is what survives between runs. The role flag is advisory.
type State struct {
	Token string     `yaml:"token,omitempty"`
	Role  model.Role `yaml:"role,omitempty"`
}

// Store persists State.
type Store interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileStore keeps State in a YAML file readable only by the owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (State, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read session file: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("parse session file: %w", err)
	}
	return st, nil
}

func (f *FileStore) Save(st State) error {
	b, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemoryStore keeps State in memory.
type MemoryStore struct {
	State State
}

func (m *MemoryStore) Load() (State, error) { return m.State, nil }
func (m *MemoryStore) Save(st State) error  { m.State = st; return nil }
func (m *MemoryStore) Clear() error         { m.State = State{}; return nil }
