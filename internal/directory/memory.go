package directory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemory(users ...User) *Memory {
	m := &Memory{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *Memory) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) GetUser(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

type fixture struct {
	Users []User `yaml:"users"`
}

// LoadYAML adds every user of a fixture document.
func (m *Memory) LoadYAML(r io.Reader) error {
	var f fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	for i, u := range f.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: users[%d] has no id", ErrInvalidFixture, i)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range f.Users {
		m.users[u.ID] = u
	}
	return nil
}

// LoadFile is LoadYAML for a file path.
func (m *Memory) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.LoadYAML(f)
}
