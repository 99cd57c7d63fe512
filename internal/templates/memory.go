package templates

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Memory struct {
	mu     sync.RWMutex
	latest map[string]Template
}

func NewMemory(tpls ...Template) *Memory {
	m := &Memory{latest: make(map[string]Template, len(tpls))}
	for _, t := range tpls {
		m.put(t)
	}
	return m
}

// Put stores t unless a higher version of the same code is present.
func (m *Memory) Put(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(t)
	return nil
}

func (m *Memory) put(t Template) {
	if cur, ok := m.latest[t.Code]; ok && cur.Version > t.Version {
		return
	}
	m.latest[t.Code] = t
}

func (m *Memory) Get(ctx context.Context, code string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.latest[code]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, code)
	}
	return t, nil
}

type fixture struct {
	Templates []Template `yaml:"templates"`
}

// ReadFixture decodes a YAML document with a top-level "templates" list.
func ReadFixture(r io.Reader) ([]Template, error) {
	var f fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	for i := range f.Templates {
		if f.Templates[i].Version == 0 {
			f.Templates[i].Version = 1
		}
		if err := f.Templates[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: templates[%d]: %w", ErrInvalidFixture, i, err)
		}
	}
	return f.Templates, nil
}

// ReadFixtureFile is ReadFixture for a file path.
func ReadFixtureFile(path string) ([]Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFixture(f)
}

func (m *Memory) LoadYAML(r io.Reader) error {
	tpls, err := ReadFixture(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tpls {
		m.put(t)
	}
	return nil
}
