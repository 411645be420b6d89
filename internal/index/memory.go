package index

import (
	"fmt"
	"sync"

	"reshare/pkg/types"
)

type namespace struct {
	files map[string]types.FileInfo
	order []string
}

// Memory is an in-process Index. Its content is lost on restart.
type Memory struct {
	mu         sync.Mutex
	namespaces map[types.Namespace]*namespace
}

// NewMemory creates an empty index
func NewMemory() *Memory {
	return &Memory{
		namespaces: make(map[types.Namespace]*namespace),
	}
}

func (m *Memory) Insert(info types.FileInfo, ns types.Namespace) (types.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.namespaces[ns]
	if !ok {
		space = &namespace{files: make(map[string]types.FileInfo)}
		m.namespaces[ns] = space
	}

	for i := 0; i < maxNameAttempts; i++ {
		name := candidateName(info.Name, i)
		if _, taken := space.files[name]; taken {
			continue
		}

		info.Name = name
		space.files[name] = info
		space.order = append(space.order, name)
		return info, nil
	}

	return types.FileInfo{}, fmt.Errorf("%s - no free file name", info.Name)
}

func (m *Memory) Get(name string, ns types.Namespace) (types.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.namespaces[ns]
	if !ok {
		return types.FileInfo{}, ErrNotFound
	}
	info, ok := space.files[name]
	if !ok {
		return types.FileInfo{}, ErrNotFound
	}
	return info, nil
}

func (m *Memory) List(ns types.Namespace) ([]types.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := make([]types.FileInfo, 0)
	space, ok := m.namespaces[ns]
	if !ok {
		return files, nil
	}

	for _, name := range space.order {
		files = append(files, space.files[name])
	}
	return files, nil
}

func (m *Memory) Close() error {
	return nil
}
