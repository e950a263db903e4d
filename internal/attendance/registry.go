package attendance

import (
	"context"
	"sync"
)

// Registry keeps at most one live machine per worker in this process, so
// overlapping requests from the same worker contend on the same machine.
// Machines are reference counted and closed when the last holder releases.
type Registry struct {
	factory func(workerID string) *Machine

	mu       sync.Mutex
	machines map[string]*registryEntry
}

type registryEntry struct {
	machine *Machine
	refs    int
}

// NewRegistry creates a registry that builds machines with factory
func NewRegistry(factory func(workerID string) *Machine) *Registry {
	return &Registry{factory: factory, machines: make(map[string]*registryEntry)}
}

// Acquire returns the worker's machine once its first snapshot has arrived.
// The caller must call release exactly once when done.
func (r *Registry) Acquire(ctx context.Context, workerID string) (*Machine, func(), error) {
	r.mu.Lock()
	e, ok := r.machines[workerID]
	if !ok {
		m := r.factory(workerID)
		if err := m.Start(); err != nil {
			r.mu.Unlock()
			m.Close()
			return nil, nil, err
		}
		e = &registryEntry{machine: m}
		r.machines[workerID] = e
	}
	e.refs++
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(workerID, e) })
	}

	if err := e.machine.WaitReady(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return e.machine, release, nil
}

func (r *Registry) release(workerID string, e *registryEntry) {
	r.mu.Lock()
	e.refs--
	drop := e.refs <= 0 && r.machines[workerID] == e
	if drop {
		delete(r.machines, workerID)
	}
	r.mu.Unlock()

	if drop {
		e.machine.Close()
	}
}

// Len returns the number of live machines
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Close shuts every machine down regardless of outstanding references
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.machines
	r.machines = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.machine.Close()
	}
}
