package navigation

import (
	"sync"

	"go.uber.org/zap"
)

// Handle identifies an object owned by a Registry. The zero Handle is
// never issued.
type Handle uint32

// Registry owns builders, meshes, queries and crowds and hands out opaque
// handles for them. Handles of destroyed objects resolve to nothing.
type Registry struct {
	mu       sync.RWMutex
	next     Handle
	builders map[Handle]*Builder
	meshes   map[Handle]*Mesh
	queries  map[Handle]*Query
	crowds   map[Handle]*Crowd
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		builders: make(map[Handle]*Builder),
		meshes:   make(map[Handle]*Mesh),
		queries:  make(map[Handle]*Query),
		crowds:   make(map[Handle]*Crowd),
		log:      log,
	}
}

// newHandle must be called with mu held.
func (r *Registry) newHandle() Handle {
	r.next++
	if r.next == 0 {
		r.next++
	}
	return r.next
}

func lookup[T any](r *Registry, m map[Handle]T, h Handle) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := m[h]
	return v, ok
}

func (r *Registry) CreateBuilder() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.newHandle()
	r.builders[h] = NewBuilder(r.log)
	return h
}

func (r *Registry) DestroyBuilder(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[h]; !ok {
		return false
	}
	delete(r.builders, h)
	return true
}

func (r *Registry) Builder(h Handle) (*Builder, bool) { return lookup(r, r.builders, h) }

// CreateMesh creates an empty navmesh with tiles tileWidth wide. It returns
// 0 on failure.
func (r *Registry) CreateMesh(tileWidth float32) Handle {
	m, err := NewMesh(tileWidth, r.log)
	if err != nil {
		r.log.Warn("create mesh", zap.Float32("tile_width", tileWidth), zap.Error(err))
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.newHandle()
	r.meshes[h] = m
	return h
}

// DestroyMesh closes the mesh. Its queries stay registered but are
// invalidated.
func (r *Registry) DestroyMesh(h Handle) bool {
	r.mu.Lock()
	m, ok := r.meshes[h]
	delete(r.meshes, h)
	r.mu.Unlock()
	if !ok {
		return false
	}
	m.Close()
	return true
}

func (r *Registry) Mesh(h Handle) (*Mesh, bool) { return lookup(r, r.meshes, h) }

// CreateQuery creates a query over mesh. It returns 0 when the mesh is
// unknown or the query cannot be set up.
func (r *Registry) CreateQuery(mesh Handle, maxNodes int) Handle {
	m, ok := r.Mesh(mesh)
	if !ok {
		return 0
	}
	q, err := m.NewQuery(maxNodes)
	if err != nil {
		r.log.Warn("create query", zap.Uint32("mesh", uint32(mesh)), zap.Error(err))
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.newHandle()
	r.queries[h] = q
	return h
}

func (r *Registry) DestroyQuery(h Handle) bool {
	r.mu.Lock()
	q, ok := r.queries[h]
	delete(r.queries, h)
	r.mu.Unlock()
	if ok {
		q.Invalidate()
	}
	return ok
}

func (r *Registry) Query(h Handle) (*Query, bool) { return lookup(r, r.queries, h) }

// CreateCrowd creates a crowd over mesh. It returns 0 on failure.
func (r *Registry) CreateCrowd(mesh Handle, maxAgents int, maxAgentRadius float32) Handle {
	m, ok := r.Mesh(mesh)
	if !ok {
		return 0
	}
	c, err := m.NewCrowd(maxAgents, maxAgentRadius)
	if err != nil {
		r.log.Warn("create crowd", zap.Uint32("mesh", uint32(mesh)), zap.Error(err))
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.newHandle()
	r.crowds[h] = c
	return h
}

func (r *Registry) DestroyCrowd(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.crowds[h]; !ok {
		return false
	}
	delete(r.crowds, h)
	return true
}

func (r *Registry) Crowd(h Handle) (*Crowd, bool) { return lookup(r, r.crowds, h) }
