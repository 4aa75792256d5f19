// Package navigation is the host facing surface over the build pipeline,
// the tile store, the query engine and the crowd. Results are plain values
// and booleans; errors stay in the log.
package navigation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gamemachine/ainav/detour"
	"github.com/gamemachine/ainav/internal/metrics"

	"go.uber.org/zap"
)

// Tile and polygon bits of every host navmesh, leaving 10 salt bits.
const (
	tileBits = 14
	polyBits = 22 - tileBits
)

// Mesh is a tiled navmesh addressed by grid coordinate. Queries created
// from a Mesh are invalidated when it is closed.
type Mesh struct {
	nav       *detour.NavMesh
	tileWidth float32
	log       *zap.Logger

	mu      sync.Mutex // guards queries
	queries []*Query
	closed  atomic.Bool
}

// NewMesh creates an empty navmesh with square tiles of tileWidth world
// units, anchored at the origin.
func NewMesh(tileWidth float32, log *zap.Logger) (*Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nav := &detour.NavMesh{}
	nav.SetLogger(log)
	err := nav.Init(&detour.NavMeshParams{
		TileWidth:  tileWidth,
		TileHeight: tileWidth,
		MaxTiles:   1 << tileBits,
		MaxPolys:   1 << polyBits,
	})
	if err != nil {
		return nil, fmt.Errorf("init navmesh: %w", err)
	}
	return &Mesh{nav: nav, tileWidth: tileWidth, log: log}, nil
}

// NavMesh exposes the underlying tile store.
func (m *Mesh) NavMesh() *detour.NavMesh { return m.nav }

func (m *Mesh) TileWidth() float32 { return m.tileWidth }

func (m *Mesh) TileCount() int { return m.nav.TileCount() }

// AddTile loads a copy of a tile blob. It fails when the blob is corrupt or
// its coordinate is already occupied.
func (m *Mesh) AddTile(data []byte) bool {
	if m.closed.Load() || len(data) == 0 {
		return false
	}
	if _, err := m.nav.AddTile(data); err != nil {
		m.log.Warn("add tile", zap.Error(err))
		return false
	}
	metrics.TileAdded()
	return true
}

// RemoveTile unloads the tile at (x, y). Every polygon reference into it
// becomes stale.
func (m *Mesh) RemoveTile(x, y int32) bool {
	if m.closed.Load() {
		return false
	}
	ref := m.nav.TileRefAt(x, y, 0)
	if ref == 0 {
		return false
	}
	if _, err := m.nav.RemoveTile(ref); err != nil {
		m.log.Warn("remove tile", zap.Int32("x", x), zap.Int32("y", y), zap.Error(err))
		return false
	}
	metrics.TileRemoved()
	return true
}

// Tiles calls fn with the coordinate and blob of every loaded tile.
func (m *Mesh) Tiles(fn func(x, y int32, blob []byte) error) error {
	for i := 0; i < m.nav.MaxTiles(); i++ {
		tile := m.nav.Tile(i)
		hdr := tile.Header()
		if hdr == nil {
			continue
		}
		blob, err := tile.Data().Encode()
		if err != nil {
			return fmt.Errorf("encode tile (%d,%d): %w", hdr.X, hdr.Y, err)
		}
		if err := fn(hdr.X, hdr.Y, blob); err != nil {
			return err
		}
	}
	return nil
}

// Close invalidates every query of the mesh and releases its tiles.
func (m *Mesh) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.mu.Lock()
	for _, q := range m.queries {
		q.Invalidate()
	}
	m.queries = nil
	m.mu.Unlock()
	for n := m.nav.TileCount(); n > 0; n-- {
		metrics.TileRemoved()
	}
	m.nav.Close()
}
