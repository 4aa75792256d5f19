package navigation

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const navSetVersion = 1

var ErrNavSetVersion = errors.New("navset: unsupported version")

// NavSetTile is one tile blob of a navmesh set.
type NavSetTile struct {
	X    int32  `msgpack:"x"`
	Y    int32  `msgpack:"y"`
	Data []byte `msgpack:"data"`
}

// NavSet is the file form of a tiled navmesh.
type NavSet struct {
	Version   int          `msgpack:"version"`
	TileWidth float32      `msgpack:"tile_width"`
	Tiles     []NavSetTile `msgpack:"tiles"`
}

// Snapshot collects the loaded tiles of m.
func (m *Mesh) Snapshot() (*NavSet, error) {
	set := &NavSet{Version: navSetVersion, TileWidth: m.tileWidth}
	err := m.Tiles(func(x, y int32, blob []byte) error {
		set.Tiles = append(set.Tiles, NavSetTile{X: x, Y: y, Data: blob})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// WriteNavSet encodes set to w.
func WriteNavSet(w io.Writer, set *NavSet) error {
	data, err := msgpack.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal navset: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadNavSet decodes a navmesh set from r.
func ReadNavSet(r io.Reader) (*NavSet, error) {
	set := &NavSet{}
	if err := msgpack.NewDecoder(r).Decode(set); err != nil {
		return nil, fmt.Errorf("unmarshal navset: %w", err)
	}
	if set.Version != navSetVersion {
		return nil, fmt.Errorf("version %d: %w", set.Version, ErrNavSetVersion)
	}
	return set, nil
}

// SaveNavSet writes the loaded tiles of m to path.
func SaveNavSet(path string, m *Mesh) error {
	set, err := m.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNavSet(f, set); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadNavSet reads path into a new Mesh. Tiles that fail to load are
// skipped and counted in failed.
func LoadNavSet(path string, log *zap.Logger) (m *Mesh, failed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	set, err := ReadNavSet(f)
	if err != nil {
		return nil, 0, err
	}
	m, err = NewMesh(set.TileWidth, log)
	if err != nil {
		return nil, 0, err
	}
	for _, t := range set.Tiles {
		if !m.AddTile(t.Data) {
			failed++
		}
	}
	return m, failed, nil
}

// LoadNavSet loads path into a new registered mesh.
func (r *Registry) LoadNavSet(path string) (Handle, int, error) {
	m, failed, err := LoadNavSet(path, r.log)
	if err != nil {
		return 0, 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.newHandle()
	r.meshes[h] = m
	return h, failed, nil
}
