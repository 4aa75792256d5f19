// Package tilecache stores built navmesh tile blobs in badger, keyed by
// tile coordinate, so tiles can be rebuilt or streamed in on demand.
package tilecache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("tile not in cache")

var tilePrefix = []byte("tile/")

// Coord is a tile grid coordinate.
type Coord struct {
	X, Y int32
}

type Cache struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens the cache in dir. An empty dir keeps everything in memory.
func Open(dir string, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open tile cache %q: %w", dir, err)
	}
	return &Cache{db: db, log: log}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func tileKey(x, y int32) []byte {
	key := make([]byte, len(tilePrefix)+8)
	copy(key, tilePrefix)
	binary.BigEndian.PutUint32(key[len(tilePrefix):], uint32(x))
	binary.BigEndian.PutUint32(key[len(tilePrefix)+4:], uint32(y))
	return key
}

func parseTileKey(key []byte) (Coord, bool) {
	if len(key) != len(tilePrefix)+8 {
		return Coord{}, false
	}
	k := key[len(tilePrefix):]
	return Coord{X: int32(binary.BigEndian.Uint32(k)), Y: int32(binary.BigEndian.Uint32(k[4:]))}, true
}

// Put stores the blob of tile (x, y), replacing any previous one.
func (c *Cache) Put(x, y int32, blob []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tileKey(x, y), blob)
	})
	if err != nil {
		c.log.Warn("tile cache write error", zap.Int32("x", x), zap.Int32("y", y), zap.Error(err))
		return fmt.Errorf("put tile %d,%d: %w", x, y, err)
	}
	return nil
}

// Get returns a copy of the blob of tile (x, y), or ErrNotFound.
func (c *Cache) Get(x, y int32) ([]byte, error) {
	var blob []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tileKey(x, y))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("get tile %d,%d: %w", x, y, ErrNotFound)
	}
	if err != nil {
		c.log.Warn("tile cache read error", zap.Int32("x", x), zap.Int32("y", y), zap.Error(err))
		return nil, fmt.Errorf("get tile %d,%d: %w", x, y, err)
	}
	return blob, nil
}

// Delete drops tile (x, y). Deleting a missing tile is not an error.
func (c *Cache) Delete(x, y int32) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tileKey(x, y))
	})
	if err != nil {
		return fmt.Errorf("delete tile %d,%d: %w", x, y, err)
	}
	return nil
}

// Tiles lists the cached tile coordinates in key order.
func (c *Cache) Tiles() ([]Coord, error) {
	var coords []Coord
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(tilePrefix); it.ValidForPrefix(tilePrefix); it.Next() {
			if coord, ok := parseTileKey(it.Item().Key()); ok {
				coords = append(coords, coord)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	return coords, nil
}
