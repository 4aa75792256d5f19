package tilecache

import (
	"bytes"
	"errors"
	"testing"
)

func checkt(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fail with error: %v", err)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := Open("", nil)
	checkt(t, err)
	defer c.Close()

	tiles := []struct {
		x, y int32
		blob []byte
	}{
		{0, 0, []byte("tile 0 0")},
		{1, 0, []byte("tile 1 0")},
		{-1, 2, []byte("tile -1 2")},
	}
	for _, tt := range tiles {
		checkt(t, c.Put(tt.x, tt.y, tt.blob))
	}
	for _, tt := range tiles {
		blob, err := c.Get(tt.x, tt.y)
		checkt(t, err)
		if !bytes.Equal(blob, tt.blob) {
			t.Errorf("tile %d,%d = %q, want %q", tt.x, tt.y, blob, tt.blob)
		}
	}

	coords, err := c.Tiles()
	checkt(t, err)
	if len(coords) != len(tiles) {
		t.Fatalf("want %d tiles, got %v", len(tiles), coords)
	}

	// Overwrite, then delete.
	checkt(t, c.Put(1, 0, []byte("rebuilt")))
	blob, err := c.Get(1, 0)
	checkt(t, err)
	if string(blob) != "rebuilt" {
		t.Fatalf("overwrite lost: %q", blob)
	}
	checkt(t, c.Delete(1, 0))
	if _, err := c.Get(1, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	checkt(t, c.Delete(1, 0))
}

func TestCacheOnDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, nil)
	checkt(t, err)
	checkt(t, c.Put(3, 4, []byte{1, 2, 3}))
	checkt(t, c.Close())

	c, err = Open(dir, nil)
	checkt(t, err)
	defer c.Close()
	blob, err := c.Get(3, 4)
	checkt(t, err)
	if !bytes.Equal(blob, []byte{1, 2, 3}) {
		t.Fatalf("reopened cache returned %v", blob)
	}
}

func TestTileKey(t *testing.T) {
	for _, want := range []Coord{{0, 0}, {-5, 7}, {1 << 20, -(1 << 20)}} {
		got, ok := parseTileKey(tileKey(want.X, want.Y))
		if !ok || got != want {
			t.Errorf("parse(key(%v)) = %v %v", want, got, ok)
		}
	}
	if _, ok := parseTileKey([]byte("tile/x")); ok {
		t.Error("short key parsed")
	}
}
