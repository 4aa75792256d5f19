package detour

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// PolyRef is a polygon reference: salt, tile index and polygon index packed
// into 32 bits. The split depends on NavMeshParams.MaxTiles and MaxPolys.
type PolyRef uint32

// TileRef is a tile reference, a PolyRef with a zero polygon index.
type TileRef uint32

// NavMesh stores navigation tiles in a fixed pool of slots addressed by
// grid location. Tiles are connected to their eight grid neighbours through
// portal edges when they are added.
type NavMesh struct {
	params                NavMeshParams
	orig                  mgl32.Vec3
	tileWidth, tileHeight float32
	maxTiles              int32
	tileLutSize           int32 // must be pot
	tileLutMask           int32
	posLookup             []*MeshTile
	nextFree              *MeshTile
	tiles                 []MeshTile
	tileCount             int
	saltBits              uint32
	tileBits              uint32
	polyBits              uint32
	log                   *zap.Logger
}

// Init sets up the tile pool. It fails with ErrInvalidParam when MaxTiles and
// MaxPolys leave fewer than 10 bits for the salt.
func (m *NavMesh) Init(params *NavMeshParams) error {
	if params.MaxTiles == 0 || params.MaxPolys == 0 || params.TileWidth <= 0 || params.TileHeight <= 0 {
		return fmt.Errorf("navmesh params %+v: %w", *params, ErrInvalidParam)
	}
	m.params = *params
	m.orig = params.Orig
	m.tileWidth = params.TileWidth
	m.tileHeight = params.TileHeight

	m.tileBits = ilog2(nextPow2(params.MaxTiles))
	m.polyBits = ilog2(nextPow2(params.MaxPolys))
	// Only allow 31 salt bits, the salt mask is computed in 32 bits.
	if m.tileBits+m.polyBits >= 32 {
		return fmt.Errorf("%d tile bits + %d poly bits: %w", m.tileBits, m.polyBits, ErrInvalidParam)
	}
	m.saltBits = 32 - m.tileBits - m.polyBits
	if m.saltBits > 31 {
		m.saltBits = 31
	}
	if m.saltBits < 10 {
		return fmt.Errorf("%d salt bits: %w", m.saltBits, ErrInvalidParam)
	}

	m.maxTiles = int32(params.MaxTiles)
	m.tileLutSize = int32(nextPow2(params.MaxTiles / 4))
	if m.tileLutSize == 0 {
		m.tileLutSize = 1
	}
	m.tileLutMask = m.tileLutSize - 1
	m.tiles = make([]MeshTile, m.maxTiles)
	m.posLookup = make([]*MeshTile, m.tileLutSize)
	m.nextFree = nil
	for i := m.maxTiles - 1; i >= 0; i-- {
		t := &m.tiles[i]
		t.index = int(i)
		t.salt = 1
		t.linksFreeList = NullLink
		t.next = m.nextFree
		m.nextFree = t
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return nil
}

// SetLogger replaces the no-op logger.
func (m *NavMesh) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	m.log = log
}

func (m *NavMesh) Params() NavMeshParams { return m.params }

func (m *NavMesh) MaxTiles() int { return int(m.maxTiles) }

// TileCount returns the number of loaded tiles.
func (m *NavMesh) TileCount() int { return m.tileCount }

// Tile returns slot i, loaded or not.
func (m *NavMesh) Tile(i int) *MeshTile { return &m.tiles[i] }

// AddTile decodes a private copy of data and links it with its neighbours.
func (m *NavMesh) AddTile(data []byte) (TileRef, error) {
	d, err := DecodeMeshData(data)
	if err != nil {
		return 0, err
	}
	hdr := &d.Header
	if uint32(hdr.PolyCount) > 1<<m.polyBits {
		return 0, fmt.Errorf("tile (%d,%d) has %d polygons, limit %d: %w",
			hdr.X, hdr.Y, hdr.PolyCount, 1<<m.polyBits, ErrInvalidParam)
	}
	if m.TileAt(hdr.X, hdr.Y, hdr.Layer) != nil {
		return 0, fmt.Errorf("tile (%d,%d,%d): %w", hdr.X, hdr.Y, hdr.Layer, ErrAlreadyOccupied)
	}

	tile := m.nextFree
	if tile == nil {
		return 0, ErrOutOfMemory
	}
	m.nextFree = tile.next
	tile.next = nil
	m.tileCount++

	h := computeTileHash(hdr.X, hdr.Y, m.tileLutMask)
	tile.next = m.posLookup[h]
	m.posLookup[h] = tile

	tile.data = d
	tile.blob = append([]byte(nil), data...)
	tile.links = make([]Link, 0, hdr.MaxLinkCount)
	tile.linksFreeList = NullLink

	m.connectIntLinks(tile)

	// Connect with layers in current tile.
	for _, nei := range m.TilesAt(hdr.X, hdr.Y) {
		if nei == tile {
			continue
		}
		m.connectExtLinks(tile, nei, -1)
		m.connectExtLinks(nei, tile, -1)
	}
	// Connect with neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range m.neighbourTilesAt(hdr.X, hdr.Y, i) {
			m.connectExtLinks(tile, nei, i)
			m.connectExtLinks(nei, tile, oppositeTile(i))
		}
	}

	ref := m.TileRef(tile)
	m.log.Debug("tile added",
		zap.Int32("x", hdr.X), zap.Int32("y", hdr.Y),
		zap.Int32("polys", hdr.PolyCount), zap.Uint32("ref", uint32(ref)))
	return ref, nil
}

// RemoveTile unloads a tile and returns the blob it was loaded from. The
// slot salt is advanced so every reference into the tile becomes invalid.
func (m *NavMesh) RemoveTile(ref TileRef) ([]byte, error) {
	if ref == 0 {
		return nil, ErrInvalidParam
	}
	tileIndex := int32(m.decodePolyIDTile(PolyRef(ref)))
	tileSalt := m.decodePolyIDSalt(PolyRef(ref))
	if tileIndex >= m.maxTiles {
		return nil, fmt.Errorf("tile index %d: %w", tileIndex, ErrInvalidParam)
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.data == nil {
		return nil, fmt.Errorf("stale tile ref %d: %w", ref, ErrInvalidParam)
	}
	hdr := tile.data.Header

	// Remove tile from hash lookup.
	h := computeTileHash(hdr.X, hdr.Y, m.tileLutMask)
	var prev *MeshTile
	for cur := m.posLookup[h]; cur != nil; prev, cur = cur, cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				m.posLookup[h] = cur.next
			}
			break
		}
	}

	// Disconnect from other layers in current tile and from neighbours.
	for _, nei := range m.TilesAt(hdr.X, hdr.Y) {
		if nei != tile {
			m.unconnectLinks(nei, tile)
		}
	}
	for i := 0; i < 8; i++ {
		for _, nei := range m.neighbourTilesAt(hdr.X, hdr.Y, i) {
			m.unconnectLinks(nei, tile)
		}
	}

	blob := tile.blob
	tile.data = nil
	tile.blob = nil
	tile.links = nil
	tile.linksFreeList = NullLink

	tile.salt = (tile.salt + 1) & ((1 << m.saltBits) - 1)
	if tile.salt == 0 {
		tile.salt++
	}
	tile.next = m.nextFree
	m.nextFree = tile
	m.tileCount--

	m.log.Debug("tile removed", zap.Int32("x", hdr.X), zap.Int32("y", hdr.Y), zap.Uint32("ref", uint32(ref)))
	return blob, nil
}

// Close removes every loaded tile.
func (m *NavMesh) Close() {
	for i := range m.tiles {
		if m.tiles[i].data != nil {
			m.RemoveTile(m.TileRef(&m.tiles[i]))
		}
	}
}

// TileAt returns the tile at the grid location, or nil.
func (m *NavMesh) TileAt(x, y, layer int32) *MeshTile {
	h := computeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		hdr := tile.Header()
		if hdr != nil && hdr.X == x && hdr.Y == y && hdr.Layer == layer {
			return tile
		}
	}
	return nil
}

// TileRefAt returns the reference of the tile at the grid location, or 0.
func (m *NavMesh) TileRefAt(x, y, layer int32) TileRef {
	return m.TileRef(m.TileAt(x, y, layer))
}

// TilesAt returns all layers at the grid location.
func (m *NavMesh) TilesAt(x, y int32) []*MeshTile {
	var tiles []*MeshTile
	h := computeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		hdr := tile.Header()
		if hdr != nil && hdr.X == x && hdr.Y == y {
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

func (m *NavMesh) neighbourTilesAt(x, y int32, side int) []*MeshTile {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return m.TilesAt(nx, ny)
}

// CalcTileLoc returns the grid location containing pos.
func (m *NavMesh) CalcTileLoc(pos mgl32.Vec3) (tx, ty int32) {
	tx = int32(math.Floor(float64((pos[0] - m.orig[0]) / m.tileWidth)))
	ty = int32(math.Floor(float64((pos[2] - m.orig[2]) / m.tileHeight)))
	return tx, ty
}

// TileByRef returns the tile for a valid reference, or nil.
func (m *NavMesh) TileByRef(ref TileRef) *MeshTile {
	if ref == 0 {
		return nil
	}
	it := m.decodePolyIDTile(PolyRef(ref))
	salt := m.decodePolyIDSalt(PolyRef(ref))
	if it >= uint32(m.maxTiles) {
		return nil
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.data == nil {
		return nil
	}
	return tile
}

// TileRef returns the reference of a loaded tile, 0 for nil.
func (m *NavMesh) TileRef(tile *MeshTile) TileRef {
	if tile == nil {
		return 0
	}
	return TileRef(m.EncodePolyID(tile.salt, uint32(tile.index), 0))
}

// PolyRefBase returns the reference of polygon 0 of the tile.
func (m *NavMesh) PolyRefBase(tile *MeshTile) PolyRef {
	if tile == nil {
		return 0
	}
	return m.EncodePolyID(tile.salt, uint32(tile.index), 0)
}

// TileAndPolyByRef resolves a polygon reference, checking the salt.
func (m *NavMesh) TileAndPolyByRef(ref PolyRef) (*MeshTile, *Poly, error) {
	if ref == 0 {
		return nil, nil, ErrInvalidParam
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= uint32(m.maxTiles) {
		return nil, nil, ErrInvalidParam
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.data == nil {
		return nil, nil, fmt.Errorf("stale poly ref %d: %w", ref, ErrInvalidParam)
	}
	if ip >= uint32(tile.data.Header.PolyCount) {
		return nil, nil, ErrInvalidParam
	}
	return tile, &tile.data.Polys[ip], nil
}

// tileAndPolyByRefUnsafe skips validation; use only on references taken
// from links or already validated input.
func (m *NavMesh) tileAndPolyByRefUnsafe(ref PolyRef) (*MeshTile, *Poly) {
	_, it, ip := m.DecodePolyID(ref)
	tile := &m.tiles[it]
	return tile, &tile.data.Polys[ip]
}

// IsValidPolyRef reports whether ref points at a polygon of a loaded tile
// with a matching salt.
func (m *NavMesh) IsValidPolyRef(ref PolyRef) bool {
	_, _, err := m.TileAndPolyByRef(ref)
	return err == nil
}

// EncodePolyID packs salt, tile index and polygon index.
func (m *NavMesh) EncodePolyID(salt, it, ip uint32) PolyRef {
	return PolyRef((salt << (m.polyBits + m.tileBits)) | (it << m.polyBits) | ip)
}

// DecodePolyID splits a reference into salt, tile index and polygon index.
func (m *NavMesh) DecodePolyID(ref PolyRef) (salt, it, ip uint32) {
	saltMask := uint32(1)<<m.saltBits - 1
	tileMask := uint32(1)<<m.tileBits - 1
	polyMask := uint32(1)<<m.polyBits - 1
	salt = (uint32(ref) >> (m.polyBits + m.tileBits)) & saltMask
	it = (uint32(ref) >> m.polyBits) & tileMask
	ip = uint32(ref) & polyMask
	return salt, it, ip
}

func (m *NavMesh) decodePolyIDSalt(ref PolyRef) uint32 {
	saltMask := uint32(1)<<m.saltBits - 1
	return (uint32(ref) >> (m.polyBits + m.tileBits)) & saltMask
}

func (m *NavMesh) decodePolyIDTile(ref PolyRef) uint32 {
	tileMask := uint32(1)<<m.tileBits - 1
	return (uint32(ref) >> m.polyBits) & tileMask
}

func computeTileHash(x, y, mask int32) int32 {
	const h1 uint32 = 0x8da6b343 // Large multiplicative constants;
	const h2 uint32 = 0xd8163841 // here arbitrarily chosen primes
	n := h1*uint32(x) + h2*uint32(y)
	return int32(n & uint32(mask))
}

// connectIntLinks builds the links between polygons of the same tile.
func (m *NavMesh) connectIntLinks(tile *MeshTile) {
	base := m.PolyRefBase(tile)
	for i := range tile.data.Polys {
		poly := &tile.data.Polys[i]
		poly.FirstLink = NullLink
		if poly.Type() == PolyTypeOffMeshConnection {
			continue
		}
		// Build edge links backwards so that the links will be
		// in the linked list from lowest index to highest.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard and non-internal edges.
			if poly.Neis[j] == 0 || poly.Neis[j]&ExtLink != 0 {
				continue
			}
			idx := tile.allocLink()
			link := &tile.links[idx]
			link.Ref = base | PolyRef(poly.Neis[j]-1)
			link.Edge = uint8(j)
			link.Side = 0xff
			link.Bmin, link.Bmax = 0, 0
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}
	}
}

// connectExtLinks links the portal edges of tile facing side (-1 for any)
// to the matching polygons of target.
func (m *NavMesh) connectExtLinks(tile, target *MeshTile, side int) {
	if tile == nil || target == nil {
		return
	}
	for i := range tile.data.Polys {
		poly := &tile.data.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip non-portal edges.
			if poly.Neis[j]&ExtLink == 0 {
				continue
			}
			dir := int(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}
			va := tile.vert(poly.Verts[j])
			vb := tile.vert(poly.Verts[(j+1)%nv])
			for _, c := range m.findConnectingPolys(va, vb, target, oppositeTile(dir), 4) {
				idx := tile.allocLink()
				link := &tile.links[idx]
				link.Ref = c.ref
				link.Edge = uint8(j)
				link.Side = uint8(dir)
				link.Next = poly.FirstLink
				poly.FirstLink = idx

				// Compress portal limits to a byte value.
				axis := 0
				if dir == 0 || dir == 4 {
					axis = 2
				}
				tmin := (c.min - va[axis]) / (vb[axis] - va[axis])
				tmax := (c.max - va[axis]) / (vb[axis] - va[axis])
				if tmin > tmax {
					tmin, tmax = tmax, tmin
				}
				link.Bmin = uint8(clampf(tmin, 0, 1) * 255)
				link.Bmax = uint8(clampf(tmax, 0, 1) * 255)
			}
		}
	}
}

type connection struct {
	ref      PolyRef
	min, max float32
}

func (m *NavMesh) findConnectingPolys(va, vb mgl32.Vec3, tile *MeshTile, side int, maxcon int) []connection {
	var cons []connection
	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := getSlabCoord(va, side)

	mask := ExtLink | uint16(side)
	base := m.PolyRefBase(tile)
	for i := range tile.data.Polys {
		poly := &tile.data.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != mask {
				continue
			}
			vc := tile.vert(poly.Verts[j])
			vd := tile.vert(poly.Verts[(j+1)%nv])
			// Segments are not close enough.
			if absf(apos-getSlabCoord(vc, side)) > 0.01 {
				continue
			}
			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.data.Header.WalkableClimb) {
				continue
			}
			if len(cons) < maxcon {
				cons = append(cons, connection{
					ref: base | PolyRef(i),
					min: float32(math.Max(float64(amin[0]), float64(bmin[0]))),
					max: float32(math.Min(float64(amax[0]), float64(bmax[0]))),
				})
			}
			break
		}
	}
	return cons
}

func overlapSlabs(amin, amax, bmin, bmax [2]float32, px, py float32) bool {
	// The segments are shrunk a little so that slabs which touch at end
	// points are not connected.
	minx := float32(math.Max(float64(amin[0]+px), float64(bmin[0]+px)))
	maxx := float32(math.Min(float64(amax[0]-px), float64(bmax[0]-px)))
	if minx > maxx {
		return false
	}
	// Check vertical overlap.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy
	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}
	// Check for overlap at endpoints.
	thr := (py * 2) * (py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

func getSlabCoord(va mgl32.Vec3, side int) float32 {
	if side == 0 || side == 4 {
		return va[0]
	} else if side == 2 || side == 6 {
		return va[2]
	}
	return 0
}

func calcSlabEndPoints(va, vb mgl32.Vec3, side int) (bmin, bmax [2]float32) {
	if side == 0 || side == 4 {
		if va[2] < vb[2] {
			return [2]float32{va[2], va[1]}, [2]float32{vb[2], vb[1]}
		}
		return [2]float32{vb[2], vb[1]}, [2]float32{va[2], va[1]}
	} else if side == 2 || side == 6 {
		if va[0] < vb[0] {
			return [2]float32{va[0], va[1]}, [2]float32{vb[0], vb[1]}
		}
		return [2]float32{vb[0], vb[1]}, [2]float32{va[0], va[1]}
	}
	return bmin, bmax
}

// unconnectLinks drops the links of tile that point into target.
func (m *NavMesh) unconnectLinks(tile, target *MeshTile) {
	if tile == nil || target == nil {
		return
	}
	targetNum := uint32(target.index)
	for i := range tile.data.Polys {
		poly := &tile.data.Polys[i]
		j := poly.FirstLink
		pj := NullLink
		for j != NullLink {
			if m.decodePolyIDTile(tile.links[j].Ref) == targetNum {
				nj := tile.links[j].Next
				if pj == NullLink {
					poly.FirstLink = nj
				} else {
					tile.links[pj].Next = nj
				}
				tile.freeLink(j)
				j = nj
			} else {
				pj = j
				j = tile.links[j].Next
			}
		}
	}
}
