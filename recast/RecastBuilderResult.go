package recast

// Build error codes reported in GeneratedData.Error.
const (
	ErrCodeBoundingBox          = 1
	ErrCodeDetailSampleDist     = 2
	ErrCodeDetailSampleMaxError = 3
	ErrCodeEdgeMaxError         = 4
	ErrCodeEdgeMaxLen           = 5
	ErrCodeRegionMinArea        = 6
	ErrCodeRegionMergeArea      = 7
	ErrCodeTileSize             = 8
	ErrCodeNoGeometry           = 9
	ErrCodeRasterize            = 10
	ErrCodeWalkableClimb        = 11
	ErrCodeCompactAlloc         = 20
	ErrCodeCompact              = 30
	ErrCodeErode                = 40
	ErrCodeDistanceField        = 50
	ErrCodeRegions              = 60
	ErrCodeContourAlloc         = 70
	ErrCodeContours             = 80
	ErrCodePolyMeshAlloc        = 90
	ErrCodePolyMesh             = 100
	ErrCodePolyMeshNoVerts      = 110
	ErrCodePolyMeshNilVerts     = 120
	ErrCodeDetailAlloc          = 130
	ErrCodeDetail               = 140

	// Blob creation failures are reported as ErrCodeBlob + n.
	ErrCodeBlob = 1000
)

// Blob creation failure offsets, added to ErrCodeBlob.
const (
	blobNvp       = 10
	blobMaxVerts  = 11
	blobNoVerts   = 12
	blobNilVerts  = 13
	blobNoPolys   = 14
	blobNilPolys  = 15
	blobWriteFail = 16
	blobEmpty     = 17
)

// GeneratedData is the result of one tile build. On failure Success is
// false, Error holds the code and no blob is set.
type GeneratedData struct {
	Success bool
	Error   int
	// Serialized detour tile.
	NavmeshData []byte
	// World space polygon mesh vertices, (x, y, z) each.
	NavmeshVertices []float32
}
