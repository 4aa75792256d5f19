package recast

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadObjFile reads a Wavefront OBJ file. Only vertex positions and faces
// are used; polygons are fanned into triangles.
func LoadObjFile(path string) (*InputGeom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := LoadObj(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// LoadObj reads OBJ data from r.
func LoadObj(r io.Reader) (*InputGeom, error) {
	var imp objImporter
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if err := imp.readLine(strings.TrimSpace(sc.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewInputGeom(imp.verts, imp.tris, nil), nil
}

type objImporter struct {
	verts []float32
	tris  []int
}

func (imp *objImporter) readLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "v":
		return imp.readVertex(fields[1:])
	case "f":
		return imp.readFace(fields[1:])
	}
	return nil
}

func (imp *objImporter) readVertex(v []string) error {
	if len(v) < 3 {
		return fmt.Errorf("vertex with %d coordinates, want 3", len(v))
	}
	for _, s := range v[:3] {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		imp.verts = append(imp.verts, float32(f))
	}
	return nil
}

func (imp *objImporter) readFace(v []string) error {
	if len(v) < 3 {
		return fmt.Errorf("face with %d vertices, want at least 3", len(v))
	}
	idx := make([]int, len(v))
	for i, s := range v {
		n, err := imp.faceVertex(s)
		if err != nil {
			return err
		}
		idx[i] = n
	}
	for i := 2; i < len(idx); i++ {
		imp.tris = append(imp.tris, idx[0], idx[i-1], idx[i])
	}
	return nil
}

// faceVertex resolves a 1-based or negative relative OBJ index.
func (imp *objImporter) faceVertex(s string) (int, error) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	nverts := len(imp.verts) / 3
	switch {
	case i > 0:
		i--
	case i < 0:
		i += nverts
	default:
		return 0, fmt.Errorf("vertex index 0")
	}
	if i < 0 || i >= nverts {
		return 0, fmt.Errorf("vertex index %s out of range", s)
	}
	return i, nil
}
