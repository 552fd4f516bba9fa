package assets

import (
	"bytes"
	"fmt"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DecodePLY decodes a PLY file with "vertex" and "face" elements. Polygons are fanned into triangles.
func DecodePLY(data []byte, label string) (mesh *Mesh, err error) {
	// goply panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			mesh, err = nil, errors.Errorf("could not parse PLY file: %v", r)
		}
	}()
	ply := goply.New(bytes.NewReader(data))
	vertices := ply.Elements("vertex")
	faces := ply.Elements("face")

	m := &Mesh{Label: label, Vertices: make([]r3.Vector, 0, len(vertices))}
	for i, v := range vertices {
		x, errX := plyFloat(v["x"])
		y, errY := plyFloat(v["y"])
		z, errZ := plyFloat(v["z"])
		if errX != nil || errY != nil || errZ != nil {
			return nil, errors.Errorf("vertex %d has no x, y, z coordinates", i)
		}
		m.Vertices = append(m.Vertices, r3.Vector{X: x, Y: y, Z: z})
	}
	for i, f := range faces {
		idxs, ok := plyIndices(f["vertex_indices"])
		if !ok {
			idxs, ok = plyIndices(f["vertex_index"])
		}
		if !ok || len(idxs) < 3 {
			return nil, errors.Errorf("face %d has no vertex indices", i)
		}
		for _, idx := range idxs {
			if idx < 0 || idx >= len(m.Vertices) {
				return nil, errors.Errorf("face %d references missing vertex %d", i, idx)
			}
		}
		for k := 1; k+1 < len(idxs); k++ {
			m.Triangles = append(m.Triangles, [3]int{idxs[0], idxs[k], idxs[k+1]})
		}
	}
	return m, nil
}

func plyFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int8:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unexpected PLY property type %T", v)
	}
}

func plyIndices(v interface{}) ([]int, bool) {
	var out []int
	switch idxs := v.(type) {
	case []uint32:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []int32:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []uint8:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []int8:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []uint16:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []int16:
		for _, i := range idxs {
			out = append(out, int(i))
		}
	case []interface{}:
		for _, i := range idxs {
			f, err := plyFloat(i)
			if err != nil {
				return nil, false
			}
			out = append(out, int(f))
		}
	default:
		return nil, false
	}
	return out, true
}
