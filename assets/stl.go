package assets

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// DecodeSTL decodes an ASCII or binary STL file. Vertices are not shared between triangles.
func DecodeSTL(data []byte, label string) (*Mesh, error) {
	if isBinarySTL(data) {
		return decodeBinarySTL(data, label)
	}
	return decodeASCIISTL(data, label)
}

// isBinarySTL checks the triangle count against the file size, since binary files may also start
// with "solid".
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlTriangleSize {
		return true
	}
	return !bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid"))
}

func decodeBinarySTL(data []byte, label string) (*Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, errors.New("binary STL is truncated")
	}
	count := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	body := data[stlHeaderSize+4:]
	if len(body) < count*stlTriangleSize {
		return nil, errors.Errorf("binary STL declares %d triangles but holds %d bytes", count, len(body))
	}
	m := &Mesh{Label: label, Vertices: make([]r3.Vector, 0, 3*count), Triangles: make([][3]int, 0, count)}
	readVec := func(b []byte) r3.Vector {
		return r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))),
		}
	}
	for i := 0; i < count; i++ {
		tri := body[i*stlTriangleSize:]
		// the first 12 bytes are the facet normal, recomputed by consumers if needed
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices, readVec(tri[12:]), readVec(tri[24:]), readVec(tri[36:]))
		m.Triangles = append(m.Triangles, [3]int{base, base + 1, base + 2})
	}
	return m, nil
}

func decodeASCIISTL(data []byte, label string) (*Mesh, error) {
	m := &Mesh{Label: label}
	var pending []r3.Vector
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) != 4 {
				return nil, errors.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var v [3]float64
			for i := range v {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				v[i] = f
			}
			pending = append(pending, r3.Vector{X: v[0], Y: v[1], Z: v[2]})
		case "endloop":
			if len(pending) != 3 {
				return nil, errors.Errorf("line %d: facet has %d vertices", line, len(pending))
			}
			base := len(m.Vertices)
			m.Vertices = append(m.Vertices, pending...)
			m.Triangles = append(m.Triangles, [3]int{base, base + 1, base + 2})
			pending = pending[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(m.Triangles) == 0 {
		return nil, errors.New("STL holds no facets")
	}
	return m, nil
}
