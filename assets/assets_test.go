package assets

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/urdfsim/logging"
)

func TestCuboidMesh(t *testing.T) {
	m := NewCuboidMesh(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, len(m.Vertices), test.ShouldEqual, 8)
	test.That(t, len(m.Triangles), test.ShouldEqual, 12)
	test.That(t, m.Extents(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	lo, hi := m.Bounds()
	test.That(t, lo, test.ShouldResemble, r3.Vector{X: -0.5, Y: -1, Z: -1.5})
	test.That(t, hi, test.ShouldResemble, r3.Vector{X: 0.5, Y: 1, Z: 1.5})
}

func TestSphereMesh(t *testing.T) {
	m := NewSphereMesh(0.5, 16, 8)
	test.That(t, m.BoundingRadius(), test.ShouldAlmostEqual, 0.5)
	for _, v := range m.Vertices {
		test.That(t, v.Norm(), test.ShouldAlmostEqual, 0.5)
	}
	// two pole fans plus two triangles per quad in between
	test.That(t, len(m.Triangles), test.ShouldEqual, 2*16+2*16*(8-2))
}

func TestCylinderMesh(t *testing.T) {
	m := NewCylinderMesh(0.1, 0.5, 12)
	ext := m.Extents()
	test.That(t, ext.Z, test.ShouldAlmostEqual, 1.0)
	test.That(t, ext.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, len(m.Triangles), test.ShouldEqual, 4*12)
	for _, tri := range m.Triangles {
		for _, i := range tri {
			test.That(t, i, test.ShouldBeLessThan, len(m.Vertices))
		}
	}
}

func TestScaled(t *testing.T) {
	m := NewCuboidMesh(r3.Vector{X: 1, Y: 1, Z: 1}).Scaled(r3.Vector{X: 2, Y: 3, Z: 4})
	test.That(t, m.Extents(), test.ShouldResemble, r3.Vector{X: 2, Y: 3, Z: 4})
}

func TestDecodeASCIISTL(t *testing.T) {
	s := NewServer(logging.NewTestLogger(t))
	defer s.Close()
	h := s.LoadMesh("testdata/cube.stl")
	test.That(t, s.Wait(context.Background()), test.ShouldBeNil)

	m, state, err := s.Mesh(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, Loaded)
	test.That(t, len(m.Triangles), test.ShouldEqual, 12)
	test.That(t, m.Extents(), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 1})
	test.That(t, m.Label, test.ShouldEqual, "cube.stl")
	test.That(t, s.MeshPath(h), test.ShouldEqual, "testdata/cube.stl")

	// the same file is only loaded once
	test.That(t, s.LoadMesh("testdata/cube.stl"), test.ShouldEqual, h)
}

func TestDecodeBinarySTL(t *testing.T) {
	var buf bytes.Buffer
	header := make([]byte, stlHeaderSize)
	copy(header, "solid but actually binary")
	buf.Write(header)
	test.That(t, binary.Write(&buf, binary.LittleEndian, uint32(1)), test.ShouldBeNil)
	for _, f := range []float32{0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0} {
		test.That(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(f)), test.ShouldBeNil)
	}
	buf.Write([]byte{0, 0})

	m, err := DecodeSTL(buf.Bytes(), "bin")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(m.Triangles), test.ShouldEqual, 1)
	test.That(t, m.Vertices[1], test.ShouldResemble, r3.Vector{X: 2})
	test.That(t, m.Vertices[2], test.ShouldResemble, r3.Vector{Y: 3})
}

func TestDecodeSTLErrors(t *testing.T) {
	_, err := DecodeSTL([]byte("solid empty\nendsolid empty\n"), "empty")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = DecodeSTL([]byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0\nendloop\n"), "bad")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 4")
}

func TestDecodePLY(t *testing.T) {
	s := NewServer(logging.NewTestLogger(t))
	defer s.Close()
	h := s.LoadMesh("testdata/triangles.ply")
	test.That(t, s.Wait(context.Background()), test.ShouldBeNil)
	m, state, err := s.Mesh(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, Loaded)
	test.That(t, len(m.Vertices), test.ShouldEqual, 4)
	test.That(t, m.Triangles, test.ShouldResemble, [][3]int{{0, 1, 2}, {0, 1, 3}})
}

func TestLoadMeshFailures(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	s := NewServer(logger)
	missing := s.LoadMesh("testdata/missing.stl")
	unsupported := s.LoadMesh("testdata/cube.obj")
	test.That(t, s.Wait(context.Background()), test.ShouldBeNil)

	_, state, err := s.Mesh(missing)
	test.That(t, state, test.ShouldEqual, Failed)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.stl")
	_, state, err = s.Mesh(unsupported)
	test.That(t, state, test.ShouldEqual, Failed)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported mesh file format")
	test.That(t, logs.FilterMessage("failed to load mesh").Len(), test.ShouldEqual, 2)

	s.Close()
	_, state, err = s.Mesh(s.LoadMesh("testdata/cube.stl"))
	test.That(t, state, test.ShouldEqual, Failed)
	test.That(t, err, test.ShouldNotBeNil)

	_, state, err = s.Mesh(MeshHandle{})
	test.That(t, state, test.ShouldEqual, Failed)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadMeshSizeLimit(t *testing.T) {
	s := NewServer(logging.NewTestLogger(t))
	defer s.Close()
	test.That(t, s.MaxFileSize, test.ShouldEqual, int64(DefaultMaxFileSize))
	s.MaxFileSize = 16
	h := s.LoadMesh("testdata/cube.stl")
	test.That(t, s.Wait(context.Background()), test.ShouldBeNil)
	_, state, err := s.Mesh(h)
	test.That(t, state, test.ShouldEqual, Failed)
	test.That(t, err.Error(), test.ShouldContainSubstring, "over the 16B limit")
}

func TestWaitHonorsContext(t *testing.T) {
	s := NewServer(logging.NewTestLogger(t))
	defer s.Close()
	release := make(chan struct{})
	defer close(release)
	s.mu.Lock()
	s.decode(&meshEntry{state: Loading}, func(context.Context, int64) (*Mesh, error) {
		<-release
		return nil, errors.New("released")
	})
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	test.That(t, s.Wait(ctx), test.ShouldEqual, context.DeadlineExceeded)
}

func TestDecoderPanicFailsMesh(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	s := NewServer(logger)
	defer s.Close()
	entry := &meshEntry{path: "bad.stl", state: Loading}
	s.mu.Lock()
	s.decode(entry, func(context.Context, int64) (*Mesh, error) {
		panic("corrupt triangle table")
	})
	s.mu.Unlock()
	test.That(t, s.Wait(context.Background()), test.ShouldBeNil)

	s.mu.Lock()
	defer s.mu.Unlock()
	test.That(t, entry.state, test.ShouldEqual, Failed)
	test.That(t, entry.err.Error(), test.ShouldContainSubstring, "corrupt triangle table")
	test.That(t, logs.FilterMessage("failed to load mesh").Len(), test.ShouldEqual, 1)
}

func TestMaterials(t *testing.T) {
	s := NewServer(logging.NewTestLogger(t))
	defer s.Close()
	mat := NewMaterial("red", 1, 0, 0, 1, 0.7)
	h := s.AddMaterial(mat)
	got, ok := s.Material(h)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.RGBA(), test.ShouldResemble, [4]float64{1, 0, 0, 1})
	test.That(t, got.Hex(), test.ShouldEqual, "#ff0000")
	test.That(t, got.Metallic, test.ShouldEqual, 0.7)

	_, ok = s.Material(MaterialHandle{})
	test.That(t, ok, test.ShouldBeFalse)
	meshes, materials := s.Counts()
	test.That(t, meshes, test.ShouldEqual, 0)
	test.That(t, materials, test.ShouldEqual, 1)
}
