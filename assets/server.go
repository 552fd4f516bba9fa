package assets

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/utils"
)

// MeshHandle identifies a mesh held by a Server.
type MeshHandle uuid.UUID

func (h MeshHandle) String() string { return uuid.UUID(h).String() }

// MaterialHandle identifies a material held by a Server.
type MaterialHandle uuid.UUID

func (h MaterialHandle) String() string { return uuid.UUID(h).String() }

// LoadState is the progress of a mesh.
type LoadState int

// Mesh load states.
const (
	Loading LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MeshSource gives access to meshes by handle. Consumers must tolerate meshes that are still loading.
type MeshSource interface {
	Mesh(h MeshHandle) (*Mesh, LoadState, error)
}

type meshEntry struct {
	path  string
	state LoadState
	mesh  *Mesh
	err   error
}

// DefaultMaxFileSize is the default limit on mesh file size.
const DefaultMaxFileSize = 256 * units.MiB

// DefaultDecodeWorkers is the number of mesh files decoded at once.
var DefaultDecodeWorkers = runtime.NumCPU()

// Server owns the meshes and materials of a scene. Files are decoded on background workers and their
// handles are returned before decoding finishes. A decoder that fails or panics leaves its mesh
// Failed.
type Server struct {
	mu        sync.Mutex
	meshes    map[MeshHandle]*meshEntry
	byPath    map[string]MeshHandle
	materials map[MaterialHandle]Material

	// MaxFileSize is the largest mesh file LoadMesh will decode.
	MaxFileSize int64

	workers *utils.WorkerGroup
	logger  logging.Logger
}

// NewServer returns an empty Server that decodes up to DefaultDecodeWorkers files at once. Close
// stops its workers.
func NewServer(logger logging.Logger) *Server {
	return &Server{
		meshes:      map[MeshHandle]*meshEntry{},
		byPath:      map[string]MeshHandle{},
		materials:   map[MaterialHandle]Material{},
		MaxFileSize: DefaultMaxFileSize,
		workers:     utils.NewWorkerGroup(DefaultDecodeWorkers),
		logger:      logger,
	}
}

// AddMesh stores an already built mesh.
func (s *Server) AddMesh(m *Mesh) MeshHandle {
	h := MeshHandle(uuid.New())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[h] = &meshEntry{state: Loaded, mesh: m}
	return h
}

// LoadMesh starts decoding the STL or PLY file at path and returns its handle. Loading the same
// path twice returns the same handle.
func (s *Server) LoadMesh(path string) MeshHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byPath[path]; ok {
		return h
	}
	h := MeshHandle(uuid.New())
	entry := &meshEntry{path: path, state: Loading}
	s.meshes[h] = entry
	s.byPath[path] = h
	s.decode(entry, func(ctx context.Context, maxSize int64) (*Mesh, error) {
		return decodeFile(ctx, path, maxSize)
	})
	return h
}

// decode schedules fn for entry. It must be called with mu held.
func (s *Server) decode(entry *meshEntry, fn func(context.Context, int64) (*Mesh, error)) {
	var mesh *Mesh
	maxSize := s.MaxFileSize
	scheduled := s.workers.Go(func(ctx context.Context) error {
		var err error
		mesh, err = fn(ctx, maxSize)
		return err
	}, func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			entry.state, entry.err = Failed, err
			s.logger.Warnw("failed to load mesh", "path", entry.path, "error", err)
			return
		}
		entry.state, entry.mesh = Loaded, mesh
		s.logger.Debugw("loaded mesh", "path", entry.path, "vertices", len(mesh.Vertices), "triangles", len(mesh.Triangles))
	})
	if !scheduled {
		entry.state, entry.err = Failed, errors.New("asset server is closed")
	}
}

func decodeFile(ctx context.Context, path string, maxSize int64) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var decode func([]byte, string) (*Mesh, error)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".stl":
		decode = DecodeSTL
	case ".ply":
		decode = DecodePLY
	default:
		return nil, errors.Errorf("unsupported mesh file format: %s (must be .stl or .ply)", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mesh %q", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, errors.Errorf("mesh %q is %s, over the %s limit",
			path, units.BytesSize(float64(info.Size())), units.BytesSize(float64(maxSize)))
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mesh %q", path)
	}
	return decode(data, filepath.Base(path))
}

// Mesh returns the mesh for a handle with its load state. Unknown handles are reported as Failed.
func (s *Server) Mesh(h MeshHandle) (*Mesh, LoadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.meshes[h]
	if !ok {
		return nil, Failed, errors.Errorf("unknown mesh handle %s", h)
	}
	return entry.mesh, entry.state, entry.err
}

// MeshPath returns the file a mesh was loaded from, or "" for meshes added directly.
func (s *Server) MeshPath(h MeshHandle) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.meshes[h]; ok {
		return entry.path
	}
	return ""
}

// AddMaterial stores a material.
func (s *Server) AddMaterial(m Material) MaterialHandle {
	h := MaterialHandle(uuid.New())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[h] = m
	return h
}

// Material returns the material for a handle.
func (s *Server) Material(h MaterialHandle) (Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[h]
	return m, ok
}

// Counts returns the number of meshes and materials held.
func (s *Server) Counts() (meshes, materials int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meshes), len(s.materials)
}

// Wait blocks until every mesh load started so far has finished or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	return s.workers.Wait(ctx)
}

// Close stops the loading workers. Loads that have not started fail.
func (s *Server) Close() {
	s.workers.Stop()
}
