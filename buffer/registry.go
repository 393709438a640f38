// Package buffer implements the registry that owns all data buffers backing
// the scene. The registry is the one piece of shared mutable state in the
// engine: buffers are exclusively owned by it, readable by any number of
// readers once transferred, and replaced (never resized in place) when their
// shape changes, so a reader holding a handle from a prior snapshot never
// observes a torn write.
package buffer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"

	viz "github.com/gogpu/viz"
)

// Kind classifies what a buffer feeds on the GPU side.
type Kind int

// Buffer kinds.
const (
	KindVertex Kind = iota
	KindIndex
	KindAttribute
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindIndex:
		return "index"
	case KindAttribute:
		return "attribute"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Usage returns the GPU usage flags a backend should allocate the buffer
// with. All buffers are copy destinations because the engine uploads them.
func (k Kind) Usage() gputypes.BufferUsage {
	switch k {
	case KindIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

// ElementType identifies the scalar type stored in a buffer.
type ElementType int

// Element types.
const (
	Float32 ElementType = iota
	Uint32
)

// Size returns the byte size of one element.
func (t ElementType) Size() int { return 4 }

// String returns the element type name.
func (t ElementType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Uint32:
		return "uint32"
	default:
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
}

// TransferState tracks whether a buffer's current generation has been
// handed to a backend.
type TransferState int

// Transfer states.
const (
	StatePending TransferState = iota
	StateTransferred
)

// String returns the state name.
func (s TransferState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateTransferred:
		return "transferred"
	default:
		return fmt.Sprintf("TransferState(%d)", int(s))
	}
}

// Handle is a logical, non-owning reference to a registered buffer. The
// registry owns the backing storage; a handle stays valid only while the
// buffer is registered, and a handle whose Generation no longer matches the
// registry's refers to a superseded version.
type Handle struct {
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	Elem       ElementType `json:"elem"`
	Shape      []int       `json:"shape"`
	ByteSize   int         `json:"byte_size"`
	Generation uint64      `json:"generation"`
}

// Data is a read-only view of a buffer's contents handed to an upload
// function. Exactly one of F32 and U32 is non-nil, matching the handle's
// element type. Upload functions must not retain or mutate the slices.
type Data struct {
	F32 []float32
	U32 []uint32
}

// UploadFunc transfers buffer contents to a backend and returns an opaque
// backend-specific address. The registry only records the address; it never
// interprets it.
type UploadFunc func(h Handle, data Data) (uint64, error)

// record is a registered buffer. Storage slices are replaced wholesale on
// supersede, never written in place.
type record struct {
	handle Handle
	f32    []float32
	u32    []uint32
	state  TransferState
	addr   uint64
}

// Registry owns named data buffers and their transfer lifecycle.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	records    map[string]*record
	generation uint64
}

// NewRegistry creates an empty buffer registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*record)}
}

// RegisterFloat32 registers (or supersedes) a float32 buffer under name.
// The shape's element product must equal len(data). Data is copied: the
// caller keeps ownership of its slice.
//
// Re-registering an existing name with the same kind and element type
// supersedes the buffer: a fresh generation with fresh storage, reset to
// pending. Re-registering with a different kind or element type fails with
// ErrInvalidOperation.
func (r *Registry) RegisterFloat32(name string, kind Kind, shape []int, data []float32) (Handle, error) {
	if err := checkShape(name, shape, len(data)); err != nil {
		return Handle{}, err
	}
	stored := make([]float32, len(data))
	copy(stored, data)
	return r.register(name, kind, Float32, shape, stored, nil)
}

// RegisterUint32 registers (or supersedes) a uint32 buffer under name.
// Semantics match RegisterFloat32.
func (r *Registry) RegisterUint32(name string, kind Kind, shape []int, data []uint32) (Handle, error) {
	if err := checkShape(name, shape, len(data)); err != nil {
		return Handle{}, err
	}
	stored := make([]uint32, len(data))
	copy(stored, data)
	return r.register(name, kind, Uint32, shape, nil, stored)
}

func (r *Registry) register(name string, kind Kind, elem ElementType, shape []int, f32 []float32, u32 []uint32) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.records[name]; ok {
		if prev.handle.Kind != kind || prev.handle.Elem != elem {
			return Handle{}, fmt.Errorf("buffer: register %q: existing %s/%s buffer conflicts with %s/%s: %w",
				name, prev.handle.Kind, prev.handle.Elem, kind, elem, viz.ErrInvalidOperation)
		}
	}

	r.generation++
	n := len(f32) + len(u32)
	h := Handle{
		Name:       name,
		Kind:       kind,
		Elem:       elem,
		Shape:      append([]int(nil), shape...),
		ByteSize:   n * elem.Size(),
		Generation: r.generation,
	}
	r.records[name] = &record{handle: h, f32: f32, u32: u32, state: StatePending}

	viz.Logger().Debug("buffer registered",
		"name", name, "kind", kind.String(), "elem", elem.String(),
		"bytes", h.ByteSize, "generation", h.Generation)
	return cloneHandle(h), nil
}

// Lookup returns the current handle for name.
func (r *Registry) Lookup(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return Handle{}, false
	}
	return cloneHandle(rec.handle), true
}

// Release removes a buffer from the registry. It reports whether the name
// was registered.
func (r *Registry) Release(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[name]; !ok {
		return false
	}
	delete(r.records, name)
	return true
}

// MarkForTransfer flags the named buffer for transfer. It is idempotent:
// a buffer already transferred in its current generation stays transferred.
// An unknown name is a hard failure.
func (r *Registry) MarkForTransfer(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.records[name]; !ok {
		return fmt.Errorf("buffer: mark %q: %w", name, viz.ErrUnknownReference)
	}
	return nil
}

// Transfer hands the named buffer's contents to upload and records the
// returned opaque address. If the buffer's current generation was already
// transferred, the cached address is returned without re-uploading; a
// superseded buffer (new generation since the last transfer) is uploaded
// again. Transfer of an unknown name fails with ErrUnknownReference.
func (r *Registry) Transfer(name string, upload UploadFunc) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return 0, fmt.Errorf("buffer: transfer %q: %w", name, viz.ErrUnknownReference)
	}
	if rec.state == StateTransferred {
		return rec.addr, nil
	}

	addr, err := upload(cloneHandle(rec.handle), Data{F32: rec.f32, U32: rec.u32})
	if err != nil {
		return 0, fmt.Errorf("buffer: transfer %q: %w", name, err)
	}
	rec.state = StateTransferred
	rec.addr = addr

	viz.Logger().Debug("buffer transferred",
		"name", name, "bytes", rec.handle.ByteSize, "addr", addr)
	return addr, nil
}

// State returns the transfer state of the named buffer.
func (r *Registry) State(name string) (TransferState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return StatePending, fmt.Errorf("buffer: state %q: %w", name, viz.ErrUnknownReference)
	}
	return rec.state, nil
}

// Float32Data returns the contents of a float32 buffer. The returned slice
// is owned by the registry and must be treated as read-only.
func (r *Registry) Float32Data(name string) ([]float32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok || rec.handle.Elem != Float32 {
		return nil, fmt.Errorf("buffer: float32 data %q: %w", name, viz.ErrUnknownReference)
	}
	return rec.f32, nil
}

// Uint32Data returns the contents of a uint32 buffer. The returned slice
// is owned by the registry and must be treated as read-only.
func (r *Registry) Uint32Data(name string) ([]uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok || rec.handle.Elem != Uint32 {
		return nil, fmt.Errorf("buffer: uint32 data %q: %w", name, viz.ErrUnknownReference)
	}
	return rec.u32, nil
}

// Names returns all registered buffer names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered buffers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func cloneHandle(h Handle) Handle {
	h.Shape = append([]int(nil), h.Shape...)
	return h
}

func checkShape(name string, shape []int, n int) error {
	if len(shape) == 0 {
		return fmt.Errorf("buffer: register %q: empty shape: %w", name, viz.ErrInvalidInput)
	}
	product := 1
	for _, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("buffer: register %q: negative dimension %d: %w", name, dim, viz.ErrInvalidInput)
		}
		product *= dim
	}
	if product != n {
		return fmt.Errorf("buffer: register %q: shape %v holds %d elements, data has %d: %w",
			name, shape, product, n, viz.ErrInvalidInput)
	}
	return nil
}
