// Package backend defines the rendering backend capability set and a
// registry for backend implementations. Backends consume prepared frames;
// they never see plotting semantics. The software backend in this package
// rasterizes on the CPU; the native backend under backend/native targets the
// GPU through the wgpu core API.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/render"
)

// Common backend errors.
var (
	// ErrNotAvailable is returned when a requested backend is not registered.
	ErrNotAvailable = errors.New("backend: not available")

	// ErrUnsupported is returned by a backend for a capability it does not
	// implement, such as Display on a headless backend.
	ErrUnsupported = errors.New("backend: operation not supported")
)

// Config is the configuration injected into a backend at construction.
// Backends read buffer contents through the registry that the data pipeline
// registered them in.
type Config struct {
	Registry *buffer.Registry
	Width    int
	Height   int
}

// UpdateFunc produces the next frame of an animation. Returning a nil frame
// stops the animation without error.
type UpdateFunc func(frame int) (*render.Frame, error)

// InteractionFunc is invoked when a registered interaction fires.
type InteractionFunc func(event Event)

// Event describes one interaction occurrence.
type Event struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Backend is the capability set every rendering backend implements. Any
// component implementing it is a valid render target, including test doubles.
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "native").
	Name() string

	// Init initializes the backend. It must be called before any other
	// rendering operation.
	Init() error

	// Render draws a prepared frame into the backend's target.
	Render(frame *render.Frame) error

	// Display presents the last rendered frame on screen.
	Display() error

	// Save writes the last rendered frame to a file.
	Save(path string) error

	// Animate repeatedly calls update at the given interval and renders
	// each produced frame until the context is done, update returns a nil
	// frame, or an error occurs.
	Animate(ctx context.Context, update UpdateFunc, interval time.Duration) error

	// Stream renders frames as they arrive until the channel closes or
	// the context is done.
	Stream(ctx context.Context, frames <-chan *render.Frame) error

	// AddInteraction registers a callback for an interaction kind
	// ("click", "hover", "zoom", "pan").
	AddInteraction(kind string, fn InteractionFunc) error

	// ExportInteractive writes the last rendered frame as a standalone
	// interactive HTML document.
	ExportInteractive(path string) error

	// Close releases all backend resources. The backend must not be used
	// afterwards.
	Close()
}
