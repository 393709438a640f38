// Package plot is the high-level plotting facade. An Engine owns one scene
// graph, one data pipeline with its buffer registry, a render preparer, and
// a backend, wired together so that Line/Scatter/Bar/Histogram calls go from
// raw arrays to scene nodes in one step.
package plot

import (
	"context"
	"fmt"
	"time"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/config"
	"github.com/gogpu/viz/pipeline"
	"github.com/gogpu/viz/render"
	"github.com/gogpu/viz/scene"
)

// Engine is the plotting facade. Construct with New; the zero value is not
// usable.
type Engine struct {
	cfg      config.Config
	registry *buffer.Registry
	pipe     *pipeline.Pipeline
	graph    *scene.Graph
	prep     *render.Preparer
	backend  backend.Backend

	autoInit    bool
	initialized bool
}

// Option customizes engine construction.
type Option func(*options)

type options struct {
	cfg      config.Config
	backend  string
	instance backend.Backend
	autoInit bool
}

// WithConfig supplies a full configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithBackend selects a backend by registered name instead of the priority
// default.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithBackendInstance injects a backend directly, bypassing the registry.
// Intended for tests and embedders with preconfigured backends.
func WithBackendInstance(b backend.Backend) Option {
	return func(o *options) { o.instance = b }
}

// WithThresholds overrides the LOD thresholds.
func WithThresholds(lineSimplifyAbove, scatterSampleAbove int) Option {
	return func(o *options) {
		o.cfg.LOD.LineSimplifyAbove = lineSimplifyAbove
		o.cfg.LOD.ScatterSampleAbove = scatterSampleAbove
	}
}

// WithViewport overrides the viewport size.
func WithViewport(width, height int) Option {
	return func(o *options) {
		o.cfg.Rendering.Width = width
		o.cfg.Rendering.Height = height
	}
}

// WithAutoInit makes the first Render call initialize the backend instead of
// failing. This is a documented convenience for one-shot scripts; long-lived
// callers should call Init explicitly so setup failures surface early.
func WithAutoInit() Option {
	return func(o *options) { o.autoInit = true }
}

// New creates an engine. Without WithBackend or WithBackendInstance the best
// registered backend is selected by priority.
func New(opts ...Option) (*Engine, error) {
	o := options{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	registry := buffer.NewRegistry()
	e := &Engine{
		cfg:      o.cfg,
		registry: registry,
		pipe:     pipeline.New(registry, o.cfg.LOD),
		graph:    scene.NewGraph(),
		prep:     render.NewPreparer(registry, o.cfg.Rendering.Width, o.cfg.Rendering.Height),
		autoInit: o.autoInit,
	}

	bcfg := backend.Config{
		Registry: registry,
		Width:    o.cfg.Rendering.Width,
		Height:   o.cfg.Rendering.Height,
	}
	switch {
	case o.instance != nil:
		e.backend = o.instance
	case o.backend != "" || o.cfg.Rendering.Backend != "":
		name := o.backend
		if name == "" {
			name = o.cfg.Rendering.Backend
		}
		if e.backend = backend.Get(name, bcfg); e.backend == nil {
			return nil, fmt.Errorf("plot: backend %q: %w", name, backend.ErrNotAvailable)
		}
	default:
		if e.backend = backend.Default(bcfg); e.backend == nil {
			return nil, fmt.Errorf("plot: %w", backend.ErrNotAvailable)
		}
	}
	return e, nil
}

// Init initializes the backend.
func (e *Engine) Init() error {
	if e.initialized {
		return nil
	}
	if err := e.backend.Init(); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

// Close releases the backend. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.backend.Close()
	e.initialized = false
}

func (e *Engine) ensureReady() error {
	if e.initialized {
		return nil
	}
	if !e.autoInit {
		return fmt.Errorf("plot: backend %s: %w", e.backend.Name(), viz.ErrNotInitialized)
	}
	return e.Init()
}

// Line adds a line plot and returns its node id.
func (e *Engine) Line(x, y []float32, material scene.Material) (scene.ID, error) {
	id := e.graph.ReserveID(string(scene.GeometryLine))
	payload, err := e.pipe.Line(string(id), x, y)
	if err != nil {
		return "", err
	}
	return e.attach(scene.GeometryLine, id, payload, material)
}

// Scatter adds a scatter plot and returns its node id.
func (e *Engine) Scatter(x, y []float32, opts pipeline.ScatterOptions, material scene.Material) (scene.ID, error) {
	id := e.graph.ReserveID(string(scene.GeometryScatter))
	payload, err := e.pipe.Scatter(string(id), x, y, opts)
	if err != nil {
		return "", err
	}
	return e.attach(scene.GeometryScatter, id, payload, material)
}

// Bar adds a bar chart and returns its node id.
func (e *Engine) Bar(x, heights []float32, material scene.Material) (scene.ID, error) {
	id := e.graph.ReserveID(string(scene.GeometryBar))
	payload, err := e.pipe.Bar(string(id), x, heights)
	if err != nil {
		return "", err
	}
	return e.attach(scene.GeometryBar, id, payload, material)
}

// Histogram adds a histogram over the data and returns its node id.
func (e *Engine) Histogram(data []float32, bins int, material scene.Material) (scene.ID, error) {
	id := e.graph.ReserveID(string(scene.GeometryHistogram))
	payload, err := e.pipe.Histogram(string(id), data, bins)
	if err != nil {
		return "", err
	}
	return e.attach(scene.GeometryHistogram, id, payload, material)
}

// attach inserts the geometry node at its reserved id. If insertion fails the
// payload's buffers are released so no orphaned storage is left behind.
func (e *Engine) attach(kind scene.GeometryKind, id scene.ID, payload pipeline.Payload, material scene.Material) (scene.ID, error) {
	if _, err := e.graph.AddGeometry(kind, payload, material, scene.WithID(id)); err != nil {
		for _, h := range payload.Buffers {
			e.registry.Release(h.Name)
		}
		return "", err
	}
	return id, nil
}

// Remove removes a node and releases the buffers its payload references.
func (e *Engine) Remove(id scene.ID) (bool, error) {
	snap := e.graph.Snapshot()
	view, known := snap.Nodes[id]

	ok, err := e.graph.RemoveNode(id)
	if err != nil || !ok {
		return ok, err
	}
	if known {
		for _, h := range view.Payload.Buffers {
			e.registry.Release(h.Name)
		}
	}
	return true, nil
}

// Dashboard creates a container of widget nodes and returns the container id.
func (e *Engine) Dashboard(widgets []scene.Material) (scene.ID, error) {
	dash, err := e.graph.AddContainer()
	if err != nil {
		return "", err
	}
	for _, w := range widgets {
		if _, err := e.graph.AddWidget(w, scene.WithParent(dash)); err != nil {
			_, _ = e.graph.RemoveNode(dash)
			return "", err
		}
	}
	return dash, nil
}

// Render prepares a frame from the current scene and hands it to the backend.
func (e *Engine) Render() error {
	if err := e.ensureReady(); err != nil {
		return err
	}
	frame, err := e.prepare()
	if err != nil {
		return err
	}
	return e.backend.Render(frame)
}

func (e *Engine) prepare() (*render.Frame, error) {
	frame, err := e.prep.Prepare(e.graph.Snapshot())
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// Show displays the last rendered frame.
func (e *Engine) Show() error {
	if err := e.ensureReady(); err != nil {
		return err
	}
	return e.backend.Display()
}

// Save writes the last rendered frame to a file.
func (e *Engine) Save(path string) error {
	return e.backend.Save(path)
}

// Animate drives an animation: update mutates the scene for each tick and
// reports whether to continue; the resulting frame is rendered by the
// backend.
func (e *Engine) Animate(ctx context.Context, update func(frame int) (bool, error), interval time.Duration) error {
	if err := e.ensureReady(); err != nil {
		return err
	}
	return e.backend.Animate(ctx, func(i int) (*render.Frame, error) {
		cont, err := update(i)
		if err != nil {
			return nil, err
		}
		if !cont {
			return nil, nil
		}
		return e.prepare()
	}, interval)
}

// Stream applies scene updates as they arrive and renders after each one,
// until the channel closes or the context is done.
func (e *Engine) Stream(ctx context.Context, updates <-chan func(*Engine) error) error {
	if err := e.ensureReady(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn, ok := <-updates:
			if !ok {
				return nil
			}
			if err := fn(e); err != nil {
				return err
			}
			if err := e.Render(); err != nil {
				return err
			}
		}
	}
}

// AddInteraction registers an interaction callback with the backend.
func (e *Engine) AddInteraction(kind string, fn backend.InteractionFunc) error {
	return e.backend.AddInteraction(kind, fn)
}

// ExportInteractive writes the last rendered frame as an interactive HTML
// document.
func (e *Engine) ExportInteractive(path string) error {
	return e.backend.ExportInteractive(path)
}

// SetCamera replaces the scene camera.
func (e *Engine) SetCamera(c scene.Camera) { e.graph.SetCamera(c) }

// SetLighting replaces the scene lighting.
func (e *Engine) SetLighting(l scene.Lighting) { e.graph.SetLighting(l) }

// Graph exposes the scene graph for direct node manipulation.
func (e *Engine) Graph() *scene.Graph { return e.graph }

// Registry exposes the buffer registry.
func (e *Engine) Registry() *buffer.Registry { return e.registry }

// Preparer exposes the render preparer, so callers can install custom shader
// templates through its resolver.
func (e *Engine) Preparer() *render.Preparer { return e.prep }

// Backend exposes the selected backend.
func (e *Engine) Backend() backend.Backend { return e.backend }
