package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"os"
	"sync/atomic"
	"time"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/render"
)

// Software is the CPU rasterizing backend. It is headless: Display is
// unsupported, Save writes PNG files, and ExportInteractive emits a
// standalone HTML document.
type Software struct {
	cfg          Config
	initialized  bool
	raster       *rasterizer
	lastFrame    *render.Frame
	addr         atomic.Uint64
	interactions map[string][]InteractionFunc
}

// init registers the software backend on package import.
func init() {
	Register(NameSoftware, func(cfg Config) Backend {
		return NewSoftware(cfg)
	})
}

// NewSoftware creates a software rendering backend.
func NewSoftware(cfg Config) *Software {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	return &Software{
		cfg:          cfg,
		interactions: make(map[string][]InteractionFunc),
	}
}

// Name returns the backend identifier.
func (b *Software) Name() string {
	return NameSoftware
}

// Init initializes the backend.
func (b *Software) Init() error {
	if b.cfg.Registry == nil {
		return fmt.Errorf("backend: software: no buffer registry: %w", viz.ErrInvalidInput)
	}
	b.raster = newRasterizer(b.cfg.Registry, b.cfg.Width, b.cfg.Height)
	b.initialized = true
	viz.Logger().Info("backend: software initialized",
		"width", b.cfg.Width, "height", b.cfg.Height)
	return nil
}

// Close releases backend resources.
func (b *Software) Close() {
	b.raster = nil
	b.lastFrame = nil
	b.initialized = false
}

// Render rasterizes the frame. Buffers marked for transfer are transferred
// first; for the software backend the returned address is a synthetic token,
// the rasterizer reads buffer contents through the registry.
func (b *Software) Render(frame *render.Frame) error {
	if !b.initialized {
		return fmt.Errorf("backend: software: %w", viz.ErrNotInitialized)
	}
	if frame == nil {
		return fmt.Errorf("backend: software: nil frame: %w", viz.ErrInvalidInput)
	}

	if frame.Viewport != [2]int{b.cfg.Width, b.cfg.Height} && frame.Viewport != [2]int{} {
		b.cfg.Width, b.cfg.Height = frame.Viewport[0], frame.Viewport[1]
		b.raster.resize(b.cfg.Width, b.cfg.Height)
	}

	for _, node := range frame.Nodes {
		for _, h := range node.Payload.Buffers {
			if _, err := b.cfg.Registry.Transfer(h.Name, b.upload); err != nil {
				return fmt.Errorf("backend: software: %w", err)
			}
		}
	}

	if err := b.raster.rasterize(frame); err != nil {
		return err
	}
	b.lastFrame = frame
	return nil
}

func (b *Software) upload(h buffer.Handle, _ buffer.Data) (uint64, error) {
	return b.addr.Add(1), nil
}

// Display is unsupported: the software backend has no window surface.
func (b *Software) Display() error {
	return fmt.Errorf("backend: software: display: %w", ErrUnsupported)
}

// Save writes the last rendered frame as a PNG file.
func (b *Software) Save(path string) error {
	if !b.initialized || b.lastFrame == nil {
		return fmt.Errorf("backend: software: nothing rendered: %w", viz.ErrNotInitialized)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backend: software: save: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, b.raster.img); err != nil {
		return fmt.Errorf("backend: software: save: %w", err)
	}
	viz.Logger().Info("backend: frame saved", "path", path)
	return nil
}

// Animate calls update at the given interval and renders each produced frame.
func (b *Software) Animate(ctx context.Context, update UpdateFunc, interval time.Duration) error {
	if !b.initialized {
		return fmt.Errorf("backend: software: %w", viz.ErrNotInitialized)
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame, err := update(i)
		if err != nil {
			return err
		}
		if frame == nil {
			return nil
		}
		if err := b.Render(frame); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stream renders frames as they arrive.
func (b *Software) Stream(ctx context.Context, frames <-chan *render.Frame) error {
	if !b.initialized {
		return fmt.Errorf("backend: software: %w", viz.ErrNotInitialized)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := b.Render(frame); err != nil {
				return err
			}
		}
	}
}

// AddInteraction records a callback. The software backend has no live input;
// registered kinds are embedded in ExportInteractive output so the exported
// document wires them up.
func (b *Software) AddInteraction(kind string, fn InteractionFunc) error {
	switch kind {
	case "click", "hover", "zoom", "pan":
	default:
		return fmt.Errorf("backend: software: interaction %q: %w", kind, viz.ErrInvalidInput)
	}
	b.interactions[kind] = append(b.interactions[kind], fn)
	return nil
}

// Interactions returns the registered interaction kinds.
func (b *Software) Interactions() []string {
	kinds := make([]string, 0, len(b.interactions))
	for k := range b.interactions {
		kinds = append(kinds, k)
	}
	return kinds
}

var interactiveTmpl = template.Must(template.New("interactive").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>viz</title></head>
<body>
<canvas id="viz" width="{{.Width}}" height="{{.Height}}"></canvas>
<script>
const frame = {{.Frame}};
const interactions = {{.Interactions}};
</script>
</body>
</html>
`))

// ExportInteractive writes the last rendered frame as a standalone HTML
// document with the frame description embedded as JSON.
func (b *Software) ExportInteractive(path string) error {
	if b.lastFrame == nil {
		return fmt.Errorf("backend: software: nothing rendered: %w", viz.ErrNotInitialized)
	}
	frameJSON, err := json.Marshal(b.lastFrame)
	if err != nil {
		return fmt.Errorf("backend: software: export: %w", err)
	}
	kindsJSON, err := json.Marshal(b.Interactions())
	if err != nil {
		return fmt.Errorf("backend: software: export: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("backend: software: export: %w", err)
	}
	defer f.Close()

	return interactiveTmpl.Execute(f, map[string]any{
		"Width":        b.cfg.Width,
		"Height":       b.cfg.Height,
		"Frame":        template.JS(frameJSON),
		"Interactions": template.JS(kindsJSON),
	})
}
