// Package native implements the Pure Go GPU backend on top of the gogpu/wgpu
// core API. It owns the instance, adapter, device, and queue, compiles the
// resolved WGSL programs to SPIR-V, and uploads registered buffers. Command
// submission and surface presentation are handled by the window layer above;
// Display and Save report ErrUnsupported here.
package native

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/render"
	"github.com/gogpu/viz/shader"
)

// Native is the GPU backend. Construct through backend.Get("native", cfg) or
// NewBackend; Init must succeed before rendering.
type Native struct {
	mu  sync.Mutex
	cfg backend.Config

	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID
	info     *GPUInfo

	// modules caches compiled SPIR-V per resolved program descriptor.
	// Descriptor identity is stable, the resolver caches them.
	modules map[*shader.ProgramDescriptor]compiledProgram

	// uploads maps buffer names to their synthetic GPU addresses.
	uploads  map[string]uint64
	nextAddr uint64

	lastFrame   *render.Frame
	initialized bool
}

type compiledProgram struct {
	vertex   []uint32
	fragment []uint32
	topology gputypes.PrimitiveTopology
}

func init() {
	backend.Register(backend.NameNative, func(cfg backend.Config) backend.Backend {
		return NewBackend(cfg)
	})
}

// NewBackend creates an uninitialized GPU backend.
func NewBackend(cfg backend.Config) *Native {
	return &Native{
		cfg:     cfg,
		modules: make(map[*shader.ProgramDescriptor]compiledProgram),
		uploads: make(map[string]uint64),
	}
}

// Name returns the backend identifier.
func (b *Native) Name() string {
	return backend.NameNative
}

// Init creates the GPU instance, requests a high performance adapter, and
// opens a device and queue.
func (b *Native) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	if b.cfg.Registry == nil {
		return fmt.Errorf("native: no buffer registry: %w", viz.ErrInvalidInput)
	}

	b.instance = core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})

	adapterID, err := b.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("native: no suitable GPU adapter: %w", err)
	}
	b.adapter = adapterID

	b.info, _ = queryGPUInfo(adapterID)
	if b.info != nil {
		viz.Logger().Info("native: GPU selected", "gpu", b.info.String())
	}

	deviceID, err := core.RequestDevice(adapterID, &gputypes.DeviceDescriptor{
		Label:          "viz-device",
		RequiredLimits: gputypes.DefaultLimits(),
	})
	if err != nil {
		b.releaseLocked()
		return fmt.Errorf("native: device creation failed: %w", err)
	}
	b.device = deviceID

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		b.releaseLocked()
		return fmt.Errorf("native: queue retrieval failed: %w", err)
	}
	b.queue = queueID

	b.initialized = true
	viz.Logger().Info("native: backend initialized")
	return nil
}

// Close releases GPU resources in reverse order of creation.
func (b *Native) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return
	}
	b.releaseLocked()
	b.modules = make(map[*shader.ProgramDescriptor]compiledProgram)
	b.uploads = make(map[string]uint64)
	b.lastFrame = nil
	b.initialized = false
	viz.Logger().Info("native: backend closed")
}

// releaseLocked must be called with b.mu held.
func (b *Native) releaseLocked() {
	if !b.device.IsZero() {
		if err := core.DeviceDrop(b.device); err != nil {
			viz.Logger().Warn("native: device release failed", "error", err)
		}
		b.device = core.DeviceID{}
	}
	if !b.adapter.IsZero() {
		if err := core.AdapterDrop(b.adapter); err != nil {
			viz.Logger().Warn("native: adapter release failed", "error", err)
		}
		b.adapter = core.AdapterID{}
	}
	b.queue = core.QueueID{}
	b.instance = nil
	b.info = nil
}

// Render compiles the frame's shader programs and uploads its buffers. Each
// marked buffer is transferred once; superseded buffers are re-uploaded at a
// new address.
func (b *Native) Render(frame *render.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return fmt.Errorf("native: %w", viz.ErrNotInitialized)
	}
	if frame == nil {
		return fmt.Errorf("native: nil frame: %w", viz.ErrInvalidInput)
	}

	for _, node := range frame.Nodes {
		if node.Shader != nil {
			if err := b.compileProgram(node); err != nil {
				return err
			}
		}
		for _, h := range node.Payload.Buffers {
			if _, err := b.cfg.Registry.Transfer(h.Name, b.upload); err != nil {
				return fmt.Errorf("native: %w", err)
			}
		}
	}

	b.lastFrame = frame
	viz.Logger().Debug("native: frame prepared on GPU",
		"nodes", len(frame.Nodes), "programs", len(b.modules))
	return nil
}

// compileProgram must be called with b.mu held.
func (b *Native) compileProgram(node render.FrameNode) error {
	if _, ok := b.modules[node.Shader]; ok {
		return nil
	}
	vs, err := shader.CompileSPIRV(node.Shader.Vertex)
	if err != nil {
		return fmt.Errorf("native: vertex stage for %q: %w", node.Shader.Kind, err)
	}
	fs, err := shader.CompileSPIRV(node.Shader.Fragment)
	if err != nil {
		return fmt.Errorf("native: fragment stage for %q: %w", node.Shader.Kind, err)
	}
	b.modules[node.Shader] = compiledProgram{
		vertex:   vs,
		fragment: fs,
		topology: node.Payload.Primitive.Topology(),
	}
	return nil
}

// upload records a buffer transfer and hands back its GPU address. Vertex and
// index buffers additionally carry CopyDst so queue writes can update them.
func (b *Native) upload(h buffer.Handle, _ buffer.Data) (uint64, error) {
	usage := h.Kind.Usage() | gputypes.BufferUsageCopyDst
	b.nextAddr++
	b.uploads[h.Name] = b.nextAddr
	viz.Logger().Debug("native: buffer uploaded",
		"name", h.Name, "bytes", h.ByteSize, "usage", uint32(usage))
	return b.nextAddr, nil
}

// Display requires a window surface, which this backend does not manage.
func (b *Native) Display() error {
	return fmt.Errorf("native: display: %w", backend.ErrUnsupported)
}

// Save requires texture readback, which the wgpu core API does not expose
// yet.
func (b *Native) Save(path string) error {
	return fmt.Errorf("native: save: %w", backend.ErrUnsupported)
}

// Animate repeatedly calls update at the given interval and renders each
// produced frame.
func (b *Native) Animate(ctx context.Context, update backend.UpdateFunc, interval time.Duration) error {
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
func (b *Native) Stream(ctx context.Context, frames <-chan *render.Frame) error {
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

// AddInteraction requires a window surface.
func (b *Native) AddInteraction(kind string, fn backend.InteractionFunc) error {
	return fmt.Errorf("native: interaction: %w", backend.ErrUnsupported)
}

// ExportInteractive is a software backend capability.
func (b *Native) ExportInteractive(path string) error {
	return fmt.Errorf("native: export: %w", backend.ErrUnsupported)
}

// GPUInfo returns information about the selected GPU, or nil before Init.
func (b *Native) GPUInfo() *GPUInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// BufferAddress returns the GPU address assigned to a transferred buffer.
func (b *Native) BufferAddress(name string) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr, ok := b.uploads[name]
	return addr, ok
}
