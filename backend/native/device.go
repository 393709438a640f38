package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	types "github.com/gogpu/wgpu"
)

// GPUInfo describes the selected GPU adapter.
type GPUInfo struct {
	// Name is the GPU name (e.g. "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType types.DeviceType
	// Backend is the graphics API in use (Vulkan, Metal, DX12).
	Backend types.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Name, g.DeviceType, g.Backend)
}

func queryGPUInfo(adapterID core.AdapterID) (*GPUInfo, error) {
	info, err := core.GetAdapterInfo(adapterID)
	if err != nil {
		return nil, fmt.Errorf("native: adapter info: %w", err)
	}
	return &GPUInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: info.DeviceType,
		Backend:    info.Backend,
		Driver:     info.Driver,
	}, nil
}

// Provider returns a gpucontext.DeviceProvider view of the backend, so canvas
// integrations can share its device and queue. The backend keeps ownership;
// Destroy on the returned device is a no-op.
func (b *Native) Provider() gpucontext.DeviceProvider {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &provider{
		device:  &sharedDevice{id: b.device},
		queue:   &sharedQueue{id: b.queue},
		adapter: &sharedAdapter{id: b.adapter},
	}
}

type provider struct {
	device  gpucontext.Device
	queue   gpucontext.Queue
	adapter gpucontext.Adapter
}

func (p *provider) Device() gpucontext.Device   { return p.device }
func (p *provider) Queue() gpucontext.Queue     { return p.queue }
func (p *provider) Adapter() gpucontext.Adapter { return p.adapter }
func (p *provider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

type sharedDevice struct {
	id core.DeviceID
}

// Poll is a no-op: the core API processes work on submission.
func (d *sharedDevice) Poll(wait bool) {}

// Destroy is a no-op: the backend releases the device in Close.
func (d *sharedDevice) Destroy() {}

type sharedQueue struct {
	id core.QueueID
}

type sharedAdapter struct {
	id core.AdapterID
}
