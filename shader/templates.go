// Package shader resolves (geometry kind, material properties) pairs to
// cached shader program descriptors. Base WGSL templates per plot kind are
// customized through fixed insertion slots, so applying the same material
// twice always yields the same well-formed source. Descriptors hold WGSL;
// CompileSPIRV lowers it for backends that consume SPIR-V.
package shader

// Template is a base shader for one or more geometry kinds. The fragment
// shader is not stored as final source; Resolve assembles it from these parts
// plus the material slots, which keeps override application idempotent.
type Template struct {
	// Name identifies the template in descriptors and logs.
	Name string
	// Vertex is the complete vertex stage source.
	Vertex string
	// FragmentInput is the fs_main parameter list, without parentheses.
	// Empty for stages that take no varyings.
	FragmentInput string
	// BaseColor is the expression producing the pre-override fragment color.
	BaseColor string
}

const lineVertexWGSL = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
};

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 1.0);
    return out;
}
`

const pointVertexWGSL = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) size: f32,
};

@vertex
fn vs_main(
    @location(0) position: vec3<f32>,
    @location(1) size: f32,
    @location(2) color: vec4<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 1.0);
    out.color = color;
    out.size = size;
    return out;
}
`

const widgetVertexWGSL = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(
    @location(0) position: vec2<f32>,
    @location(1) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(position, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

// builtinTemplates maps geometry kinds to their base templates. Histogram
// geometry is bar geometry after binning, so it shares the bar template.
func builtinTemplates() map[string]Template {
	line := Template{
		Name:      "line",
		Vertex:    lineVertexWGSL,
		BaseColor: "vec4<f32>(0.2, 0.6, 1.0, 1.0)",
	}
	bar := Template{
		Name:      "bar",
		Vertex:    lineVertexWGSL,
		BaseColor: "vec4<f32>(0.8, 0.4, 0.2, 1.0)",
	}
	point := Template{
		Name:          "point",
		Vertex:        pointVertexWGSL,
		FragmentInput: "@location(0) color: vec4<f32>, @location(1) size: f32",
		BaseColor:     "color",
	}
	widget := Template{
		Name:          "widget",
		Vertex:        widgetVertexWGSL,
		FragmentInput: "@location(0) uv: vec2<f32>",
		BaseColor:     "vec4<f32>(1.0, 1.0, 1.0, 1.0)",
	}
	return map[string]Template{
		"line":      line,
		"bar":       bar,
		"histogram": bar,
		"scatter":   point,
		"point":     point,
		"widget":    widget,
	}
}
