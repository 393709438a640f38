package shader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gogpu/naga"

	viz "github.com/gogpu/viz"
)

// ProgramDescriptor is a resolved, immutable shader program description.
// Resolve returns the same pointer for the same (kind, material) pair, so
// backends can key compiled modules by descriptor identity.
type ProgramDescriptor struct {
	// Kind is the geometry kind the descriptor was resolved for.
	Kind string
	// Template names the base template the descriptor was built from.
	Template string
	// Vertex and Fragment are complete WGSL sources.
	Vertex   string
	Fragment string
	// Overrides holds the recognized material properties baked into the
	// fragment source, normalized: "color" as [4]float32, "opacity" as
	// float32.
	Overrides map[string]any
}

// Resolver maps geometry kinds and material properties to cached program
// descriptors. Construct with NewResolver; each resolver owns an independent
// cache. Safe for concurrent use.
type Resolver struct {
	mu        sync.Mutex
	templates map[string]Template
	cache     map[string]*ProgramDescriptor
}

// NewResolver returns a resolver with the built-in templates for line,
// scatter, bar, histogram, and widget geometry installed.
func NewResolver() *Resolver {
	return &Resolver{
		templates: builtinTemplates(),
		cache:     make(map[string]*ProgramDescriptor),
	}
}

// Resolve returns the program descriptor for the geometry kind customized by
// the material properties. Unknown kinds fall back to the generic point
// template. Results are cached under the kind and the canonicalized material,
// so property order never affects the cache key.
func (r *Resolver) Resolve(kind string, material map[string]any) *ProgramDescriptor {
	key := cacheKey(kind, material)

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.cache[key]; ok {
		return d
	}

	tmpl, ok := r.templates[kind]
	if !ok {
		viz.Logger().Debug("shader: unknown geometry kind, using point template", "kind", kind)
		tmpl = r.templates["point"]
	}

	overrides := resolveOverrides(material)
	d := &ProgramDescriptor{
		Kind:      kind,
		Template:  tmpl.Name,
		Vertex:    tmpl.Vertex,
		Fragment:  assembleFragment(tmpl, overrides),
		Overrides: overrides,
	}
	r.cache[key] = d
	return d
}

// RegisterTemplate installs a custom base template for the given geometry
// kinds, replacing the template used for future cache misses. Existing cache
// entries are not invalidated.
func (r *Resolver) RegisterTemplate(t Template, kinds ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range kinds {
		r.templates[k] = t
	}
}

// CacheLen returns the number of cached descriptors.
func (r *Resolver) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// cacheKey canonicalizes the material by sorting property entries by name.
func cacheKey(kind string, material map[string]any) string {
	if len(material) == 0 {
		return kind
	}
	parts := make([]string, 0, len(material))
	for k, v := range material {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return kind + "|" + strings.Join(parts, ",")
}

// resolveOverrides extracts the recognized material properties in normalized
// form. Unrecognized properties participate in the cache key but not in
// source customization.
func resolveOverrides(material map[string]any) map[string]any {
	var out map[string]any
	set := func(k string, v any) {
		if out == nil {
			out = make(map[string]any, 2)
		}
		out[k] = v
	}
	if c, ok := materialColor(material["color"]); ok {
		set("color", c)
	}
	if o, ok := materialScalar(material["opacity"]); ok {
		set("opacity", o)
	}
	return out
}

func materialColor(v any) ([4]float32, bool) {
	switch c := v.(type) {
	case [4]float32:
		return c, true
	case viz.Color:
		return [4]float32(c), true
	case []float32:
		switch len(c) {
		case 3:
			return [4]float32{c[0], c[1], c[2], 1}, true
		case 4:
			return [4]float32{c[0], c[1], c[2], c[3]}, true
		}
	case []float64:
		switch len(c) {
		case 3:
			return [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), 1}, true
		case 4:
			return [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}, true
		}
	}
	return [4]float32{}, false
}

func materialScalar(v any) (float32, bool) {
	switch s := v.(type) {
	case float32:
		return s, true
	case float64:
		return float32(s), true
	case int:
		return float32(s), true
	}
	return 0, false
}

// assembleFragment builds the fragment stage from the template and the
// resolved overrides. The source has a fixed shape: an optional material
// uniform struct, then fs_main computing the base color and applying the
// color_multiply and alpha_multiply slots in that order. Assembly from parts
// rather than splicing into prior output makes repeated application
// impossible to express, which is the idempotence guarantee.
func assembleFragment(tmpl Template, overrides map[string]any) string {
	_, hasColor := overrides["color"]
	_, hasOpacity := overrides["opacity"]

	var b strings.Builder
	if hasColor || hasOpacity {
		b.WriteString("struct Material {\n")
		if hasColor {
			b.WriteString("    color: vec4<f32>,\n")
		}
		if hasOpacity {
			b.WriteString("    opacity: f32,\n")
		}
		b.WriteString("};\n\n@group(1) @binding(0) var<uniform> material: Material;\n\n")
	}

	b.WriteString("@fragment\nfn fs_main(")
	b.WriteString(tmpl.FragmentInput)
	b.WriteString(") -> @location(0) vec4<f32> {\n")
	b.WriteString("    var out = ")
	b.WriteString(tmpl.BaseColor)
	b.WriteString(";\n")
	if hasColor {
		b.WriteString("    out = out * material.color;\n")
	}
	if hasOpacity {
		b.WriteString("    out.a = out.a * material.opacity;\n")
	}
	b.WriteString("    return out;\n}\n")
	return b.String()
}

// CompileSPIRV compiles WGSL source to SPIR-V words for backends that consume
// SPIR-V modules.
func CompileSPIRV(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}
