package viz

import "image/color"

// Color is an RGBA color with components in the range [0, 1].
// It is the value type recognized by the material property "color".
type Color [4]float32

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float32) Color {
	return Color{r, g, b, 1}
}

// RGBA creates a color from RGBA components.
func RGBA(r, g, b, a float32) Color {
	return Color{r, g, b, a}
}

// NRGBA converts the color to the standard library's non-premultiplied form.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c[0]) * 255),
		G: uint8(clamp01(c[1]) * 255),
		B: uint8(clamp01(c[2]) * 255),
		A: uint8(clamp01(c[3]) * 255),
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
