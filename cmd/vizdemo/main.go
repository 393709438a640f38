// Command vizdemo demonstrates the viz plotting engine: it builds a line
// plot, a scatter plot, a bar chart, and a histogram in one scene and saves
// the rendered result as a PNG via the software backend.
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/backend"
	_ "github.com/gogpu/viz/backend/native"
	"github.com/gogpu/viz/config"
	"github.com/gogpu/viz/pipeline"
	"github.com/gogpu/viz/plot"
	"github.com/gogpu/viz/scene"
)

func main() {
	var (
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 600, "image height")
		output  = flag.String("output", "demo.png", "output file")
		name    = flag.String("backend", backend.NameSoftware, "rendering backend")
		html    = flag.String("html", "", "also export an interactive HTML file")
		cfgPath = flag.String("config", "", "optional YAML configuration file")
		verbose = flag.Bool("v", false, "enable debug logging")
		points  = flag.Int("points", 2000, "scatter point count")
		lineLen = flag.Int("line", 50000, "line vertex count (exercises LOD)")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	viz.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	engine, err := plot.New(
		plot.WithConfig(cfg),
		plot.WithBackend(*name),
		plot.WithViewport(*width, *height),
	)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	if err := engine.Init(); err != nil {
		log.Fatalf("Failed to initialize %s backend: %v", *name, err)
	}

	addLine(engine, *lineLen)
	addScatter(engine, *points)
	addBars(engine)
	addHistogram(engine)

	if err := engine.Render(); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	if err := engine.Save(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Demo saved to %s (%dx%d)", *output, *width, *height)

	if *html != "" {
		if err := engine.ExportInteractive(*html); err != nil {
			log.Fatalf("Failed to export: %v", err)
		}
		log.Printf("Interactive export saved to %s", *html)
	}
}

// addLine plots a damped sine with enough vertices to trigger line
// simplification.
func addLine(e *plot.Engine, n int) {
	x := make([]float32, n)
	y := make([]float32, n)
	for i := range x {
		t := float64(i) / float64(n) * 20 * math.Pi
		x[i] = float32(t)
		y[i] = float32(math.Sin(t) * math.Exp(-t/30))
	}
	must(e.Line(x, y, scene.Material{"color": []float32{0.2, 0.6, 1.0, 1.0}}))
}

func addScatter(e *plot.Engine, n int) {
	rng := rand.New(rand.NewSource(42))
	x := make([]float32, n)
	y := make([]float32, n)
	colors := make([]float32, n*4)
	for i := range x {
		x[i] = float32(rng.NormFloat64())*10 + 30
		y[i] = float32(rng.NormFloat64())*0.3 - 1.5
		colors[i*4] = float32(i) / float32(n)
		colors[i*4+1] = 0.4
		colors[i*4+2] = 1 - float32(i)/float32(n)
		colors[i*4+3] = 0.8
	}
	must(e.Scatter(x, y, pipeline.ScatterOptions{Colors: colors, Size: 4}, nil))
}

func addBars(e *plot.Engine) {
	x := []float32{45, 47, 49, 51, 53}
	h := []float32{0.4, 0.9, 1.3, 0.7, 0.2}
	must(e.Bar(x, h, scene.Material{"opacity": 0.9}))
}

func addHistogram(e *plot.Engine) {
	rng := rand.New(rand.NewSource(7))
	data := make([]float32, 5000)
	for i := range data {
		data[i] = float32(rng.NormFloat64())*3 + 40
	}
	must(e.Histogram(data, 30, scene.Material{"color": []float32{0.5, 0.8, 0.4, 1.0}}))
}

func must(id scene.ID, err error) {
	if err != nil {
		log.Fatalf("Failed to add plot: %v", err)
	}
	_ = id
}
