package game

import (
	"fmt"
	"log/slog"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/flock"
)

const (
	panelWidth = 300
	maxBoids   = 5000
)

// boundaryToggleText lists the boundary kinds in BoundaryKind order.
const boundaryToggleText = "Sphere;Box;Wrap"

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < 10 {
		g.stepsPerUpdate++
	}

	g.handleCameraInput()
	if rl.IsKeyPressed(rl.KeyTab) {
		g.showPanel = !g.showPanel
	}
	if rl.IsKeyPressed(rl.KeyS) {
		if g.snapshotDir == "" && g.output.Dir() == "" {
			slog.Warn("snapshot requested without -snapshot-dir or -output-dir")
		} else {
			g.saveSnapshot()
		}
	}
}

// handleCameraInput rotates with the right mouse button and zooms with the wheel.
func (g *Game) handleCameraInput() {
	if rl.IsKeyPressed(rl.KeyO) {
		g.autoOrbit = !g.autoOrbit
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		g.camera.Rotate(-float64(d.X)*0.005, float64(d.Y)*0.005)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.Zoom(math.Pow(0.9, float64(wheel)))
	}
}

// slider draws a labeled slider and returns the (possibly changed) value.
func slider(x float32, y *float32, label string, value, lo, hi float32, format string) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.LightGray)
	*y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: panelWidth - 80, Height: 18},
		"", "",
		value, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+panelWidth-70), int32(*y+2), 14, rl.RayWhite)
	*y += 28
	return v
}

// sliderFloat edits *v in place, leaving it untouched unless the slider moved
// so values that are not exact float32s survive.
func sliderFloat(x float32, y *float32, label string, v *float64, lo, hi float32) {
	cur := float32(*v)
	if nv := slider(x, y, label, cur, lo, hi, "%.2f"); nv != cur {
		*v = float64(nv)
	}
}

// drawPanel draws the tuning sliders. Edits go through SetSettings, so an
// invalid combination leaves the running settings untouched.
func (g *Game) drawPanel() {
	x := float32(rl.GetScreenWidth()) - panelWidth
	y := float32(10)
	rl.DrawRectangle(int32(x)-10, 0, panelWidth+10, int32(rl.GetScreenHeight()), rl.Color{R: 25, G: 30, B: 35, A: 220})

	rl.DrawText("Flock", int32(x), int32(y), 20, rl.RayWhite)
	y += 30

	s := g.settings
	sliderFloat(x, &y, "Neighbor radius", &s.NeighborRadius, 0.5, 20)
	sliderFloat(x, &y, "Cell size", &s.CellSize, 0.5, 40)
	s.MaxNeighbors = int(slider(x, &y, "Max neighbors", float32(s.MaxNeighbors), 1, 64, "%.0f"))
	sliderFloat(x, &y, "Speed cap", &s.MoveSpeedCap, 0, 20)
	sliderFloat(x, &y, "Alignment", &s.AlignmentWeight, 0, 5)
	sliderFloat(x, &y, "Cohesion", &s.CohesionWeight, 0, 5)
	sliderFloat(x, &y, "Separation", &s.SeparationWeight, 0, 5)
	sliderFloat(x, &y, "Boundary weight", &s.BoundaryWeight, 0, 50)
	sliderFloat(x, &y, "Boundary size", &s.BoundarySize, 1, 200)
	sliderFloat(x, &y, "Center X", &s.BoundaryCenter.X, -100, 100)
	sliderFloat(x, &y, "Center Y", &s.BoundaryCenter.Y, -100, 100)
	sliderFloat(x, &y, "Center Z", &s.BoundaryCenter.Z, -100, 100)

	rl.DrawText("Boundary", int32(x), int32(y), 14, rl.LightGray)
	y += 18
	kind := gui.ToggleGroup(
		rl.Rectangle{X: x, Y: y, Width: (panelWidth - 80) / 3, Height: 22},
		boundaryToggleText,
		int32(s.Boundary),
	)
	s.Boundary = flock.BoundaryKind(kind)
	y += 32

	if s != g.settings {
		prevCenter := g.settings.BoundaryCenter
		if err := g.SetSettings(s); err != nil {
			slog.Warn("rejected flock settings", "error", err)
		} else if s.BoundaryCenter != prevCenter {
			g.camera.Target = s.BoundaryCenter
		}
	}

	pop := int(slider(x, &y, "Population", float32(g.Population()), 0, maxBoids, "%.0f"))
	if pop != g.Population() {
		g.SetPopulation(pop)
	}

	if !s.CoversRadius() {
		rl.DrawText("cell size < radius: neighbors may be missed", int32(x), int32(y), 12, rl.Orange)
	}
}
