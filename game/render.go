package game

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/flock"
)

// Boid colors, slow to fast.
var (
	slowColor = rl.Color{R: 70, G: 130, B: 220, A: 255}
	fastColor = rl.Color{R: 250, G: 170, B: 60, A: 255}
)

const headingLength = 1.5 // world units drawn along each boid's heading

func toVector3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}

const orbitSpeed = 0.15 // radians per second of auto-orbit

// camera3D converts the orbit camera for raylib.
func (g *Game) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   toVector3(g.camera.Position()),
		Target:     toVector3(g.camera.Target),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the flock, the boundary and the HUD.
func (g *Game) Draw() {
	if g.autoOrbit && !g.paused {
		g.camera.Rotate(orbitSpeed*float64(rl.GetFrameTime()), 0)
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 18, G: 22, B: 28, A: 255})

	rl.BeginMode3D(g.camera3D())
	g.drawBoundary()
	g.drawBoids()
	rl.EndMode3D()

	g.drawHUD()
	if g.showPanel {
		g.drawPanel()
	}

	rl.EndDrawing()
}

// drawBoids reads positions from the world, so movement since the last
// kernel tick is visible.
func (g *Game) drawBoids() {
	g.drawStates, g.drawHandles = g.store.Snapshot(g.drawStates[:0], g.drawHandles[:0])

	speedCap := g.settings.MoveSpeedCap
	for _, st := range g.drawStates {
		t := float32(0)
		if speedCap > 0 {
			t = float32(st.Speed / speedCap)
		}
		color := rl.ColorLerp(slowColor, fastColor, t)

		p := toVector3(st.Position)
		tip := toVector3(r3.Add(st.Position, r3.Scale(headingLength, st.Direction)))
		rl.DrawLine3D(p, tip, color)
		rl.DrawPoint3D(p, color)
	}
}

func (g *Game) drawBoundary() {
	s := g.settings
	center := toVector3(s.BoundaryCenter)
	size := float32(s.BoundarySize)
	color := rl.Color{R: 90, G: 100, B: 110, A: 255}

	switch s.Boundary {
	case flock.BoundarySphere:
		rl.DrawSphereWires(center, size, 12, 24, color)
	case flock.BoundaryBox:
		rl.DrawCubeWires(center, 2*size, 2*size, 2*size, color)
	case flock.BoundaryWrap:
		rl.DrawCubeWires(center, size, size, size, rl.Color{R: 110, G: 90, B: 120, A: 255})
	}
}

func (g *Game) drawHUD() {
	rl.DrawFPS(10, 10)

	status := "running"
	if g.paused {
		status = "paused"
	}
	rl.DrawText(fmt.Sprintf("tick %d  boids %d  x%d  %s", g.tick, g.BoidCount(), g.stepsPerUpdate, status), 10, 34, 16, rl.RayWhite)

	st := g.lastStats
	rl.DrawText(fmt.Sprintf("polarization %.2f  neighbors %.1f  outside %d", st.Polarization, st.NeighborMean, st.Outside), 10, 54, 16, rl.LightGray)

	if g.lastErr != nil {
		rl.DrawText(g.lastErr.Error(), 10, 74, 16, rl.Red)
	}

	rl.DrawText("[Space] pause  [,/.] speed  [O] orbit  [RMB] rotate  [wheel] zoom  [Tab] panel  [S] snapshot", 10, int32(rl.GetScreenHeight())-24, 14, rl.Gray)
}
