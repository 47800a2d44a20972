// Package trace renders a workflow's pointer path as an image: one numbered
// marker per pointer step, connected in execution order, with coordinates
// rescaled to the requested canvas size. Useful for eyeballing a recording
// before replaying it against a live desktop.
package trace

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/replaykit/replay-cli/internal/scale"
	"github.com/replaykit/replay-cli/internal/workflow"
)

var (
	backgroundColor = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	pathColor       = color.RGBA{R: 90, G: 90, B: 110, A: 255}
	markerColor     = color.RGBA{R: 255, G: 80, B: 80, A: 255}
	dragColor       = color.RGBA{R: 80, G: 160, B: 255, A: 255}
	textColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor    = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

const markerRadius = 6

// Render draws the workflow's pointer steps onto a canvas of the given
// size. Steps without literal coordinates (text-targeted clicks, waits,
// hotkeys) contribute no marker. Drag selections additionally draw their
// end point and connecting segment.
func Render(wf *workflow.Workflow, canvas scale.Size) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvas.W, canvas.H))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	type mark struct {
		step  int
		point scale.Point
		end   *scale.Point
	}
	var marks []mark
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if !pointerKind(step.Kind()) || !step.HasPoint() {
			continue
		}
		recorded := scale.Size{W: step.ScreenW, H: step.ScreenH}
		m := mark{
			step:  i + 1,
			point: scale.Rescale(scale.Point{X: int(*step.X), Y: int(*step.Y)}, recorded, canvas),
		}
		if step.HasEndPoint() {
			end := scale.Rescale(scale.Point{X: int(*step.EndX), Y: int(*step.EndY)}, recorded, canvas)
			m.end = &end
		}
		marks = append(marks, m)
	}

	// Connecting lines first so markers stay on top.
	for i, m := range marks {
		if i > 0 {
			prev := marks[i-1].point
			if marks[i-1].end != nil {
				prev = *marks[i-1].end
			}
			drawLine(img, prev, m.point, pathColor)
		}
		if m.end != nil {
			drawLine(img, m.point, *m.end, dragColor)
		}
	}
	for _, m := range marks {
		drawMarker(img, m.point, markerColor)
		if m.end != nil {
			drawMarker(img, *m.end, dragColor)
		}
		drawTextWithOutline(img, fmt.Sprintf("%d", m.step), m.point.X, m.point.Y-markerRadius-8)
	}
	return img
}

// WritePNG renders the workflow and encodes it as PNG.
func WritePNG(w io.Writer, wf *workflow.Workflow, canvas scale.Size) error {
	return png.Encode(w, Render(wf, canvas))
}

func pointerKind(k workflow.ActionKind) bool {
	switch k {
	case workflow.ActionClick, workflow.ActionMove, workflow.ActionScroll:
		return true
	}
	return false
}

func drawMarker(img *image.RGBA, p scale.Point, c color.Color) {
	bounds := img.Bounds()
	for dy := -markerRadius; dy <= markerRadius; dy++ {
		for dx := -markerRadius; dx <= markerRadius; dx++ {
			if dx*dx+dy*dy > markerRadius*markerRadius {
				continue
			}
			x, y := p.X+dx, p.Y+dy
			if inBounds(bounds, x, y) {
				img.Set(x, y, c)
			}
		}
	}
}

// drawLine draws a straight segment with the integer Bresenham walk.
func drawLine(img *image.RGBA, from, to scale.Point, c color.Color) {
	bounds := img.Bounds()
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	err := dx + dy

	x, y := from.X, from.Y
	for {
		if inBounds(bounds, x, y) {
			img.Set(x, y, c)
		}
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawTextWithOutline(img *image.RGBA, text string, x, y int) {
	// basicfont.Face7x13: ~7px per character, 13px tall.
	offsetX := x - len(text)*7/2
	offsetY := y

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, offsetX+dx, offsetY+dy, outlineColor)
		}
	}
	drawString(img, text, offsetX, offsetY, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(text)
}

func inBounds(bounds image.Rectangle, x, y int) bool {
	return x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
