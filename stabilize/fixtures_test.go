package stabilize

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
)

var greyPixel = color.RGBA{128, 128, 128, 255}

// drawScene renders a deterministic textured scene: a mid-grey canvas with
// pseudo-random rectangles of varying intensity. Corner-rich and repeatable.
func drawScene(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	scene := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(scene, scene.Bounds(), &image.Uniform{color.RGBA{128, 128, 128, 255}}, image.Point{}, draw.Src)
	for i := 0; i < 40; i++ {
		rw := 8 + rng.Intn(24)
		rh := 8 + rng.Intn(24)
		if rw >= w {
			rw = w - 1
		}
		if rh >= h {
			rh = h - 1
		}
		x := rng.Intn(w - rw)
		y := rng.Intn(h - rh)
		v := uint8(rng.Intn(256))
		draw.Draw(scene, image.Rect(x, y, x+rw, y+rh), &image.Uniform{color.RGBA{v, v, v, 255}}, image.Point{}, draw.Src)
	}
	return scene
}

// windowFrame extracts a frameW x frameH view of the scene with its top-left
// corner at (offX, offY), simulating a translating camera.
func windowFrame(scene *image.RGBA, offX, offY, frameW, frameH int) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	draw.Draw(frame, frame.Bounds(), scene, image.Point{offX, offY}, draw.Src)
	return frame
}

// shakySequence renders frames of a translating window over a shared scene.
// offsets[i] is the window origin of frame i.
func shakySequence(offsets []image.Point, frameW, frameH int) []*image.RGBA {
	maxX, maxY := 0, 0
	for _, off := range offsets {
		if off.X > maxX {
			maxX = off.X
		}
		if off.Y > maxY {
			maxY = off.Y
		}
	}
	scene := drawScene(frameW+maxX+40, frameH+maxY+40, 8)
	frames := make([]*image.RGBA, len(offsets))
	for i, off := range offsets {
		frames[i] = windowFrame(scene, off.X, off.Y, frameW, frameH)
	}
	return frames
}

func identicalFrames(n, w, h int) []*image.RGBA {
	frames := make([]*image.RGBA, n)
	base := drawScene(w, h, 4)
	for i := range frames {
		frames[i] = base
	}
	return frames
}
