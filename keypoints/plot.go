package keypoints

import (
	"image"

	"github.com/fogleman/gg"
)

// PlotKeypoints plots keypoints on image and saves the result to outName.
func PlotKeypoints(img *image.Gray, kps KeyPoints, outName string) error {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(float64(p.X), float64(p.Y), 3.0)
		dc.Fill()
	}
	return dc.SavePNG(outName)
}

// PlotMatchedLines draws img1 and img2 side by side with a line for each
// matched keypoint pair and saves the result to outName. Entries of inlier
// mark which pairs are drawn green; the rest are drawn red. A nil inlier
// slice draws every pair green.
func PlotMatchedLines(img1, img2 *image.Gray, kps1, kps2 KeyPoints, inlier []bool, outName string) error {
	w1 := img1.Bounds().Dx()
	w := w1 + img2.Bounds().Dx()
	h := img1.Bounds().Dy()
	if h2 := img2.Bounds().Dy(); h2 > h {
		h = h2
	}
	dc := gg.NewContext(w, h)
	dc.DrawImage(img1, 0, 0)
	dc.DrawImage(img2, w1, 0)

	n := len(kps1)
	if len(kps2) < n {
		n = len(kps2)
	}
	for i := 0; i < n; i++ {
		if inlier == nil || (i < len(inlier) && inlier[i]) {
			dc.SetRGBA(0, 1, 0, 0.7)
		} else {
			dc.SetRGBA(1, 0, 0, 0.7)
		}
		dc.SetLineWidth(1.25)
		dc.DrawLine(float64(kps1[i].X), float64(kps1[i].Y), float64(kps2[i].X+w1), float64(kps2[i].Y))
		dc.Stroke()
	}
	return dc.SavePNG(outName)
}
