package main

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"

	"github.com/searchlight-sar/scanner/pkg/types"
)

// mockDetector emits plausible detections so the full pipeline can be
// exercised in the field without the vendor SDK attached.
type mockDetector struct {
	categories []string
}

func newMockDetector() *mockDetector {
	return &mockDetector{
		categories: []string{"person", "vehicle", "powerline", "ocean debris"},
	}
}

func (d *mockDetector) Detect(img *image.RGBA) ([]types.Detection, error) {
	n := rand.Intn(3)
	dets := make([]types.Detection, 0, n)
	for i := 0; i < n; i++ {
		w, h := 40+rand.Intn(120), 40+rand.Intn(120)
		x := rand.Intn(img.Bounds().Dx() - w)
		y := rand.Intn(img.Bounds().Dy() - h)
		dets = append(dets, types.Detection{
			Category:   d.categories[rand.Intn(len(d.categories))],
			Confidence: 0.3 + rand.Float64()*0.7,
			Box:        image.Rect(x, y, x+w, y+h),
		})
	}
	return dets, nil
}

// newMockFrame produces a flat gray test frame.
func newMockFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{64, 64, 64, 255}), image.Point{}, draw.Src)
	return img
}
