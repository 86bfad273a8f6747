package detect

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bananasnap/gridsnap/pkg/grid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSize returns the pixel dimensions of an encoded image
func ImageSize(data []byte) (int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid %s image size %dx%d", format, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// RectFromPoints returns the smallest rectangle containing every point
func RectFromPoints(points []image.Point) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// NormalizeRect converts a pixel rectangle with a top-left origin into a
// normalized box with a bottom-left origin. The rectangle is clipped to the
// image; false is returned when nothing of it is left.
func NormalizeRect(r image.Rectangle, width, height int) (grid.BoundingBox, bool) {
	if width <= 0 || height <= 0 {
		return grid.BoundingBox{}, false
	}
	r = r.Canon().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return grid.BoundingBox{}, false
	}

	w, h := float64(width), float64(height)
	return grid.BoundingBox{
		X:      float64(r.Min.X) / w,
		Y:      float64(height-r.Max.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}, true
}
