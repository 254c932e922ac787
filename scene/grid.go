package scene

import (
	"math"

	"github.com/kasuganosora/tabletrade/model"
)

// Measurement is the host's rule for counting grid distance.
type Measurement string

const (
	MeasureChebyshev Measurement = "chebyshev"
	MeasureEuclidean Measurement = "euclidean"
	MeasureManhattan Measurement = "manhattan"
)

// DefaultDPI is the pixel size of one grid unit when none is configured.
const DefaultDPI = 150

// Grid converts scene pixel positions into grid units.
type Grid struct {
	DPI         float64
	Measurement Measurement
}

// Distance returns the distance between two token centres in grid units.
func (g Grid) Distance(a, b model.Point) float64 {
	dpi := g.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	dx := math.Abs(a.X-b.X) / dpi
	dy := math.Abs(a.Y-b.Y) / dpi
	switch g.Measurement {
	case MeasureEuclidean:
		return math.Hypot(dx, dy)
	case MeasureManhattan:
		return dx + dy
	default:
		return math.Max(dx, dy)
	}
}
