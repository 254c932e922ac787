package scene

import (
	"testing"

	"github.com/kasuganosora/tabletrade/model"
	"github.com/stretchr/testify/assert"
)

func TestGridDistance(t *testing.T) {
	a := model.Point{X: 0, Y: 0}
	b := model.Point{X: 300, Y: 450}

	assert.InDelta(t, 3.0, Grid{DPI: 150}.Distance(a, b), 1e-9)
	assert.InDelta(t, 5.0, Grid{DPI: 150, Measurement: MeasureManhattan}.Distance(a, b), 1e-9)
	assert.InDelta(t, 3.60555, Grid{DPI: 150, Measurement: MeasureEuclidean}.Distance(a, b), 1e-4)
	assert.InDelta(t, 3.0, Grid{}.Distance(a, b), 1e-9)
	assert.Equal(t, 0.0, Grid{DPI: 100}.Distance(b, b))
}

func TestSession(t *testing.T) {
	s := NewSession(model.Participant{ID: "p1", Role: model.RoleGM})
	assert.True(t, s.Participant().IsGM())
	assert.Empty(t, s.Selection())

	s.Select("t1", "t2")
	sel := s.Selection()
	sel[0] = "mutated"
	assert.Equal(t, []string{"t1", "t2"}, s.Selection())
}
