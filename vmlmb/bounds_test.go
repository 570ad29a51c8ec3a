// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func TestUnconstrained(t *testing.T) {
	u := Unconstrained{}
	x := []float64{-5, 7}
	u.ProjectVariables(x)
	assert.Equal(t, []float64{-5, 7}, x)

	g, gp := []float64{1, -2}, make([]float64, 2)
	u.ProjectGradient(x, g, gp)
	assert.Equal(t, g, gp)

	assert.True(t, math.IsInf(u.ShortcutStep(x, g), 1))
	// relative scale dominates when x ≠ 0
	assert.InDelta(t, 0.1*norm2(x)/norm2(g), u.InitialStep(x, g, StepScale{Relative: 0.1}), 1e-15)
	// absolute scale at the origin
	assert.InDelta(t, 2/norm2(g), u.InitialStep([]float64{0, 0}, g, StepScale{Relative: 0.1, Absolute: 2}), 1e-15)
	// unit length step by default
	assert.InDelta(t, 1/norm2(g), u.InitialStep([]float64{0, 0}, g, StepScale{}), 1e-15)
}

func TestBoxProject(t *testing.T) {
	box, err := NewBox([]Bound{
		{Lower: 0, Upper: 1},
		{Lower: nan, Upper: 2},
		{Lower: -1, Upper: nan},
		{Lower: nan, Upper: nan},
	})
	require.NoError(t, err)

	x := []float64{-3, 5, -4, 9}
	box.ProjectVariables(x)
	assert.Equal(t, []float64{0, 2, -1, 9}, x)

	// pinned at lower with outward gradient, pinned at upper with outward gradient
	g := []float64{4, -2, -3, 1}
	gp := make([]float64, 4)
	box.ProjectGradient(x, g, gp)
	assert.Equal(t, []float64{0, 0, -3, 1}, gp)

	d := []float64{-1, 1, 1, 1}
	box.ProjectDirection(x, d)
	assert.Equal(t, []float64{0, 0, 1, 1}, d)

	// moving off a bound inward is allowed, moving past it is not
	d = []float64{1, -1, -1, -1}
	box.ProjectDirection(x, d)
	assert.Equal(t, []float64{1, -1, 0, -1}, d)
}

func TestBoxShortcutStep(t *testing.T) {
	box, err := NewBox([]Bound{
		{Lower: 0, Upper: 1},
		{Lower: 0, Upper: 1},
	})
	require.NoError(t, err)

	x := []float64{0.5, 0.5}
	assert.InDelta(t, 0.5, box.ShortcutStep(x, []float64{1, 0.5}), 1e-15)
	assert.InDelta(t, 0.25, box.ShortcutStep(x, []float64{-2, 1}), 1e-15)
	assert.True(t, math.IsInf(box.ShortcutStep(x, []float64{0, 0}), 1))

	// pinned variable with an outward direction blocks any step
	assert.Equal(t, 0.0, box.ShortcutStep([]float64{0, 0.5}, []float64{-1, 0}))
}

func TestBoxInvalid(t *testing.T) {
	_, err := NewBox([]Bound{{Lower: 2, Upper: 1}})
	assert.Error(t, err)
}
