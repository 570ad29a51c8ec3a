// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotAddressing(t *testing.T) {
	for m := 1; m <= 7; m++ {
		for updates := 1; updates <= 3*m; updates++ {
			mp := min(updates, m)
			seen := make(map[int]bool, mp)
			for age := 0; age < mp; age++ {
				k := slot(updates, m, age)
				assert.GreaterOrEqual(t, k, 0)
				assert.Less(t, k, m)
				assert.False(t, seen[k], "slot collision m=%d updates=%d age=%d", m, updates, age)
				seen[k] = true
			}
			// the newest pair sits where the last push stored it
			assert.Equal(t, (updates-1)%m, slot(updates, m, 0))
		}
	}
}

func newHessianCtx(n, m int) (*iterSpec, *iterCtx, *iterLoc) {
	spec := &iterSpec{n: n, m: m}
	ctx := new(iterCtx)
	ctx.init(n, m)
	ctx.clear()
	loc := &iterLoc{
		x: make([]float64, n),
		g: make([]float64, n),
	}
	return spec, ctx, loc
}

// pushPair feeds one correction pair through the same path the driver uses.
func pushPair(spec *iterSpec, ctx *iterCtx, loc *iterLoc, s, y []float64) {
	copy(ctx.x0, loc.x)
	copy(ctx.g0, loc.g)
	update(loc.x, one, s)
	update(loc.g, one, y)
	ctx.push(spec, loc)
}

func TestPushOverwrite(t *testing.T) {
	spec, ctx, loc := newHessianCtx(1, 2)

	for i := 1; i <= 5; i++ {
		pushPair(spec, ctx, loc, []float64{float64(i)}, []float64{float64(i)})
	}
	assert.Equal(t, 5, ctx.updates)
	assert.Equal(t, 2, ctx.mp)

	// the ring holds the two most recent pairs
	s0, _ := ctx.pair(1, slot(ctx.updates, 2, 0))
	s1, _ := ctx.pair(1, slot(ctx.updates, 2, 1))
	assert.Equal(t, 5.0, s0[0])
	assert.Equal(t, 4.0, s1[0])
}

func TestTwoLoopDiagonal(t *testing.T) {
	// f(x) = ½ xᵀDx with D = diag(2, 5): feeding the unit-basis correction
	// pairs makes the recursion reproduce -D⁻¹g exactly.
	spec, ctx, loc := newHessianCtx(2, 2)

	pushPair(spec, ctx, loc, []float64{1, 0}, []float64{2, 0})
	pushPair(spec, ctx, loc, []float64{0, 1}, []float64{0, 5})

	loc.g = []float64{3, 7}
	ctx.w = []float64{1, 1}
	require.True(t, ctx.direction(spec, loc))
	assert.InDelta(t, -3.0/2, ctx.d[0], 1e-14)
	assert.InDelta(t, -7.0/5, ctx.d[1], 1e-14)
}

func TestTwoLoopMasked(t *testing.T) {
	// a pinned component contributes nothing and stays zero in the direction
	spec, ctx, loc := newHessianCtx(2, 2)

	pushPair(spec, ctx, loc, []float64{1, 0}, []float64{2, 0})
	pushPair(spec, ctx, loc, []float64{0, 1}, []float64{0, 5})

	loc.g = []float64{3, 7}
	ctx.w = []float64{1, 0}
	require.True(t, ctx.direction(spec, loc))
	assert.InDelta(t, -3.0/2, ctx.d[0], 1e-14)
	assert.Equal(t, 0.0, ctx.d[1])
}

func TestNoCurvatureKeepsPairs(t *testing.T) {
	// pairs with non-positive curvature make the recursion unusable,
	// but they are retained in the ring for later overwrites
	spec, ctx, loc := newHessianCtx(2, 3)

	pushPair(spec, ctx, loc, []float64{1, 0}, []float64{-2, 0})
	pushPair(spec, ctx, loc, []float64{0, 1}, []float64{0, -1})

	loc.g = []float64{3, 7}
	ctx.w = []float64{1, 1}
	assert.False(t, ctx.direction(spec, loc))
	assert.Equal(t, 2, ctx.mp)
	assert.Equal(t, 2, ctx.updates)

	// one healthy pair rescues the recursion, bad pairs still skipped
	pushPair(spec, ctx, loc, []float64{1, 1}, []float64{2, 5})
	require.True(t, ctx.direction(spec, loc))
	assert.True(t, inner(ctx.d, loc.g) < 0, "must be a descent direction")
}
