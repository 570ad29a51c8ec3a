// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package numdiff estimates gradients of scalar functions by finite
// differences. Its main use is validating analytic gradients supplied to an
// optimizer, or standing in for them when none are available.
package numdiff

import (
	"math"

	"github.com/pkg/errors"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use central difference in interior points and the second order
	// accuracy forward or backward difference near the boundary.
	Central
)

// Bound limits the evaluation range of one variable: [lower, upper].
// A NaN endpoint leaves that side open.
type Bound [2]float64

// GradSpec estimates the gradient of a scalar function of n variables.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type GradSpec struct {
	N int
	// Object is the scalar function of which to estimate the gradient.
	Object func(x []float64) float64
	// Finite difference method to use.
	Method Method
	// Lower and upper bounds on independent variables.
	// Use it to keep every evaluation point feasible.
	Bounds []Bound
	// Relative step size used to compute absolute step size as
	// h = RelStep * sign(x0) * abs(x0). Selected automatically when zero.
	RelStep float64
	// Absolute step size to use, possibly adjusted to fit into the bounds.
	// RelStep is used when AbsStep is not provided.
	AbsStep float64
	gradCtx
}

type gradCtx struct {
	step    []float64
	oneSide []bool
}

// Check validates the parameters and sizes the scratch space.
func (gs *GradSpec) Check(x0, grad []float64) (err error) {

	switch {
	case gs.N <= 0:
		err = errors.New("negative dimensions")
	case gs.Method != Forward && gs.Method != Central:
		err = errors.New("unknown method")
	case gs.Object == nil:
		err = errors.New("object function is required")
	case gs.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case gs.N != len(grad):
		return errors.New("invalid grad dimensions")
	}

	if gs.Bounds != nil {
		if len(gs.Bounds) != len(x0) {
			err = errors.New("invalid bound dimension")
		} else {
			for i, bound := range gs.Bounds {
				l, u := bound[0], bound[1]
				if math.IsNaN(l) {
					l = math.Inf(-1)
				}
				if math.IsNaN(u) {
					u = math.Inf(1)
				}
				if l > u {
					err = errors.New("invalid bound range")
					break
				}
				if x0[i] < l || x0[i] > u {
					err = errors.New("x0 violates bound constraints")
					break
				}
				gs.Bounds[i] = Bound{l, u}
			}
		}
	}

	if len(gs.step) != gs.N {
		gs.step = make([]float64, gs.N)
	}
	if len(gs.oneSide) != gs.N {
		gs.oneSide = make([]bool, gs.N)
	}
	return
}

// Grad fills grad with the finite-difference gradient of Object at x0.
// x0 is perturbed in place during evaluation and restored before return.
func (gs *GradSpec) Grad(x0, grad []float64) error {

	if err := gs.Check(x0, grad); err != nil {
		return err
	}

	bnd := false
	for _, bound := range gs.Bounds {
		if bnd = !(math.IsInf(bound[0], 0) && math.IsInf(bound[1], 0)); bnd {
			break
		}
	}

	gs.absoluteStep(x0)
	gs.adjustToBounds(x0, bnd)

	if gs.Method == Central {
		gs.approxCentral(x0, grad)
	} else {
		gs.approxForward(x0, grad)
	}
	return nil
}

func (gs *GradSpec) absoluteStep(x0 []float64) {
	h := gs.step
	if len(h) != len(x0) {
		panic("bound check error")
	}

	var eps float64
	switch gs.Method {
	case Forward:
		eps = sqrtEps
	case Central:
		eps = cubeEps
	}

	abs, rel := gs.AbsStep, gs.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			if d := (v + s) - v; d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}
}

func (gs *GradSpec) adjustToBounds(x0 []float64, bnd bool) {
	h, o := gs.step, gs.oneSide
	if gs.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
		for i := range o {
			o[i] = false
		}
	}

	if !bnd {
		return
	}

	b := gs.Bounds
	if len(x0) != len(b) || len(x0) != len(h) {
		panic("bound check error")
	}

	if gs.Method == Forward {
		for i, x0 := range x0 {
			ld, ud := x0-b[i][0], b[i][1]-x0
			h0 := h[i]
			x := x0 + h0
			violated := x < b[i][0] || x > b[i][1]
			fitting := math.Abs(h0) < math.Max(ld, ud)
			if violated && fitting {
				h[i] = -h0
			} else if !fitting {
				if ud >= ld {
					h[i] = ud
				} else {
					h[i] = -ld
				}
			}
		}
	} else {
		for i, x0 := range x0 {
			ld, ud := x0-b[i][0], b[i][1]-x0
			central := ld >= h[i] && ud >= h[i]
			if !central {
				if ud >= ld {
					h[i] = math.Min(h[i], 0.5*ud)
				} else {
					h[i] = -math.Min(h[i], 0.5*ld)
				}
				o[i] = true
			}
			minDist := math.Min(ud, ld)
			if !central && math.Abs(h[i]) <= minDist {
				h[i] = minDist
				o[i] = false
			}
		}
	}
}

func (gs *GradSpec) approxForward(x0, grad []float64) {
	h := gs.step
	if len(h) != len(x0) || len(h) != len(grad) {
		panic("bound check error")
	}

	fun := gs.Object
	f0 := fun(x0)
	for i, s := range h {
		t := x0[i]
		x0[i] = t + s
		grad[i] = (fun(x0) - f0) / s
		x0[i] = t
	}
}

func (gs *GradSpec) approxCentral(x0, grad []float64) {
	h, o := gs.step, gs.oneSide
	if len(h) != len(x0) || len(h) != len(o) || len(h) != len(grad) {
		panic("bound check error")
	}

	fun := gs.Object
	f0 := fun(x0)
	for i, s := range h {
		x := x0[i]
		d := 1.0 / (2 * s)
		if o[i] {
			// second order one-sided difference near the boundary
			x0[i] = x + s
			f1 := fun(x0)
			x0[i] = x + 2*s
			f2 := fun(x0)
			grad[i] = (4*f1 - 3*f0 - f2) * d
		} else {
			x0[i] = x - s
			f1 := fun(x0)
			x0[i] = x + s
			f2 := fun(x0)
			grad[i] = (f2 - f1) * d
		}
		x0[i] = x
	}
}
