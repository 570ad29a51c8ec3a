// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"time"
)

const (
	zero  = 0.0
	one   = 1.0
	two   = 2.0
	three = 3.0
)

const (
	iterConv iterTask = 1 << 8 // terminal, converged
	iterStop iterTask = 1 << 9 // terminal, not converged
)

type iterTask int

const (
	// NewIterate the driver holds an accepted iterate and is about to
	// compute a fresh search direction.
	NewIterate iterTask = iota
	// LineSearching a line search along the current direction is in progress.
	LineSearching
	// ConvGradTol the projected gradient norm reached the threshold.
	ConvGradTol = iterConv | iota
	// OverIterLimit the iteration budget is exhausted.
	OverIterLimit = iterStop | iota
	// OverEvalLimit the evaluation budget is exhausted.
	OverEvalLimit = iterStop | iota
	// StopWouldBlock no feasible descent step is available from the current point.
	StopWouldBlock = iterStop | iota
)

func (t iterTask) String() string {
	switch t {
	case NewIterate:
		return "NEW_ITERATE"
	case LineSearching:
		return "LINE_SEARCH"
	case ConvGradTol:
		return "CONVERGENCE"
	case OverIterLimit:
		return "TOO_MANY_ITERATIONS"
	case OverEvalLimit:
		return "TOO_MANY_EVALUATIONS"
	case StopWouldBlock:
		return "WOULD_BLOCK"
	}
	return "UNKNOWN"
}

// iterSpec is the immutable configuration shared by every Fit of one Optimizer.
type iterSpec struct {
	n, m   int
	eval   Evaluation
	stop   Termination
	bounds BoundedSet
	search LineSearch
	step   StepScale
	logger Logger
}

// iterLoc holds the current point of one optimization run.
type iterLoc struct {
	f float64
	x []float64 // n
	g []float64 // n
}

// save snapshots the current point into (x0, f0, g0).
func (l *iterLoc) save(x0 []float64, f0 *float64, g0 []float64) {
	copy(x0, l.x)
	copy(g0, l.g)
	*f0 = l.f
}

// load restores the current point from (x0, f0, g0).
func (l *iterLoc) load(x0 []float64, f0 float64, g0 []float64) {
	copy(l.x, x0)
	copy(l.g, g0)
	l.f = f0
}

// iterCtx is the mutable per-run state of the driver.
// All arrays are allocated once by Workspace.init and reused across Fit calls.
type iterCtx struct {
	iter      int // accepted iterations
	totalEval int // objective evaluations
	restarts  int // steepest descent restarts

	updates int // corrections ever pushed
	mp      int // currently valid correction pairs, 0 ≤ mp ≤ min(updates, m)

	gtest  float64 // convergence threshold, fixed at the first evaluation
	gpNorm float64 // ‖ 𝚙𝚛𝚘𝚓 g ‖₂ at the current point

	stp   float64 // current trial step length
	dg0   float64 // directional derivative at the line search origin
	f0    float64 // objective at the line search origin
	saved bool    // (x0, f0, g0) hold a valid snapshot

	gp []float64 // n : projected gradient
	w  []float64 // n : free-variable mask (1 free, 0 pinned)
	d  []float64 // n : search direction
	x0 []float64 // n : previous iterate
	g0 []float64 // n : previous gradient

	s    []float64 // m×n ring buffer of steps, row k is slot k
	y    []float64 // m×n ring buffer of gradient differences
	rho  []float64 // m : curvature reciprocals, recomputed per direction
	beta []float64 // m : two-loop coefficients, recomputed per direction

	global stopWatch
}

func (c *iterCtx) init(n, m int) {
	c.gp = make([]float64, n)
	c.w = make([]float64, n)
	c.d = make([]float64, n)
	c.x0 = make([]float64, n)
	c.g0 = make([]float64, n)
	c.s = make([]float64, m*n)
	c.y = make([]float64, m*n)
	c.rho = make([]float64, m)
	c.beta = make([]float64, m)
}

func (c *iterCtx) clear() {
	c.iter, c.totalEval, c.restarts = 0, 0, 0
	c.updates, c.mp = 0, 0
	c.gtest, c.gpNorm = zero, zero
	c.stp, c.dg0, c.f0 = zero, zero, zero
	c.saved = false
}

type stopWatch struct {
	start time.Time
}

func (t *stopWatch) reset() {
	t.start = time.Now()
}

func (t *stopWatch) elapsed() float64 {
	return time.Since(t.start).Seconds()
}
