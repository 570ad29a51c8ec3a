// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"math"
)

const (
	mtFtol    = 1.0e-3
	mtGtol    = 0.9
	mtXtol    = 0.1
	mtStepMax = 1.0e+10

	mtHalf      = 0.5
	mtTwoThird  = 0.66
	mtTrapLower = 1.1
	mtTrapUpper = 4.0
)

const (
	mtStageArmijo = 1
	mtStageWolfe  = 2
)

// MoreThuente locates a step satisfying the strong Wolfe conditions
//
//	φ(α) ≤ φ(0) + 𝚏𝚝𝚘𝚕·α·φ′(0)    |φ′(α)| ≤ 𝚐𝚝𝚘𝚕·|φ′(0)|
//
// by bracketing a minimizer of the modified function ψ(α) = φ(α) - φ(0) -
// 𝚏𝚝𝚘𝚕·α·φ′(0) with safeguarded cubic and secant trial steps. When no such
// step exists the search stops at a step satisfying sufficient decrease only.
// It consumes derivatives at every trial point.
type MoreThuente struct {
	// Ftol is the sufficient decrease tolerance, 1e-3 when zero.
	Ftol float64
	// Gtol is the curvature tolerance, 0.9 when zero.
	Gtol float64
	// Xtol is the relative width below which the search gives up, 0.1 when zero.
	Xtol float64
	// StepMin and StepMax bound the step, [0, 1e10] when zero.
	StepMin, StepMax float64

	ftol, gtol, xtol float64
	smin, smax       float64

	bracket      bool
	stage        int
	finit, ginit float64
	stx, fx, gx  float64
	sty, fy, gy  float64
	width        [2]float64
	bound        [2]float64
}

var _ LineSearch = (*MoreThuente)(nil)

func (m *MoreThuente) UseDerivative() bool { return true }

func (m *MoreThuente) Clone() LineSearch {
	return &MoreThuente{
		Ftol: m.Ftol, Gtol: m.Gtol, Xtol: m.Xtol,
		StepMin: m.StepMin, StepMax: m.StepMax,
	}
}

func (m *MoreThuente) Start(f0, df0, step float64) (SearchStatus, float64) {
	m.ftol, m.gtol, m.xtol = m.Ftol, m.Gtol, m.Xtol
	if m.ftol <= zero {
		m.ftol = mtFtol
	}
	if m.gtol <= zero {
		m.gtol = mtGtol
	}
	if m.xtol <= zero {
		m.xtol = mtXtol
	}
	m.smin, m.smax = m.StepMin, m.StepMax
	if m.smax <= m.smin {
		m.smax = mtStepMax
	}

	if df0 >= zero {
		return SearchFailed, step
	}
	step = math.Min(math.Max(step, m.smin), m.smax)

	m.bracket = false
	m.stage = mtStageArmijo
	m.finit, m.ginit = f0, df0
	m.width[0] = m.smax - m.smin
	m.width[1] = m.width[0] / mtHalf

	m.stx, m.fx, m.gx = zero, f0, df0
	m.sty, m.fy, m.gy = zero, f0, df0
	m.bound[0] = zero
	m.bound[1] = step + mtTrapUpper*step
	return Searching, step
}

func (m *MoreThuente) Iterate(step, f, df float64) (SearchStatus, float64) {

	gTest := m.ftol * m.ginit
	fTest := m.finit + step*gTest

	// Convergence and stall tests.
	stpMin, stpMax := m.bound[0], m.bound[1]
	switch {
	case f <= fTest && math.Abs(df) <= m.gtol*(-m.ginit):
		return SearchConverged, step
	case m.bracket && (step <= stpMin || step >= stpMax),
		m.bracket && stpMax-stpMin <= m.xtol*stpMax,
		step == m.smax && f <= fTest && df <= gTest,
		step == m.smin && (f > fTest || df >= gTest):
		// rounding errors or a step pinned at its bound: the best step found
		// satisfies sufficient decrease at most
		if f <= fTest {
			return SearchConverged, step
		}
		return SearchFailed, m.stx
	}

	if m.stage == mtStageArmijo && f <= fTest && df >= zero {
		m.stage = mtStageWolfe
	}

	// During the first stage, the trial step is chosen on the modified
	// function ψ so that the bracketing interval shrinks toward a step
	// with sufficient decrease.
	if m.stage == mtStageArmijo && f <= m.fx && f > fTest {
		fm := f - step*gTest
		fxm := m.fx - m.stx*gTest
		fym := m.fy - m.sty*gTest
		gm := df - gTest
		gxm := m.gx - gTest
		gym := m.gy - gTest
		trialStep(&m.stx, &fxm, &gxm, &m.sty, &fym, &gym, &step, fm, gm, &m.bracket, m.bound)
		m.fx = fxm + m.stx*gTest
		m.fy = fym + m.sty*gTest
		m.gx = gxm + gTest
		m.gy = gym + gTest
	} else {
		trialStep(&m.stx, &m.fx, &m.gx, &m.sty, &m.fy, &m.gy, &step, f, df, &m.bracket, m.bound)
	}

	// Force a bisection step when the interval does not shrink fast enough.
	if m.bracket {
		if math.Abs(m.sty-m.stx) >= mtTwoThird*m.width[1] {
			step = m.stx + mtHalf*(m.sty-m.stx)
		}
		m.width[1] = m.width[0]
		m.width[0] = math.Abs(m.sty - m.stx)
	}

	if m.bracket {
		stpMin = math.Min(m.stx, m.sty)
		stpMax = math.Max(m.stx, m.sty)
	} else {
		stpMin = step + mtTrapLower*(step-m.stx)
		stpMax = step + mtTrapUpper*(step-m.stx)
	}
	m.bound[0], m.bound[1] = stpMin, stpMax

	step = math.Min(math.Max(step, m.smin), m.smax)

	if m.bracket && (step <= stpMin || step >= stpMax) || (m.bracket && stpMax-stpMin <= m.xtol*stpMax) {
		step = m.stx
	}
	return Searching, step
}

// trialStep computes a safeguarded trial step and updates the interval
// (stx, sty) known to contain a step with sufficient decrease. stx is the
// endpoint with the least function value; when bracket is set, a minimizer
// lies between stx and sty and the derivative at stx is negative toward stp.
func trialStep(
	stx, fx, dx *float64,
	sty, fy, dy *float64,
	stp *float64, fp, dp float64,
	bracket *bool, bound [2]float64) {

	var gamma, p, q, r, s, sgnd, stpc, stpf, stpq, theta float64

	stpmin, stpmax := bound[0], bound[1]
	sgnd = dp * (*dx / math.Abs(*dx))

	if fp > *fx {
		// A higher function value: the minimum is bracketed. Take the cubic
		// step if it is closer to stx than the quadratic one, otherwise the
		// average of the two.
		theta = three*(*fx-fp)/(*stp-*stx) + *dx + dp
		s = math.Max(math.Max(math.Abs(theta), math.Abs(*dx)), math.Abs(dp))
		gamma = s * math.Sqrt((theta/s)*(theta/s)-(*dx/s)*(dp/s))
		if *stp < *stx {
			gamma = -gamma
		}
		p = (gamma - *dx) + theta
		q = ((gamma - *dx) + gamma) + dp
		r = p / q
		stpc = *stx + r*(*stp-*stx)
		stpq = *stx + ((*dx/((*fx-fp)/(*stp-*stx)+*dx))/two)*(*stp-*stx)
		if math.Abs(stpc-*stx) < math.Abs(stpq-*stx) {
			stpf = stpc
		} else {
			stpf = stpc + (stpq-stpc)/two
		}
		*bracket = true
	} else if sgnd < zero {
		// A lower value with derivatives of opposite sign: also bracketed.
		// Take the cubic step if it is farther from stp than the secant step.
		theta = three*(*fx-fp)/(*stp-*stx) + *dx + dp
		s = math.Max(math.Max(math.Abs(theta), math.Abs(*dx)), math.Abs(dp))
		gamma = s * math.Sqrt((theta/s)*(theta/s)-(*dx/s)*(dp/s))
		if *stp > *stx {
			gamma = -gamma
		}
		p = (gamma - dp) + theta
		q = ((gamma - dp) + gamma) + *dx
		r = p / q
		stpc = *stp + r*(*stx-*stp)
		stpq = *stp + (dp/(dp-*dx))*(*stx-*stp)
		if math.Abs(stpc-*stp) > math.Abs(stpq-*stp) {
			stpf = stpc
		} else {
			stpf = stpq
		}
		*bracket = true
	} else if math.Abs(dp) < math.Abs(*dx) {
		// A lower value, same derivative sign, decreasing magnitude.
		// The cubic step is used only when the cubic tends to infinity in
		// the direction of the step or its minimum is beyond stp.
		theta = three*(*fx-fp)/(*stp-*stx) + *dx + dp
		s = math.Max(math.Max(math.Abs(theta), math.Abs(*dx)), math.Abs(dp))
		// gamma = 0 only when the cubic does not tend to infinity in the
		// direction of the step.
		gamma = s * math.Sqrt((theta/s)*(theta/s)-(*dx/s)*(dp/s))
		if *stp > *stx {
			gamma = -gamma
		}
		p = (gamma - dp) + theta
		q = (gamma + (*dx - dp)) + gamma
		r = p / q
		if r < zero && gamma != zero {
			stpc = *stp + r*(*stx-*stp)
		} else if *stp > *stx {
			stpc = stpmax
		} else {
			stpc = stpmin
		}
		stpq = *stp + (dp/(dp-*dx))*(*stx-*stp)
		if *bracket {
			if math.Abs(stpc-*stp) < math.Abs(stpq-*stp) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			if *stp > *stx {
				stpf = math.Min(*stp+mtTwoThird*(*sty-*stp), stpf)
			} else {
				stpf = math.Max(*stp+mtTwoThird*(*sty-*stp), stpf)
			}
		} else {
			if math.Abs(stpc-*stp) > math.Abs(stpq-*stp) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			stpf = math.Min(stpmax, stpf)
			stpf = math.Max(stpmin, stpf)
		}
	} else {
		// A lower value, same derivative sign, non-decreasing magnitude.
		// Without a bracket the step is driven to its bound.
		if *bracket {
			theta = three*(fp-*fy)/(*sty-*stp) + *dy + dp
			s = math.Max(math.Max(math.Abs(theta), math.Abs(*dy)), math.Abs(dp))
			gamma = s * math.Sqrt((theta/s)*(theta/s)-(*dy/s)*(dp/s))
			if *stp > *sty {
				gamma = -gamma
			}
			p = (gamma - dp) + theta
			q = ((gamma - dp) + gamma) + *dy
			r = p / q
			stpc = *stp + r*(*sty-*stp)
			stpf = stpc
		} else if *stp > *stx {
			stpf = stpmax
		} else {
			stpf = stpmin
		}
	}

	// Update the interval which contains a minimizer.
	if fp > *fx {
		*sty = *stp
		*fy = fp
		*dy = dp
	} else {
		if sgnd < zero {
			*sty = *stx
			*fy = *fx
			*dy = *dx
		}
		*stx = *stp
		*fx = fp
		*dx = dp
	}

	*stp = stpf
}
