// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

// SearchStatus is the discrete state of a line search.
type SearchStatus int

const (
	// Searching the strategy proposes another trial step.
	Searching SearchStatus = iota
	// SearchConverged the current trial step is satisfactory.
	SearchConverged
	// SearchFailed no acceptable step could be located.
	SearchFailed
)

// LineSearch is a pluggable strategy locating an acceptable step length
// along the 1-D restriction φ(α) = f(x₀ + α·d) of the objective.
//
// The driver calls Start once per search with the value f0 and directional
// derivative df0 at the origin plus the starting step, then alternates
// evaluating the objective at the proposed trial step with calling Iterate
// until the status leaves Searching.
type LineSearch interface {
	// UseDerivative reports whether Iterate consumes the directional
	// derivative at trial points. The driver skips computing it otherwise.
	UseDerivative() bool
	// Clone returns an independent strategy with the same tolerances.
	// Each workspace owns a clone, so one optimizer can serve concurrent
	// fits without the searches sharing bracketing state.
	Clone() LineSearch
	Start(f0, df0, step float64) (SearchStatus, float64)
	Iterate(step, f, df float64) (SearchStatus, float64)
}

const (
	backtrackFtol   = 1.0e-4
	backtrackShrink = 0.5
	backtrackMinim  = 1.0e-20
)

// Backtrack shrinks the trial step until the sufficient decrease condition
//
//	φ(α) ≤ φ(0) + 𝚏𝚝𝚘𝚕·α·φ′(0)
//
// holds. The first contraction minimizes the quadratic interpolating
// φ(0), φ′(0) and φ(α); later ones apply the fixed shrink factor.
// It never consumes derivatives at trial points.
type Backtrack struct {
	// Ftol is the sufficient decrease tolerance, 1e-4 when zero.
	Ftol float64
	// Shrink is the fixed contraction factor in (0,1), ½ when zero.
	Shrink float64

	ftol, shrink float64
	f0, df0      float64
	smin         float64
}

func (b *Backtrack) UseDerivative() bool { return false }

func (b *Backtrack) Clone() LineSearch {
	return &Backtrack{Ftol: b.Ftol, Shrink: b.Shrink}
}

func (b *Backtrack) Start(f0, df0, step float64) (SearchStatus, float64) {
	b.ftol, b.shrink = b.Ftol, b.Shrink
	if b.ftol <= zero {
		b.ftol = backtrackFtol
	}
	if b.shrink <= zero || b.shrink >= one {
		b.shrink = backtrackShrink
	}
	if df0 >= zero || step <= zero {
		// not a descent direction, nothing to search
		return SearchFailed, step
	}
	b.f0, b.df0 = f0, df0
	b.smin = backtrackMinim * step
	return Searching, step
}

func (b *Backtrack) Iterate(step, f, _ float64) (SearchStatus, float64) {
	if f <= b.f0+b.ftol*step*b.df0 {
		return SearchConverged, step
	}
	// quadratic interpolation step, safeguarded into [0.1, shrink]·step
	next := b.shrink * step
	if den := two * (f - b.f0 - step*b.df0); den > zero {
		q := -b.df0 * step * step / den
		if q >= 0.1*step && q <= b.shrink*step {
			next = q
		}
	}
	if next <= b.smin {
		return SearchFailed, next
	}
	return Searching, next
}

var _ LineSearch = (*Backtrack)(nil)
