// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"math"

	"github.com/pkg/errors"
)

// StepScale controls the first trial step after a steepest descent (re)start.
// The step is Relative·‖x‖/‖d‖ when x ≠ 0, else Absolute/‖d‖, else 1/‖d‖.
type StepScale struct {
	Relative float64
	Absolute float64
}

// BoundedSet is a feasible-set capability consumed by the driver.
// All methods are parameterized by the current point x.
type BoundedSet interface {
	// ProjectVariables clamps x onto the feasible set in place.
	ProjectVariables(x []float64)
	// ProjectGradient stores into gp the components of g consistent with
	// remaining feasible at x: zero where a bound is active and the raw
	// gradient points outward.
	ProjectGradient(x, g, gp []float64)
	// ProjectDirection restricts d in place so that x + εd stays feasible
	// for all small ε > 0.
	ProjectDirection(x, d []float64)
	// ShortcutStep returns the largest α ≥ 0 such that x + α·d is feasible,
	// +Inf when unbounded and 0 when no progress along d is possible.
	ShortcutStep(x, d []float64) float64
	// InitialStep returns the first trial step for a steepest descent restart.
	InitialStep(x, d []float64, s StepScale) float64
}

func initialStep(x, d []float64, s StepScale) float64 {
	dnorm := norm2(d)
	if dnorm <= zero {
		return zero
	}
	if s.Relative > zero {
		if xnorm := norm2(x); xnorm > zero {
			return s.Relative * xnorm / dnorm
		}
	}
	if s.Absolute > zero {
		return s.Absolute / dnorm
	}
	return one / dnorm
}

// Unconstrained is the identity feasible set.
type Unconstrained struct{}

func (Unconstrained) ProjectVariables([]float64) {}

func (Unconstrained) ProjectGradient(_, g, gp []float64) {
	copy(gp, g)
}

func (Unconstrained) ProjectDirection(_, _ []float64) {}

func (Unconstrained) ShortcutStep(_, _ []float64) float64 {
	return math.Inf(1)
}

func (Unconstrained) InitialStep(x, d []float64, s StepScale) float64 {
	return initialStep(x, d, s)
}

type bndHint int8

const (
	bndNo bndHint = iota
	bndLow
	bndBoth
	bndUp
)

// Bound represents the bounds for one variable.
// A NaN endpoint leaves that side open.
type Bound struct {
	hint         bndHint
	Lower, Upper float64
}

// Box is the box-constrained feasible set l ≤ x ≤ u.
type Box struct {
	bounds []Bound
}

// NewBox creates a box feasible set from per-variable bounds.
func NewBox(bounds []Bound) (*Box, error) {
	b := make([]Bound, len(bounds))
	copy(b, bounds)
	for k := range b {
		l, u := !math.IsNaN(b[k].Lower), !math.IsNaN(b[k].Upper)
		if l && u && b[k].Lower > b[k].Upper {
			return nil, errors.Errorf("bound range at %d has no feasible solution", k)
		}
		switch {
		case l && u:
			b[k].hint = bndBoth
		case l:
			b[k].hint = bndLow
		case u:
			b[k].hint = bndUp
		default:
			b[k].hint = bndNo
		}
	}
	return &Box{bounds: b}, nil
}

func (s *Box) ProjectVariables(x []float64) {
	b := s.bounds
	if len(x) != len(b) {
		panic("bound check error")
	}
	for i, b := range b {
		if b.hint == bndNo {
			continue
		}
		if b.hint <= bndBoth && x[i] < b.Lower {
			x[i] = b.Lower
		} else if b.hint >= bndBoth && x[i] > b.Upper {
			x[i] = b.Upper
		}
	}
}

// ProjectGradient zeroes the components pinned at an active bound:
//
//	𝚙𝚛𝚘𝚓 gᵢ = 𝟶  if xᵢ ≤ lᵢ and gᵢ > 𝟶
//	𝚙𝚛𝚘𝚓 gᵢ = 𝟶  if xᵢ ≥ uᵢ and gᵢ < 𝟶
//	𝚙𝚛𝚘𝚓 gᵢ = gᵢ otherwise
func (s *Box) ProjectGradient(x, g, gp []float64) {
	b := s.bounds
	if len(x) != len(b) || len(g) != len(b) || len(gp) != len(b) {
		panic("bound check error")
	}
	for i, b := range b {
		g := g[i]
		if g > zero {
			if b.hint == bndLow || b.hint == bndBoth {
				if x[i] <= b.Lower {
					g = zero
				}
			}
		} else if g < zero {
			if b.hint == bndUp || b.hint == bndBoth {
				if x[i] >= b.Upper {
					g = zero
				}
			}
		}
		gp[i] = g
	}
}

func (s *Box) ProjectDirection(x, d []float64) {
	b := s.bounds
	if len(x) != len(b) || len(d) != len(b) {
		panic("bound check error")
	}
	for i, b := range b {
		di := d[i]
		if di < zero {
			if (b.hint == bndLow || b.hint == bndBoth) && x[i] <= b.Lower {
				d[i] = zero
			}
		} else if di > zero {
			if (b.hint == bndUp || b.hint == bndBoth) && x[i] >= b.Upper {
				d[i] = zero
			}
		}
	}
}

func (s *Box) ShortcutStep(x, d []float64) float64 {
	b := s.bounds
	if len(x) != len(b) || len(d) != len(b) {
		panic("bound check error")
	}
	stepMax := math.Inf(1)
	for i, b := range b {
		d := d[i]
		if d < zero && b.hint <= bndBoth && b.hint != bndNo {
			if span := b.Lower - x[i]; span >= zero {
				stepMax = zero // variable pinned at lower bound
			} else if d*stepMax < span {
				stepMax = span / d
			}
		} else if d > zero && b.hint >= bndBoth {
			if span := b.Upper - x[i]; span <= zero {
				stepMax = zero // variable pinned at upper bound
			} else if d*stepMax > span {
				stepMax = span / d
			}
		}
	}
	return stepMax
}

func (s *Box) InitialStep(x, d []float64, sc StepScale) float64 {
	step := initialStep(x, d, sc)
	if limit := s.ShortcutStep(x, d); step > limit {
		step = limit
	}
	return step
}
