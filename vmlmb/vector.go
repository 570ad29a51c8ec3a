// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

import (
	"gonum.org/v1/gonum/floats"
)

// Elementwise kernels over equally shaped vectors.
// Shape mismatch is a caller bug and panics.

// inner computes ⟨a,b⟩.
func inner(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// innerW computes the masked product Σ wᵢaᵢbᵢ,
// restricting the inner product to free variables.
func innerW(w, a, b []float64) (dot float64) {
	if len(a) != len(w) || len(b) != len(w) {
		panic("bound check error")
	}
	for i, w := range w {
		dot += w * a[i] * b[i]
	}
	return
}

// combine sets dst = α·a. Safe when dst aliases a.
func combine(dst []float64, alpha float64, a []float64) {
	floats.ScaleTo(dst, alpha, a)
}

// combine2 sets dst = α·a + β·b. Safe when dst aliases a or b.
func combine2(dst []float64, alpha float64, a []float64, beta float64, b []float64) {
	if len(a) != len(dst) || len(b) != len(dst) {
		panic("bound check error")
	}
	for i := range dst {
		dst[i] = alpha*a[i] + beta*b[i]
	}
}

// update performs dst += α·a in place.
func update(dst []float64, alpha float64, a []float64) {
	floats.AddScaled(dst, alpha, a)
}

// norm2 returns the Euclidean norm of a.
func norm2(a []float64) float64 {
	return floats.Norm(a, 2)
}
