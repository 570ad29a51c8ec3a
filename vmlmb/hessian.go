// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

// Limited-memory inverse-Hessian approximation: a ring of m correction pairs
//
//	sⱼ = xₖ₊₁ - xₖ    yⱼ = gₖ₊₁ - gₖ
//
// applied through the Strang two-loop recursion. Pairs with non-positive
// curvature ⟨s,y⟩ are skipped per use instead of being evicted, so a noisy
// pair does not erase an otherwise healthy history.

// slot returns the ring index of the correction pair that is age updates
// older than the most recent one, for age in 0..mp-1.
func slot(updates, m, age int) int {
	return ((updates-1-age)%m + m) % m
}

// pair returns the s and y rows stored at ring index k.
func (c *iterCtx) pair(n, k int) (s, y []float64) {
	s = c.s[k*n : (k+1)*n]
	y = c.y[k*n : (k+1)*n]
	return
}

// push stores the correction pair (s = x - x0, y = g - g0) in the slot after
// the newest one, growing mp until the ring is full and overwriting the
// oldest pair afterwards.
func (c *iterCtx) push(spec *iterSpec, loc *iterLoc) {
	n, m := spec.n, spec.m
	k := c.updates % m
	s, y := c.pair(n, k)
	combine2(s, one, loc.x, -one, c.x0)
	combine2(y, one, loc.g, -one, c.g0)
	c.updates++
	c.mp = min(c.mp+1, m)
}

// direction runs the two-loop recursion masked to the free variables c.w and
// stores the candidate search direction in c.d. It reports false when no
// stored pair carries positive curvature, in which case c.d is unusable and
// the caller must fall back to steepest descent.
func (c *iterCtx) direction(spec *iterSpec, loc *iterLoc) bool {
	n := spec.n
	d, w, g := c.d, c.w, loc.g

	combine(d, -one, g)

	// Forward sweep from the newest pair to the oldest.
	// The first pair with positive curvature yields the scaling
	// γ = ⟨s,y⟩/⟨y,y⟩ of the implied initial inverse Hessian.
	gamma := zero
	for j := 0; j < c.mp; j++ {
		k := slot(c.updates, spec.m, j)
		s, y := c.pair(n, k)
		sty := innerW(w, y, s)
		if sty <= zero {
			// curvature condition violated, pair contributes nothing
			c.rho[k] = zero
			continue
		}
		c.rho[k] = one / sty
		if gamma == zero {
			if yty := innerW(w, y, y); yty > zero {
				gamma = sty / yty
			}
		}
		c.beta[k] = c.rho[k] * innerW(w, d, s)
		update(d, -c.beta[k], y)
	}

	if gamma == zero {
		// no usable curvature information anywhere in the ring
		return false
	}

	combine(d, gamma, d)

	// Backward sweep from the oldest pair to the newest.
	for j := c.mp - 1; j >= 0; j-- {
		k := slot(c.updates, spec.m, j)
		if c.rho[k] == zero {
			continue
		}
		s, y := c.pair(n, k)
		update(d, c.beta[k]-c.rho[k]*innerW(w, d, y), s)
	}

	// Restrict the direction to the free subspace.
	for i, w := range w {
		d[i] *= w
	}
	return true
}
