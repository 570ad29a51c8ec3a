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

// drive runs a strategy on the 1-D restriction φ until it leaves Searching.
func drive(t *testing.T, ls LineSearch, phi, der func(float64) float64, step float64, maxTrial int) (SearchStatus, float64) {
	t.Helper()
	status, stp := ls.Start(phi(0), der(0), step)
	for trial := 0; status == Searching; trial++ {
		require.Less(t, trial, maxTrial, "line search did not terminate")
		df := zero
		if ls.UseDerivative() {
			df = der(stp)
		}
		status, stp = ls.Iterate(stp, phi(stp), df)
	}
	return status, stp
}

func TestBacktrackAccepts(t *testing.T) {
	// unit step already satisfies sufficient decrease
	phi := func(s float64) float64 { return (s - 1) * (s - 1) }
	der := func(s float64) float64 { return 2 * (s - 1) }

	ls := new(Backtrack)
	status, stp := drive(t, ls, phi, der, 1, 50)
	assert.Equal(t, SearchConverged, status)
	assert.Equal(t, 1.0, stp)
}

func TestBacktrackShrinks(t *testing.T) {
	// steep valley close to the origin forces several contractions
	phi := func(s float64) float64 { return (s - 0.01) * (s - 0.01) }
	der := func(s float64) float64 { return 2 * (s - 0.01) }

	ls := new(Backtrack)
	status, stp := drive(t, ls, phi, der, 1, 200)
	require.Equal(t, SearchConverged, status)
	assert.Less(t, stp, 1.0)
	f0, df0 := phi(0), der(0)
	assert.LessOrEqual(t, phi(stp), f0+backtrackFtol*stp*df0)
}

func TestBacktrackRejectsAscent(t *testing.T) {
	ls := new(Backtrack)
	status, _ := ls.Start(1, 0.5, 1)
	assert.Equal(t, SearchFailed, status)
}

func wolfeHold(s float64, phi, der func(float64) float64, ftol, gtol float64) bool {
	if phi(s) > phi(0)+ftol*s*der(0) {
		return false
	}
	if math.Abs(der(s)) > gtol*math.Abs(der(0)) {
		return false
	}
	return true
}

func TestMoreThuenteWolfe(t *testing.T) {

	FGs := [][2]func(float64) float64{
		{
			func(s float64) float64 { return -s - math.Pow(s, 3) + math.Pow(s, 4) },
			func(s float64) float64 { return -1 - 3*math.Pow(s, 2) + 4*math.Pow(s, 3) },
		},
		{
			func(s float64) float64 { return math.Exp(-4*s) + math.Pow(s, 2) },
			func(s float64) float64 { return -4*math.Exp(-4*s) + 2*s },
		},
		{
			func(s float64) float64 { return -math.Sin(10 * s) },
			func(s float64) float64 { return -10 * math.Cos(10*s) },
		},
	}

	for i, fg := range FGs {
		phi, der := fg[0], fg[1]
		ls := &MoreThuente{Ftol: 1e-4, Gtol: 0.9, Xtol: 1e-14, StepMin: 1e-8, StepMax: 50}
		status, stp := drive(t, ls, phi, der, 1, 100)
		require.Equal(t, SearchConverged, status, "case %d", i)
		assert.True(t, wolfeHold(stp, phi, der, 1e-4, 0.9), "case %d step %g", i, stp)
	}
}

func TestMoreThuenteRejectsAscent(t *testing.T) {
	ls := new(MoreThuente)
	status, _ := ls.Start(1, 1e-3, 1)
	assert.Equal(t, SearchFailed, status)
}
