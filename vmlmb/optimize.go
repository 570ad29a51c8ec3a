// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vmlmb implements VMLMB, a limited-memory variable-metric method
// for smooth bound-constrained minimization. The inverse Hessian is carried
// as a ring of correction pairs applied by the Strang two-loop recursion on
// the subspace of free variables; bounds and the line search are pluggable
// strategies behind the BoundedSet and LineSearch interfaces.
package vmlmb

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Logger emits the optional progress report.
type Logger struct {
	// Period prints one progress line every Period accepted iterations,
	// plus a header at the first evaluation and a final line; 0 disables
	// all reporting.
	Period int
	// Msg receives the report, os.Stdout when nil.
	Msg io.Writer
}

func (l *Logger) enabled() bool {
	return l.Period > 0
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Evaluation computes the objective value at x and fills g with its
// gradient. The driver only calls it on feasible points. It must have no
// side effect other than filling g.
type Evaluation func(x []float64, g []float64) (f float64)

// Termination specifies the stopping criteria.
// The run converges when the Euclidean norm of the projected gradient
// satisfies
//
//	‖ 𝚙𝚛𝚘𝚓 g ‖ ≤ 𝚐𝚊𝚝𝚘𝚕 + 𝚐𝚛𝚝𝚘𝚕 × ‖ 𝚙𝚛𝚘𝚓 g₀ ‖
//
// with the right-hand side fixed at the first evaluation.
type Termination struct {
	// The iteration stop when the number of accepted iterates exceeds limit.
	// Non-positive means unlimited.
	MaxIterations int
	// The iteration stop when the total number of function and gradient
	// evaluation exceeds limit. Non-positive means unlimited.
	MaxEvaluations int
	// GradAbsTol is the absolute threshold 𝚐𝚊𝚝𝚘𝚕 ≥ 0.
	GradAbsTol float64
	// GradRelTol is the relative threshold 𝚐𝚛𝚝𝚘𝚕 ≥ 0.
	// When both tolerances are zero, 𝚐𝚛𝚝𝚘𝚕 defaults to 1e-6.
	GradRelTol float64
}

// Problem specifies the problem for the VMLMB optimizer.
type Problem struct {
	N      int        // The problem dimension
	M      int        // The memory depth (number of correction pairs)
	Eval   Evaluation // Objective function and gradient
	Stop   Termination
	Bounds BoundedSet // Optional feasible set, unconstrained when nil
	Search LineSearch // Optional line search, backtracking when nil
	Step   StepScale  // Initial step heuristic for steepest descent restarts
}

// New validates the problem and creates an optimizer.
// All configuration errors are reported here, before any evaluation.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}

	n, m := p.N, p.M
	stop, step := p.Stop, p.Step

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case m < 1:
		err = errors.New("memory depth must not less than 1")
	case p.Eval == nil:
		err = errors.New("evaluation target is required")
	case stop.GradAbsTol < zero || stop.GradRelTol < zero:
		err = errors.New("gradient tolerance must not less than 0")
	case step.Relative < zero || step.Absolute < zero:
		err = errors.New("initial step scale must not less than 0")
	}
	if err != nil {
		return
	}

	if stop.MaxIterations <= 0 {
		stop.MaxIterations = math.MaxInt
	}
	if stop.MaxEvaluations <= 0 {
		stop.MaxEvaluations = math.MaxInt
	}
	if stop.GradAbsTol == zero && stop.GradRelTol == zero {
		stop.GradRelTol = 1e-6
	}
	if step.Relative == zero && step.Absolute == zero {
		step.Relative = 0.1
	}

	bounds := p.Bounds
	if bounds == nil {
		bounds = Unconstrained{}
	}
	search := p.Search
	if search == nil {
		search = new(Backtrack)
	}

	optimizer = &Optimizer{
		iterSpec{
			n: n, m: m,
			eval:   p.Eval,
			stop:   stop,
			bounds: bounds,
			search: search,
			step:   step,
			logger: *logger,
		},
	}
	return
}

// Optimizer implemented using the VMLMB algorithm.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of one optimization run,
// including a private clone of the line search strategy.
// Given problem dimension n and memory depth m, the total work space is
// approximately float64[2×mn + 5×n + 2×m], allocated once.
type Workspace struct {
	n, m   int
	search LineSearch
	iterCtx
}

// Init allocates the workspace for the VMLMB optimizer.
// Separate workspaces are needed for concurrent runs, but one workspace
// may be reused across sequential fits.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n, w.m = o.n, o.m
	w.search = o.search.Clone()
	w.init(w.n, w.m)
	return w
}

// Result contains the final result of one optimization run.
type Result struct {
	OK      bool      // Whether the run converged.
	F       float64   // Final function value.
	X, G    []float64 // Final solution and gradient; X aliases the array passed to Fit.
	Summary           // Run summary.
}

// Summary contains a summary of one optimization run.
type Summary struct {
	Status     iterTask // Final task status.
	NumIter    int      // Number of accepted iterations.
	NumEval    int      // Number of function and gradient evaluations.
	NumRestart int      // Number of steepest descent restarts.
}

// Reason describes a non-convergent termination, empty on convergence.
func (s *Summary) Reason() string {
	if s.Status&iterStop == 0 {
		return ""
	}
	switch s.Status {
	case OverIterLimit:
		return "too many iterations"
	case OverEvalLimit:
		return "too many function evaluations"
	case StopWouldBlock:
		return "no feasible descent step"
	}
	return "unknown"
}

// Fit runs the optimization from the initial guess x using workspace w.
// x is updated in place and holds the final iterate on return; it must not
// alias any other buffer passed to the optimizer.
func (o *Optimizer) Fit(x []float64, w *Workspace) *Result {

	if len(x) != o.n {
		panic("initial x dimension not match spec")
	}
	if w.n != o.n || w.m != o.m {
		panic("workspace dimension not match spec")
	}

	loc := iterLoc{
		x: x,
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  &loc,
	}

	task := driver.mainLoop()
	return &Result{
		OK: task&iterConv > 0,
		X:  loc.x, F: loc.f, G: loc.g,
		Summary: Summary{
			Status:     task,
			NumIter:    w.iter,
			NumEval:    w.totalEval,
			NumRestart: w.restarts,
		},
	}
}
