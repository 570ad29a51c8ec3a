// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmlmb

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
}

// mainLoop is the outer state machine of the VMLMB algorithm. Every pass
// evaluates the objective exactly once at the projected trial point, then
// either drives the line search one step further or accepts an iterate and
// prepares the next search direction.
func (d *iterDriver) mainLoop() (task iterTask) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	search := d.workspace.search

	ctx.clear()
	ctx.global.reset()

	task = NewIterate
	accepted := false

	for {
		// Evaluate f and g at the (projected) trial point
		// and derive the projected gradient.
		spec.bounds.ProjectVariables(loc.x)
		loc.f = spec.eval(loc.x, loc.g)
		ctx.totalEval++
		spec.bounds.ProjectGradient(loc.x, loc.g, ctx.gp)
		ctx.gpNorm = norm2(ctx.gp)

		if ctx.totalEval == 1 {
			ctx.gtest = spec.stop.GradAbsTol + spec.stop.GradRelTol*ctx.gpNorm
			d.printHead()
		}

		if ctx.gpNorm <= ctx.gtest {
			if task == LineSearching {
				// count the pending iteration as completed
				ctx.iter++
				d.printIter()
			}
			task = ConvGradTol
			break
		}

		if task == LineSearching {
			df := zero
			if search.UseDerivative() {
				df = inner(ctx.d, loc.g)
			}
			var status SearchStatus
			status, ctx.stp = search.Iterate(ctx.stp, loc.f, df)
			switch status {
			case SearchConverged:
				ctx.iter++
				task = NewIterate
				accepted = true
				d.printIter()
				if ctx.iter >= spec.stop.MaxIterations {
					task = OverIterLimit
				}
			case SearchFailed:
				// Discard the failed search, fall back to the previous
				// iterate and rebuild the curvature history from scratch.
				loc.load(ctx.x0, ctx.f0, ctx.g0)
				spec.bounds.ProjectGradient(loc.x, loc.g, ctx.gp)
				ctx.gpNorm = norm2(ctx.gp)
				ctx.mp = 0
				task = NewIterate
			}
			if task&iterStop > 0 {
				break
			}
		}

		if task == NewIterate {
			// Recompute the free-variable mask: a component is free where
			// the projected gradient is nonzero.
			for i, gp := range ctx.gp {
				if gp != zero {
					ctx.w[i] = one
				} else {
					ctx.w[i] = zero
				}
			}

			if accepted && ctx.saved {
				ctx.push(spec, loc)
			}
			accepted = false

			descent := false
			if ctx.mp > 0 && ctx.direction(spec, loc) {
				spec.bounds.ProjectDirection(loc.x, ctx.d)
				if inner(ctx.d, loc.g) < zero {
					descent = true
				} else {
					// projected direction is not downhill, the stored
					// curvature cannot be trusted this run
					ctx.mp = 0
				}
			}

			if descent {
				ctx.stp = one
			} else {
				combine(ctx.d, -one, ctx.gp)
				if ctx.saved {
					ctx.restarts++
				}
				ctx.stp = spec.bounds.InitialStep(loc.x, ctx.d, spec.step)
			}

			if limit := spec.bounds.ShortcutStep(loc.x, ctx.d); limit <= zero {
				task = StopWouldBlock
				break
			} else if ctx.stp > limit {
				ctx.stp = limit
			}

			ctx.dg0 = inner(ctx.d, loc.g)
			loc.save(ctx.x0, &ctx.f0, ctx.g0)
			ctx.saved = true

			var status SearchStatus
			status, ctx.stp = search.Start(loc.f, ctx.dg0, ctx.stp)
			if status == SearchFailed {
				task = StopWouldBlock
				break
			}
			task = LineSearching
		}

		if ctx.totalEval >= spec.stop.MaxEvaluations {
			task = OverEvalLimit
			break
		}

		// Advance the trial point x = x₀ + α·d.
		combine2(loc.x, one, ctx.x0, ctx.stp, ctx.d)
	}

	// Never return a point worse than the last accepted iterate.
	if ctx.saved && loc.f > ctx.f0 {
		loc.load(ctx.x0, ctx.f0, ctx.g0)
		spec.bounds.ProjectGradient(loc.x, loc.g, ctx.gp)
		ctx.gpNorm = norm2(ctx.gp)
	}

	d.printExit(task)
	return
}

func (d *iterDriver) printHead() {
	log := &d.optimizer.logger
	if !log.enabled() {
		return
	}
	loc, ctx := d.location, &d.workspace.iterCtx
	log.log("# iter  eval  rest     time (s)                      f          |pg|        step\n")
	log.log("%6d %5d %5d %12.3e %23.15e %13.5e %11.3e\n",
		0, ctx.totalEval, ctx.restarts, ctx.global.elapsed(), loc.f, ctx.gpNorm, zero)
}

func (d *iterDriver) printIter() {
	log := &d.optimizer.logger
	if !log.enabled() {
		return
	}
	ctx := &d.workspace.iterCtx
	if ctx.iter%log.Period != 0 {
		return
	}
	loc := d.location
	log.log("%6d %5d %5d %12.3e %23.15e %13.5e %11.3e\n",
		ctx.iter, ctx.totalEval, ctx.restarts, ctx.global.elapsed(), loc.f, ctx.gpNorm, ctx.stp)
}

func (d *iterDriver) printExit(task iterTask) {
	log := &d.optimizer.logger
	if !log.enabled() {
		return
	}
	loc, ctx := d.location, &d.workspace.iterCtx
	log.log("%6d %5d %5d %12.3e %23.15e %13.5e %11.3e\n",
		ctx.iter, ctx.totalEval, ctx.restarts, ctx.global.elapsed(), loc.f, ctx.gpNorm, ctx.stp)
	if task&iterStop > 0 {
		s := Summary{Status: task}
		log.log("# WARNING: %s\n", s.Reason())
	}
}
