package optimize

import (
	"context"
	"math"

	"github.com/devskill-org/wh-mpc/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultNodeBudget bounds the branch-and-bound search so a pathological
// horizon cannot hang a request indefinitely.
const DefaultNodeBudget = 20000

const simplexTolerance = 1e-7

// Result is the raw solution the solver hands back: the full decision
// vector (X = [x | T | I | E]) and the objective value it attains.
type Result struct {
	X         []float64
	Objective float64
}

// Solve dispatches on the SystemConfig's Gradation flag: a continuous LP
// relaxation when true, branch-and-bound MILP with binary x(N) when false
// (C12). It returns domain.SolverFailedError when no optimal solution is
// found within the node budget or the context deadline.
func Solve(ctx context.Context, in *Inputs) (*Result, error) {
	lo, hi, err := in.Bounds()
	if err != nil {
		return nil, err
	}
	aEqRows, bEq, err := in.Equalities()
	if err != nil {
		return nil, err
	}
	obj, err := in.Objective()
	if err != nil {
		return nil, err
	}
	intg, err := in.Integral()
	if err != nil {
		return nil, err
	}

	if !anyIntegral(intg) {
		x, z, ok := solveBounded(aEqRows, bEq, obj, lo, hi)
		if !ok {
			return nil, &domain.SolverFailedError{Reason: "LP relaxation infeasible or unbounded"}
		}
		return &Result{X: x, Objective: z}, nil
	}

	x, z, err := branchAndBound(ctx, aEqRows, bEq, obj, lo, hi, intg)
	if err != nil {
		return nil, err
	}
	return &Result{X: x, Objective: z}, nil
}

func anyIntegral(intg []bool) bool {
	for _, v := range intg {
		if v {
			return true
		}
	}
	return false
}

// solveBounded solves min c.x s.t. A x = b, lo <= x <= hi (hi may be +Inf)
// by substituting y = x - lo and adding a slack row per finite upper bound,
// reducing to the standard form gonum's simplex expects.
func solveBounded(aEq [][]float64, bEq, c, lo, hi []float64) ([]float64, float64, bool) {
	n := len(c)
	finiteUpper := make([]bool, n)
	slackCol := make([]int, n)
	nSlack := 0
	for j := 0; j < n; j++ {
		if !math.IsInf(hi[j], 1) {
			finiteUpper[j] = true
			slackCol[j] = n + nSlack
			nSlack++
		}
	}
	total := n + nSlack

	m := len(aEq) + nSlack
	A := make([][]float64, m)
	b := make([]float64, m)

	for i, row := range aEq {
		nr := make([]float64, total)
		copy(nr, row)
		rhs := bEq[i]
		for j := 0; j < n; j++ {
			rhs -= row[j] * lo[j]
		}
		A[i] = nr
		b[i] = rhs
	}
	r := len(aEq)
	for j := 0; j < n; j++ {
		if finiteUpper[j] {
			row := make([]float64, total)
			row[j] = 1
			row[slackCol[j]] = 1
			A[r] = row
			b[r] = hi[j] - lo[j]
			r++
		}
	}

	cFull := make([]float64, total)
	copy(cFull, c)

	y, _, err := simplexMinimize(A, b, cFull)
	if err != nil {
		return nil, 0, false
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = lo[j] + y[j]
	}
	return x, dot(c, x), true
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// branchAndBound performs depth-first branch and bound over the variables
// flagged integral, relaxing each node's bounds and calling solveBounded.
// It stops on DefaultNodeBudget nodes explored or ctx cancellation, and
// either stop is reported as a SolverFailedError.
func branchAndBound(ctx context.Context, aEq [][]float64, bEq, c, lo, hi []float64, intg []bool) ([]float64, float64, error) {
	type node struct {
		lo, hi []float64
	}
	root := node{lo: append([]float64(nil), lo...), hi: append([]float64(nil), hi...)}
	stack := []node{root}

	var bestX []float64
	bestObj := math.Inf(1)
	nodes := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, 0, &domain.SolverFailedError{Reason: "branch and bound stopped: " + err.Error()}
		}
		nodes++
		if nodes > DefaultNodeBudget {
			return nil, 0, &domain.SolverFailedError{Reason: "node budget exhausted before the search completed"}
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, z, ok := solveBounded(aEq, bEq, c, cur.lo, cur.hi)
		if !ok {
			continue
		}
		if z >= bestObj-simplexTolerance {
			continue
		}

		branchVar := -1
		bestDist := 0.0
		for j, isInt := range intg {
			if !isInt {
				continue
			}
			frac := x[j] - math.Floor(x[j])
			if frac <= 1e-6 || frac >= 1-1e-6 {
				continue
			}
			dist := math.Abs(frac - 0.5)
			if branchVar == -1 || dist < bestDist {
				branchVar = j
				bestDist = dist
			}
		}
		if branchVar == -1 {
			bestX = x
			bestObj = z
			continue
		}

		floor := math.Floor(x[branchVar])
		ceil := floor + 1

		leftHi := append([]float64(nil), cur.hi...)
		leftHi[branchVar] = math.Min(leftHi[branchVar], floor)
		left := node{lo: cur.lo, hi: leftHi}

		rightLo := append([]float64(nil), cur.lo...)
		rightLo[branchVar] = math.Max(rightLo[branchVar], ceil)
		right := node{lo: rightLo, hi: cur.hi}

		stack = append(stack, left, right)
	}

	if bestX == nil {
		return nil, 0, &domain.SolverFailedError{Reason: "no integer-feasible solution exists"}
	}
	return bestX, bestObj, nil
}

// simplexMinimize solves min c.y s.t. A y = b, y >= 0 by handing the
// standard-form tableau to gonum's primal simplex (C12): solveBounded has
// already done the work of reducing bounded variables to this shape via
// slack rows, so the relaxation at every branch-and-bound node is a direct
// lp.Simplex call rather than a hand-rolled pivot loop.
func simplexMinimize(a [][]float64, b, c []float64) ([]float64, float64, error) {
	m := len(a)
	if m == 0 {
		return make([]float64, len(c)), 0, nil
	}
	n := len(c)

	flat := make([]float64, 0, m*n)
	for _, row := range a {
		flat = append(flat, row...)
	}
	A := mat.NewDense(m, n, flat)

	z, y, err := lp.Simplex(c, A, b, simplexTolerance, nil)
	if err != nil {
		return nil, 0, errInfeasible
	}
	return y, z, nil
}

var errInfeasible = domain.NewValidationError("lp", "infeasible")

