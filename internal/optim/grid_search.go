// Package optim searches parameter grids for the values that minimize an
// objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrNoFeasiblePoint = errors.New("optim: objective failed at every grid point")

// Objective scores one grid point; lower is better. An error marks the
// point infeasible.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Evaluation is one scored grid point.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// LogSpace returns n points spaced evenly in log10 between lo and hi.
func LogSpace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	a, b := math.Log10(lo), math.Log10(hi)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}
	return out
}

// Search evaluates every grid point in order and returns the best one
// together with all evaluations. Ties keep the earlier point.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (Evaluation, []Evaluation, error) {
	var evals []Evaluation
	best := Evaluation{Value: math.Inf(1)}
	found := false

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		val, err := objective(ctx, params)
		e := Evaluation{Params: params, Value: val, Err: err}
		evals = append(evals, e)
		if err == nil && val < best.Value {
			best = e
			found = true
		}
	})
	if err != nil {
		return best, evals, err
	}
	if !found {
		return best, evals, ErrNoFeasiblePoint
	}
	return best, evals, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
