package momentarm

import (
	"fmt"
	"math"

	"github.com/san-kum/armcheck/internal/mbe"
)

// EstimateMomentArm returns the moment arm of path about coord by central
// differences: (len1 - len2) / (θ2 - θ1), where θ1 and θ2 are the values
// the coordinate actually takes after setting θ∓step with the constraints
// enforced. Clamping and locking are released on the working copy first.
func EstimateMomentArm(eng Engine, s *mbe.State, path Path, coord Coordinate, step float64) (float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return 0, &ArithmeticError{Op: "moment arm estimate", Coordinate: coord.Name(), Detail: fmt.Sprintf("step %g", step)}
	}
	w := acquire(s)
	defer release(w)

	coord.SetClamped(w, false)
	coord.SetLocked(w, false)
	theta := coord.Value(w)

	theta1, len1, err := lengthAt(eng, w, path, coord, theta-step)
	if err != nil {
		return 0, err
	}
	theta2, len2, err := lengthAt(eng, w, path, coord, theta+step)
	if err != nil {
		return 0, err
	}

	dtheta := theta2 - theta1
	if dtheta == 0 {
		return 0, &ArithmeticError{Op: "moment arm estimate", Coordinate: coord.Name(),
			Detail: fmt.Sprintf("perturbation of %g collapsed at %g", step, theta)}
	}
	arm := (len1 - len2) / dtheta
	if math.IsNaN(arm) || math.IsInf(arm, 0) {
		return 0, &ArithmeticError{Op: "moment arm estimate", Coordinate: coord.Name(), Detail: fmt.Sprintf("non-finite result %g", arm)}
	}
	return arm, nil
}

// lengthAt moves coord to value, resolves positions and reads back the
// coordinate and the path length.
func lengthAt(eng Engine, w *mbe.State, path Path, coord Coordinate, value float64) (float64, float64, error) {
	if err := coord.SetValue(w, value, true); err != nil {
		return 0, 0, err
	}
	if err := eng.Realize(w, mbe.StagePosition); err != nil {
		return 0, 0, err
	}
	length, err := path.Length(w)
	if err != nil {
		return 0, 0, err
	}
	return coord.Value(w), length, nil
}
