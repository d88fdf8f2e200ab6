package momentarm

import (
	"errors"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
)

func doublePendulum(t *testing.T) (*mbe.Model, *mbe.State) {
	t.Helper()
	m := mbe.NewModel("double_pendulum")
	m.AddBody("upper", 1, r2.Vec{Y: -1}, 0)
	m.AddBody("lower", 1, r2.Vec{Y: -1}, 0)
	m.AddJoint("shoulder", mbe.Pin, mbe.Ground, "upper", r2.Vec{}, r2.Vec{}, "q1")
	m.AddJoint("elbow", mbe.Pin, "upper", "lower", r2.Vec{Y: -1}, r2.Vec{}, "q2")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatal(err)
	}
	return m, s
}

// kneeWithPatella couples a patella pin on the tibia to the knee angle.
func kneeWithPatella(t *testing.T) (*mbe.Model, *mbe.State) {
	t.Helper()
	m := mbe.NewModel("knee")
	m.AddBody("tibia", 3, r2.Vec{Y: -0.2}, 0.05)
	m.AddBody("patella", 0.1, r2.Vec{}, 0.001)
	m.AddJoint("knee_r", mbe.Pin, mbe.Ground, "tibia", r2.Vec{}, r2.Vec{}, "knee_angle_r")
	m.AddJoint("tib_pat_r", mbe.Pin, "tibia", "patella", r2.Vec{X: 0.05}, r2.Vec{}, "knee_angle_r_beta")
	m.AddCoupler("patella_follows_knee", "knee_angle_r_beta", mbe.LinearFunction{Coefficients: []float64{0.5}}, "knee_angle_r")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatal(err)
	}
	return m, s
}

// sled couples a translational cart position x = 0.1·q to an arm angle q.
func sled(t *testing.T) (*mbe.Model, *mbe.State) {
	t.Helper()
	m := mbe.NewModel("sled")
	m.AddBody("cart", 2, r2.Vec{}, 0.1)
	m.AddBody("arm", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddJoint("rail", mbe.Slider, mbe.Ground, "cart", r2.Vec{}, r2.Vec{}, "x")
	m.AddJoint("pivot", mbe.Pin, "cart", "arm", r2.Vec{}, r2.Vec{}, "q")
	m.AddCoupler("x_follows_q", "x", mbe.LinearFunction{Coefficients: []float64{0.1}}, "q")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatal(err)
	}
	return m, s
}

func mustCoord(t *testing.T, m *mbe.Model, name string) *mbe.Coordinate {
	t.Helper()
	c, err := m.Coordinate(name)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func assertVector(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCoupledCoordinateNames(t *testing.T) {
	m := mbe.NewModel("chain")
	for _, b := range []string{"a", "b", "c", "d"} {
		m.AddBody(b, 1, r2.Vec{Y: -1}, 0)
	}
	m.AddJoint("ja", mbe.Pin, mbe.Ground, "a", r2.Vec{}, r2.Vec{}, "qa")
	m.AddJoint("jb", mbe.Pin, "a", "b", r2.Vec{Y: -1}, r2.Vec{}, "qb")
	m.AddJoint("jc", mbe.Pin, "b", "c", r2.Vec{Y: -1}, r2.Vec{}, "qc")
	m.AddJoint("jd", mbe.Pin, "c", "d", r2.Vec{Y: -1}, r2.Vec{}, "qd")
	m.AddCoupler("b_from_a", "qb", mbe.LinearFunction{Coefficients: []float64{1}}, "qa")
	m.AddCoupler("c_from_ab", "qc", mbe.LinearFunction{Coefficients: []float64{1, -1}}, "qa", "qb")

	tests := []struct {
		coord string
		want  []string
	}{
		{"qa", []string{"qb", "qc"}},
		{"qb", []string{"qa", "qc"}},
		{"qc", []string{"qa", "qb"}},
		{"qd", nil},
	}
	for _, tt := range tests {
		t.Run(tt.coord, func(t *testing.T) {
			got := CoupledCoordinateNames(m.Constraints(), tt.coord)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeCouplingUnconstrained(t *testing.T) {
	m, s := doublePendulum(t)
	s.SetQ([]float64{0.4, -0.7})
	s.SetU([]float64{3, -2})

	for i, name := range []string{"q1", "q2"} {
		coord := mustCoord(t, m, name)
		coupled := CoupledCoordinateNames(m.Constraints(), name)
		W, err := ComputeCoupling(m, s, coord, coupled, DefaultCouplingPolicy())
		if err != nil {
			t.Fatal(err)
		}
		nonzero := 0
		for _, w := range W {
			if w != 0 {
				nonzero++
			}
		}
		if nonzero != 1 || W[i] != 1 {
			t.Errorf("%s: W = %v, want a single 1 at %d", name, W, i)
		}
	}
}

func TestComputeCouplingRatio(t *testing.T) {
	f := coupledPair(t, 2)
	q1 := f.coordinate(t, "q1")
	q2 := f.coordinate(t, "q2")
	if err := q1.SetValue(f.state, 0.2, true); err != nil {
		t.Fatal(err)
	}

	W, err := ComputeCoupling(f.model, f.state, q1, CoupledCoordinateNames(f.model.Constraints(), "q1"), DefaultCouplingPolicy())
	if err != nil {
		t.Fatal(err)
	}
	assertVector(t, W, []float64{1, 2}, 1e-12)

	W, err = ComputeCoupling(f.model, f.state, q2, CoupledCoordinateNames(f.model.Constraints(), "q2"), DefaultCouplingPolicy())
	if err != nil {
		t.Fatal(err)
	}
	assertVector(t, W, []float64{0.5, 1}, 1e-12)

	// without the coupled set only the coordinate itself contributes
	W, err = ComputeCoupling(f.model, f.state, q1, nil, DefaultCouplingPolicy())
	if err != nil {
		t.Fatal(err)
	}
	assertVector(t, W, []float64{1, 0}, 0)
}

func TestComputeCouplingExcludedJoint(t *testing.T) {
	m, s := kneeWithPatella(t)
	knee := mustCoord(t, m, "knee_angle_r")
	coupled := CoupledCoordinateNames(m.Constraints(), knee.Name())

	ratios, err := CouplingRatios(m, s, knee, DefaultCouplingPolicy())
	if err != nil {
		t.Fatal(err)
	}
	assertVector(t, ratios, []float64{1, 0.5}, 1e-12)

	tests := []struct {
		name   string
		policy CouplingPolicy
		want   []float64
	}{
		{"no exclusions", DefaultCouplingPolicy(), []float64{1, 0.5}},
		{"patella excluded", DefaultCouplingPolicy().ExcludeJoints("tib_pat_r"), []float64{1, 0}},
		{"knee excluded", DefaultCouplingPolicy().ExcludeJoints("knee_r"), []float64{0, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			W, err := ComputeCoupling(m, s, knee, coupled, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			assertVector(t, W, tt.want, 1e-12)
		})
	}
}

func TestExcludeJointsCopies(t *testing.T) {
	base := DefaultCouplingPolicy()
	derived := base.ExcludeJoints("tib_pat_r")
	if base.ExcludedJoints["tib_pat_r"] {
		t.Error("ExcludeJoints modified the receiver")
	}
	if !derived.ExcludedJoints["tib_pat_r"] {
		t.Error("joint not excluded")
	}
}

func TestComputeCouplingTranslationalPolicy(t *testing.T) {
	m, s := sled(t)
	x := mustCoord(t, m, "x")
	q := mustCoord(t, m, "q")

	tests := []struct {
		name   string
		coord  *mbe.Coordinate
		policy TranslationalPolicy
		want   []float64
	}{
		{"rotational exclude", q, ExcludeTranslational, []float64{0, 1}},
		{"rotational include self", q, IncludeSelf, []float64{0, 1}},
		{"rotational include", q, IncludeTranslational, []float64{0.1, 1}},
		{"translational exclude", x, ExcludeTranslational, []float64{0, 10}},
		{"translational include self", x, IncludeSelf, []float64{1, 10}},
		{"translational include", x, IncludeTranslational, []float64{1, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultCouplingPolicy()
			policy.Translational = tt.policy
			W, err := ComputeCoupling(m, s, tt.coord, CoupledCoordinateNames(m.Constraints(), tt.coord.Name()), policy)
			if err != nil {
				t.Fatal(err)
			}
			assertVector(t, W, tt.want, 1e-9)
		})
	}
}

func TestParseTranslationalPolicy(t *testing.T) {
	for _, p := range []TranslationalPolicy{ExcludeTranslational, IncludeSelf, IncludeTranslational} {
		got, err := ParseTranslationalPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("%s: got %v, %v", p, got, err)
		}
	}
	if _, err := ParseTranslationalPolicy("sometimes"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestComputeCouplingFullyConstrained(t *testing.T) {
	f := coupledPair(t, 2)
	q1 := f.coordinate(t, "q1")
	q2 := f.coordinate(t, "q2")
	q2.SetLocked(f.state, true)

	_, err := ComputeCoupling(f.model, f.state, q1, []string{"q2"}, DefaultCouplingPolicy())
	if !errors.Is(err, ErrArithmetic) {
		t.Fatalf("expected arithmetic error, got %v", err)
	}
}

func TestComputeCouplingUnknownCoupledName(t *testing.T) {
	f := coupledPair(t, 2)
	q1 := f.coordinate(t, "q1")
	_, err := ComputeCoupling(f.model, f.state, q1, []string{"q2", "hip_flexion"}, DefaultCouplingPolicy())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestComputeCouplingLeavesPoseAlone(t *testing.T) {
	f := coupledPair(t, 2)
	q1 := f.coordinate(t, "q1")
	if err := q1.SetValue(f.state, 0.1, true); err != nil {
		t.Fatal(err)
	}
	f.state.SetU([]float64{0.3, 0.6})
	before := f.state.Clone()
	coupled := CoupledCoordinateNames(f.model.Constraints(), "q1")

	first, err := ComputeCoupling(f.model, f.state, q1, coupled, DefaultCouplingPolicy())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		W, err := ComputeCoupling(f.model, f.state, q1, coupled, DefaultCouplingPolicy())
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(W, first) {
			t.Fatalf("call %d returned %v, first call %v", i, W, first)
		}
	}
	assertUnchanged(t, before, f.state)
}
