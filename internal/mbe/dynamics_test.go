package mbe

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

const g = 9.8065

func TestPendulumAcceleration(t *testing.T) {
	tests := []struct {
		name   string
		length float64
		theta  float64
	}{
		{"rest", 1, 0},
		{"small angle", 1, 0.1},
		{"horizontal", 2, math.Pi / 2},
		{"negative", 0.5, -0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s := newPendulum(t, 1.3, tt.length)
			s.SetQ([]float64{tt.theta})
			mustRealize(t, m, s, StageAcceleration)

			udot, err := m.UDot(s)
			if err != nil {
				t.Fatal(err)
			}
			want := -g * math.Sin(tt.theta) / tt.length
			if math.Abs(udot[0]-want) > 1e-9 {
				t.Errorf("alpha = %v, want %v", udot[0], want)
			}
		})
	}
}

func TestDoublePendulumMatchesClosedForm(t *testing.T) {
	const (
		m1, m2 = 1.0, 0.8
		l1, l2 = 1.0, 0.6
	)
	tests := []struct {
		name           string
		theta1, theta2 float64
		omega1, omega2 float64
	}{
		{"static", 0.3, -0.2, 0, 0},
		{"moving", 1.1, 0.4, 0.5, -1.5},
		{"folded", -0.8, 2.2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s := newDoublePendulum(t, m1, m2, l1, l2)
			s.SetQ([]float64{tt.theta1, tt.theta2 - tt.theta1})
			s.SetU([]float64{tt.omega1, tt.omega2 - tt.omega1})
			mustRealize(t, m, s, StageAcceleration)
			udot, _ := m.UDot(s)

			d := tt.theta1 - tt.theta2
			den := 2*m1 + m2 - m2*math.Cos(2*d)
			a1 := (-g*(2*m1+m2)*math.Sin(tt.theta1) - m2*g*math.Sin(tt.theta1-2*tt.theta2) -
				2*math.Sin(d)*m2*(tt.omega2*tt.omega2*l2+tt.omega1*tt.omega1*l1*math.Cos(d))) / (l1 * den)
			a2 := 2 * math.Sin(d) * (tt.omega1*tt.omega1*l1*(m1+m2) + g*(m1+m2)*math.Cos(tt.theta1) +
				tt.omega2*tt.omega2*l2*m2*math.Cos(d)) / (l2 * den)

			if math.Abs(udot[0]-a1) > 1e-8 {
				t.Errorf("alpha1 = %v, want %v", udot[0], a1)
			}
			if math.Abs(udot[1]-(a2-a1)) > 1e-8 {
				t.Errorf("relative alpha2 = %v, want %v", udot[1], a2-a1)
			}
		})
	}
}

func TestMassMatrixSymmetricPositive(t *testing.T) {
	m, s := newDoublePendulum(t, 1, 2, 1, 1)
	s.SetQ([]float64{0.2, 0.9})
	mustRealize(t, m, s, StagePosition)

	M, err := m.CalcM(s)
	if err != nil {
		t.Fatal(err)
	}
	// upper-lower point masses: M00 = m1 l1² + m2 |p2|²
	p2, _ := m.StationLocation(s, 1, r2.Vec{Y: -1})
	want := 1.0 + 2*r2.Norm2(p2)
	if math.Abs(M.At(0, 0)-want) > 1e-12 {
		t.Errorf("M00 = %v, want %v", M.At(0, 0), want)
	}
	if M.At(1, 1) <= 0 || M.At(0, 1) != M.At(1, 0) {
		t.Errorf("unexpected mass matrix %v", M)
	}
}

func TestInverseDynamicsBalancesAppliedForces(t *testing.T) {
	m, s := newCoupledPair(t, 2)
	q1 := mustCoordinate(t, m, "q1")
	if err := q1.SetValue(s, 0.35, true); err != nil {
		t.Fatal(err)
	}
	q1.SetSpeedValue(s, 0.7)
	if err := m.Project(s, 1e-10, nil, nil, VelocityOnly); err != nil {
		t.Fatal(err)
	}
	mustRealize(t, m, s, StageAcceleration)

	body, err := m.RigidBodyForces(s, StageDynamics)
	if err != nil {
		t.Fatal(err)
	}
	applied, _ := m.CalcTreeEquivalentMobilityForces(s, body)
	udot, _ := m.UDot(s)
	lambda, _ := m.Multipliers(s)
	ivd, err := m.CalcResidualForceIgnoringConstraints(s, nil, nil, udot)
	if err != nil {
		t.Fatal(err)
	}
	_, constraint, err := m.CalcConstraintForcesFromMultipliers(s, lambda)
	if err != nil {
		t.Fatal(err)
	}

	floats.Add(ivd, constraint)
	if !floats.EqualApprox(ivd, applied, 1e-9) {
		t.Errorf("ivd + Gᵀλ = %v, applied = %v", ivd, applied)
	}
	if math.Abs(udot[1]-2*udot[0]) > 1e-9 {
		t.Errorf("coupled accelerations %v violate q2 = 2 q1", udot)
	}
}

func TestLockedCoordinateHasNoAcceleration(t *testing.T) {
	m, s := newDoublePendulum(t, 1, 1, 1, 1)
	s.SetQ([]float64{0.4, 0.3})
	mustCoordinate(t, m, "q2").SetLocked(s, true)
	mustRealize(t, m, s, StageAcceleration)

	udot, _ := m.UDot(s)
	if math.Abs(udot[1]) > 1e-12 {
		t.Errorf("locked coordinate accelerates: %v", udot[1])
	}
	lambda, _ := m.Multipliers(s)
	if len(lambda) != 1 {
		t.Fatalf("expected one multiplier, got %d", len(lambda))
	}
}

func TestMasslessSystemIsSingular(t *testing.T) {
	m, s := newPendulum(t, 0, 1)
	s.SetQ([]float64{0.3})
	err := m.Realize(s, StageAcceleration)
	if !errors.Is(err, ErrSingular) {
		t.Errorf("expected singular error, got %v", err)
	}
}

func TestDisabledGravity(t *testing.T) {
	m, s := newPendulum(t, 1, 1)
	s.SetQ([]float64{0.5})
	m.SetGravityDisabled(s, true)
	mustRealize(t, m, s, StageAcceleration)
	udot, _ := m.UDot(s)
	if udot[0] != 0 {
		t.Errorf("expected no acceleration without gravity, got %v", udot[0])
	}
}

type constantTorque struct {
	name   string
	index  int
	torque float64
}

func (c constantTorque) Name() string { return c.name }

func (c constantTorque) ApplyForces(_ *Model, _ *State, _ []SpatialForce, mobility []float64) error {
	mobility[c.index] += c.torque
	return nil
}

func TestForceToggles(t *testing.T) {
	m := NewModel("driven")
	m.AddBody("rod", 2, r2.Vec{Y: -1}, 0)
	m.AddJoint("hinge", Pin, Ground, "rod", r2.Vec{}, r2.Vec{}, "theta")
	m.AddForce(constantTorque{name: "motor", torque: 4})
	s, err := m.InitSystem()
	if err != nil {
		t.Fatal(err)
	}
	m.SetGravityDisabled(s, true)
	mustRealize(t, m, s, StageAcceleration)
	udot, _ := m.UDot(s)
	if math.Abs(udot[0]-2) > 1e-12 {
		t.Errorf("alpha = %v, want 2", udot[0])
	}

	if err := m.SetForceDisabled(s, "motor", true); err != nil {
		t.Fatal(err)
	}
	mustRealize(t, m, s, StageAcceleration)
	udot, _ = m.UDot(s)
	if udot[0] != 0 {
		t.Errorf("disabled motor still drives: %v", udot[0])
	}
	if err := m.SetForceDisabled(s, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestKineticEnergy(t *testing.T) {
	m, s := newPendulum(t, 2, 1.5)
	s.SetU([]float64{3})
	mustRealize(t, m, s, StagePosition)
	ke, err := m.KineticEnergy(s)
	if err != nil {
		t.Fatal(err)
	}
	want := 0.5 * 2 * 1.5 * 1.5 * 9
	if math.Abs(ke-want) > 1e-12 {
		t.Errorf("kinetic energy = %v, want %v", ke, want)
	}
}

func TestPotentialEnergy(t *testing.T) {
	m, s := newPendulum(t, 2, 1.5)
	s.SetQ([]float64{0.4})
	mustRealize(t, m, s, StagePosition)
	pe, err := m.PotentialEnergy(s)
	if err != nil {
		t.Fatal(err)
	}
	want := -2 * g * 1.5 * math.Cos(0.4)
	if math.Abs(pe-want) > 1e-12 {
		t.Errorf("potential energy = %v, want %v", pe, want)
	}

	m.SetGravityDisabled(s, true)
	mustRealize(t, m, s, StagePosition)
	if pe, _ := m.PotentialEnergy(s); pe != 0 {
		t.Errorf("potential energy without gravity = %v", pe)
	}
}

func TestRigidBodyForcesRequiresDynamics(t *testing.T) {
	m, s := newPendulum(t, 1, 1)
	_, err := m.RigidBodyForces(s, StageDynamics)
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if !errors.Is(err, ErrStage) {
		t.Error("stage error does not unwrap to ErrStage")
	}
}
