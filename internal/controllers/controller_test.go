package controllers

import (
	"testing"

	"github.com/san-kum/armcheck/internal/sim"
)

func TestConstant(t *testing.T) {
	tests := []struct {
		name       string
		activation float64
		want       float64
	}{
		{"inside", 0.3, 0.3},
		{"above one", 1.5, 1},
		{"negative", -0.2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewConstant(2, tt.activation).Compute(sim.State{1.0, 2.0}, 0.0)
			if len(u) != 2 {
				t.Fatalf("expected 2 controls, got %d", len(u))
			}
			for i, v := range u {
				if v != tt.want {
					t.Errorf("control[%d] = %f, want %f", i, v, tt.want)
				}
			}
		})
	}
}

func TestPIDActivationBounds(t *testing.T) {
	// one coordinate, target above the current angle
	ctrl := NewPID(10.0, 0.0, 0.0, 1.0, 0, 1, 3)
	u := ctrl.Compute(sim.State{0.0, 0.0}, 0.0)
	if len(u) != 3 {
		t.Fatalf("expected 3 controls, got %d", len(u))
	}
	if u[0] != 1 {
		t.Errorf("saturated activation = %f, want 1", u[0])
	}

	ctrl.Max = 0.4
	if u := ctrl.Compute(sim.State{0.0, 0.0}, 0.1); u[0] != 0.4 {
		t.Errorf("capped activation = %f, want 0.4", u[0])
	}

	// past the target a muscle can only relax
	if u := ctrl.Compute(sim.State{2.0, 0.0}, 0.2); u[0] != 0 {
		t.Errorf("activation past target = %f, want 0", u[0])
	}
}

func TestPIDIntegralAndDamping(t *testing.T) {
	ctrl := NewPID(0.0, 1.0, 0.0, 0.5, 0, 1, 1)
	ctrl.Compute(sim.State{0.0, 0.0}, 0.0)
	u := ctrl.Compute(sim.State{0.0, 0.0}, 0.2)
	if u[0] < 0.0999 || u[0] > 0.1001 {
		t.Errorf("integral term = %f, want 0.1", u[0])
	}
	ctrl.Reset()
	if u := ctrl.Compute(sim.State{0.0, 0.0}, 1.0); u[0] != 0 {
		t.Errorf("reset controller kept its integral: %f", u[0])
	}

	damped := NewPID(1.0, 0.0, 0.5, 0.5, 0, 1, 1)
	still := damped.Compute(sim.State{0.0, 0.0}, 0)[0]
	moving := damped.Compute(sim.State{0.0, 0.4}, 0)[0]
	if moving >= still {
		t.Errorf("speed toward the target did not reduce activation: %f >= %f", moving, still)
	}
}
