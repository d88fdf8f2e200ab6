package main

import (
	"strings"
	"testing"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/sweep"
)

func TestScenarioVerdict(t *testing.T) {
	sc := config.Scenario{Name: "sled_q"}

	tests := []struct {
		name     string
		def, dyn bool
		fails    bool
	}{
		{"both checks fail", false, false, true},
		{"definition only", true, false, false},
		{"dynamics only", false, true, false},
		{"both pass", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &sweep.Result{Scenario: sc, PassesDefinition: tt.def, PassesDynamicConsistency: tt.dyn}
			err := scenarioVerdict(res)
			if tt.fails {
				if err == nil || !strings.Contains(err.Error(), "sled_q") {
					t.Fatalf("expected failure naming the scenario, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
