// Package mbe provides a planar multibody engine used to drive moment-arm
// verification experiments.
//
// The package defines the primitives a verification run needs:
//
//   - [Model]: bodies connected by [Joint]s into a tree rooted at ground
//   - [Coordinate]: one scalar degree of freedom with clamp/lock flags
//   - [CoordinateCoupler]: q_dep = f(q_indep...) kinematic coupling
//   - [State]: a value snapshot of q, u and the caches of each [Stage]
//   - [Force]: an element that contributes body or mobility forces
//
// A state is realized stage by stage (Position, Velocity, Dynamics,
// Acceleration). Setters invalidate the stages that depend on them.
//
// # Example
//
//	m := mbe.NewModel("pendulum")
//	m.AddBody("rod", 1, r2.Vec{Y: -1}, 0)
//	m.AddJoint("hinge", mbe.Pin, mbe.Ground, "rod", r2.Vec{}, r2.Vec{}, "theta")
//	s, _ := m.InitSystem()
//	_ = m.Realize(s, mbe.StageAcceleration)
//
// # Thread Safety
//
// A Model is read-only once initialized and may be shared. States are
// NOT thread-safe; clone a state per goroutine.
package mbe
