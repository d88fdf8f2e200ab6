// Package analysis characterizes simulated trajectories.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation content of a
//     coordinate history
//   - [NewPhasePortrait]: coordinate against speed, drawn as text
//   - [Crossings]: when a coordinate passes through a value
//
// A pendulum released from rest swings at its natural frequency:
//
//	f, err := analysis.DominantFrequency(theta, dt)
package analysis
