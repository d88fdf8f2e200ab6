// Package viz renders sweep reports, battery summaries and plots for the
// terminal.
//
// Sample lines follow the layout
//
//	r = analytic :: -dL/dq at q = <deg>
//	tau = ivd :: direct   r*F = expected
//
// with failing values highlighted. Plots are drawn with asciigraph.
package viz
