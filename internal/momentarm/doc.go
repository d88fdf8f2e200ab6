// Package momentarm cross-checks muscle moment arms.
//
// A moment arm is computed two independent ways. EstimateMomentArm
// perturbs a coordinate and differences the path length. CheckTorqueConsistency
// compares the generalized force a muscle applies, reduced to one
// coordinate through the coupling vector from ComputeCoupling, against the
// same force recovered by inverse dynamics and against arm times tension.
//
// Every function works on a private copy of the caller's pose.
package momentarm
