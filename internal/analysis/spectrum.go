package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrShortSeries = errors.New("analysis: series too short")

// PowerSpectrum returns the magnitude of each real FFT coefficient of
// data after its mean is removed. Index k is frequency k/(n·dt).
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	centered := make([]float64, len(data))
	copy(centered, data)
	floats.AddConst(-floats.Sum(data)/float64(len(data)), centered)

	coeff := fourier.NewFFT(len(centered)).Coefficients(nil, centered)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the frequency in Hz with the largest spectral
// magnitude, excluding the mean.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if len(data) < 4 {
		return 0, ErrShortSeries
	}
	if dt <= 0 {
		return 0, errors.New("analysis: non-positive sample interval")
	}
	ps := PowerSpectrum(data)
	peak := floats.MaxIdx(ps[1:]) + 1
	return float64(peak) / (float64(len(data)) * dt), nil
}
