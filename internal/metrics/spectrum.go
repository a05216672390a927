package metrics

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of the mean-removed signal for the
// frequencies 0..n/2. Bin k corresponds to k/(n*interval).
func PowerSpectrum(samples []float64) []float64 {
	if len(samples) < 2 {
		return nil
	}
	mean := stat.Mean(samples, nil)
	centered := make([]float64, len(samples))
	for i, s := range samples {
		centered[i] = s - mean
	}

	bins := fft.FFTReal(centered)
	ps := make([]float64, len(bins)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps
}

// DominantFrequency finds the strongest non-zero frequency in samples taken
// every interval seconds. It returns 0, 0 for flat or too short signals.
func DominantFrequency(samples []float64, interval float64) (freq, power float64) {
	ps := PowerSpectrum(samples)
	if len(ps) < 2 || interval <= 0 {
		return 0, 0
	}
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > power {
			best, power = k, ps[k]
		}
	}
	if best == 0 || power < 1e-12 {
		return 0, 0
	}
	return float64(best) / (float64(len(samples)) * interval), power
}
