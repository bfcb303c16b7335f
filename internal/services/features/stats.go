package features

import (
	"math"
	"sort"
)

// Windowed statistics as explicit pure functions. Every function takes a
// min-periods bound and reports ok=false instead of propagating NaN, so the
// caller owns the default policy for short or degenerate windows.

// Mean returns the arithmetic mean, ok=false for an empty slice.
func Mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

// SampleStd returns the sample standard deviation (n-1 denominator).
// ok=false when fewer than two observations.
func SampleStd(xs []float64) (float64, bool) {
	n := len(xs)
	if n < 2 {
		return 0, false
	}
	m, _ := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	v := sum2 / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v), true
}

// PopStd returns the population standard deviation (n denominator).
func PopStd(xs []float64) (float64, bool) {
	n := len(xs)
	if n == 0 {
		return 0, false
	}
	m, _ := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	v := sum2 / float64(n)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v), true
}

// SampleCov returns the sample covariance of two equal-length series.
func SampleCov(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, false
	}
	mx, _ := Mean(xs)
	my, _ := Mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(n-1), true
}

// trailing returns the last `window` elements ending at index i (inclusive),
// expanding when fewer are available.
func trailing(series []float64, i, window int) []float64 {
	if i < 0 || len(series) == 0 {
		return nil
	}
	if i >= len(series) {
		i = len(series) - 1
	}
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	return series[start : i+1]
}

// WindowedStd is the sample std of the trailing window ending at i.
// ok=false when fewer than minPeriods observations are present.
func WindowedStd(series []float64, i, window, minPeriods int) (float64, bool) {
	w := trailing(series, i, window)
	if len(w) < minPeriods {
		return 0, false
	}
	return SampleStd(w)
}

// WindowedMean is the mean of the trailing window ending at i.
func WindowedMean(series []float64, i, window, minPeriods int) (float64, bool) {
	w := trailing(series, i, window)
	if len(w) < minPeriods {
		return 0, false
	}
	return Mean(w)
}

// Percentile returns the linearly interpolated p-quantile (p in [0,1]).
func Percentile(xs []float64, p float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0], true
	}
	if p >= 1 {
		return sorted[len(sorted)-1], true
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, true
}

// Skewness returns the adjusted Fisher-Pearson sample skewness.
func Skewness(xs []float64) (float64, bool) {
	n := float64(len(xs))
	if n < 3 {
		return 0, false
	}
	m, _ := Mean(xs)
	s, ok := SampleStd(xs)
	if !ok || s == 0 {
		return 0, false
	}
	sum3 := 0.0
	for _, x := range xs {
		d := (x - m) / s
		sum3 += d * d * d
	}
	return n / ((n - 1) * (n - 2)) * sum3, true
}

// Kurtosis returns the sample excess kurtosis.
func Kurtosis(xs []float64) (float64, bool) {
	n := float64(len(xs))
	if n < 4 {
		return 0, false
	}
	m, _ := Mean(xs)
	s, ok := SampleStd(xs)
	if !ok || s == 0 {
		return 0, false
	}
	sum4 := 0.0
	for _, x := range xs {
		d := (x - m) / s
		sum4 += d * d * d * d
	}
	g := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3)) * sum4
	return g - 3*(n-1)*(n-1)/((n-2)*(n-3)), true
}

// Clip bounds x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
