// Package indicators computes the Hull moving averages, their cross signal,
// candle amplitude and the cross density features.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// Periods of the fast and slow Hull moving averages.
const (
	FastPeriod = 9
	SlowPeriod = 21
)

// WMA is the linearly weighted moving average with weights 1..n, the newest
// sample weighted n. NaN marks undefined input and output: any window that
// touches a NaN is undefined, as is the warm-up of every run.
func WMA(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	if n < 1 {
		return out
	}

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if end-start >= n {
			w := talib.Wma(x[start:end], n)
			for i := n - 1; i < len(w); i++ {
				out[start+i] = w[i]
			}
		}
		start = -1
	}

	for i, v := range x {
		if math.IsNaN(v) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(x))
	return out
}

// HMA is the Hull moving average:
// WMA(2*WMA(x, p/2) - WMA(x, p), floor(sqrt(p))).
// The leading undefined rows compound: p-1 for the inner WMA plus
// floor(sqrt(p))-1 for the outer one.
func HMA(x []float64, p int) []float64 {
	half := WMA(x, p/2)
	full := WMA(x, p)

	diff := make([]float64, len(x))
	for i := range x {
		diff[i] = 2*half[i] - full[i]
	}
	return WMA(diff, int(math.Sqrt(float64(p))))
}

// Warmup is the number of leading undefined HMA rows for period p.
func Warmup(p int) int {
	return p - 1 + int(math.Sqrt(float64(p))) - 1
}

// Amplitude is the symmetric percent range 2*(high-low)/(high+low)*100.
func Amplitude(high, low float64) float64 {
	if high+low == 0 {
		return 0
	}
	return 2 * (high - low) / (high + low) * 100
}

// Cross compares the sign of fast-slow between consecutive rows: +1 when it
// flips from <=0 to >0, -1 from >=0 to <0, otherwise 0. A row where either
// average is undefined gets nil; the first defined row gets 0.
func Cross(fast, slow []float64) []*int {
	out := make([]*int, len(fast))
	prev := math.NaN()
	for i := range fast {
		d := fast[i] - slow[i]
		if math.IsNaN(d) {
			prev = math.NaN()
			continue
		}

		v := 0
		switch {
		case math.IsNaN(prev):
		case prev <= 0 && d > 0:
			v = 1
		case prev >= 0 && d < 0:
			v = -1
		}
		out[i] = &v
		prev = d
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
