package scale

import "math"

// Linear maps a continuous domain onto a continuous range.
type Linear struct {
	D0, D1 float64 // domain
	R0, R1 float64 // range
}

// NewLinear returns a linear scale from [d0, d1] to [r0, r1].
func NewLinear(d0, d1, r0, r1 float64) Linear {
	return Linear{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Map returns the range position of v. A degenerate domain maps everything
// to the middle of the range.
func (l Linear) Map(v float64) float64 {
	span := l.D1 - l.D0
	if span == 0 {
		return (l.R0 + l.R1) / 2
	}
	return l.R0 + (v-l.D0)/span*(l.R1-l.R0)
}

// Invert returns the domain value at range position p.
func (l Linear) Invert(p float64) float64 {
	span := l.R1 - l.R0
	if span == 0 {
		return (l.D0 + l.D1) / 2
	}
	return l.D0 + (p-l.R0)/span*(l.D1-l.D0)
}

// Ticks returns roughly count human-friendly values inside the domain,
// stepping by 1, 2, or 5 times a power of ten.
func (l Linear) Ticks(count int) []float64 {
	start, stop := l.D0, l.D1
	if count <= 0 || start == stop || math.IsNaN(start) || math.IsNaN(stop) {
		return nil
	}
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}

	inc := tickIncrement(start, stop, count)
	if inc == 0 || math.IsInf(inc, 0) || math.IsNaN(inc) {
		return nil
	}

	var ticks []float64
	if inc > 0 {
		lo, hi := math.Ceil(start/inc), math.Floor(stop/inc)
		for i := lo; i <= hi; i++ {
			ticks = append(ticks, i*inc)
		}
	} else {
		inv := -inc
		lo, hi := math.Ceil(start*inv), math.Floor(stop*inv)
		for i := lo; i <= hi; i++ {
			ticks = append(ticks, i/inv)
		}
	}

	if reverse {
		for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	return ticks
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// tickIncrement returns a positive step, or the negated inverse of a step
// below one so that fractional ticks are computed by division.
func tickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / float64(count)
	power := math.Floor(math.Log10(step))
	errRatio := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case errRatio >= e10:
		factor = 10
	case errRatio >= e5:
		factor = 5
	case errRatio >= e2:
		factor = 2
	}

	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}
