package valuation

import (
	"errors"
	"math"
)

// DefaultDiscountRate is the hurdle rate applied to every project
const DefaultDiscountRate = 0.10

var (
	// ErrNoConvergence is returned when IRR has no real root or the solver fails
	ErrNoConvergence = errors.New("irr did not converge")
	// ErrDivisionByZero is returned when a ratio is taken over a zero cost
	ErrDivisionByZero = errors.New("division by zero cost")
)

const (
	irrTolerance  = 1e-9
	irrMaxIter    = 200
	irrLowerBound = -0.9999
	irrUpperBound = 10.0
)

// Metrics bundles the four project figures
type Metrics struct {
	NPV                float64
	IRR                *float64 // nil when undefined
	PaybackPeriod      float64  // +Inf when cost is never recovered
	ProfitabilityIndex float64  // 0 when cost is zero
}

// PresentValue discounts each inflow from the end of its period.
// PV = Σ cf_i / (1+rate)^(i+1)
func PresentValue(schedule []float64, rate float64) float64 {
	var pv float64
	discount := 1.0
	for _, cf := range schedule {
		discount /= (1.0 + rate)
		pv += cf * discount
	}
	return pv
}

// NPV returns the discounted inflows minus the upfront cost
func NPV(schedule []float64, cost, rate float64) float64 {
	return PresentValue(schedule, rate) - cost
}

// IRR solves NPV(rate) = 0 for the series [-cost, schedule...].
// Newton-Raphson is tried first; bisection over a bracketing interval is the fallback.
func IRR(schedule []float64, cost float64) (float64, error) {
	if len(schedule) == 0 {
		return math.NaN(), ErrNoConvergence
	}

	f := func(r float64) float64 { return NPV(schedule, cost, r) }

	// 1. Newton-Raphson from the hurdle rate
	rate := DefaultDiscountRate
	for i := 0; i < irrMaxIter; i++ {
		value := f(rate)
		if math.Abs(value) < irrTolerance {
			return rate, nil
		}

		// dNPV/dr = Σ -(i+1) cf_i / (1+r)^(i+2)
		var deriv float64
		for j, cf := range schedule {
			deriv -= float64(j+1) * cf / math.Pow(1.0+rate, float64(j+2))
		}
		if deriv == 0 || math.IsNaN(deriv) {
			break
		}

		next := rate - value/deriv
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= irrLowerBound {
			break
		}
		if math.Abs(next-rate) < irrTolerance {
			return next, nil
		}
		rate = next
	}

	// 2. Bisection needs a sign change
	lo, hi := irrLowerBound, irrUpperBound
	fLo, fHi := f(lo), f(hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return math.NaN(), ErrNoConvergence
	}
	for i := 0; i < irrMaxIter; i++ {
		mid := (lo + hi) / 2
		fMid := f(mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return mid, nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return math.NaN(), ErrNoConvergence
}

// PaybackPeriod is the first 1-based period whose running inflow total reaches cost.
// Returns +Inf when the schedule never recovers the cost.
func PaybackPeriod(schedule []float64, cost float64) float64 {
	var cumulative float64
	for i, cf := range schedule {
		cumulative += cf
		if cumulative >= cost {
			return float64(i + 1)
		}
	}
	return math.Inf(1)
}

// ProfitabilityIndex is PV(inflows) / cost
func ProfitabilityIndex(schedule []float64, cost, rate float64) (float64, error) {
	if cost == 0 {
		return 0, ErrDivisionByZero
	}
	return PresentValue(schedule, rate) / cost, nil
}

// Analyze computes every metric for one schedule.
// Undefined results are reported as nil/zero rather than as errors.
func Analyze(schedule []float64, cost, rate float64) Metrics {
	m := Metrics{
		NPV:           NPV(schedule, cost, rate),
		PaybackPeriod: PaybackPeriod(schedule, cost),
	}
	if irr, err := IRR(schedule, cost); err == nil {
		m.IRR = &irr
	}
	if pi, err := ProfitabilityIndex(schedule, cost, rate); err == nil {
		m.ProfitabilityIndex = pi
	}
	return m
}
