// Package planner computes the list of analysis-window durations covering a
// recording. Windows are planned up front from the total duration and either a
// target window length or a target window count; the residual left over by the
// last full window is either kept as its own short window or folded into the
// previous one, depending on how large it is.
package planner

import (
	"math"
	"strconv"
	"strings"

	"github.com/voxmap/voxmap/faults"
)

// DefaultResidualDivisor keeps a trailing residual as its own window only when
// it exceeds 1/5 of the nominal window length.
const DefaultResidualDivisor = 5

// Plan is the ordered sequence of window durations, summing to the total
// recording duration.
type Plan []float64

// Total returns the summed duration of all windows.
func (p Plan) Total() float64 {
	var t float64
	for _, d := range p {
		t += d
	}
	return t
}

// ByDuration splits total seconds into windows of the target length. The
// residual r = total mod window is appended as a final short window when
// r > window/residualDivisor, otherwise folded into the last full window so no
// near-empty trailing window is produced.
func ByDuration(total, window float64, residualDivisor int) (Plan, error) {
	if total <= 0 {
		return nil, faults.Configf("total duration must be positive, got %.3f", total)
	}
	if window <= 0 {
		return nil, faults.Configf("window duration must be positive, got %.3f", window)
	}
	if residualDivisor <= 0 {
		return nil, faults.Configf("residual divisor must be positive, got %d", residualDivisor)
	}
	if total <= window {
		return Plan{total}, nil
	}

	full := int(total / window)
	residual := math.Mod(total, window)

	plan := make(Plan, full, full+1)
	for i := range plan {
		plan[i] = window
	}
	if residual > window/float64(residualDivisor) {
		plan = append(plan, residual)
	} else {
		plan[len(plan)-1] += residual
	}
	return plan, nil
}

// ByCount divides total seconds into n equal windows, folding the floating
// point remainder into the last one so the plan sums exactly to total.
func ByCount(total float64, n int) (Plan, error) {
	if total <= 0 {
		return nil, faults.Configf("total duration must be positive, got %.3f", total)
	}
	if n <= 0 {
		return nil, faults.Configf("window count must be positive, got %d", n)
	}
	each := total / float64(n)
	plan := make(Plan, n)
	for i := range plan {
		plan[i] = each
	}
	plan[n-1] += total - plan.Total()
	return plan, nil
}

// ParseDuration parses operator duration strings: plain seconds ("1800"), an
// explicit seconds suffix ("1800s") or minutes ("30m").
func ParseDuration(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, faults.Configf("empty duration")
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "m"):
		mult = 60.0
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "s"):
		s = strings.TrimSuffix(s, "s")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, faults.Configf("invalid duration %q", s)
	}
	return v * mult, nil
}
