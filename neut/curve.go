// Package neut fits four-parameter logistic neutralization curves to
// concentration versus fraction-surviving data and computes IC50s
// from the fitted parameters.
package neut

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("neut")

// Errors returned by curve fitting.
var (
	ErrBadInput   = errors.New("invalid curve data")
	ErrNoConverge = errors.New("fit did not converge")
)

// Optimization methods.
const (
	MethodSimplex = "simplex"
	MethodLBFGSB  = "lbfgsb"
)

// Param is a curve parameter which is either fixed by the caller or
// fit freely.
type Param struct {
	Fixed bool
	Value float64
}

// Fix returns a parameter fixed at v.
func Fix(v float64) Param { return Param{Fixed: true, Value: v} }

// Free returns a freely fit parameter.
func Free() Param { return Param{} }

// Options controls curve fitting.
type Options struct {
	// Top and Bottom asymptotes; fit freely unless fixed.
	Top    Param
	Bottom Param
	// Method selects the optimizer, MethodSimplex by default.
	Method string
}

// DefaultOptions fixes the top asymptote at 1 and fits the bottom
// freely, matching the usual normalization of fraction-surviving
// data.
func DefaultOptions() Options {
	return Options{Top: Fix(1)}
}

// logistic is the four-parameter logistic model.
func logistic(c, midpoint, slope, bottom, top float64) float64 {
	return bottom + (top-bottom)/(1+math.Pow(c/midpoint, slope))
}

// Curve is a fitted four-parameter logistic neutralization curve.
type Curve struct {
	// Cs and Fs are the fitted data, sorted by ascending
	// concentration.
	Cs []float64
	Fs []float64

	Midpoint float64
	Slope    float64
	Bottom   float64
	Top      float64

	// SSR is the sum of squared residuals at the optimum.
	SSR float64

	fixedTop    bool
	fixedBottom bool
	// cov is the covariance matrix over the free parameters, in the
	// order of freeParams(); nil when unavailable.
	cov []float64
}

// Evaluate returns the fitted fraction surviving at a concentration.
func (cv *Curve) Evaluate(c float64) float64 {
	return logistic(c, cv.Midpoint, cv.Slope, cv.Bottom, cv.Top)
}

// Fit fits the four-parameter logistic f(c) = bottom +
// (top-bottom)/(1+(c/midpoint)^slope) to the data by least squares.
// The arrays are parallel; concentrations must be positive.
func Fit(cs, fs []float64, opts Options) (*Curve, error) {
	if len(cs) != len(fs) {
		return nil, fmt.Errorf("%w: %d concentrations, %d fractions",
			ErrBadInput, len(cs), len(fs))
	}
	if len(cs) < 1 {
		return nil, fmt.Errorf("%w: no data", ErrBadInput)
	}
	method := opts.Method
	if method == "" {
		method = MethodSimplex
	}
	if method != MethodSimplex && method != MethodLBFGSB {
		return nil, fmt.Errorf("%w: unknown method %q", ErrBadInput, opts.Method)
	}

	cv := &Curve{
		Cs:          append([]float64(nil), cs...),
		Fs:          append([]float64(nil), fs...),
		fixedTop:    opts.Top.Fixed,
		fixedBottom: opts.Bottom.Fixed,
	}
	sort.Sort(byConcentration{cv.Cs, cv.Fs})
	for _, c := range cv.Cs {
		if c <= 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: non-positive concentration %v",
				ErrBadInput, c)
		}
	}

	cv.seed(opts)
	log.Debugf("seeds: midpoint=%g slope=%g bottom=%g top=%g",
		cv.Midpoint, cv.Slope, cv.Bottom, cv.Top)

	x0 := cv.pack()
	var x []float64
	var ssr float64
	var err error
	switch method {
	case MethodSimplex:
		x, ssr, err = minimizeSimplex(cv.objective, x0)
	case MethodLBFGSB:
		x, ssr, err = minimizeLBFGSB(cv.objective, x0, cv.bounds())
	}
	if err != nil {
		return nil, err
	}
	cv.unpack(x)
	cv.SSR = ssr
	cv.estimateCovariance()

	log.Debugf("fit: midpoint=%g slope=%g bottom=%g top=%g ssr=%g",
		cv.Midpoint, cv.Slope, cv.Bottom, cv.Top, cv.SSR)
	return cv, nil
}

// seed initializes the parameters from the data, following the
// conventions for neutralization assays: fraction surviving starts
// near the top asymptote at low concentration and decays toward the
// bottom when the slope is positive.
func (cv *Curve) seed(opts Options) {
	n := len(cv.Fs)

	if cv.Fs[0] >= cv.Fs[n-1] {
		cv.Slope = 1.5
	} else {
		cv.Slope = -1.5
	}

	minF, maxF := cv.Fs[0], cv.Fs[0]
	for _, f := range cv.Fs {
		maxF = math.Max(maxF, f)
		minF = math.Min(minF, f)
	}
	// Extrema assignment depends on the slope sign: decaying data
	// starts at the top, rising data ends there.
	top, bottom := maxF, minF
	if cv.Slope < 0 {
		top, bottom = minF, maxF
	}
	if opts.Top.Fixed {
		top = opts.Top.Value
	}
	if opts.Bottom.Fixed {
		bottom = opts.Bottom.Value
	}
	cv.Top = top
	cv.Bottom = bottom

	// Midpoint seed: midpoint of the concentration bracket where the
	// data first crosses the half-amplitude line; the nearest
	// concentration boundary when there is no crossing.
	midline := (top - bottom) / 2
	cv.Midpoint = math.NaN()
	for i := 0; i+1 < n; i++ {
		if (cv.Fs[i]-midline)*(cv.Fs[i+1]-midline) <= 0 {
			cv.Midpoint = (cv.Cs[i] + cv.Cs[i+1]) / 2
			break
		}
	}
	if math.IsNaN(cv.Midpoint) {
		above := cv.Fs[0] > midline
		if above == (cv.Slope > 0) {
			cv.Midpoint = cv.Cs[n-1]
		} else {
			cv.Midpoint = cv.Cs[0]
		}
	}
}

// pack builds the free parameter vector: midpoint and slope, then
// bottom and top when not fixed.
func (cv *Curve) pack() []float64 {
	x := []float64{cv.Midpoint, cv.Slope}
	if !cv.fixedBottom {
		x = append(x, cv.Bottom)
	}
	if !cv.fixedTop {
		x = append(x, cv.Top)
	}
	return x
}

func (cv *Curve) unpack(x []float64) {
	cv.Midpoint = x[0]
	cv.Slope = x[1]
	i := 2
	if !cv.fixedBottom {
		cv.Bottom = x[i]
		i++
	}
	if !cv.fixedTop {
		cv.Top = x[i]
	}
}

// objective is the sum of squared residuals over the free parameter
// vector. Out-of-domain midpoints are rejected with +Inf.
func (cv *Curve) objective(x []float64) float64 {
	m, s := x[0], x[1]
	b, t := cv.Bottom, cv.Top
	i := 2
	if !cv.fixedBottom {
		b = x[i]
		i++
	}
	if !cv.fixedTop {
		t = x[i]
	}
	if m <= 0 || math.IsNaN(m) || math.IsNaN(s) {
		return math.Inf(+1)
	}
	ssr := 0.0
	for i, c := range cv.Cs {
		r := logistic(c, m, s, b, t) - cv.Fs[i]
		ssr += r * r
	}
	if math.IsNaN(ssr) {
		return math.Inf(+1)
	}
	return ssr
}

// bounds gives the LBFGS-B box: the midpoint stays positive, the
// other parameters are unbounded.
func (cv *Curve) bounds() [][2]float64 {
	b := make([][2]float64, len(cv.pack()))
	b[0] = [2]float64{1e-12, math.Inf(+1)}
	for i := 1; i < len(b); i++ {
		b[i] = [2]float64{math.Inf(-1), math.Inf(+1)}
	}
	return b
}

// IC50 solves f(ic50) = 0.5 analytically. The bool result is false
// when the curve never crosses 0.5 or, unless extrapolate is set,
// when the solution falls outside the tested concentration range.
func (cv *Curve) IC50(extrapolate bool) (float64, bool) {
	ic50, ok := cv.ic50Exact()
	if !ok {
		return 0, false
	}
	if !extrapolate && (ic50 < cv.Cs[0] || ic50 > cv.Cs[len(cv.Cs)-1]) {
		return 0, false
	}
	return ic50, true
}

func (cv *Curve) ic50Exact() (float64, bool) {
	if cv.Slope == 0 || cv.Top == cv.Bottom {
		return 0, false
	}
	num := cv.Top - 0.5
	den := 0.5 - cv.Bottom
	// Top and bottom on the same side of 0.5: no crossing.
	if num*den <= 0 {
		return 0, false
	}
	ic50 := cv.Midpoint * math.Pow(num/den, 1/cv.Slope)
	if math.IsNaN(ic50) || math.IsInf(ic50, 0) {
		return 0, false
	}
	return ic50, true
}

func formatConc(c float64) string {
	return strconv.FormatFloat(c, 'e', 2, 64)
}

// IC50String formats the IC50 for reporting. An IC50 beyond the
// tested concentration range becomes a bound anchored at the range
// limit; a curve that never reaches 0.5 reports "NA".
func (cv *Curve) IC50String() string {
	ic50, ok := cv.ic50Exact()
	if !ok {
		return "NA"
	}
	switch {
	case ic50 > cv.Cs[len(cv.Cs)-1]:
		return ">" + formatConc(cv.Cs[len(cv.Cs)-1])
	case ic50 < cv.Cs[0]:
		return "<" + formatConc(cv.Cs[0])
	}
	return formatConc(ic50)
}

// byConcentration co-sorts the data arrays by concentration.
type byConcentration struct {
	cs, fs []float64
}

func (b byConcentration) Len() int           { return len(b.cs) }
func (b byConcentration) Less(i, j int) bool { return b.cs[i] < b.cs[j] }
func (b byConcentration) Swap(i, j int) {
	b.cs[i], b.cs[j] = b.cs[j], b.cs[i]
	b.fs[i], b.fs[j] = b.fs[j], b.fs[i]
}
