package neut

import (
	"errors"
	"math"
	"testing"

	"github.com/op/go-logging"
)

const (
	// smallDiff is a threshold for recovered parameters
	smallDiff = 1e-3
)

func init() {
	logging.SetLevel(logging.WARNING, "neut")
}

func simData(midpoint, slope, bottom, top float64, cs []float64) []float64 {
	fs := make([]float64, len(cs))
	for i, c := range cs {
		fs[i] = logistic(c, midpoint, slope, bottom, top)
	}
	return fs
}

func doubling(start float64, n int) []float64 {
	cs := make([]float64, n)
	c := start
	for i := range cs {
		cs[i] = c
		c *= 2
	}
	return cs
}

func TestSeed(tst *testing.T) {
	// Decaying data: slope +1.5, top from the maximum, bottom from
	// the minimum, midpoint bracketing the (top-bottom)/2 crossing.
	cv := &Curve{Cs: []float64{1, 2, 4, 8}, Fs: []float64{1.0, 0.8, 0.3, 0.2}}
	cv.seed(Options{})
	if cv.Slope != 1.5 {
		tst.Error("Expected slope seed 1.5, got", cv.Slope)
	}
	if cv.Top != 1.0 || cv.Bottom != 0.2 {
		tst.Error("Expected extrema seeds 1.0/0.2, got", cv.Top, cv.Bottom)
	}
	// Half-amplitude is 0.4, crossed between concentrations 2 and 4.
	if cv.Midpoint != 3 {
		tst.Error("Expected midpoint seed 3, got", cv.Midpoint)
	}

	// Rising data: slope -1.5 and the extrema swap.
	cv = &Curve{Cs: []float64{1, 2, 4, 8}, Fs: []float64{0.2, 0.3, 0.8, 1.0}}
	cv.seed(Options{})
	if cv.Slope != -1.5 {
		tst.Error("Expected slope seed -1.5, got", cv.Slope)
	}
	if cv.Top != 0.2 || cv.Bottom != 1.0 {
		tst.Error("Expected extrema seeds 0.2/1.0, got", cv.Top, cv.Bottom)
	}

	// Fixed asymptotes override the extrema and set the half
	// amplitude; data never dropping to it seeds the high boundary.
	cv = &Curve{Cs: []float64{1, 2, 4, 8}, Fs: []float64{1.0, 0.99, 0.98, 0.97}}
	cv.seed(Options{Top: Fix(1), Bottom: Fix(0)})
	if cv.Top != 1 || cv.Bottom != 0 {
		tst.Error("Expected fixed asymptotes, got", cv.Top, cv.Bottom)
	}
	if cv.Midpoint != 8 {
		tst.Error("Expected boundary midpoint seed 8, got", cv.Midpoint)
	}
}

func TestFitRecover(tst *testing.T) {
	cs := doubling(0.002, 9)
	fs := simData(0.03, 1.9, 0.1, 1.0, cs)

	cv, err := Fit(cs, fs, DefaultOptions())
	if err != nil {
		tst.Fatal("Error fitting:", err)
	}

	tst.Log("midpoint=", cv.Midpoint, ", slope=", cv.Slope,
		", bottom=", cv.Bottom, ", top=", cv.Top, ", ssr=", cv.SSR)
	if math.Abs(cv.Midpoint-0.03) > smallDiff {
		tst.Error("Expected midpoint 0.03, got", cv.Midpoint)
	}
	if math.Abs(cv.Slope-1.9) > 10*smallDiff {
		tst.Error("Expected slope 1.9, got", cv.Slope)
	}
	if math.Abs(cv.Bottom-0.1) > smallDiff {
		tst.Error("Expected bottom 0.1, got", cv.Bottom)
	}
	if cv.Top != 1.0 {
		tst.Error("Expected fixed top 1.0, got", cv.Top)
	}

	ic50, ok := cv.IC50(false)
	if !ok {
		tst.Fatal("Expected defined ic50")
	}
	// With bottom > 0 the curve needs a higher concentration than
	// the midpoint to reach 0.5.
	if ic50 <= cv.Midpoint {
		tst.Error("Expected ic50 above midpoint, got", ic50)
	}
	refIC50 := 0.03 * math.Pow((1.0-0.5)/(0.5-0.1), 1/1.9)
	if math.Abs(ic50-refIC50) > smallDiff {
		tst.Error("Expected ic50", refIC50, ", got", ic50)
	}
}

func TestFitUnsortedInput(tst *testing.T) {
	cs := doubling(0.002, 9)
	fs := simData(0.03, 1.9, 0.1, 1.0, cs)
	// Reverse the input; Fit sorts by concentration.
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
		fs[i], fs[j] = fs[j], fs[i]
	}

	cv, err := Fit(cs, fs, DefaultOptions())
	if err != nil {
		tst.Fatal("Error fitting:", err)
	}
	if math.Abs(cv.Midpoint-0.03) > smallDiff {
		tst.Error("Expected midpoint 0.03, got", cv.Midpoint)
	}
	if cv.Cs[0] != 0.002 {
		tst.Error("Data not sorted by concentration:", cv.Cs[0])
	}
}

func TestFitFixedBottom(tst *testing.T) {
	cs := doubling(0.002, 9)
	fs := simData(0.03, 1.9, 0, 1.0, cs)

	opts := Options{Top: Fix(1), Bottom: Fix(0)}
	cv, err := Fit(cs, fs, opts)
	if err != nil {
		tst.Fatal("Error fitting:", err)
	}

	// With top=1 and bottom=0 the ic50 is exactly the midpoint.
	ic50, ok := cv.IC50(false)
	if !ok {
		tst.Fatal("Expected defined ic50")
	}
	if math.Abs(ic50-cv.Midpoint) > 1e-9 {
		tst.Error("Expected ic50 == midpoint, got", ic50, "and", cv.Midpoint)
	}
	if math.Abs(ic50-0.03) > smallDiff {
		tst.Error("Expected ic50 0.03, got", ic50)
	}
}

func TestIC50OutOfRange(tst *testing.T) {
	// All concentrations well below the true midpoint: the solution
	// exists only beyond the tested range.
	cs := doubling(1e-5, 7)
	fs := simData(0.03, 1.9, 0, 1.0, cs)

	cv, err := Fit(cs, fs, Options{Top: Fix(1), Bottom: Fix(0)})
	if err != nil {
		tst.Fatal("Error fitting:", err)
	}

	if _, ok := cv.IC50(false); ok {
		tst.Error("Expected undefined ic50 outside tested range")
	}
	if ic50, ok := cv.IC50(true); !ok || ic50 <= cs[len(cs)-1] {
		tst.Error("Expected extrapolated ic50 above range, got", ic50, ok)
	}
	if s := cv.IC50String(); s != ">6.40e-04" {
		tst.Error("Expected >6.40e-04, got", s)
	}
}

func TestIC50Undefined(tst *testing.T) {
	cv := &Curve{
		Cs: []float64{0.001, 0.1}, Fs: []float64{0.9, 0.8},
		Midpoint: 0.01, Slope: 1.5, Bottom: 0.6, Top: 1.0,
	}
	// Bottom and top both above 0.5: the curve never crosses it.
	if _, ok := cv.IC50(true); ok {
		tst.Error("Expected undefined ic50")
	}
	if s := cv.IC50String(); s != "NA" {
		tst.Error("Expected NA, got", s)
	}

	cv.Bottom = 0
	cv.Slope = 0
	if _, ok := cv.IC50(true); ok {
		tst.Error("Expected undefined ic50 for zero slope")
	}
}

func TestEvaluate(tst *testing.T) {
	cv := &Curve{Midpoint: 0.03, Slope: 1.9, Bottom: 0.1, Top: 1.0}
	// At the midpoint the curve is at its half-amplitude point.
	mid := cv.Evaluate(0.03)
	if math.Abs(mid-0.55) > 1e-12 {
		tst.Error("Expected 0.55 at midpoint, got", mid)
	}
	if cv.Evaluate(1e-9) < 0.999 {
		tst.Error("Expected top asymptote at low concentration")
	}
	if cv.Evaluate(1e9) > 0.101 {
		tst.Error("Expected bottom asymptote at high concentration")
	}
}

func TestFitErrors(tst *testing.T) {
	if _, err := Fit([]float64{1, 2}, []float64{0.5}, DefaultOptions()); !errors.Is(err, ErrBadInput) {
		tst.Error("Expected ErrBadInput for length mismatch, got", err)
	}
	if _, err := Fit(nil, nil, DefaultOptions()); !errors.Is(err, ErrBadInput) {
		tst.Error("Expected ErrBadInput for empty data, got", err)
	}
	if _, err := Fit([]float64{0}, []float64{1}, DefaultOptions()); !errors.Is(err, ErrBadInput) {
		tst.Error("Expected ErrBadInput for zero concentration, got", err)
	}
	opts := DefaultOptions()
	opts.Method = "newton"
	if _, err := Fit([]float64{1}, []float64{1}, opts); !errors.Is(err, ErrBadInput) {
		tst.Error("Expected ErrBadInput for unknown method, got", err)
	}
}

func TestStdErr(tst *testing.T) {
	cs := doubling(0.002, 9)
	fs := simData(0.03, 1.9, 0.1, 1.0, cs)

	cv, err := Fit(cs, fs, DefaultOptions())
	if err != nil {
		tst.Fatal("Error fitting:", err)
	}

	for _, p := range []ParamID{ParamMidpoint, ParamSlope, ParamBottom} {
		se, ok := cv.StdErr(p)
		if !ok {
			tst.Error("Expected standard error for", p)
			continue
		}
		tst.Log(p, "se =", se)
		// Noise-free data fits almost exactly.
		if se > smallDiff {
			tst.Error("Expected near-zero standard error for", p, ", got", se)
		}
		lo, hi, ok := cv.ConfInt(p, 0.95)
		if !ok || lo > cv.Value(p) || hi < cv.Value(p) {
			tst.Error("Confidence interval does not cover the estimate for", p)
		}
	}

	// Fixed parameters have no standard error.
	if _, ok := cv.StdErr(ParamTop); ok {
		tst.Error("Unexpected standard error for a fixed parameter")
	}
}
