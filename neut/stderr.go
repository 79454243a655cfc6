package neut

import (
	"math"

	"github.com/gonum/mathext"
	"github.com/gonum/matrix/mat64"
)

// ParamID identifies a curve parameter.
type ParamID int

const (
	ParamMidpoint ParamID = iota
	ParamSlope
	ParamBottom
	ParamTop
)

func (p ParamID) String() string {
	switch p {
	case ParamMidpoint:
		return "midpoint"
	case ParamSlope:
		return "slope"
	case ParamBottom:
		return "bottom"
	case ParamTop:
		return "top"
	}
	return "unknown"
}

// freeParams lists the freely fit parameters in the order of the
// optimization vector.
func (cv *Curve) freeParams() []ParamID {
	free := []ParamID{ParamMidpoint, ParamSlope}
	if !cv.fixedBottom {
		free = append(free, ParamBottom)
	}
	if !cv.fixedTop {
		free = append(free, ParamTop)
	}
	return free
}

// Value returns the fitted value of a parameter.
func (cv *Curve) Value(p ParamID) float64 {
	switch p {
	case ParamMidpoint:
		return cv.Midpoint
	case ParamSlope:
		return cv.Slope
	case ParamBottom:
		return cv.Bottom
	case ParamTop:
		return cv.Top
	}
	panic("unknown parameter")
}

// estimateCovariance approximates the covariance of the free
// parameters as s2*(J'J)^-1, with J the Jacobian of the model at the
// optimum and s2 the residual variance. The covariance stays nil
// when there are no residual degrees of freedom or J'J is singular.
func (cv *Curve) estimateCovariance() {
	free := cv.freeParams()
	n, k := len(cv.Cs), len(free)
	if n <= k {
		return
	}

	x := cv.pack()
	jac := mat64.NewDense(n, k, nil)
	point := append([]float64(nil), x...)
	for j := 0; j < k; j++ {
		dh := math.Max(1e-8, 1e-8*math.Abs(x[j]))
		point[j] = x[j] - dh
		lo := cv.predictions(point)
		point[j] = x[j] + dh
		hi := cv.predictions(point)
		point[j] = x[j]
		for i := 0; i < n; i++ {
			jac.Set(i, j, (hi[i]-lo[i])/(2*dh))
		}
	}

	var jtj mat64.Dense
	jtj.Mul(jac.T(), jac)
	var inv mat64.Dense
	if err := inv.Inverse(&jtj); err != nil {
		log.Debugf("singular J'J, no covariance: %v", err)
		return
	}

	s2 := cv.SSR / float64(n-k)
	cv.cov = make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			cv.cov[i*k+j] = s2 * inv.At(i, j)
		}
	}
}

// predictions evaluates the model at every concentration for a free
// parameter vector.
func (cv *Curve) predictions(x []float64) []float64 {
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
	preds := make([]float64, len(cv.Cs))
	for i, c := range cv.Cs {
		preds[i] = logistic(c, m, s, b, t)
	}
	return preds
}

// StdErr returns the approximate standard error of a fitted
// parameter. The bool result is false for fixed parameters and when
// no covariance estimate is available.
func (cv *Curve) StdErr(p ParamID) (float64, bool) {
	if cv.cov == nil {
		return 0, false
	}
	free := cv.freeParams()
	for i, fp := range free {
		if fp == p {
			v := cv.cov[i*len(free)+i]
			if v < 0 {
				return 0, false
			}
			return math.Sqrt(v), true
		}
	}
	return 0, false
}

// ConfInt returns the Wald confidence interval of a fitted parameter
// at the given level (e.g. 0.95).
func (cv *Curve) ConfInt(p ParamID, level float64) (lo, hi float64, ok bool) {
	se, ok := cv.StdErr(p)
	if !ok || level <= 0 || level >= 1 {
		return 0, 0, false
	}
	z := mathext.NormalQuantile(0.5 + level/2)
	v := cv.Value(p)
	return v - z*se, v + z*se, true
}
