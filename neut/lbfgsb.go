package neut

import (
	"fmt"
	"math"

	lbfgsb "github.com/afbarnard/go-lbfgsb"
)

// objective adapts a plain function to the LBFGS-B interface,
// approximating the gradient by central differences.
type objective struct {
	fn   func([]float64) float64
	dH   float64
	grad []float64
}

func (o *objective) EvaluateFunction(x []float64) float64 {
	return o.fn(x)
}

func (o *objective) EvaluateGradient(x []float64) []float64 {
	if o.grad == nil {
		o.grad = make([]float64, len(x))
	}
	point := append([]float64(nil), x...)
	for i := range x {
		point[i] = x[i] - o.dH
		l1 := o.fn(point)
		point[i] = x[i] + o.dH
		l2 := o.fn(point)
		point[i] = x[i]
		o.grad[i] = (l2 - l1) / 2 / o.dH
	}
	return o.grad
}

// minimizeLBFGSB minimizes fn within the bounds using LBFGS-B.
func minimizeLBFGSB(fn func([]float64) float64, x0 []float64, bounds [][2]float64) ([]float64, float64, error) {
	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-12)
	opt.SetGTolerance(1e-12)
	opt.SetBounds(bounds)

	min, exitStatus := opt.Minimize(&objective{fn: fn, dH: 1e-8}, x0)
	log.Debugf("lbfgsb exit status: %v", exitStatus)
	if exitStatus.Code != lbfgsb.SUCCESS && exitStatus.Code != lbfgsb.APPROXIMATE {
		return nil, 0, fmt.Errorf("%w: %v", ErrNoConverge, exitStatus)
	}
	if math.IsNaN(min.F) || math.IsInf(min.F, 0) {
		return nil, 0, fmt.Errorf("%w: non-finite optimum", ErrNoConverge)
	}
	return min.X, min.F, nil
}
