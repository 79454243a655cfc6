package neut

import (
	"math"
)

const (
	// TINY prevents division by zero in the convergence test.
	TINY = 1e-10
	// SMALL is the tolerance for accepting a restarted optimum.
	SMALL = 1e-9

	simplexFtol = 1e-12
	simplexIter = 20000
)

// simplex is a downhill simplex (Nelder-Mead) minimizer following
// Numerical Recipes.
type simplex struct {
	fn     func([]float64) float64
	points [][]float64
	l      []float64
	psum   []float64
	ndim   int
}

func newSimplex(fn func([]float64) float64, x0 []float64) *simplex {
	ds := &simplex{
		fn:   fn,
		ndim: len(x0),
	}
	ds.create(x0)
	return ds
}

// create builds the initial simplex around x0, displacing one
// coordinate per vertex.
func (ds *simplex) create(x0 []float64) {
	ds.points = make([][]float64, ds.ndim+1)
	ds.l = make([]float64, ds.ndim+1)
	for i := range ds.points {
		point := append([]float64(nil), x0...)
		if i > 0 {
			delta := math.Max(0.1*math.Abs(point[i-1]), 1e-4)
			point[i-1] += delta
		}
		ds.points[i] = point
		ds.l[i] = ds.fn(point)
	}
}

func (ds *simplex) calcPsum() {
	ds.psum = make([]float64, ds.ndim)
	for i := range ds.psum {
		for _, point := range ds.points {
			ds.psum[i] += point[i]
		}
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the high point, tries it, and replaces the high point
// if the new point is better.
func (ds *simplex) amotry(ihi int, fac float64) float64 {
	ds.calcPsum()
	fac1 := (1 - fac) / float64(ds.ndim)
	fac2 := fac1 - fac
	try := make([]float64, ds.ndim)
	for j := 0; j < ds.ndim; j++ {
		try[j] = ds.psum[j]*fac1 - ds.points[ihi][j]*fac2
	}
	l := ds.fn(try)
	if l < ds.l[ihi] {
		ds.points[ihi] = try
		ds.l[ihi] = l
	}
	return l
}

// minimizeSimplex minimizes fn starting from x0 and returns the best
// point and its value. After the first convergence the simplex is
// rebuilt around the optimum and the search repeated once to escape
// premature collapse.
func minimizeSimplex(fn func([]float64) float64, x0 []float64) ([]float64, float64, error) {
	ds := newSimplex(fn, x0)
	repeat := false
	oldL := math.Inf(+1)

	for iter := 1; iter <= simplexIter; iter++ {
		// Lowest, next-highest and highest points.
		var ilo, inhi, ihi int
		if ds.l[0] > ds.l[1] {
			ihi, inhi, ilo = 0, 1, 1
		} else {
			ihi, inhi, ilo = 1, 0, 0
		}
		for i := 2; i < len(ds.points); i++ {
			switch {
			case ds.l[i] <= ds.l[ilo]:
				ilo = i
			case ds.l[i] > ds.l[ihi]:
				inhi = ihi
				ihi = i
			case ds.l[i] > ds.l[inhi]:
				inhi = i
			}
		}

		rtol := 2 * math.Abs(ds.l[ihi]-ds.l[ilo]) /
			(math.Abs(ds.l[ihi]) + math.Abs(ds.l[ilo]) + TINY)
		if rtol < simplexFtol {
			if repeat && math.Abs(oldL-ds.l[ilo]) < SMALL {
				return ds.points[ilo], ds.l[ilo], nil
			}
			repeat = true
			oldL = ds.l[ilo]
			log.Debugf("simplex converged at %d iterations, retrying", iter)
			ds.create(ds.points[ilo])
			continue
		}

		l := ds.amotry(ihi, -1)
		switch {
		case l <= ds.l[ilo]:
			ds.amotry(ihi, 2)
		case l >= ds.l[inhi]:
			lsave := ds.l[ihi]
			l := ds.amotry(ihi, 0.5)
			if l >= lsave {
				// Contract around the low point.
				for i, point := range ds.points {
					if i == ilo {
						continue
					}
					for j := range point {
						point[j] = 0.5 * (point[j] + ds.points[ilo][j])
					}
					ds.l[i] = ds.fn(point)
				}
			}
		}
	}

	log.Warningf("simplex iterations exceeded (%d)", simplexIter)
	return nil, 0, ErrNoConverge
}
